package filestore

// Config locates an S3-compatible endpoint holding snapshots.
type Config struct {
	Endpoint  string // host:port, e.g. "localhost:9000"
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string

	// DefaultBucket serves s3:///key targets and is checked by Ping.
	DefaultBucket string
}

// DefaultConfig returns a plain-HTTP config, the usual local MinIO setup.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{Endpoint: endpoint, AccessKey: accessKey, SecretKey: secretKey}
}
