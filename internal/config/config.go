// Package config loads the YAML configuration document and exports it back,
// merged with discovered table metadata, as a snapshot.
//
// Example document:
//
//	connection:
//	  host: localhost
//	  port: 5432
//	  dbname: metrics
//	tables: [public.events]
//	field_length_mapping: {text: 20}
//
// The loaded document itself is never mutated; Export writes a copy.
package config

import (
	"bytes"
	"context"
	"os"

	"github.com/koustreak/pgi/internal/database"
	"github.com/koustreak/pgi/internal/errs"
	"github.com/koustreak/pgi/internal/filestore"
	"github.com/koustreak/pgi/internal/logger"
	"github.com/koustreak/pgi/internal/schema"
	"github.com/koustreak/pgi/internal/snapshot"
	"go.yaml.in/yaml/v3"
)

const (
	keyTables        = "tables"
	keyTablesDetails = "tables_details"
)

// Config is the parsed configuration document.
type Config struct {
	Connection         database.Params    `yaml:"connection,omitempty"`
	Tables             []string           `yaml:"tables,omitempty"`
	FieldLengthMapping map[string]int     `yaml:"field_length_mapping,omitempty"`
	TablesDetails      Details            `yaml:"tables_details,omitempty"`
	StatementMode      string             `yaml:"statement_mode,omitempty"`
	Strict             bool               `yaml:"strict,omitempty"`
	Log                *LogConfig         `yaml:"log,omitempty"`
	ObjectStore        *ObjectStoreConfig `yaml:"object_store,omitempty"`

	// root is the document as read, kept so Export preserves keys, order
	// and comments pgi does not interpret.
	root *yaml.Node
}

// LogConfig is the `log:` section.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Logger converts the section into a logger config.
func (l *LogConfig) Logger() *logger.Config {
	cfg := logger.DefaultConfig()
	if l == nil {
		return cfg
	}
	if l.Level != "" {
		cfg.Level = l.Level
	}
	if l.Format != "" {
		cfg.Format = l.Format
	}
	return cfg
}

// ObjectStoreConfig is the `object_store:` section used for s3:// snapshots.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
}

// FileStore converts the section into a filestore config.
func (o *ObjectStoreConfig) FileStore() *filestore.Config {
	cfg := filestore.DefaultConfig(o.Endpoint, o.AccessKey, o.SecretKey)
	cfg.UseSSL = o.UseSSL
	cfg.Region = o.Region
	cfg.DefaultBucket = o.Bucket
	return cfg
}

// Details is the ordered `tables_details:` section.
type Details []schema.Entry

// UnmarshalYAML reads the mapping of qualified name → metadata in order.
func (d *Details) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errs.Newf(errs.ErrKindConfigLoad, "%s: expected a mapping at line %d", keyTablesDetails, node.Line)
	}
	out := make(Details, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var m schema.TableMetadata
		if err := node.Content[i+1].Decode(&m); err != nil {
			return errs.Wrap(errs.ErrKindConfigLoad, keyTablesDetails+"."+node.Content[i].Value, err)
		}
		if m.PrimaryKey == "" {
			m.PrimaryKey = schema.NoPrimaryKey
		}
		out = append(out, schema.Entry{Name: node.Content[i].Value, Metadata: m})
	}
	*d = out
	return nil
}

// MarshalYAML writes the entries as an ordered mapping.
func (d Details) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range d {
		var v yaml.Node
		if err := v.Encode(e.Metadata); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Name},
			&v,
		)
	}
	return node, nil
}

// Load reads and parses the document at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfigLoad, "read "+path, err)
	}
	return Parse(data)
}

// LoadTarget reads the document at target, a file path or s3://bucket/key
// fetched from store. It reloads snapshots written by PersistCache.
func LoadTarget(ctx context.Context, store filestore.Store, target string) (*Config, error) {
	t, err := snapshot.ParseTarget(target, "")
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfigLoad, "configuration target", err)
	}
	if !t.Remote() {
		return Load(t.Path)
	}
	data, err := snapshot.Read(ctx, store, t)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConfigLoad, "read "+t.String(), err)
	}
	return Parse(data)
}

// Parse parses a configuration document.
func Parse(data []byte) (*Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errs.Wrap(errs.ErrKindConfigLoad, "parse configuration", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, errs.New(errs.ErrKindConfigLoad, "configuration must be a mapping")
	}

	cfg := &Config{}
	if err := root.Decode(cfg); err != nil {
		if errs.IsConfigLoad(err) {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrKindConfigLoad, "decode configuration", err)
	}
	cfg.root = &root
	return cfg, nil
}

// Export returns the document with `tables` replaced by tables and
// `tables_details` by details. Everything else is written back as loaded.
func Export(cfg *Config, tables []string, details []schema.Entry) ([]byte, error) {
	var doc *yaml.Node
	if cfg.root != nil {
		doc = cloneNode(cfg.root)
	} else {
		doc = &yaml.Node{Kind: yaml.DocumentNode}
		var body yaml.Node
		if err := body.Encode(cfg); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "encode configuration", err)
		}
		doc.Content = []*yaml.Node{&body}
	}
	body := doc.Content[0]

	var tablesNode, detailsNode yaml.Node
	if err := tablesNode.Encode(tables); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encode tables", err)
	}
	if err := detailsNode.Encode(Details(details)); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encode table details", err)
	}
	setKey(body, keyTables, &tablesNode)
	setKey(body, keyTablesDetails, &detailsNode)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encode snapshot", err)
	}
	if err := enc.Close(); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "encode snapshot", err)
	}
	return buf.Bytes(), nil
}

// setKey replaces the value of key in mapping m, appending it if missing.
func setKey(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Content = make([]*yaml.Node, len(n.Content))
	for i, child := range n.Content {
		c.Content[i] = cloneNode(child)
	}
	c.Alias = cloneNode(n.Alias)
	return &c
}
