package database

import (
	"strings"
	"time"

	"github.com/koustreak/pgi/internal/errs"
	"go.yaml.in/yaml/v3"
)

// Param is one key=value pair of a libpq style connection string.
type Param struct {
	Key   string
	Value string
}

// Params is the `connection:` section of the configuration document.
// Order is the order keys appear in the document.
type Params []Param

// Get returns the value for key and whether it was present.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// ConnString flattens params into "k1=v1 k2=v2 ...".
func (p Params) ConnString() string {
	parts := make([]string, 0, len(p))
	for _, kv := range p {
		parts = append(parts, kv.Key+"="+kv.Value)
	}
	return strings.Join(parts, " ")
}

// UnmarshalYAML keeps document order, which a Go map would lose.
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errs.Newf(errs.ErrKindConfigLoad, "connection: expected a mapping, got line %d", node.Line)
	}
	out := make(Params, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return errs.Newf(errs.ErrKindConfigLoad, "connection.%s: expected a scalar", k.Value)
		}
		out = append(out, Param{Key: k.Value, Value: v.Value})
	}
	*p = out
	return nil
}

// MarshalYAML writes params back as an ordered mapping.
func (p Params) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, kv := range p {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: kv.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: kv.Value},
		)
	}
	return node, nil
}

// Config holds the settings used to open the single worker connection.
type Config struct {
	// Params is flattened into the connection string.
	Params Params

	// ConnectTimeout bounds connection establishment. Zero means the
	// driver default.
	ConnectTimeout time.Duration
}

// DefaultConfig returns a Config for params with a 10s connect timeout.
func DefaultConfig(params Params) *Config {
	return &Config{
		Params:         params,
		ConnectTimeout: 10 * time.Second,
	}
}
