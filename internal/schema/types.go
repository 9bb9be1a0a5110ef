package schema

import (
	"strings"

	"github.com/koustreak/pgi/internal/errs"
	"go.yaml.in/yaml/v3"
)

// NoPrimaryKey is stored as PrimaryKey for tables without a primary key.
const NoPrimaryKey = "_none_"

// Column is a column name and its pg_type name (int4, text, timestamptz, …).
type Column struct {
	Name string
	Type string
}

// Columns is ordered by physical column position, as reported by the
// server for SELECT * on the table.
type Columns []Column

// Type returns the type name of column name.
func (c Columns) Type(name string) (string, bool) {
	for _, col := range c {
		if col.Name == name {
			return col.Type, true
		}
	}
	return "", false
}

// Names returns the column names in order.
func (c Columns) Names() []string {
	names := make([]string, len(c))
	for i, col := range c {
		names[i] = col.Name
	}
	return names
}

// UnmarshalYAML reads a mapping of column → type keeping document order.
func (c *Columns) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errs.Newf(errs.ErrKindConfigLoad, "columns: expected a mapping at line %d", node.Line)
	}
	out := make(Columns, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		out = append(out, Column{Name: node.Content[i].Value, Type: node.Content[i+1].Value})
	}
	*c = out
	return nil
}

// MarshalYAML writes the columns as an ordered mapping.
func (c Columns) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, col := range c {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col.Type},
		)
	}
	return node, nil
}

// TableMetadata is everything pgi knows about one table.
// The YAML form is the tables_details entry of the configuration document.
type TableMetadata struct {
	Schema     string  `yaml:"schema"`
	Table      string  `yaml:"table"`
	Columns    Columns `yaml:"columns"`
	PrimaryKey string  `yaml:"primary_key"`
}

// HasPrimaryKey reports whether the table has a primary key.
func (m TableMetadata) HasPrimaryKey() bool {
	return m.PrimaryKey != "" && m.PrimaryKey != NoPrimaryKey
}

// Entry pairs a qualified table name with its metadata.
type Entry struct {
	Name     string
	Metadata TableMetadata
}

// SplitQualified splits "schema.table" on the first dot. Text after a second
// dot is dropped. A name without a dot has an empty schema.
func SplitQualified(qualified string) (schema, table string) {
	i := strings.IndexByte(qualified, '.')
	if i < 0 {
		return "", qualified
	}
	schema, table = qualified[:i], qualified[i+1:]
	if j := strings.IndexByte(table, '.'); j >= 0 {
		table = table[:j]
	}
	return schema, table
}
