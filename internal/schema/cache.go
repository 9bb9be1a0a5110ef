package schema

// Cache holds table metadata keyed by qualified table name, plus the ordered
// list of tables the worker knows about. It grows monotonically.
//
// A table can be known without having metadata: its introspection failed
// and will be retried on next access.
//
// Cache is not safe for concurrent use.
type Cache struct {
	tables map[string]TableMetadata
	known  []string
}

// NewCache returns a cache seeded with the declared table list.
func NewCache(known ...string) *Cache {
	c := &Cache{tables: make(map[string]TableMetadata)}
	for _, name := range known {
		c.AddKnown(name)
	}
	return c
}

// Has reports whether metadata for name is cached.
func (c *Cache) Has(name string) bool {
	_, ok := c.tables[name]
	return ok
}

// Get returns the cached metadata for name.
func (c *Cache) Get(name string) (TableMetadata, bool) {
	m, ok := c.tables[name]
	return m, ok
}

// Put stores metadata for name, replacing what was there, and marks the
// table known.
func (c *Cache) Put(name string, m TableMetadata) {
	c.AddKnown(name)
	c.tables[name] = m
}

// AddKnown appends name to the known list. It reports false when the name
// was already there.
func (c *Cache) AddKnown(name string) bool {
	for _, k := range c.known {
		if k == name {
			return false
		}
	}
	c.known = append(c.known, name)
	return true
}

// Known returns a copy of the known table list.
func (c *Cache) Known() []string {
	return append([]string(nil), c.known...)
}

// Len returns the number of tables with metadata.
func (c *Cache) Len() int {
	return len(c.tables)
}

// Entries returns all cached metadata in known order.
func (c *Cache) Entries() []Entry {
	out := make([]Entry, 0, len(c.tables))
	for _, name := range c.known {
		if m, ok := c.tables[name]; ok {
			out = append(out, Entry{Name: name, Metadata: m})
		}
	}
	return out
}
