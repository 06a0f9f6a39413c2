// Package schema holds the contract describing which tables and columns
// generated queries may reference. The contract is parsed once from an
// embedded YAML document; the prompt schema dump and the sanitizer allow-list
// are both derived from that single parse, so they cannot diverge.
package schema

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
	"gopkg.in/yaml.v3"
)

//go:embed contract.yaml
var contractYAML []byte

// Column is one sanctioned column with its semantic type.
type Column struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Table is one sanctioned table with its ordered column set.
type Table struct {
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`
}

// Join declares a foreign-key-like relationship between two columns,
// written as "table.column".
type Join struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type document struct {
	Tables []Table `yaml:"tables"`
	Joins  []Join  `yaml:"joins"`
}

// Contract is the immutable allow-list of queryable tables and columns.
// It is safe for concurrent use after Load.
type Contract struct {
	tables   []Table
	joins    []Join
	byName   map[string]*Table
	columns  map[string]map[string]bool
	describe string
}

// Load parses the embedded contract document. Called once at startup.
func Load() (*Contract, error) {
	return Parse(contractYAML)
}

// Parse builds a Contract from a YAML document. Exposed for tests that
// exercise alternative contracts.
func Parse(data []byte) (*Contract, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema contract: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("schema contract declares no tables")
	}

	c := &Contract{
		tables:  doc.Tables,
		joins:   doc.Joins,
		byName:  make(map[string]*Table, len(doc.Tables)),
		columns: make(map[string]map[string]bool, len(doc.Tables)),
	}

	for i := range doc.Tables {
		t := &doc.Tables[i]
		key := strings.ToLower(t.Name)
		if _, exists := c.byName[key]; exists {
			return nil, fmt.Errorf("duplicate table %q in schema contract", t.Name)
		}
		if len(t.Columns) == 0 {
			return nil, fmt.Errorf("table %q declares no columns", t.Name)
		}
		c.byName[key] = t

		cols := make(map[string]bool, len(t.Columns))
		for _, col := range t.Columns {
			cols[strings.ToLower(col.Name)] = true
		}
		c.columns[key] = cols
	}

	c.describe = buildDescription(&doc)
	return c, nil
}

// Tables returns the sanctioned table names in contract order.
func (c *Contract) Tables() []string {
	names := make([]string, len(c.tables))
	for i, t := range c.tables {
		names[i] = t.Name
	}
	return names
}

// HasTable reports whether the named table is sanctioned. Matching is
// case-insensitive because unquoted PostgreSQL identifiers fold to lowercase.
func (c *Contract) HasTable(name string) bool {
	_, ok := c.byName[strings.ToLower(name)]
	return ok
}

// ColumnsOf returns the ordered column names of a sanctioned table, or nil
// if the table is not in the contract.
func (c *Contract) ColumnsOf(table string) []string {
	t, ok := c.byName[strings.ToLower(table)]
	if !ok {
		return nil
	}
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// HasColumn reports whether a sanctioned table carries the named column.
func (c *Contract) HasColumn(table, column string) bool {
	cols, ok := c.columns[strings.ToLower(table)]
	if !ok {
		return false
	}
	return cols[strings.ToLower(column)]
}

// Joins returns the declared relationships between sanctioned columns.
func (c *Contract) Joins() []Join {
	return c.joins
}

// Describe returns the human- and LLM-readable schema dump. The text is built
// once at load time and is byte-for-byte stable across calls, keeping the
// prompt prefix cacheable.
func (c *Contract) Describe() string {
	return c.describe
}

func buildDescription(doc *document) string {
	var b strings.Builder
	b.WriteString("Database Schema (PostgreSQL)\n")

	for _, t := range doc.Tables {
		entity := inflection.Singular(strings.ReplaceAll(t.Name, "_", " "))
		fmt.Fprintf(&b, "\n## %s (one row per %s)\n", t.Name, entity)
		for _, col := range t.Columns {
			fmt.Fprintf(&b, "- %q (%s)\n", col.Name, col.Type)
		}
	}

	if len(doc.Joins) > 0 {
		b.WriteString("\n## Relationships\n")
		joins := make([]string, 0, len(doc.Joins))
		for _, j := range doc.Joins {
			joins = append(joins, fmt.Sprintf("- %s references %s\n", j.From, j.To))
		}
		// Contract order is already deterministic; sorting guards against
		// future edits reshuffling the prompt prefix.
		sort.Strings(joins)
		for _, j := range joins {
			b.WriteString(j)
		}
	}

	return b.String()
}
