package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedContract(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Contains(t, c.Tables(), "properties")
	assert.Contains(t, c.Tables(), "portfolio_members")
	assert.True(t, c.HasTable("expenses"))
	assert.False(t, c.HasTable("pg_tables"))
}

func TestHasTableIsCaseInsensitive(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.True(t, c.HasTable("Properties"))
	assert.True(t, c.HasTable("PROPERTIES"))
}

func TestHasColumn(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.True(t, c.HasColumn("properties", "currentValue"))
	assert.True(t, c.HasColumn("properties", "currentvalue"))
	assert.False(t, c.HasColumn("properties", "secretColumn"))
	assert.False(t, c.HasColumn("nope", "id"))
}

func TestDescribeIsStableAndCoversEveryTable(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	first := c.Describe()
	second := c.Describe()
	assert.Equal(t, first, second)

	for _, table := range c.Tables() {
		assert.Contains(t, first, "## "+table)
		for _, col := range c.ColumnsOf(table) {
			assert.Contains(t, first, `"`+col+`"`)
		}
	}
	assert.Contains(t, first, "## Relationships")
}

func TestDescribeAndAllowListShareOneSource(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	// Every table mentioned in the description header set is in the
	// allow-list, and vice versa.
	desc := c.Describe()
	for _, line := range strings.Split(desc, "\n") {
		if name, ok := strings.CutPrefix(line, "## "); ok && name != "Relationships" {
			assert.True(t, c.HasTable(strings.Fields(name)[0]), "described table %q missing from allow-list", name)
		}
	}
	for _, table := range c.Tables() {
		assert.Contains(t, desc, "## "+table)
	}
}

func TestParseRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"no tables", "tables: []"},
		{"table without columns", "tables:\n  - name: things\n    columns: []"},
		{"duplicate table", "tables:\n  - name: things\n    columns: [{name: id, type: uuid}]\n  - name: THINGS\n    columns: [{name: id, type: uuid}]"},
		{"invalid yaml", "tables: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestJoinsAreDeclared(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	joins := c.Joins()
	require.NotEmpty(t, joins)
	for _, j := range joins {
		fromTable, _, ok := strings.Cut(j.From, ".")
		require.True(t, ok, "join %q is not table.column", j.From)
		toTable, _, ok := strings.Cut(j.To, ".")
		require.True(t, ok, "join %q is not table.column", j.To)
		assert.True(t, c.HasTable(fromTable))
		assert.True(t, c.HasTable(toTable))
	}
}
