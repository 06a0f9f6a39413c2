package sql

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propfolio/insight-engine/pkg/apperrors"
)

type stubAllowList map[string]bool

func (s stubAllowList) HasTable(name string) bool { return s[name] }

var portfolioTables = stubAllowList{
	"users": true, "properties": true, "expenses": true,
	"maintenance_logs": true, "property_performance_reports": true,
	"rental_agreements": true, "portfolios": true, "portfolio_members": true,
	"portfolio_properties": true, "portfolio_activities": true,
}

func TestSanitizeAcceptsPlainSelect(t *testing.T) {
	stmt, err := Sanitize(`SELECT "city", COUNT(*) FROM properties GROUP BY "city"`, portfolioTables)
	require.NoError(t, err)
	assert.Equal(t, []string{"properties"}, stmt.Tables)
}

func TestSanitizeStripsCodeFences(t *testing.T) {
	raw := "```sql\nSELECT \"name\" FROM properties;\n```"
	stmt, err := Sanitize(raw, portfolioTables)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "name" FROM properties`, stmt.SQL)
}

func TestSanitizeRejectsMultipleStatements(t *testing.T) {
	_, err := Sanitize("SELECT * FROM users; DROP TABLE users;", portfolioTables)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidationRejected)

	var rej *RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, ReasonMultipleStatements, rej.Reason)
	// The raw SQL must never leak through the error.
	assert.NotContains(t, err.Error(), "DROP TABLE")
}

func TestSanitizeAllowsTrailingSemicolon(t *testing.T) {
	stmt, err := Sanitize("SELECT * FROM expenses;", portfolioTables)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM expenses", stmt.SQL)
}

func TestSanitizeAllowsSemicolonInsideStringLiteral(t *testing.T) {
	stmt, err := Sanitize(`SELECT * FROM expenses WHERE "vendor" = 'Smith; Sons'`, portfolioTables)
	require.NoError(t, err)
	assert.Equal(t, []string{"expenses"}, stmt.Tables)
}

func TestSanitizeRejectsNonSelectLeadingKeyword(t *testing.T) {
	for _, raw := range []string{
		"DELETE FROM expenses",
		"UPDATE properties SET \"name\" = 'x'",
		"EXPLAIN SELECT * FROM properties",
		"VACUUM",
	} {
		_, err := Sanitize(raw, portfolioTables)
		var rej *RejectionError
		require.ErrorAs(t, err, &rej, "input: %s", raw)
		assert.Equal(t, ReasonNotReadOnly, rej.Reason, "input: %s", raw)
	}
}

func TestSanitizeAcceptsCTESelect(t *testing.T) {
	raw := `WITH monthly AS (
		SELECT EXTRACT(MONTH FROM "date") AS m, SUM("amount") AS total
		FROM expenses GROUP BY m
	) SELECT * FROM monthly`
	stmt, err := Sanitize(raw, portfolioTables)
	require.NoError(t, err)
	// The CTE name is not a real table and must not hit the allow-list.
	assert.Equal(t, []string{"expenses"}, stmt.Tables)
}

func TestSanitizeRejectsModifyingCTE(t *testing.T) {
	raw := "WITH gone AS (DELETE FROM expenses RETURNING *) SELECT * FROM gone"
	var rej *RejectionError
	_, err := Sanitize(raw, portfolioTables)
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonNotReadOnly, rej.Reason)
}

func TestSanitizeRejectsForbiddenKeywordAnywhere(t *testing.T) {
	raw := "SELECT * FROM properties WHERE 1=1 GRANT ALL"
	var rej *RejectionError
	_, err := Sanitize(raw, portfolioTables)
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonForbiddenKeyword, rej.Reason)
}

func TestSanitizeKeywordInsideStringLiteralIsFine(t *testing.T) {
	stmt, err := Sanitize(`SELECT * FROM expenses WHERE "vendor" = 'DROP SHIPPING LLC'`, portfolioTables)
	require.NoError(t, err)
	assert.Equal(t, []string{"expenses"}, stmt.Tables)
}

func TestSanitizeRejectsUnknownTable(t *testing.T) {
	var rej *RejectionError
	_, err := Sanitize("SELECT * FROM pg_tables", portfolioTables)
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonUnknownTable, rej.Reason)
}

func TestSanitizeRejectsEmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "```sql\n```"} {
		var rej *RejectionError
		_, err := Sanitize(raw, portfolioTables)
		require.ErrorAs(t, err, &rej, "input: %q", raw)
		assert.Equal(t, ReasonEmpty, rej.Reason)
	}
}

func TestSanitizeCollectsJoinedTables(t *testing.T) {
	raw := `SELECT p."city", SUM(e."amount")
		FROM expenses e
		JOIN properties p ON e."propertyId" = p."id"
		GROUP BY p."city"`
	stmt, err := Sanitize(raw, portfolioTables)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"expenses", "properties"}, stmt.Tables)
}

func TestSanitizeExtractFromIsNotATablePosition(t *testing.T) {
	raw := `SELECT EXTRACT(MONTH FROM e."date") AS m, SUM(e."amount")
		FROM expenses e GROUP BY m`
	stmt, err := Sanitize(raw, portfolioTables)
	require.NoError(t, err)
	assert.Equal(t, []string{"expenses"}, stmt.Tables)
}

func TestSanitizeSubqueryTablesAreChecked(t *testing.T) {
	raw := `SELECT * FROM properties WHERE "id" IN (SELECT "propertyId" FROM secret_stash)`
	var rej *RejectionError
	_, err := Sanitize(raw, portfolioTables)
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ReasonUnknownTable, rej.Reason)
}

func TestSanitizeIsIdempotent(t *testing.T) {
	raw := "```sql\nSELECT \"city\" FROM properties;\n```"
	first, err := Sanitize(raw, portfolioTables)
	require.NoError(t, err)

	second, err := Sanitize(first.SQL, portfolioTables)
	require.NoError(t, err)
	assert.Equal(t, first.SQL, second.SQL)
	assert.Equal(t, first.Tables, second.Tables)
}

func TestSanitizeSchemaQualifiedTable(t *testing.T) {
	stmt, err := Sanitize(`SELECT * FROM public.properties`, portfolioTables)
	require.NoError(t, err)
	assert.Equal(t, []string{"properties"}, stmt.Tables)
}

// FuzzSanitize hammers the gates with arbitrary input. Whatever comes in,
// an accepted statement must be a read-only form whose referenced tables all
// sit on the allow-list, and re-sanitizing it must be a fixed point.
func FuzzSanitize(f *testing.F) {
	seeds := []string{
		`SELECT "city" FROM properties`,
		"```sql\nSELECT * FROM expenses;\n```",
		"SELECT * FROM users; DROP TABLE users;",
		"WITH m AS (SELECT 1) SELECT * FROM m",
		"DELETE FROM expenses",
		`SELECT * FROM expenses WHERE "vendor" = 'Smith; Sons'`,
		"SELECT * FROM pg_tables",
		`SELECT EXTRACT(MONTH FROM e."date") FROM expenses e`,
		"select * from PROPERTIES",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		stmt, err := Sanitize(raw, portfolioTables)
		if err != nil {
			var rej *RejectionError
			if !errors.As(err, &rej) {
				t.Fatalf("sanitizer returned a non-rejection error: %v", err)
			}
			return
		}

		upper := strings.ToUpper(strings.TrimSpace(stmt.SQL))
		if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
			t.Errorf("accepted statement is not a read-only form: %q", stmt.SQL)
		}
		for _, table := range stmt.Tables {
			if !portfolioTables.HasTable(table) {
				t.Errorf("accepted statement references a table outside the allow-list: %q", table)
			}
		}

		again, err := Sanitize(stmt.SQL, portfolioTables)
		if err != nil {
			t.Fatalf("accepted statement rejected on re-entry: %v", err)
		}
		if again.SQL != stmt.SQL {
			t.Errorf("sanitize is not idempotent: %q became %q", stmt.SQL, again.SQL)
		}
	})
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", "SELECT 1", "SELECT 1"},
		{"sql tag", "```sql\nSELECT 1\n```", "SELECT 1"},
		{"bare fence", "```\nSELECT 1\n```", "SELECT 1"},
		{"surrounding whitespace", "  \n SELECT 1 \n ", "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}
