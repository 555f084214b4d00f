// Package sqlgen turns a diff tree into Databricks SQL statements.
//
// Statements move the stored side of a diff to the live side: Added nodes
// are created, Removed nodes are dropped and every FieldChange is applied
// with its New value. Call Reverse on the diff first to go the other way.
package sqlgen

import (
	"sort"

	"github.com/sadopc/catalogsync/internal/diff"
)

// Kind identifies what a statement does.
type Kind int

const (
	KindCreateSchema Kind = iota
	KindAlterSchema
	KindDropSchema
	KindCreateTable
	KindAlterTable
	KindDropTable
	KindAddColumn
	KindAlterColumn
	KindDropColumn
	KindAddPrimaryKey
	KindDropPrimaryKey
	KindAddForeignKey
	KindDropForeignKey
	KindUnsupported
)

var kindNames = [...]string{
	KindCreateSchema:   "create_schema",
	KindAlterSchema:    "alter_schema",
	KindDropSchema:     "drop_schema",
	KindCreateTable:    "create_table",
	KindAlterTable:     "alter_table",
	KindDropTable:      "drop_table",
	KindAddColumn:      "add_column",
	KindAlterColumn:    "alter_column",
	KindDropColumn:     "drop_column",
	KindAddPrimaryKey:  "add_primary_key",
	KindDropPrimaryKey: "drop_primary_key",
	KindAddForeignKey:  "add_foreign_key",
	KindDropForeignKey: "drop_foreign_key",
	KindUnsupported:    "unsupported",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Phase orders statements globally. Lower phases are emitted first.
type Phase int

// Foreign keys are dropped before primary keys: Databricks refuses to drop a
// primary key while a foreign key still references it.
const (
	PhaseDropForeignKeys Phase = iota
	PhaseDropPrimaryKeys
	PhaseSchemas
	PhaseTables
	PhaseTableProperties
	PhaseColumns
	PhaseAddPrimaryKeys
	PhaseAddForeignKeys
	PhaseDropColumns
	PhaseDropTables
	PhaseDropSchemas
)

// Statement is one generated SQL statement.
type Statement struct {
	Kind   Kind
	Phase  Phase
	Schema string
	// Target is the quoted reference of the object the statement acts on.
	Target string
	SQL    string
	// Destructive statements drop objects and are commented out unless
	// drops are allowed.
	Destructive bool
}

// Options controls rendering.
type Options struct {
	AllowDrop bool
}

// Text returns the statement as it should be emitted under opts.
func (s Statement) Text(opts Options) string {
	if s.Destructive && !opts.AllowDrop {
		return "-- " + s.SQL
	}
	return s.SQL
}

// Executable reports whether Text(opts) is a runnable statement rather than
// a comment.
func (s Statement) Executable(opts Options) bool {
	if s.Kind == KindUnsupported {
		return false
	}
	return !s.Destructive || opts.AllowDrop
}

// SchemaSQL groups the rendered statements of one schema.
type SchemaSQL struct {
	Schema     string
	Statements []string
}

// Plan builds the statements for d, ordered by phase. Within a phase the
// diff traversal order is kept.
func Plan(catalog string, d *diff.CatalogDiff) []Statement {
	g := &generator{catalog: catalog}
	for i := range d.Schemas {
		g.schema(&d.Schemas[i])
	}
	sortByPhase(g.stmts)
	return g.stmts
}

// Render returns the statement texts for d.
func Render(catalog string, d *diff.CatalogDiff, opts Options) []string {
	stmts := Plan(catalog, d)
	out := make([]string, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, s.Text(opts))
	}
	return out
}

// SchemaPlan holds the planned statements of one schema.
type SchemaPlan struct {
	Schema     string
	Statements []Statement
}

// Render returns the statement texts of the plan.
func (p SchemaPlan) Render(opts Options) SchemaSQL {
	out := SchemaSQL{Schema: p.Schema}
	for _, s := range p.Statements {
		out.Statements = append(out.Statements, s.Text(opts))
	}
	return out
}

// PlanSchemas plans each schema of d separately, in diff order. Schemas
// without statements are skipped.
func PlanSchemas(catalog string, d *diff.CatalogDiff) []SchemaPlan {
	var out []SchemaPlan
	for i := range d.Schemas {
		g := &generator{catalog: catalog}
		g.schema(&d.Schemas[i])
		if len(g.stmts) == 0 {
			continue
		}
		sortByPhase(g.stmts)
		out = append(out, SchemaPlan{Schema: d.Schemas[i].Name, Statements: g.stmts})
	}
	return out
}

// RenderSchemas returns the statement texts grouped per schema, in diff
// order. Schemas without statements are skipped.
func RenderSchemas(catalog string, d *diff.CatalogDiff, opts Options) []SchemaSQL {
	var out []SchemaSQL
	for _, p := range PlanSchemas(catalog, d) {
		out = append(out, p.Render(opts))
	}
	return out
}

// CountDestructive returns the number of destructive statements.
func CountDestructive(stmts []Statement) int {
	n := 0
	for _, s := range stmts {
		if s.Destructive {
			n++
		}
	}
	return n
}

func sortByPhase(stmts []Statement) {
	sort.SliceStable(stmts, func(i, j int) bool { return stmts[i].Phase < stmts[j].Phase })
}
