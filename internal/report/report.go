// Package report renders a diff tree as marker-annotated text lines:
//
//	~ Schema: main [MODIFIED]
//	    comment: 'old' -> 'new'
//	  + Table: orders [ADDED]
//
// Nodes are indented two spaces per level and field changes four spaces
// below their node.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/sadopc/catalogsync/internal/diff"
	"github.com/sadopc/catalogsync/internal/theme"
)

// Line is one rendered report line.
type Line struct {
	Depth  int
	Marker string
	// Field is set for field-change lines, which have no marker.
	Field bool
	Text  string
}

// String returns the line with indentation and marker.
func (l Line) String() string {
	if l.Field {
		return strings.Repeat("  ", l.Depth) + "    " + l.Text
	}
	return strings.Repeat("  ", l.Depth) + l.Marker + " " + l.Text
}

// Build walks d depth-first and returns its lines.
func Build(d *diff.CatalogDiff) []Line {
	var b builder
	for i := range d.Schemas {
		b.schema(&d.Schemas[i])
	}
	return b.lines
}

// Lines returns the plain text lines of the report.
func Lines(d *diff.CatalogDiff) []string {
	lines := Build(d)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return out
}

// StyledLines returns the report lines with markers colored by th.
func StyledLines(d *diff.CatalogDiff, th *theme.Theme) []string {
	lines := Build(d)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
		if th == nil {
			continue
		}
		if l.Field {
			out[i] = th.Field.Render(out[i])
		} else {
			out[i] = th.Marker(l.Marker).Render(out[i])
		}
	}
	return out
}

// Write prints the report to w. Markers are colored with th when th is not
// nil.
func Write(w io.Writer, d *diff.CatalogDiff, th *theme.Theme) error {
	for _, text := range StyledLines(d, th) {
		if _, err := fmt.Fprintln(w, text); err != nil {
			return fmt.Errorf("report write: %w", err)
		}
	}
	return nil
}

// Summary returns a one-line count of changes, e.g.
// "schemas: +1 -0 ~2, tables: +3 -1 ~0, columns: +0 -0 ~4, constraints: +1 -0 ~0".
func Summary(d *diff.CatalogDiff) string {
	s := d.Summary()
	part := func(name string, c diff.Counts) string {
		return fmt.Sprintf("%s: +%d -%d ~%d", name, c.Added, c.Removed, c.Modified)
	}
	return strings.Join([]string{
		part("schemas", s.Schemas),
		part("tables", s.Tables),
		part("columns", s.Columns),
		part("constraints", s.Constraints),
	}, ", ")
}

type builder struct {
	lines []Line
}

func (b *builder) node(depth int, kind, name string, status diff.Status, changes []diff.FieldChange) {
	b.lines = append(b.lines, Line{
		Depth:  depth,
		Marker: status.Marker(),
		Text:   fmt.Sprintf("%s: %s [%s]", kind, name, strings.ToUpper(status.String())),
	})
	for _, fc := range changes {
		b.field(depth, fc.Field, fc.Old, fc.New)
	}
}

func (b *builder) field(depth int, field string, old, new any) {
	b.lines = append(b.lines, Line{
		Depth: depth,
		Field: true,
		Text:  fmt.Sprintf("%s: %s -> %s", field, FormatValue(old), FormatValue(new)),
	})
}

func (b *builder) schema(d *diff.SchemaDiff) {
	b.node(0, "Schema", d.Name, d.Status, d.Changes)
	for i := range d.Tables {
		b.table(&d.Tables[i])
	}
}

func (b *builder) table(d *diff.TableDiff) {
	b.node(1, "Table", d.Name, d.Status, d.Changes)
	for i := range d.Columns {
		c := &d.Columns[i]
		b.node(2, "Column", c.Name, c.Status, c.Changes)
	}
	if pk := d.PrimaryKey; pk != nil {
		b.node(2, "PrimaryKey", pk.Name, pk.Status, nil)
		if pk.Status == diff.Modified {
			if pk.Old.Name != pk.New.Name {
				b.field(2, diff.FieldName, pk.Old.Name, pk.New.Name)
			}
			if !slices.Equal(pk.Old.Columns, pk.New.Columns) {
				b.field(2, diff.FieldColumns, pk.Old.Columns, pk.New.Columns)
			}
		}
	}
	for i := range d.ForeignKeys {
		fk := &d.ForeignKeys[i]
		b.node(2, "ForeignKey", fk.Name, fk.Status, nil)
		if fk.Status == diff.Modified {
			if !slices.Equal(fk.Old.Columns, fk.New.Columns) {
				b.field(2, diff.FieldColumns, fk.Old.Columns, fk.New.Columns)
			}
			oldRef := reference(fk.Old.RefSchema, fk.Old.RefTable, fk.Old.RefColumns)
			newRef := reference(fk.New.RefSchema, fk.New.RefTable, fk.New.RefColumns)
			if oldRef != newRef {
				b.field(2, diff.FieldReference, oldRef, newRef)
			}
		}
	}
}

func reference(schemaName, table string, cols []string) string {
	return fmt.Sprintf("%s.%s(%s)", schemaName, table, strings.Join(cols, ", "))
}
