// Package schema holds the catalog model shared by the extractor, the
// snapshot files and the diff engine. Values are built once and treated as
// read-only afterwards; helpers that reorder return copies.
package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"
)

// UnknownPosition is the column position used when the source does not
// report one. Such columns sort after every positioned column.
const UnknownPosition = 9999

// TableType classifies a table as reported by the catalog.
type TableType string

const (
	TableTypeManaged          TableType = "MANAGED"
	TableTypeExternal         TableType = "EXTERNAL"
	TableTypeView             TableType = "VIEW"
	TableTypeMaterializedView TableType = "MATERIALIZED_VIEW"
	TableTypeStreamingTable   TableType = "STREAMING_TABLE"
	TableTypeForeign          TableType = "FOREIGN"
)

// IsView reports whether the table is defined by a query rather than by
// column definitions.
func (t TableType) IsView() bool {
	return t == TableTypeView || t == TableTypeMaterializedView
}

// ParseTableType maps source spellings ("BASE TABLE", "view", ...) onto a
// TableType. Unrecognised values are upper-cased and kept as-is.
func ParseTableType(s string) TableType {
	u := strings.ToUpper(strings.TrimSpace(s))
	switch u {
	case "":
		return ""
	case "BASE TABLE", "TABLE", "MANAGED":
		return TableTypeManaged
	case "VIEW", "SYSTEM VIEW":
		return TableTypeView
	case "MATERIALIZED VIEW", "MATERIALIZED_VIEW":
		return TableTypeMaterializedView
	case "STREAMING TABLE", "STREAMING_TABLE":
		return TableTypeStreamingTable
	case "FOREIGN TABLE", "FOREIGN":
		return TableTypeForeign
	}
	return TableType(u)
}

// Catalog is the root of the hierarchy.
type Catalog struct {
	Name    string
	Comment *string
	Tags    map[string]string
	Schemas []Schema
}

// Schema is a named group of tables inside a catalog.
type Schema struct {
	Name    string
	Comment *string
	Owner   *string
	Tags    map[string]string
	Tables  []Table
}

// Table represents a table, view or other relation.
type Table struct {
	Name            string
	TableType       TableType
	Comment         *string
	Owner           *string
	CreatedAt       *time.Time
	Tags            map[string]string
	StorageLocation *string
	Columns         []Column
	PrimaryKey      *PrimaryKey
	ForeignKeys     []ForeignKey
}

// Column represents a table column.
type Column struct {
	Name     string
	DataType string
	Nullable bool
	Comment  *string
	Tags     map[string]string
	Position int
}

// PrimaryKey represents the primary key constraint of a table.
type PrimaryKey struct {
	Name    string
	Columns []string
}

// ForeignKey represents a foreign key constraint. The referenced table is
// identified by schema and table name only; the catalog is implied.
type ForeignKey struct {
	Name       string
	Columns    []string
	RefSchema  string
	RefTable   string
	RefColumns []string
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// EqualStringPtr compares two optional strings by value.
func EqualStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// EqualTags compares two tag maps. A nil map equals an empty one.
func EqualTags(a, b map[string]string) bool {
	return maps.Equal(a, b)
}

// ---------------------------------------------------------------------------
// Lookups and ordering
// ---------------------------------------------------------------------------

// Schema returns the schema with the given name, or nil.
func (c *Catalog) Schema(name string) *Schema {
	for i := range c.Schemas {
		if c.Schemas[i].Name == name {
			return &c.Schemas[i]
		}
	}
	return nil
}

// SchemaNames returns the schema names in catalog order.
func (c *Catalog) SchemaNames() []string {
	names := make([]string, len(c.Schemas))
	for i, s := range c.Schemas {
		names[i] = s.Name
	}
	return names
}

// Table returns the table with the given name, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// SortedColumns returns the columns ordered by position. Columns without a
// position (zero or UnknownPosition) come last; ties break by name.
func (t *Table) SortedColumns() []Column {
	cols := slices.Clone(t.Columns)
	sort.SliceStable(cols, func(i, j int) bool {
		pi, pj := effectivePosition(cols[i].Position), effectivePosition(cols[j].Position)
		if pi != pj {
			return pi < pj
		}
		return cols[i].Name < cols[j].Name
	})
	return cols
}

func effectivePosition(p int) int {
	if p <= 0 {
		return UnknownPosition
	}
	return p
}

// Canonical returns a copy of the catalog with schemas and tables sorted by
// name and columns sorted by position. The diff engine expects this order.
func (c *Catalog) Canonical() *Catalog {
	out := *c
	out.Schemas = make([]Schema, len(c.Schemas))
	for i, s := range c.Schemas {
		out.Schemas[i] = s.Canonical()
	}
	SortSchemas(out.Schemas)
	return &out
}

// Canonical returns a copy of the schema with tables sorted by name and
// columns sorted by position.
func (s Schema) Canonical() Schema {
	out := s
	out.Tables = make([]Table, len(s.Tables))
	for i, t := range s.Tables {
		t.Columns = t.SortedColumns()
		out.Tables[i] = t
	}
	SortTables(out.Tables)
	return out
}

// SortSchemas sorts schemas by name in place.
func SortSchemas(schemas []Schema) {
	sort.SliceStable(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
}

// SortTables sorts tables by name in place.
func SortTables(tables []Table) {
	sort.SliceStable(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
}

// ---------------------------------------------------------------------------
// Constraints
// ---------------------------------------------------------------------------

// ConstraintName returns the constraint name, or pk_<table> when unnamed.
func (pk *PrimaryKey) ConstraintName(table string) string {
	if pk.Name != "" {
		return pk.Name
	}
	return "pk_" + table
}

// Equal reports whether two primary keys have the same name and columns.
func (pk *PrimaryKey) Equal(other *PrimaryKey) bool {
	if pk == nil || other == nil {
		return pk == nil && other == nil
	}
	return pk.Name == other.Name && slices.Equal(pk.Columns, other.Columns)
}

// ConstraintName returns the constraint name, or fk_<table>_<cols> when
// unnamed.
func (fk *ForeignKey) ConstraintName(table string) string {
	if fk.Name != "" {
		return fk.Name
	}
	return "fk_" + table + "_" + strings.Join(fk.Columns, "_")
}

// Equal reports whether two foreign keys are identical in name, columns and
// reference target.
func (fk *ForeignKey) Equal(other *ForeignKey) bool {
	if fk == nil || other == nil {
		return fk == nil && other == nil
	}
	return fk.Name == other.Name &&
		slices.Equal(fk.Columns, other.Columns) &&
		fk.RefSchema == other.RefSchema &&
		fk.RefTable == other.RefTable &&
		slices.Equal(fk.RefColumns, other.RefColumns)
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// ErrInvalid is returned by Validate for shape errors.
var ErrInvalid = errors.New("invalid schema model")

// Validate checks the shape of the catalog: every object has a name and
// sibling names are unique. References between objects are not checked.
func (c *Catalog) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: catalog has no name", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Schemas))
	for i := range c.Schemas {
		s := &c.Schemas[i]
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate schema %q", ErrInvalid, s.Name)
		}
		seen[s.Name] = true
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the shape of the schema and its tables.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: schema has no name", ErrInvalid)
	}
	tables := make(map[string]bool, len(s.Tables))
	for i := range s.Tables {
		t := &s.Tables[i]
		if t.Name == "" {
			return fmt.Errorf("%w: table without name in schema %q", ErrInvalid, s.Name)
		}
		if tables[t.Name] {
			return fmt.Errorf("%w: duplicate table %s.%s", ErrInvalid, s.Name, t.Name)
		}
		tables[t.Name] = true

		cols := make(map[string]bool, len(t.Columns))
		for _, col := range t.Columns {
			if col.Name == "" {
				return fmt.Errorf("%w: column without name in %s.%s", ErrInvalid, s.Name, t.Name)
			}
			if cols[col.Name] {
				return fmt.Errorf("%w: duplicate column %s.%s.%s", ErrInvalid, s.Name, t.Name, col.Name)
			}
			cols[col.Name] = true
		}

		fks := make(map[string]bool, len(t.ForeignKeys))
		for _, fk := range t.ForeignKeys {
			name := fk.ConstraintName(t.Name)
			if fks[name] {
				return fmt.Errorf("%w: duplicate foreign key %s on %s.%s", ErrInvalid, name, s.Name, t.Name)
			}
			fks[name] = true
		}
	}
	return nil
}
