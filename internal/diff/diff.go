// Package diff compares two catalog trees of the same shape and produces a
// typed diff tree, one node type per level.
//
// The two sides are called "live" and "stored". An item only present on the
// live side is Added, an item only present on the stored side is Removed.
// FieldChange.Old always carries the stored value and FieldChange.New the
// live value.
package diff

import (
	"errors"
	"fmt"

	"github.com/sadopc/catalogsync/internal/schema"
)

// Status classifies a node of the diff tree.
type Status int

const (
	Unchanged Status = iota
	Added
	Removed
	Modified
)

func (s Status) String() string {
	switch s {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return "unchanged"
	}
}

// Marker returns the report prefix for the status.
func (s Status) Marker() string {
	switch s {
	case Added:
		return "+"
	case Removed:
		return "-"
	case Modified:
		return "~"
	default:
		return " "
	}
}

// Reverse swaps Added and Removed.
func (s Status) Reverse() Status {
	switch s {
	case Added:
		return Removed
	case Removed:
		return Added
	}
	return s
}

// Field names used in FieldChange.
const (
	FieldComment         = "comment"
	FieldOwner           = "owner"
	FieldTags            = "tags"
	FieldTableType       = "table_type"
	FieldStorageLocation = "storage_location"
	FieldDataType        = "data_type"
	FieldNullable        = "nullable"
	FieldName            = "name"
	FieldColumns         = "columns"
	FieldReference       = "references"
)

// FieldChange records a differing scalar field. Optional strings are stored
// as string or nil, tags as map[string]string.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// Reverse swaps the old and new values.
func (fc FieldChange) Reverse() FieldChange {
	return FieldChange{Field: fc.Field, Old: fc.New, New: fc.Old}
}

// Options controls which fields take part in the comparison.
type Options struct {
	// IncludeMetadata adds owner and storage_location to the compared fields.
	IncludeMetadata bool
	// IgnoreAdded names live-only schemas left out of a catalog diff.
	IgnoreAdded []string
}

// Node is implemented by every level of the diff tree.
type Node interface {
	NodeName() string
	NodeStatus() Status
}

// ErrShapeMismatch is matched by errors returned from Compare when the two
// inputs are not entities of the same level.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeMismatchError describes a Compare call on incompatible inputs.
type ShapeMismatchError struct {
	Live   string
	Stored string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("diff: shape mismatch: cannot compare %s with %s", e.Live, e.Stored)
}

func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// ---------------------------------------------------------------------------
// Diff tree
// ---------------------------------------------------------------------------

// CatalogDiff is the root of a diff tree. Only schemas that differ are
// listed.
type CatalogDiff struct {
	Name    string
	Schemas []SchemaDiff
}

// SchemaDiff describes one schema. Schema is set for Added and Removed
// nodes and holds the full definition from the side that has it.
type SchemaDiff struct {
	Name    string
	Status  Status
	Changes []FieldChange
	Tables  []TableDiff
	Schema  *schema.Schema
}

// TableDiff describes one table. Table is set for Added and Removed nodes.
type TableDiff struct {
	Name        string
	Status      Status
	Changes     []FieldChange
	Columns     []ColumnDiff
	PrimaryKey  *PrimaryKeyDiff
	ForeignKeys []ForeignKeyDiff
	Table       *schema.Table
}

// ColumnDiff describes one column. Column is set for Added and Removed
// nodes.
type ColumnDiff struct {
	Name    string
	Status  Status
	Changes []FieldChange
	Column  *schema.Column
}

// PrimaryKeyDiff describes a primary key compared as a whole. Old is the
// stored key, New the live key; either may be nil.
type PrimaryKeyDiff struct {
	Name   string
	Status Status
	Old    *schema.PrimaryKey
	New    *schema.PrimaryKey
}

// ForeignKeyDiff describes a foreign key compared as a whole, keyed by
// constraint name.
type ForeignKeyDiff struct {
	Name   string
	Status Status
	Old    *schema.ForeignKey
	New    *schema.ForeignKey
}

func (d *CatalogDiff) NodeName() string { return d.Name }
func (d *CatalogDiff) NodeStatus() Status {
	if d.HasChanges() {
		return Modified
	}
	return Unchanged
}

func (d *SchemaDiff) NodeName() string       { return d.Name }
func (d *SchemaDiff) NodeStatus() Status     { return d.Status }
func (d *TableDiff) NodeName() string        { return d.Name }
func (d *TableDiff) NodeStatus() Status      { return d.Status }
func (d *ColumnDiff) NodeName() string       { return d.Name }
func (d *ColumnDiff) NodeStatus() Status     { return d.Status }
func (d *PrimaryKeyDiff) NodeName() string   { return d.Name }
func (d *PrimaryKeyDiff) NodeStatus() Status { return d.Status }
func (d *ForeignKeyDiff) NodeName() string   { return d.Name }
func (d *ForeignKeyDiff) NodeStatus() Status { return d.Status }

// HasChanges reports whether any schema differs.
func (d *CatalogDiff) HasChanges() bool {
	for i := range d.Schemas {
		if d.Schemas[i].HasChanges() {
			return true
		}
	}
	return false
}

// HasChanges reports whether the schema differs.
func (d *SchemaDiff) HasChanges() bool {
	return d.Status != Unchanged
}

// Schema returns the diff for the named schema, or nil.
func (d *CatalogDiff) Schema(name string) *SchemaDiff {
	for i := range d.Schemas {
		if d.Schemas[i].Name == name {
			return &d.Schemas[i]
		}
	}
	return nil
}

// Table returns the diff for the named table, or nil.
func (d *SchemaDiff) Table(name string) *TableDiff {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i]
		}
	}
	return nil
}

// Column returns the diff for the named column, or nil.
func (d *TableDiff) Column(name string) *ColumnDiff {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i]
		}
	}
	return nil
}

// Change returns the change for the named field, or nil.
func Change(changes []FieldChange, field string) *FieldChange {
	for i := range changes {
		if changes[i].Field == field {
			return &changes[i]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Summary
// ---------------------------------------------------------------------------

// Counts tallies nodes by status.
type Counts struct {
	Added    int
	Removed  int
	Modified int
}

func (c *Counts) add(s Status) {
	switch s {
	case Added:
		c.Added++
	case Removed:
		c.Removed++
	case Modified:
		c.Modified++
	}
}

// Total returns the number of changed nodes.
func (c Counts) Total() int { return c.Added + c.Removed + c.Modified }

// Summary tallies the nodes of a diff tree per level. Children of added or
// removed nodes are not expanded.
type Summary struct {
	Schemas     Counts
	Tables      Counts
	Columns     Counts
	Constraints Counts
}

// Summary counts the nodes of the tree.
func (d *CatalogDiff) Summary() Summary {
	var sum Summary
	for _, s := range d.Schemas {
		sum.Schemas.add(s.Status)
		for _, t := range s.Tables {
			sum.Tables.add(t.Status)
			for _, c := range t.Columns {
				sum.Columns.add(c.Status)
			}
			if t.PrimaryKey != nil {
				sum.Constraints.add(t.PrimaryKey.Status)
			}
			for _, fk := range t.ForeignKeys {
				sum.Constraints.add(fk.Status)
			}
		}
	}
	return sum
}

// All adds up the counts of every level.
func (s Summary) All() Counts {
	var c Counts
	for _, part := range []Counts{s.Schemas, s.Tables, s.Columns, s.Constraints} {
		c.Added += part.Added
		c.Removed += part.Removed
		c.Modified += part.Modified
	}
	return c
}
