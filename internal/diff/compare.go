package diff

import (
	"fmt"
	"maps"
	"slices"

	"github.com/sadopc/catalogsync/internal/schema"
)

// Catalogs compares two catalogs. Schemas are matched by name; only schemas
// that differ appear in the result.
func Catalogs(live, stored *schema.Catalog, opts Options) *CatalogDiff {
	name := live.Name
	if name == "" {
		name = stored.Name
	}
	schemas := diffKeyed(live.Schemas, stored.Schemas,
		func(s schema.Schema) string { return s.Name },
		func(s schema.Schema) SchemaDiff { return SchemaDiff{Name: s.Name, Status: Added, Schema: &s} },
		func(s schema.Schema) SchemaDiff { return SchemaDiff{Name: s.Name, Status: Removed, Schema: &s} },
		func(l, s schema.Schema) (SchemaDiff, bool) {
			d := Schemas(&l, &s, opts)
			return *d, d.Status != Unchanged
		},
	)
	schemas = slices.DeleteFunc(schemas, func(d SchemaDiff) bool {
		return d.Status == Added && slices.Contains(opts.IgnoreAdded, d.Name)
	})
	return &CatalogDiff{Name: name, Schemas: schemas}
}

// Schemas compares two schemas with the same identity.
func Schemas(live, stored *schema.Schema, opts Options) *SchemaDiff {
	var fc fieldCollector
	fc.str(FieldComment, stored.Comment, live.Comment)
	if opts.IncludeMetadata {
		fc.str(FieldOwner, stored.Owner, live.Owner)
	}
	fc.tags(stored.Tags, live.Tags)

	d := &SchemaDiff{
		Name:    live.Name,
		Changes: fc.changes,
		Tables: diffKeyed(live.Tables, stored.Tables,
			func(t schema.Table) string { return t.Name },
			func(t schema.Table) TableDiff { return TableDiff{Name: t.Name, Status: Added, Table: &t} },
			func(t schema.Table) TableDiff { return TableDiff{Name: t.Name, Status: Removed, Table: &t} },
			func(l, s schema.Table) (TableDiff, bool) {
				d := Tables(&l, &s, opts)
				return *d, d.Status != Unchanged
			},
		),
	}
	if len(d.Changes) > 0 || len(d.Tables) > 0 {
		d.Status = Modified
	}
	return d
}

// Tables compares two tables with the same identity. Columns are compared
// in position order.
func Tables(live, stored *schema.Table, opts Options) *TableDiff {
	var fc fieldCollector
	fc.add(FieldTableType, string(stored.TableType), string(live.TableType), stored.TableType == live.TableType)
	fc.str(FieldComment, stored.Comment, live.Comment)
	if opts.IncludeMetadata {
		fc.str(FieldOwner, stored.Owner, live.Owner)
		fc.str(FieldStorageLocation, stored.StorageLocation, live.StorageLocation)
	}
	fc.tags(stored.Tags, live.Tags)

	d := &TableDiff{
		Name:    live.Name,
		Changes: fc.changes,
		Columns: diffKeyed(live.SortedColumns(), stored.SortedColumns(),
			func(c schema.Column) string { return c.Name },
			func(c schema.Column) ColumnDiff { return ColumnDiff{Name: c.Name, Status: Added, Column: &c} },
			func(c schema.Column) ColumnDiff { return ColumnDiff{Name: c.Name, Status: Removed, Column: &c} },
			func(l, s schema.Column) (ColumnDiff, bool) {
				d := Columns(&l, &s)
				return *d, d.Status != Unchanged
			},
		),
		PrimaryKey: diffPrimaryKey(live.Name, live.PrimaryKey, stored.PrimaryKey),
		ForeignKeys: diffKeyed(live.ForeignKeys, stored.ForeignKeys,
			func(fk schema.ForeignKey) string { return fk.ConstraintName(live.Name) },
			func(fk schema.ForeignKey) ForeignKeyDiff {
				return ForeignKeyDiff{Name: fk.ConstraintName(live.Name), Status: Added, New: &fk}
			},
			func(fk schema.ForeignKey) ForeignKeyDiff {
				return ForeignKeyDiff{Name: fk.ConstraintName(stored.Name), Status: Removed, Old: &fk}
			},
			func(l, s schema.ForeignKey) (ForeignKeyDiff, bool) {
				if l.Equal(&s) {
					return ForeignKeyDiff{}, false
				}
				return ForeignKeyDiff{Name: l.ConstraintName(live.Name), Status: Modified, Old: &s, New: &l}, true
			},
		),
	}
	if len(d.Changes) > 0 || len(d.Columns) > 0 || d.PrimaryKey != nil || len(d.ForeignKeys) > 0 {
		d.Status = Modified
	}
	return d
}

// Columns compares two columns with the same identity. Position is not
// compared.
func Columns(live, stored *schema.Column) *ColumnDiff {
	var fc fieldCollector
	fc.add(FieldDataType, stored.DataType, live.DataType, stored.DataType == live.DataType)
	fc.add(FieldNullable, stored.Nullable, live.Nullable, stored.Nullable == live.Nullable)
	fc.str(FieldComment, stored.Comment, live.Comment)
	fc.tags(stored.Tags, live.Tags)

	d := &ColumnDiff{Name: live.Name, Changes: fc.changes}
	if len(d.Changes) > 0 {
		d.Status = Modified
	}
	return d
}

func diffPrimaryKey(table string, live, stored *schema.PrimaryKey) *PrimaryKeyDiff {
	switch {
	case live == nil && stored == nil:
		return nil
	case stored == nil:
		return &PrimaryKeyDiff{Name: live.ConstraintName(table), Status: Added, New: live}
	case live == nil:
		return &PrimaryKeyDiff{Name: stored.ConstraintName(table), Status: Removed, Old: stored}
	case live.Equal(stored):
		return nil
	}
	return &PrimaryKeyDiff{Name: live.ConstraintName(table), Status: Modified, Old: stored, New: live}
}

// Compare dispatches on the dynamic type of its inputs, which must be the
// same entity level. Values and non-nil pointers of Catalog, Schema, Table
// and Column are accepted.
func Compare(live, stored any, opts Options) (Node, error) {
	live, stored = asPointer(live), asPointer(stored)
	mismatch := &ShapeMismatchError{Live: fmt.Sprintf("%T", live), Stored: fmt.Sprintf("%T", stored)}

	switch l := live.(type) {
	case *schema.Catalog:
		s, ok := stored.(*schema.Catalog)
		if !ok || l == nil || s == nil {
			return nil, mismatch
		}
		return Catalogs(l, s, opts), nil
	case *schema.Schema:
		s, ok := stored.(*schema.Schema)
		if !ok || l == nil || s == nil {
			return nil, mismatch
		}
		return Schemas(l, s, opts), nil
	case *schema.Table:
		s, ok := stored.(*schema.Table)
		if !ok || l == nil || s == nil {
			return nil, mismatch
		}
		return Tables(l, s, opts), nil
	case *schema.Column:
		s, ok := stored.(*schema.Column)
		if !ok || l == nil || s == nil {
			return nil, mismatch
		}
		return Columns(l, s), nil
	}
	return nil, mismatch
}

func asPointer(v any) any {
	switch x := v.(type) {
	case schema.Catalog:
		return &x
	case schema.Schema:
		return &x
	case schema.Table:
		return &x
	case schema.Column:
		return &x
	}
	return v
}

// ---------------------------------------------------------------------------
// Keyed collections
// ---------------------------------------------------------------------------

// diffKeyed matches live and stored items by key. Removed and modified
// items are emitted in stored order, followed by added items in live order.
// modified reports false when the pair is identical.
func diffKeyed[T, D any](
	live, stored []T,
	key func(T) string,
	added, removed func(T) D,
	modified func(live, stored T) (D, bool),
) []D {
	liveByKey := mapByKey(live, key)
	storedByKey := mapByKey(stored, key)

	var out []D
	for _, s := range stored {
		l, ok := liveByKey[key(s)]
		if !ok {
			out = append(out, removed(s))
			continue
		}
		if d, changed := modified(l, s); changed {
			out = append(out, d)
		}
	}
	for _, l := range live {
		if _, ok := storedByKey[key(l)]; !ok {
			out = append(out, added(l))
		}
	}
	return out
}

func mapByKey[T any](items []T, key func(T) string) map[string]T {
	m := make(map[string]T, len(items))
	for _, item := range items {
		m[key(item)] = item
	}
	return m
}

// ---------------------------------------------------------------------------
// Field comparison
// ---------------------------------------------------------------------------

type fieldCollector struct {
	changes []FieldChange
}

func (c *fieldCollector) add(field string, old, new any, equal bool) {
	if equal {
		return
	}
	c.changes = append(c.changes, FieldChange{Field: field, Old: old, New: new})
}

func (c *fieldCollector) str(field string, old, new *string) {
	c.add(field, optional(old), optional(new), schema.EqualStringPtr(old, new))
}

func (c *fieldCollector) tags(old, new map[string]string) {
	c.add(FieldTags, maps.Clone(old), maps.Clone(new), schema.EqualTags(old, new))
}

func optional(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
