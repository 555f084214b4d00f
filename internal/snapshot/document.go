package snapshot

import (
	"time"

	"github.com/sadopc/catalogsync/internal/schema"
)

// The document types mirror the schema model with file-friendly field names.
// Empty values are omitted on write; nullable is always written so that
// false survives a round trip.

type catalogDoc struct {
	Name    string            `yaml:"name" json:"name"`
	Comment *string           `yaml:"comment,omitempty" json:"comment,omitempty"`
	Schemas []schemaDoc       `yaml:"schemas,omitempty" json:"schemas,omitempty"`
	Tags    map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

type schemaDoc struct {
	Name    string            `yaml:"name" json:"name"`
	Comment *string           `yaml:"comment,omitempty" json:"comment,omitempty"`
	Owner   *string           `yaml:"owner,omitempty" json:"owner,omitempty"`
	Tags    map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Tables  []tableDoc        `yaml:"tables,omitempty" json:"tables,omitempty"`
}

type tableDoc struct {
	Name            string            `yaml:"name" json:"name"`
	TableType       string            `yaml:"table_type,omitempty" json:"table_type,omitempty"`
	Comment         *string           `yaml:"comment,omitempty" json:"comment,omitempty"`
	Owner           *string           `yaml:"owner,omitempty" json:"owner,omitempty"`
	CreatedAt       *time.Time        `yaml:"created_at,omitempty" json:"created_at,omitempty"`
	Tags            map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`
	StorageLocation *string           `yaml:"storage_location,omitempty" json:"storage_location,omitempty"`
	Columns         []columnDoc       `yaml:"columns,omitempty" json:"columns,omitempty"`
	PrimaryKey      *primaryKeyDoc    `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	ForeignKeys     []foreignKeyDoc   `yaml:"foreign_keys,omitempty" json:"foreign_keys,omitempty"`
}

type columnDoc struct {
	Name     string            `yaml:"name" json:"name"`
	DataType string            `yaml:"data_type" json:"data_type"`
	Comment  *string           `yaml:"comment,omitempty" json:"comment,omitempty"`
	Nullable *bool             `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	Tags     map[string]string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

type primaryKeyDoc struct {
	Name    string   `yaml:"name,omitempty" json:"name,omitempty"`
	Columns []string `yaml:"columns" json:"columns"`
}

type foreignKeyDoc struct {
	Name       string   `yaml:"name,omitempty" json:"name,omitempty"`
	Columns    []string `yaml:"columns" json:"columns"`
	RefSchema  string   `yaml:"ref_schema" json:"ref_schema"`
	RefTable   string   `yaml:"ref_table" json:"ref_table"`
	RefColumns []string `yaml:"ref_columns" json:"ref_columns"`
}

// ---------------------------------------------------------------------------
// Model -> document
// ---------------------------------------------------------------------------

func fromCatalog(c *schema.Catalog) catalogDoc {
	doc := catalogDoc{Name: c.Name, Comment: c.Comment, Tags: nonEmpty(c.Tags)}
	for i := range c.Schemas {
		doc.Schemas = append(doc.Schemas, fromSchema(&c.Schemas[i]))
	}
	return doc
}

func fromSchema(s *schema.Schema) schemaDoc {
	doc := schemaDoc{Name: s.Name, Comment: s.Comment, Owner: s.Owner, Tags: nonEmpty(s.Tags)}
	for i := range s.Tables {
		doc.Tables = append(doc.Tables, fromTable(&s.Tables[i]))
	}
	return doc
}

func fromTable(t *schema.Table) tableDoc {
	doc := tableDoc{
		Name:            t.Name,
		TableType:       string(t.TableType),
		Comment:         t.Comment,
		Owner:           t.Owner,
		CreatedAt:       t.CreatedAt,
		Tags:            nonEmpty(t.Tags),
		StorageLocation: t.StorageLocation,
	}
	for _, c := range t.SortedColumns() {
		nullable := c.Nullable
		doc.Columns = append(doc.Columns, columnDoc{
			Name:     c.Name,
			DataType: c.DataType,
			Comment:  c.Comment,
			Nullable: &nullable,
			Tags:     nonEmpty(c.Tags),
		})
	}
	if t.PrimaryKey != nil {
		doc.PrimaryKey = &primaryKeyDoc{Name: t.PrimaryKey.Name, Columns: t.PrimaryKey.Columns}
	}
	for _, fk := range t.ForeignKeys {
		doc.ForeignKeys = append(doc.ForeignKeys, foreignKeyDoc{
			Name:       fk.Name,
			Columns:    fk.Columns,
			RefSchema:  fk.RefSchema,
			RefTable:   fk.RefTable,
			RefColumns: fk.RefColumns,
		})
	}
	return doc
}

func nonEmpty(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}

// ---------------------------------------------------------------------------
// Document -> model
// ---------------------------------------------------------------------------

func (d catalogDoc) model() *schema.Catalog {
	c := &schema.Catalog{Name: d.Name, Comment: d.Comment, Tags: d.Tags}
	for _, s := range d.Schemas {
		c.Schemas = append(c.Schemas, s.model())
	}
	return c
}

func (d schemaDoc) model() schema.Schema {
	s := schema.Schema{Name: d.Name, Comment: d.Comment, Owner: d.Owner, Tags: d.Tags}
	for _, t := range d.Tables {
		s.Tables = append(s.Tables, t.model())
	}
	return s
}

// model assigns column positions from file order, starting at 1.
func (d tableDoc) model() schema.Table {
	t := schema.Table{
		Name:            d.Name,
		TableType:       schema.TableType(d.TableType),
		Comment:         d.Comment,
		Owner:           d.Owner,
		CreatedAt:       d.CreatedAt,
		Tags:            d.Tags,
		StorageLocation: d.StorageLocation,
	}
	for i, c := range d.Columns {
		nullable := true
		if c.Nullable != nil {
			nullable = *c.Nullable
		}
		t.Columns = append(t.Columns, schema.Column{
			Name:     c.Name,
			DataType: c.DataType,
			Nullable: nullable,
			Comment:  c.Comment,
			Tags:     c.Tags,
			Position: i + 1,
		})
	}
	if d.PrimaryKey != nil {
		t.PrimaryKey = &schema.PrimaryKey{Name: d.PrimaryKey.Name, Columns: d.PrimaryKey.Columns}
	}
	for _, fk := range d.ForeignKeys {
		t.ForeignKeys = append(t.ForeignKeys, schema.ForeignKey{
			Name:       fk.Name,
			Columns:    fk.Columns,
			RefSchema:  fk.RefSchema,
			RefTable:   fk.RefTable,
			RefColumns: fk.RefColumns,
		})
	}
	return t
}
