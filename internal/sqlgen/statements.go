package sqlgen

import (
	"fmt"
	"strings"

	"github.com/sadopc/catalogsync/internal/diff"
	"github.com/sadopc/catalogsync/internal/schema"
)

type generator struct {
	catalog string
	stmts   []Statement
}

func (g *generator) emit(s Statement) {
	g.stmts = append(g.stmts, s)
}

// ---------------------------------------------------------------------------
// Schemas
// ---------------------------------------------------------------------------

func (g *generator) schema(d *diff.SchemaDiff) {
	sref := SchemaRef(g.catalog, d.Name)
	switch d.Status {
	case diff.Added:
		g.createSchema(d)
	case diff.Removed:
		g.emit(Statement{
			Kind: KindDropSchema, Phase: PhaseDropSchemas, Schema: d.Name, Target: sref,
			SQL:         fmt.Sprintf("DROP SCHEMA %s CASCADE;", sref),
			Destructive: true,
		})
	case diff.Modified:
		for _, fc := range d.Changes {
			g.schemaField(d.Name, sref, fc)
		}
		for i := range d.Tables {
			g.table(d.Name, &d.Tables[i])
		}
	}
}

func (g *generator) createSchema(d *diff.SchemaDiff) {
	sref := SchemaRef(g.catalog, d.Name)
	stmt := func(kind Kind, sql string) {
		g.emit(Statement{Kind: kind, Phase: PhaseSchemas, Schema: d.Name, Target: sref, SQL: sql})
	}
	stmt(KindCreateSchema, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", sref))

	s := d.Schema
	if s == nil {
		return
	}
	if s.Comment != nil {
		stmt(KindAlterSchema, fmt.Sprintf("COMMENT ON SCHEMA %s IS %s;", sref, QuoteString(*s.Comment)))
	}
	if s.Owner != nil && *s.Owner != "" {
		stmt(KindAlterSchema, fmt.Sprintf("ALTER SCHEMA %s SET OWNER TO %s;", sref, QuoteIdent(*s.Owner)))
	}
	if len(s.Tags) > 0 {
		stmt(KindAlterSchema, fmt.Sprintf("ALTER SCHEMA %s SET TAGS %s;", sref, tagList(s.Tags)))
	}
	for i := range s.Tables {
		g.createTable(d.Name, &s.Tables[i])
	}
}

func (g *generator) schemaField(schemaName, sref string, fc diff.FieldChange) {
	stmt := func(sql string) {
		g.emit(Statement{Kind: KindAlterSchema, Phase: PhaseSchemas, Schema: schemaName, Target: sref, SQL: sql})
	}
	switch fc.Field {
	case diff.FieldComment:
		stmt(fmt.Sprintf("COMMENT ON SCHEMA %s IS %s;", sref, commentValue(fc.New)))
	case diff.FieldOwner:
		if owner, ok := fc.New.(string); ok && owner != "" {
			stmt(fmt.Sprintf("ALTER SCHEMA %s SET OWNER TO %s;", sref, QuoteIdent(owner)))
		}
	case diff.FieldTags:
		for _, sql := range tagStatements("ALTER SCHEMA "+sref, fc) {
			stmt(sql)
		}
	default:
		g.unsupported(schemaName, sref, fc)
	}
}

// ---------------------------------------------------------------------------
// Tables
// ---------------------------------------------------------------------------

func (g *generator) table(schemaName string, d *diff.TableDiff) {
	tref := TableRef(g.catalog, schemaName, d.Name)
	switch d.Status {
	case diff.Added:
		if d.Table != nil {
			g.createTable(schemaName, d.Table)
		}
	case diff.Removed:
		g.emit(Statement{
			Kind: KindDropTable, Phase: PhaseDropTables, Schema: schemaName, Target: tref,
			SQL:         fmt.Sprintf("DROP TABLE %s;", tref),
			Destructive: true,
		})
	case diff.Modified:
		for _, fc := range d.Changes {
			g.tableField(schemaName, tref, fc)
		}
		for i := range d.Columns {
			g.column(schemaName, tref, &d.Columns[i])
		}
		if d.PrimaryKey != nil {
			g.primaryKey(schemaName, d.Name, tref, d.PrimaryKey)
		}
		for i := range d.ForeignKeys {
			g.foreignKey(schemaName, d.Name, tref, &d.ForeignKeys[i])
		}
	}
}

func (g *generator) createTable(schemaName string, t *schema.Table) {
	tref := TableRef(g.catalog, schemaName, t.Name)
	if t.TableType.IsView() {
		g.emit(Statement{
			Kind: KindUnsupported, Phase: PhaseTables, Schema: schemaName, Target: tref,
			SQL: fmt.Sprintf("-- TODO: unsupported change: create %s %s", t.TableType, tref),
		})
		return
	}

	cols := t.SortedColumns()
	defs := make([]string, len(cols))
	for i := range cols {
		defs[i] = columnDef(&cols[i])
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tref, strings.Join(defs, ", "))
	if t.StorageLocation != nil && *t.StorageLocation != "" {
		create += " LOCATION " + QuoteString(*t.StorageLocation)
	}
	g.emit(Statement{Kind: KindCreateTable, Phase: PhaseTables, Schema: schemaName, Target: tref, SQL: create + ";"})

	prop := func(sql string) {
		g.emit(Statement{Kind: KindAlterTable, Phase: PhaseTableProperties, Schema: schemaName, Target: tref, SQL: sql})
	}
	if t.Comment != nil {
		prop(fmt.Sprintf("COMMENT ON TABLE %s IS %s;", tref, QuoteString(*t.Comment)))
	}
	if t.Owner != nil && *t.Owner != "" {
		prop(fmt.Sprintf("ALTER TABLE %s SET OWNER TO %s;", tref, QuoteIdent(*t.Owner)))
	}
	if len(t.Tags) > 0 {
		prop(fmt.Sprintf("ALTER TABLE %s SET TAGS %s;", tref, tagList(t.Tags)))
	}
	for i := range cols {
		if len(cols[i].Tags) > 0 {
			g.columnTags(schemaName, tref, &cols[i])
		}
	}
	if t.PrimaryKey != nil {
		g.addPrimaryKey(schemaName, t.Name, tref, t.PrimaryKey)
	}
	for i := range t.ForeignKeys {
		g.addForeignKey(schemaName, t.Name, tref, &t.ForeignKeys[i])
	}
}

func (g *generator) tableField(schemaName, tref string, fc diff.FieldChange) {
	stmt := func(sql string) {
		g.emit(Statement{Kind: KindAlterTable, Phase: PhaseTableProperties, Schema: schemaName, Target: tref, SQL: sql})
	}
	switch fc.Field {
	case diff.FieldComment:
		stmt(fmt.Sprintf("COMMENT ON TABLE %s IS %s;", tref, commentValue(fc.New)))
	case diff.FieldOwner:
		if owner, ok := fc.New.(string); ok && owner != "" {
			stmt(fmt.Sprintf("ALTER TABLE %s SET OWNER TO %s;", tref, QuoteIdent(owner)))
		}
	case diff.FieldTags:
		for _, sql := range tagStatements("ALTER TABLE "+tref, fc) {
			stmt(sql)
		}
	default:
		g.unsupported(schemaName, tref, fc)
	}
}

// ---------------------------------------------------------------------------
// Columns
// ---------------------------------------------------------------------------

func (g *generator) column(schemaName, tref string, d *diff.ColumnDiff) {
	cref := QuoteIdent(d.Name)
	switch d.Status {
	case diff.Added:
		if d.Column == nil {
			return
		}
		g.emit(Statement{
			Kind: KindAddColumn, Phase: PhaseColumns, Schema: schemaName, Target: tref,
			SQL: fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", tref, columnDef(d.Column)),
		})
		if len(d.Column.Tags) > 0 {
			g.columnTags(schemaName, tref, d.Column)
		}
	case diff.Removed:
		g.emit(Statement{
			Kind: KindDropColumn, Phase: PhaseDropColumns, Schema: schemaName, Target: tref,
			SQL:         fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s;", tref, cref),
			Destructive: true,
		})
	case diff.Modified:
		prefix := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s", tref, cref)
		stmt := func(sql string) {
			g.emit(Statement{Kind: KindAlterColumn, Phase: PhaseColumns, Schema: schemaName, Target: tref, SQL: sql})
		}
		for _, fc := range d.Changes {
			switch fc.Field {
			case diff.FieldDataType:
				stmt(fmt.Sprintf("%s TYPE %v;", prefix, fc.New))
			case diff.FieldComment:
				stmt(fmt.Sprintf("%s COMMENT %s;", prefix, commentValue(fc.New)))
			case diff.FieldNullable:
				if nullable, _ := fc.New.(bool); nullable {
					stmt(prefix + " DROP NOT NULL;")
				} else {
					stmt(prefix + " SET NOT NULL;")
				}
			case diff.FieldTags:
				for _, sql := range tagStatements(prefix, fc) {
					stmt(sql)
				}
			default:
				g.unsupported(schemaName, tref, fc)
			}
		}
	}
}

func (g *generator) columnTags(schemaName, tref string, c *schema.Column) {
	g.emit(Statement{
		Kind: KindAlterColumn, Phase: PhaseColumns, Schema: schemaName, Target: tref,
		SQL: fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET TAGS %s;", tref, QuoteIdent(c.Name), tagList(c.Tags)),
	})
}

// ---------------------------------------------------------------------------
// Constraints
// ---------------------------------------------------------------------------

func (g *generator) primaryKey(schemaName, table, tref string, d *diff.PrimaryKeyDiff) {
	drop := Statement{
		Kind: KindDropPrimaryKey, Phase: PhaseDropPrimaryKeys, Schema: schemaName, Target: tref,
		SQL: fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY IF EXISTS;", tref),
	}
	switch d.Status {
	case diff.Added:
		g.addPrimaryKey(schemaName, table, tref, d.New)
	case diff.Removed:
		drop.Destructive = true
		g.emit(drop)
	case diff.Modified:
		g.emit(drop)
		g.addPrimaryKey(schemaName, table, tref, d.New)
	}
}

func (g *generator) addPrimaryKey(schemaName, table, tref string, pk *schema.PrimaryKey) {
	g.emit(Statement{
		Kind: KindAddPrimaryKey, Phase: PhaseAddPrimaryKeys, Schema: schemaName, Target: tref,
		SQL: fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s);",
			tref, QuoteIdent(pk.ConstraintName(table)), identList(pk.Columns)),
	})
}

// foreignKey drops the old constraint by its column list, which is the
// form Databricks accepts, then adds the new one.
func (g *generator) foreignKey(schemaName, table, tref string, d *diff.ForeignKeyDiff) {
	drop := func(fk *schema.ForeignKey, destructive bool) {
		g.emit(Statement{
			Kind: KindDropForeignKey, Phase: PhaseDropForeignKeys, Schema: schemaName, Target: tref,
			SQL:         fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY IF EXISTS (%s);", tref, identList(fk.Columns)),
			Destructive: destructive,
		})
	}
	switch d.Status {
	case diff.Added:
		drop(d.New, false)
		g.addForeignKey(schemaName, table, tref, d.New)
	case diff.Removed:
		drop(d.Old, true)
	case diff.Modified:
		drop(d.Old, false)
		g.addForeignKey(schemaName, table, tref, d.New)
	}
}

func (g *generator) addForeignKey(schemaName, table, tref string, fk *schema.ForeignKey) {
	g.emit(Statement{
		Kind: KindAddForeignKey, Phase: PhaseAddForeignKeys, Schema: schemaName, Target: tref,
		SQL: fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s);",
			tref, QuoteIdent(fk.ConstraintName(table)), identList(fk.Columns),
			TableRef(g.catalog, fk.RefSchema, fk.RefTable), identList(fk.RefColumns)),
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (g *generator) unsupported(schemaName, target string, fc diff.FieldChange) {
	g.emit(Statement{
		Kind: KindUnsupported, Phase: PhaseTableProperties, Schema: schemaName, Target: target,
		SQL: fmt.Sprintf("-- TODO: unsupported change: %s %s -> %s on %s",
			fc.Field, plainValue(fc.Old), plainValue(fc.New), target),
	})
}

func tagStatements(prefix string, fc diff.FieldChange) []string {
	set, unset := diff.TagDelta(diff.Tags(fc.Old), diff.Tags(fc.New))
	var out []string
	if len(set) > 0 {
		out = append(out, fmt.Sprintf("%s SET TAGS %s;", prefix, tagList(set)))
	}
	if len(unset) > 0 {
		keys := make([]string, len(unset))
		for i, k := range unset {
			keys[i] = QuoteString(k)
		}
		out = append(out, fmt.Sprintf("%s UNSET TAGS (%s);", prefix, strings.Join(keys, ", ")))
	}
	return out
}

func tagList(tags map[string]string) string {
	keys := diff.SortedKeys(tags)
	items := make([]string, len(keys))
	for i, k := range keys {
		items[i] = QuoteString(k) + " = " + QuoteString(tags[k])
	}
	return "(" + strings.Join(items, ", ") + ")"
}

func columnDef(c *schema.Column) string {
	parts := []string{QuoteIdent(c.Name), c.DataType}
	if !c.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if c.Comment != nil && *c.Comment != "" {
		parts = append(parts, "COMMENT "+QuoteString(*c.Comment))
	}
	return strings.Join(parts, " ")
}

func commentValue(v any) string {
	if s, ok := v.(string); ok {
		return QuoteString(s)
	}
	return "NULL"
}

func plainValue(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}
