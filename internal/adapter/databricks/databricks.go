// Package databricks reads Unity Catalog metadata through the per-catalog
// information_schema views, using the Databricks SQL driver.
package databricks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/databricks/databricks-sql-go"

	"github.com/sadopc/catalogsync/internal/adapter"
	"github.com/sadopc/catalogsync/internal/schema"
	"github.com/sadopc/catalogsync/internal/sqlgen"
)

func init() {
	adapter.Register(&databricksAdapter{})
}

// databricksAdapter implements adapter.Adapter for Databricks SQL warehouses.
type databricksAdapter struct{}

func (a *databricksAdapter) Name() string     { return "databricks" }
func (a *databricksAdapter) DefaultPort() int { return 443 }

func (a *databricksAdapter) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	db, err := sql.Open("databricks", normalizeDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("databricks open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("databricks ping: %w", err)
	}
	return &dbxConn{db: db}, nil
}

// normalizeDSN strips the databricks:// scheme; the driver expects
// token:<pat>@host:port/http_path.
func normalizeDSN(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 && strings.EqualFold(dsn[:i], "databricks") {
		return dsn[i+3:]
	}
	return dsn
}

// dbxConn implements adapter.Connection.
type dbxConn struct {
	db *sql.DB
}

func (c *dbxConn) AdapterName() string { return "databricks" }

func (c *dbxConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *dbxConn) Close() error {
	return c.db.Close()
}

// view returns the fully qualified name of an information_schema view.
func view(catalog, name string) string {
	return sqlgen.QuoteIdent(catalog) + ".information_schema." + name
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

func (c *dbxConn) Catalogs(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT catalog_name FROM system.information_schema.catalogs ORDER BY catalog_name")
	if err != nil {
		return nil, fmt.Errorf("databricks catalogs: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("databricks catalogs scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *dbxConn) Catalog(ctx context.Context, catalog string, opts adapter.FetchOptions) (*schema.Catalog, error) {
	var comment sql.NullString
	err := c.db.QueryRowContext(ctx,
		"SELECT comment FROM system.information_schema.catalogs WHERE catalog_name = ?", catalog).Scan(&comment)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("databricks catalog %q: %w", catalog, adapter.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("databricks catalog: %w", err)
	}

	cat := &schema.Catalog{Name: catalog, Comment: nullString(comment)}
	if opts.Tags {
		tags, err := c.tagMap(ctx,
			"SELECT '', tag_name, tag_value FROM "+view(catalog, "catalog_tags")+" WHERE catalog_name = ?", catalog)
		if err != nil {
			return nil, err
		}
		cat.Tags = tags[""]
	}
	return cat, nil
}

func (c *dbxConn) Schemas(ctx context.Context, catalog string, opts adapter.FetchOptions) ([]schema.Schema, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT schema_name, schema_owner, comment FROM "+view(catalog, "schemata")+" ORDER BY schema_name")
	if err != nil {
		return nil, fmt.Errorf("databricks schemas: %w", err)
	}
	defer rows.Close()

	var schemas []schema.Schema
	for rows.Next() {
		var (
			name           string
			owner, comment sql.NullString
		)
		if err := rows.Scan(&name, &owner, &comment); err != nil {
			return nil, fmt.Errorf("databricks schemas scan: %w", err)
		}
		schemas = append(schemas, schema.Schema{
			Name:    name,
			Owner:   nullString(owner),
			Comment: nullString(comment),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if opts.Tags && len(schemas) > 0 {
		tags, err := c.tagMap(ctx,
			"SELECT schema_name, tag_name, tag_value FROM "+view(catalog, "schema_tags"))
		if err != nil {
			return nil, err
		}
		for i := range schemas {
			schemas[i].Tags = tags[schemas[i].Name]
		}
	}
	return schemas, nil
}

func (c *dbxConn) Tables(ctx context.Context, catalog, schemaName string) ([]schema.Table, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT table_name, table_type, table_owner, comment, created, storage_path
		 FROM `+view(catalog, "tables")+`
		 WHERE table_schema = ?
		 ORDER BY table_name`, schemaName)
	if err != nil {
		return nil, fmt.Errorf("databricks tables: %w", err)
	}
	defer rows.Close()

	var tables []schema.Table
	for rows.Next() {
		var (
			name                   string
			tableType              sql.NullString
			owner, comment, stored sql.NullString
			created                sql.NullTime
		)
		if err := rows.Scan(&name, &tableType, &owner, &comment, &created, &stored); err != nil {
			return nil, fmt.Errorf("databricks tables scan: %w", err)
		}
		t := schema.Table{
			Name:            name,
			TableType:       schema.ParseTableType(tableType.String),
			Owner:           nullString(owner),
			Comment:         nullString(comment),
			StorageLocation: nullString(stored),
		}
		if created.Valid {
			ts := created.Time.UTC()
			t.CreatedAt = &ts
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (c *dbxConn) Table(ctx context.Context, catalog, schemaName string, t schema.Table, opts adapter.FetchOptions) (schema.Table, error) {
	cols, err := c.columns(ctx, catalog, schemaName, t.Name)
	if err != nil {
		return t, err
	}
	t.Columns = cols

	keys, err := c.keyColumns(ctx, catalog, schemaName, t.Name)
	if err != nil {
		return t, err
	}
	t.PrimaryKey, t.ForeignKeys = adapter.BuildConstraints(keys)

	if opts.Tags {
		tableTags, err := c.tagMap(ctx,
			"SELECT '', tag_name, tag_value FROM "+view(catalog, "table_tags")+" WHERE schema_name = ? AND table_name = ?",
			schemaName, t.Name)
		if err != nil {
			return t, err
		}
		t.Tags = tableTags[""]

		colTags, err := c.tagMap(ctx,
			"SELECT column_name, tag_name, tag_value FROM "+view(catalog, "column_tags")+" WHERE schema_name = ? AND table_name = ?",
			schemaName, t.Name)
		if err != nil {
			return t, err
		}
		for i := range t.Columns {
			t.Columns[i].Tags = colTags[t.Columns[i].Name]
		}
	}
	if !opts.Metadata {
		t.StorageLocation = nil
	}
	return t, nil
}

// columns reads column definitions. full_data_type keeps nested types such
// as ARRAY<STRING> intact. ordinal_position is zero-based in
// Databricks; positions in the model start at 1.
func (c *dbxConn) columns(ctx context.Context, catalog, schemaName, table string) ([]schema.Column, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT column_name, ordinal_position, is_nullable, COALESCE(full_data_type, data_type), comment
		 FROM `+view(catalog, "columns")+`
		 WHERE table_schema = ? AND table_name = ?
		 ORDER BY ordinal_position`, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("databricks columns: %w", err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var (
			name, dataType string
			position       sql.NullInt64
			nullable       sql.NullString
			comment        sql.NullString
		)
		if err := rows.Scan(&name, &position, &nullable, &dataType, &comment); err != nil {
			return nil, fmt.Errorf("databricks columns scan: %w", err)
		}
		col := schema.Column{
			Name:     name,
			DataType: dataType,
			Nullable: !strings.EqualFold(nullable.String, "NO"),
			Comment:  nullString(comment),
			Position: schema.UnknownPosition,
		}
		if position.Valid {
			col.Position = int(position.Int64) + 1
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

// keyColumns lists primary and foreign key columns. Foreign keys are
// resolved to their parent columns through referential_constraints; the
// parent catalog is dropped.
func (c *dbxConn) keyColumns(ctx context.Context, catalog, schemaName, table string) ([]adapter.KeyColumn, error) {
	query := `SELECT tc.constraint_name, tc.constraint_type, kcu.column_name,
		        COALESCE(pk.table_schema, ''), COALESCE(pk.table_name, ''), COALESCE(pk.column_name, '')
		 FROM ` + view(catalog, "table_constraints") + ` tc
		 JOIN ` + view(catalog, "key_column_usage") + ` kcu
		   ON kcu.constraint_schema = tc.constraint_schema AND kcu.constraint_name = tc.constraint_name
		 LEFT JOIN ` + view(catalog, "referential_constraints") + ` rc
		   ON rc.constraint_schema = tc.constraint_schema AND rc.constraint_name = tc.constraint_name
		 LEFT JOIN ` + view(catalog, "key_column_usage") + ` pk
		   ON pk.constraint_schema = rc.unique_constraint_schema
		  AND pk.constraint_name = rc.unique_constraint_name
		  AND pk.ordinal_position = kcu.position_in_unique_constraint
		 WHERE tc.table_schema = ? AND tc.table_name = ?
		   AND tc.constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY')
		 ORDER BY tc.constraint_name, kcu.ordinal_position`

	rows, err := c.db.QueryContext(ctx, query, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("databricks constraints: %w", err)
	}
	defer rows.Close()

	var keys []adapter.KeyColumn
	for rows.Next() {
		var k adapter.KeyColumn
		if err := rows.Scan(&k.Constraint, &k.Type, &k.Column, &k.RefSchema, &k.RefTable, &k.RefColumn); err != nil {
			return nil, fmt.Errorf("databricks constraints scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// tagMap runs a query returning (owner, tag_name, tag_value) rows and
// groups the tags by owner name.
func (c *dbxConn) tagMap(ctx context.Context, query string, args ...any) (map[string]map[string]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("databricks tags: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]string)
	for rows.Next() {
		var owner, name string
		var value sql.NullString
		if err := rows.Scan(&owner, &name, &value); err != nil {
			return nil, fmt.Errorf("databricks tags scan: %w", err)
		}
		if out[owner] == nil {
			out[owner] = make(map[string]string)
		}
		out[owner][name] = value.String
	}
	return out, rows.Err()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return schema.StringPtr(ns.String)
}
