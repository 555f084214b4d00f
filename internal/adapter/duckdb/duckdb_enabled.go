//go:build duckdb

package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/sadopc/catalogsync/internal/adapter"
	"github.com/sadopc/catalogsync/internal/schema"
)

func init() {
	adapter.Register(&duckdbAdapter{})
}

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

// duckdbAdapter implements adapter.Adapter for DuckDB. Every attached
// database is a catalog.
type duckdbAdapter struct{}

func (a *duckdbAdapter) Name() string     { return "duckdb" }
func (a *duckdbAdapter) DefaultPort() int { return 0 }

func (a *duckdbAdapter) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	// Strip the "duckdb://" prefix if present.
	dsn = strings.TrimPrefix(dsn, "duckdb://")
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("duckdb: ping: %w", err)
	}

	return &duckdbConn{db: db}, nil
}

// ---------------------------------------------------------------------------
// Connection
// ---------------------------------------------------------------------------

type duckdbConn struct {
	db *sql.DB
}

func (c *duckdbConn) AdapterName() string { return "duckdb" }

func (c *duckdbConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *duckdbConn) Close() error {
	return c.db.Close()
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

func (c *duckdbConn) Catalogs(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT database_name FROM duckdb_databases() WHERE NOT internal ORDER BY database_name")
	if err != nil {
		return nil, fmt.Errorf("duckdb: catalogs: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("duckdb: catalogs scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *duckdbConn) Catalog(ctx context.Context, catalog string, opts adapter.FetchOptions) (*schema.Catalog, error) {
	var comment sql.NullString
	err := c.db.QueryRowContext(ctx,
		"SELECT comment FROM duckdb_databases() WHERE database_name = ?", catalog).Scan(&comment)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("duckdb: catalog %q: %w", catalog, adapter.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("duckdb: catalog: %w", err)
	}
	return &schema.Catalog{Name: catalog, Comment: schema.StringPtr(comment.String)}, nil
}

func (c *duckdbConn) Schemas(ctx context.Context, catalog string, opts adapter.FetchOptions) ([]schema.Schema, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT schema_name, comment
		 FROM duckdb_schemas()
		 WHERE database_name = ? AND NOT internal
		 ORDER BY schema_name`, catalog)
	if err != nil {
		return nil, fmt.Errorf("duckdb: schemas: %w", err)
	}
	defer rows.Close()

	var schemas []schema.Schema
	for rows.Next() {
		var name string
		var comment sql.NullString
		if err := rows.Scan(&name, &comment); err != nil {
			return nil, fmt.Errorf("duckdb: schemas scan: %w", err)
		}
		schemas = append(schemas, schema.Schema{Name: name, Comment: schema.StringPtr(comment.String)})
	}
	return schemas, rows.Err()
}

func (c *duckdbConn) Tables(ctx context.Context, catalog, schemaName string) ([]schema.Table, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT table_name, 'BASE TABLE', comment FROM duckdb_tables()
		 WHERE database_name = ? AND schema_name = ? AND NOT internal
		 UNION ALL
		 SELECT view_name, 'VIEW', comment FROM duckdb_views()
		 WHERE database_name = ? AND schema_name = ? AND NOT internal
		 ORDER BY 1`, catalog, schemaName, catalog, schemaName)
	if err != nil {
		return nil, fmt.Errorf("duckdb: tables: %w", err)
	}
	defer rows.Close()

	var tables []schema.Table
	for rows.Next() {
		var name, typ string
		var comment sql.NullString
		if err := rows.Scan(&name, &typ, &comment); err != nil {
			return nil, fmt.Errorf("duckdb: tables scan: %w", err)
		}
		tables = append(tables, schema.Table{
			Name:      name,
			TableType: schema.ParseTableType(typ),
			Comment:   schema.StringPtr(comment.String),
		})
	}
	return tables, rows.Err()
}

func (c *duckdbConn) Table(ctx context.Context, catalog, schemaName string, t schema.Table, opts adapter.FetchOptions) (schema.Table, error) {
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
	return t, nil
}

// columns reads duckdb_columns(). column_index is already 1-based.
func (c *duckdbConn) columns(ctx context.Context, catalog, schemaName, table string) ([]schema.Column, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT column_name, column_index, is_nullable, data_type, comment
		 FROM duckdb_columns()
		 WHERE database_name = ? AND schema_name = ? AND table_name = ?
		 ORDER BY column_index`, catalog, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("duckdb: columns: %w", err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var (
			name, dtype string
			position    int
			nullable    bool
			comment     sql.NullString
		)
		if err := rows.Scan(&name, &position, &nullable, &dtype, &comment); err != nil {
			return nil, fmt.Errorf("duckdb: columns scan: %w", err)
		}
		cols = append(cols, schema.Column{
			Name:     name,
			DataType: dtype,
			Nullable: nullable,
			Comment:  schema.StringPtr(comment.String),
			Position: position,
		})
	}
	return cols, rows.Err()
}

func (c *duckdbConn) keyColumns(ctx context.Context, catalog, schemaName, table string) ([]adapter.KeyColumn, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT tc.constraint_name, tc.constraint_type, kcu.column_name,
		        COALESCE(pk.table_schema, ''), COALESCE(pk.table_name, ''), COALESCE(pk.column_name, '')
		 FROM information_schema.table_constraints tc
		 JOIN information_schema.key_column_usage kcu
		   ON kcu.constraint_catalog = tc.constraint_catalog
		  AND kcu.constraint_schema = tc.constraint_schema
		  AND kcu.constraint_name = tc.constraint_name
		 LEFT JOIN information_schema.referential_constraints rc
		   ON rc.constraint_catalog = tc.constraint_catalog
		  AND rc.constraint_schema = tc.constraint_schema
		  AND rc.constraint_name = tc.constraint_name
		 LEFT JOIN information_schema.key_column_usage pk
		   ON pk.constraint_catalog = rc.unique_constraint_catalog
		  AND pk.constraint_schema = rc.unique_constraint_schema
		  AND pk.constraint_name = rc.unique_constraint_name
		  AND pk.ordinal_position = kcu.position_in_unique_constraint
		 WHERE tc.table_catalog = ? AND tc.table_schema = ? AND tc.table_name = ?
		   AND tc.constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY')
		 ORDER BY tc.constraint_name, kcu.ordinal_position`, catalog, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("duckdb: constraints: %w", err)
	}
	defer rows.Close()

	var keys []adapter.KeyColumn
	for rows.Next() {
		var k adapter.KeyColumn
		if err := rows.Scan(&k.Constraint, &k.Type, &k.Column, &k.RefSchema, &k.RefTable, &k.RefColumn); err != nil {
			return nil, fmt.Errorf("duckdb: constraints scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
