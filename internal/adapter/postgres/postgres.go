package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sadopc/catalogsync/internal/adapter"
	"github.com/sadopc/catalogsync/internal/schema"
)

func init() {
	adapter.Register(&postgresAdapter{})
}

// postgresAdapter implements adapter.Adapter for PostgreSQL. The connected
// database is the catalog; PostgreSQL cannot read another database's
// system catalogs over the same connection.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string     { return "postgres" }
func (a *postgresAdapter) DefaultPort() int { return 5432 }

func (a *postgresAdapter) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	dbName := extractDBName(dsn)
	if dbName == "" {
		if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres current database: %w", err)
		}
	}

	return &pgConn{
		pool:   pool,
		dbName: dbName,
	}, nil
}

// extractDBName parses the database name from the DSN.
func extractDBName(dsn string) string {
	if dsn == "" {
		return ""
	}
	// Try URL format first (postgres://... or postgresql://...)
	u, err := url.Parse(dsn)
	if err == nil && u.Scheme != "" {
		return strings.TrimPrefix(u.Path, "/")
	}
	// Fallback: keyword=value format (e.g. "host=localhost dbname=myapp")
	for _, part := range strings.Fields(dsn) {
		if strings.HasPrefix(part, "dbname=") {
			return strings.TrimPrefix(part, "dbname=")
		}
	}
	return ""
}

// pgConn implements adapter.Connection for PostgreSQL.
type pgConn struct {
	pool   *pgxpool.Pool
	dbName string
}

func (c *pgConn) AdapterName() string { return "postgres" }

func (c *pgConn) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *pgConn) Close() error {
	c.pool.Close()
	return nil
}

func (c *pgConn) checkCatalog(catalog string) error {
	if catalog != c.dbName {
		return fmt.Errorf("postgres catalog %q (connected to %q): %w", catalog, c.dbName, adapter.ErrNotFound)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

// Catalogs lists all non-template databases.
func (c *pgConn) Catalogs(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT datname FROM pg_database
		 WHERE datistemplate = false
		 ORDER BY datname`)
	if err != nil {
		return nil, fmt.Errorf("postgres catalogs: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres catalogs scan: %w", err)
	}
	return names, nil
}

func (c *pgConn) Catalog(ctx context.Context, catalog string, opts adapter.FetchOptions) (*schema.Catalog, error) {
	if err := c.checkCatalog(catalog); err != nil {
		return nil, err
	}
	var comment *string
	err := c.pool.QueryRow(ctx,
		`SELECT shobj_description(oid, 'pg_database') FROM pg_database WHERE datname = $1`, catalog).Scan(&comment)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres catalog %q: %w", catalog, adapter.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres catalog: %w", err)
	}
	return &schema.Catalog{Name: catalog, Comment: nonEmpty(comment)}, nil
}

// Schemas lists namespaces with their owner and comment. Toast and
// temporary namespaces are skipped; PostgreSQL has no tags.
func (c *pgConn) Schemas(ctx context.Context, catalog string, opts adapter.FetchOptions) ([]schema.Schema, error) {
	if err := c.checkCatalog(catalog); err != nil {
		return nil, err
	}
	rows, err := c.pool.Query(ctx,
		`SELECT n.nspname,
		        pg_get_userbyid(n.nspowner),
		        obj_description(n.oid, 'pg_namespace')
		 FROM pg_namespace n
		 WHERE n.nspname NOT LIKE 'pg_toast%'
		   AND n.nspname NOT LIKE 'pg_temp_%'
		 ORDER BY n.nspname`)
	if err != nil {
		return nil, fmt.Errorf("postgres schemas: %w", err)
	}
	defer rows.Close()

	var schemas []schema.Schema
	for rows.Next() {
		var (
			name    string
			owner   *string
			comment *string
		)
		if err := rows.Scan(&name, &owner, &comment); err != nil {
			return nil, fmt.Errorf("postgres schemas scan: %w", err)
		}
		schemas = append(schemas, schema.Schema{Name: name, Owner: nonEmpty(owner), Comment: nonEmpty(comment)})
	}
	return schemas, rows.Err()
}

// Tables lists relations in the schema: ordinary and partitioned tables,
// views, materialized views and foreign tables.
func (c *pgConn) Tables(ctx context.Context, catalog, schemaName string) ([]schema.Table, error) {
	if schemaName == "" {
		schemaName = "public"
	}

	rows, err := c.pool.Query(ctx,
		`SELECT cl.relname,
		        cl.relkind::text,
		        pg_get_userbyid(cl.relowner),
		        obj_description(cl.oid, 'pg_class')
		 FROM pg_class cl
		 JOIN pg_namespace n ON n.oid = cl.relnamespace
		 WHERE n.nspname = $1
		   AND cl.relkind IN ('r', 'p', 'v', 'm', 'f')
		 ORDER BY cl.relname`, schemaName)
	if err != nil {
		return nil, fmt.Errorf("postgres tables: %w", err)
	}
	defer rows.Close()

	var tables []schema.Table
	for rows.Next() {
		var (
			name, kind     string
			owner, comment *string
		)
		if err := rows.Scan(&name, &kind, &owner, &comment); err != nil {
			return nil, fmt.Errorf("postgres tables scan: %w", err)
		}
		tables = append(tables, schema.Table{
			Name:      name,
			TableType: tableType(kind),
			Owner:     nonEmpty(owner),
			Comment:   nonEmpty(comment),
		})
	}
	return tables, rows.Err()
}

// tableType maps pg_class.relkind onto the model.
func tableType(relkind string) schema.TableType {
	switch relkind {
	case "r", "p":
		return schema.TableTypeManaged
	case "v":
		return schema.TableTypeView
	case "m":
		return schema.TableTypeMaterializedView
	case "f":
		return schema.TableTypeForeign
	}
	return schema.TableType(strings.ToUpper(relkind))
}

func (c *pgConn) Table(ctx context.Context, catalog, schemaName string, t schema.Table, opts adapter.FetchOptions) (schema.Table, error) {
	if schemaName == "" {
		schemaName = "public"
	}
	cols, err := c.columns(ctx, schemaName, t.Name)
	if err != nil {
		return t, err
	}
	t.Columns = cols

	keys, err := c.keyColumns(ctx, schemaName, t.Name)
	if err != nil {
		return t, err
	}
	t.PrimaryKey, t.ForeignKeys = adapter.BuildConstraints(keys)
	return t, nil
}

func (c *pgConn) columns(ctx context.Context, schemaName, table string) ([]schema.Column, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT a.attname,
		        format_type(a.atttypid, a.atttypmod),
		        NOT a.attnotnull,
		        col_description(a.attrelid, a.attnum),
		        a.attnum
		 FROM pg_attribute a
		 JOIN pg_class cl ON cl.oid = a.attrelid
		 JOIN pg_namespace n ON n.oid = cl.relnamespace
		 WHERE n.nspname = $1
		   AND cl.relname = $2
		   AND a.attnum > 0
		   AND NOT a.attisdropped
		 ORDER BY a.attnum`, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("postgres columns: %w", err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var (
			name, dtype string
			nullable    bool
			comment     *string
			position    int16
		)
		if err := rows.Scan(&name, &dtype, &nullable, &comment, &position); err != nil {
			return nil, fmt.Errorf("postgres columns scan: %w", err)
		}
		cols = append(cols, schema.Column{
			Name:     name,
			DataType: dtype,
			Nullable: nullable,
			Comment:  nonEmpty(comment),
			Position: int(position),
		})
	}
	return cols, rows.Err()
}

// keyColumns lists primary and foreign key columns from pg_constraint, with
// referenced columns paired by key position.
func (c *pgConn) keyColumns(ctx context.Context, schemaName, table string) ([]adapter.KeyColumn, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT con.conname,
		        CASE con.contype WHEN 'p' THEN 'PRIMARY KEY' ELSE 'FOREIGN KEY' END,
		        a.attname,
		        COALESCE(rn.nspname, ''),
		        COALESCE(rc.relname, ''),
		        COALESCE(ra.attname, '')
		 FROM pg_constraint con
		 JOIN pg_class cl ON cl.oid = con.conrelid
		 JOIN pg_namespace n ON n.oid = cl.relnamespace
		 JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, n) ON true
		 JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
		 LEFT JOIN pg_class rc ON rc.oid = con.confrelid
		 LEFT JOIN pg_namespace rn ON rn.oid = rc.relnamespace
		 LEFT JOIN pg_attribute ra ON ra.attrelid = con.confrelid AND ra.attnum = con.confkey[k.n]
		 WHERE n.nspname = $1
		   AND cl.relname = $2
		   AND con.contype IN ('p', 'f')
		 ORDER BY con.conname, k.n`, schemaName, table)
	if err != nil {
		return nil, fmt.Errorf("postgres constraints: %w", err)
	}
	defer rows.Close()

	var keys []adapter.KeyColumn
	for rows.Next() {
		var k adapter.KeyColumn
		if err := rows.Scan(&k.Constraint, &k.Type, &k.Column, &k.RefSchema, &k.RefTable, &k.RefColumn); err != nil {
			return nil, fmt.Errorf("postgres constraints scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func nonEmpty(p *string) *string {
	if p == nil {
		return nil
	}
	return schema.StringPtr(*p)
}
