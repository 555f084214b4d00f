package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sadopc/catalogsync/internal/adapter"
	"github.com/sadopc/catalogsync/internal/schema"

	_ "modernc.org/sqlite"
)

func init() {
	adapter.Register(&sqliteAdapter{})
}

// sqliteAdapter implements adapter.Adapter for SQLite databases. The file is
// the catalog; "main" and every attached database are its schemas.
type sqliteAdapter struct{}

func (a *sqliteAdapter) Name() string     { return "sqlite" }
func (a *sqliteAdapter) DefaultPort() int { return 0 }

func (a *sqliteAdapter) Connect(ctx context.Context, dsn string) (adapter.Connection, error) {
	dsn = normalizeDSN(dsn)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if dsn == ":memory:" {
		// Each pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	return &sqliteConn{
		db:     db,
		dbName: catalogName(dsn),
	}, nil
}

// normalizeDSN strips common SQLite URI prefixes.
func normalizeDSN(dsn string) string {
	if strings.HasPrefix(dsn, "sqlite://") {
		return strings.TrimPrefix(dsn, "sqlite://")
	}
	if strings.HasPrefix(dsn, "file:") {
		return strings.TrimPrefix(dsn, "file:")
	}
	return dsn
}

// catalogName derives the catalog name from the file name without its
// extension.
func catalogName(dsn string) string {
	if dsn == ":memory:" || dsn == "" {
		return "memory"
	}
	base := filepath.Base(dsn)
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sqliteConn implements adapter.Connection.
type sqliteConn struct {
	db     *sql.DB
	dbName string
}

func (c *sqliteConn) AdapterName() string { return "sqlite" }

func (c *sqliteConn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *sqliteConn) Close() error {
	return c.db.Close()
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

// Catalogs returns the single catalog backed by the opened file.
func (c *sqliteConn) Catalogs(ctx context.Context) ([]string, error) {
	return []string{c.dbName}, nil
}

func (c *sqliteConn) Catalog(ctx context.Context, catalog string, opts adapter.FetchOptions) (*schema.Catalog, error) {
	if catalog != c.dbName {
		return nil, fmt.Errorf("sqlite catalog %q: %w", catalog, adapter.ErrNotFound)
	}
	return &schema.Catalog{Name: catalog}, nil
}

// Schemas lists "main" and attached databases. The temp schema is skipped.
func (c *sqliteConn) Schemas(ctx context.Context, catalog string, opts adapter.FetchOptions) ([]schema.Schema, error) {
	rows, err := c.db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, fmt.Errorf("sqlite database_list: %w", err)
	}
	defer rows.Close()

	var schemas []schema.Schema
	for rows.Next() {
		var (
			seq  int
			name string
			file sql.NullString
		)
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, fmt.Errorf("sqlite database_list scan: %w", err)
		}
		if name == "temp" {
			continue
		}
		schemas = append(schemas, schema.Schema{Name: name})
	}
	return schemas, rows.Err()
}

// Tables returns all user tables and views in the schema.
func (c *sqliteConn) Tables(ctx context.Context, catalog, schemaName string) ([]schema.Table, error) {
	query := fmt.Sprintf(
		"SELECT name, type FROM %q.sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%%' ORDER BY name",
		schemaName)
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite tables: %w", err)
	}
	defer rows.Close()

	var tables []schema.Table
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return nil, fmt.Errorf("sqlite tables scan: %w", err)
		}
		tables = append(tables, schema.Table{Name: name, TableType: schema.ParseTableType(typ)})
	}
	return tables, rows.Err()
}

// Table fills in columns, the primary key and foreign keys. SQLite has no
// comments, owners or tags.
func (c *sqliteConn) Table(ctx context.Context, catalog, schemaName string, t schema.Table, opts adapter.FetchOptions) (schema.Table, error) {
	cols, pk, err := c.columns(ctx, schemaName, t.Name)
	if err != nil {
		return t, err
	}
	t.Columns = cols
	t.PrimaryKey = pk

	fks, err := c.foreignKeys(ctx, schemaName, t.Name)
	if err != nil {
		return t, err
	}
	t.ForeignKeys = fks
	return t, nil
}

// columns reads PRAGMA table_info. The pk column holds the 1-based position
// of the column inside the primary key, or 0.
func (c *sqliteConn) columns(ctx context.Context, schemaName, table string) ([]schema.Column, *schema.PrimaryKey, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA %q.table_info(%q)", schemaName, table))
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite columns: %w", err)
	}
	defer rows.Close()

	type pkPart struct {
		seq  int
		name string
	}
	var (
		columns []schema.Column
		pkParts []pkPart
	)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, nil, fmt.Errorf("sqlite columns scan: %w", err)
		}
		columns = append(columns, schema.Column{
			Name:     name,
			DataType: colType,
			Nullable: notNull == 0,
			Position: cid + 1,
		})
		if pk > 0 {
			pkParts = append(pkParts, pkPart{seq: pk, name: name})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	if len(pkParts) == 0 {
		return columns, nil, nil
	}
	sort.Slice(pkParts, func(i, j int) bool { return pkParts[i].seq < pkParts[j].seq })
	pk := &schema.PrimaryKey{}
	for _, p := range pkParts {
		pk.Columns = append(pk.Columns, p.name)
	}
	return columns, pk, nil
}

// foreignKeys reads PRAGMA foreign_key_list. SQLite does not report
// constraint names, so they are left empty and derived from the columns.
func (c *sqliteConn) foreignKeys(ctx context.Context, schemaName, table string) ([]schema.ForeignKey, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("PRAGMA %q.foreign_key_list(%q)", schemaName, table))
	if err != nil {
		return nil, fmt.Errorf("sqlite foreign_key_list: %w", err)
	}
	defer rows.Close()

	// Group by id since a single FK can span multiple columns.
	fkIndex := make(map[int]int)
	var fks []schema.ForeignKey

	for rows.Next() {
		var (
			id       int
			seq      int
			refTable string
			from     string
			to       sql.NullString
			onUpdate string
			onDelete string
			match    string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("sqlite foreign_key_list scan: %w", err)
		}
		i, ok := fkIndex[id]
		if !ok {
			i = len(fks)
			fkIndex[id] = i
			fks = append(fks, schema.ForeignKey{RefSchema: schemaName, RefTable: refTable})
		}
		fks[i].Columns = append(fks[i].Columns, from)
		fks[i].RefColumns = append(fks[i].RefColumns, to.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fks, nil
}
