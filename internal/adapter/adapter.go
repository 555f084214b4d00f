package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/sadopc/catalogsync/internal/schema"
)

var (
	ErrNotConnected   = errors.New("not connected to database")
	ErrUnknownAdapter = errors.New("unknown adapter")
	ErrNotFound       = errors.New("object not found")
)

// Adapter creates catalog connections.
type Adapter interface {
	Connect(ctx context.Context, dsn string) (Connection, error)
	Name() string
	DefaultPort() int
}

// FetchOptions selects the optional parts of an extraction.
type FetchOptions struct {
	// Tags fetches governance tags for every object.
	Tags bool
	// Metadata fetches storage locations.
	Metadata bool
}

// Connection reads catalog metadata from a live source. Schemas and Tables
// return headers only; Table fills in columns and constraints for one table.
type Connection interface {
	// Catalogs lists the catalogs visible to the connection.
	Catalogs(ctx context.Context) ([]string, error)
	// Catalog returns the catalog header (comment and tags) without schemas.
	Catalog(ctx context.Context, catalog string, opts FetchOptions) (*schema.Catalog, error)
	// Schemas returns schema headers without tables.
	Schemas(ctx context.Context, catalog string, opts FetchOptions) ([]schema.Schema, error)
	// Tables returns table headers without columns.
	Tables(ctx context.Context, catalog, schemaName string) ([]schema.Table, error)
	// Table returns t with columns, constraints and tags filled in.
	Table(ctx context.Context, catalog, schemaName string, t schema.Table, opts FetchOptions) (schema.Table, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Info
	AdapterName() string
}

// SystemSchemas lists schema names that hold engine metadata rather than
// user objects.
var SystemSchemas = []string{"information_schema", "pg_catalog", "pg_toast", "mysql", "performance_schema", "sys"}

// IsSystemSchema reports whether name is one of SystemSchemas.
func IsSystemSchema(name string) bool {
	return slices.Contains(SystemSchemas, strings.ToLower(name)) || strings.HasPrefix(name, "pg_temp_")
}

// Registry holds registered adapters by name.
var Registry = map[string]Adapter{}

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	Registry[a.Name()] = a
}

// Names returns the registered adapter names, sorted.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the adapter registered under name.
func Lookup(name string) (Adapter, error) {
	a, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownAdapter, name, strings.Join(Names(), ", "))
	}
	return a, nil
}

// DetectAdapter guesses the adapter name from a DSN. It returns "" when the
// DSN gives no hint.
func DetectAdapter(dsn string) string {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "databricks://"):
		return "databricks"
	case strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "mysql://"):
		return "mysql"
	case strings.HasPrefix(lower, "sqlite://") || strings.HasPrefix(lower, "file:"):
		return "sqlite"
	case strings.HasPrefix(lower, "duckdb://"):
		return "duckdb"
	case strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite") || strings.HasSuffix(lower, ".sqlite3"):
		return "sqlite"
	case strings.HasSuffix(lower, ".duckdb"):
		return "duckdb"
	case strings.Contains(lower, "@tcp("):
		return "mysql"
	}
	if strings.Contains(dsn, "@") {
		return "postgres"
	}
	return ""
}

// DSNParams are the individual connection settings BuildDSN assembles.
type DSNParams struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	File     string
	Token    string
	HTTPPath string
}

// BuildDSN assembles a driver DSN from individual settings.
func BuildDSN(adapterName string, p DSNParams) string {
	switch adapterName {
	case "databricks":
		port := p.Port
		if port == 0 {
			port = 443
		}
		host := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(p.Host, "https://"), "http://"), "/")
		dsn := fmt.Sprintf("databricks://token:%s@%s:%d", url.PathEscape(p.Token), host, port)
		if p.HTTPPath != "" {
			dsn += "/" + strings.TrimPrefix(p.HTTPPath, "/")
		}
		return dsn

	case "postgres":
		u := &url.URL{
			Scheme: "postgres",
			Host:   p.Host,
		}
		if p.User != "" {
			if p.Password != "" {
				u.User = url.UserPassword(p.User, p.Password)
			} else {
				u.User = url.User(p.User)
			}
		}
		if p.Port > 0 {
			u.Host = fmt.Sprintf("%s:%d", p.Host, p.Port)
		}
		if p.Database != "" {
			u.Path = "/" + p.Database
		}
		return u.String()

	case "mysql":
		// go-sql-driver format: user:pass@tcp(host:port)/db
		dsn := ""
		if p.User != "" {
			dsn += p.User
			if p.Password != "" {
				dsn += ":" + url.PathEscape(p.Password)
			}
			dsn += "@"
		}
		port := p.Port
		if port == 0 {
			port = 3306
		}
		dsn += fmt.Sprintf("tcp(%s:%d)", p.Host, port)
		if p.Database != "" {
			dsn += "/" + p.Database
		}
		return dsn

	case "sqlite", "duckdb":
		if p.File != "" {
			return p.File
		}
		if p.Database != "" {
			return p.Database
		}
		return ":memory:"
	}
	return ""
}

// KeyColumn is one row of a constraint/key-column listing as most
// information_schema implementations expose it.
type KeyColumn struct {
	Constraint string
	// Type is "PRIMARY KEY" or "FOREIGN KEY"; other constraint types are
	// ignored.
	Type      string
	Column    string
	RefSchema string
	RefTable  string
	RefColumn string
}

// BuildConstraints folds key-column rows, already ordered by constraint and
// ordinal position, into a primary key and foreign keys. Foreign keys keep
// first-seen order.
func BuildConstraints(rows []KeyColumn) (*schema.PrimaryKey, []schema.ForeignKey) {
	var pk *schema.PrimaryKey
	var fks []schema.ForeignKey
	fkIndex := make(map[string]int)

	for _, r := range rows {
		switch strings.ToUpper(r.Type) {
		case "PRIMARY KEY":
			if pk == nil {
				pk = &schema.PrimaryKey{Name: r.Constraint}
			}
			if pk.Name == r.Constraint {
				pk.Columns = append(pk.Columns, r.Column)
			}
		case "FOREIGN KEY":
			i, ok := fkIndex[r.Constraint]
			if !ok {
				i = len(fks)
				fkIndex[r.Constraint] = i
				fks = append(fks, schema.ForeignKey{
					Name:      r.Constraint,
					RefSchema: r.RefSchema,
					RefTable:  r.RefTable,
				})
			}
			fks[i].Columns = append(fks[i].Columns, r.Column)
			fks[i].RefColumns = append(fks[i].RefColumns, r.RefColumn)
		}
	}
	return pk, fks
}
