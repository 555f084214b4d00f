package extract

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sadopc/catalogsync/internal/adapter"
	"github.com/sadopc/catalogsync/internal/schema"
)

// fakeConn serves a fixed catalog from memory.
type fakeConn struct {
	catalog *schema.Catalog
	// delay makes early tables finish last to shake out ordering bugs.
	delay    bool
	failOn   string
	inFlight atomic.Int32
	maxSeen  atomic.Int32

	mu    sync.Mutex
	calls []string
}

func (f *fakeConn) Catalogs(context.Context) ([]string, error) { return []string{f.catalog.Name}, nil }

func (f *fakeConn) Catalog(_ context.Context, name string, opts adapter.FetchOptions) (*schema.Catalog, error) {
	if name != f.catalog.Name {
		return nil, adapter.ErrNotFound
	}
	c := &schema.Catalog{Name: name, Comment: f.catalog.Comment}
	if opts.Tags {
		c.Tags = f.catalog.Tags
	}
	return c, nil
}

func (f *fakeConn) Schemas(_ context.Context, _ string, _ adapter.FetchOptions) ([]schema.Schema, error) {
	var out []schema.Schema
	for _, s := range f.catalog.Schemas {
		s.Tables = nil
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeConn) Tables(_ context.Context, _, schemaName string) ([]schema.Table, error) {
	s := f.catalog.Schema(schemaName)
	if s == nil {
		return nil, nil
	}
	var out []schema.Table
	for _, t := range s.Tables {
		out = append(out, schema.Table{Name: t.Name, TableType: t.TableType, StorageLocation: t.StorageLocation})
	}
	return out, nil
}

func (f *fakeConn) Table(ctx context.Context, _, schemaName string, t schema.Table, _ adapter.FetchOptions) (schema.Table, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, schemaName+"."+t.Name)
	f.mu.Unlock()

	if t.Name == f.failOn {
		return t, errors.New("boom")
	}
	full := f.catalog.Schema(schemaName).Table(t.Name)
	if f.delay && t.Name == "a" {
		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
			return t, ctx.Err()
		}
	}
	return *full, nil
}

func (f *fakeConn) Ping(context.Context) error { return nil }
func (f *fakeConn) Close() error               { return nil }
func (f *fakeConn) AdapterName() string        { return "fake" }

func fixture() *schema.Catalog {
	loc := "s3://bucket/a"
	return &schema.Catalog{
		Name:    "prod",
		Comment: schema.StringPtr("Production"),
		Tags:    map[string]string{"tier": "gold"},
		Schemas: []schema.Schema{
			{Name: "sales", Tags: map[string]string{"env": "prod"}, Tables: []schema.Table{
				{Name: "c", Columns: []schema.Column{{Name: "x", DataType: "INT", Position: 1}}},
				{Name: "a", StorageLocation: &loc, Tags: map[string]string{"pii": "no"}, Columns: []schema.Column{
					{Name: "late", DataType: "INT", Position: 0},
					{Name: "second", DataType: "STRING", Position: 2, Tags: map[string]string{"k": "v"}},
					{Name: "first", DataType: "BIGINT", Position: 1},
				}},
				{Name: "b"},
			}},
			{Name: "information_schema", Tables: []schema.Table{{Name: "tables"}}},
			{Name: "audit"},
		},
	}
}

func TestExtractCatalog(t *testing.T) {
	conn := &fakeConn{catalog: fixture(), delay: true}
	e := New(conn, 3)

	cat, err := e.ExtractCatalog(context.Background(), "prod", Options{SkipSystem: true, Tags: true})
	if err != nil {
		t.Fatalf("ExtractCatalog() error: %v", err)
	}

	if got := cat.SchemaNames(); !reflect.DeepEqual(got, []string{"audit", "sales"}) {
		t.Errorf("schemas = %v, want [audit sales]", got)
	}
	if schema.Deref(cat.Comment) != "Production" || cat.Tags["tier"] != "gold" {
		t.Errorf("catalog header = %+v", cat)
	}

	sales := cat.Schema("sales")
	var tables []string
	for _, tbl := range sales.Tables {
		tables = append(tables, tbl.Name)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(tables, want) {
		t.Errorf("tables = %v, want %v", tables, want)
	}

	a := sales.Table("a")
	var cols []string
	for _, c := range a.Columns {
		cols = append(cols, c.Name)
	}
	if want := []string{"first", "second", "late"}; !reflect.DeepEqual(cols, want) {
		t.Errorf("columns = %v, want %v", cols, want)
	}
	if a.Columns[2].Position != schema.UnknownPosition {
		t.Errorf("unknown position = %d, want %d", a.Columns[2].Position, schema.UnknownPosition)
	}
	if a.StorageLocation != nil {
		t.Error("storage location kept without IncludeMetadata")
	}
	if a.Tags["pii"] != "no" || a.Columns[1].Tags["k"] != "v" {
		t.Error("tags dropped although Tags was set")
	}
	if sales.Tags["env"] != "prod" {
		t.Error("schema tags dropped although Tags was set")
	}
}

func TestExtractOptions(t *testing.T) {
	conn := &fakeConn{catalog: fixture()}
	e := New(conn, 2)

	cat, err := e.ExtractCatalog(context.Background(), "prod", Options{
		Schemas:         []string{"sales", "missing"},
		IncludeMetadata: true,
	})
	if err != nil {
		t.Fatalf("ExtractCatalog() error: %v", err)
	}
	if got := cat.SchemaNames(); !reflect.DeepEqual(got, []string{"sales"}) {
		t.Fatalf("schemas = %v, want [sales]", got)
	}
	a := cat.Schema("sales").Table("a")
	if schema.Deref(a.StorageLocation) != "s3://bucket/a" {
		t.Errorf("StorageLocation = %v, want s3://bucket/a", a.StorageLocation)
	}
	if a.Tags != nil || a.Column("second").Tags != nil || cat.Schema("sales").Tags != nil {
		t.Error("tags kept although Tags was not set")
	}
}

func TestSkipSystemOff(t *testing.T) {
	e := New(&fakeConn{catalog: fixture()}, 1)
	headers, err := e.SchemaHeaders(context.Background(), "prod", Options{})
	if err != nil {
		t.Fatalf("SchemaHeaders() error: %v", err)
	}
	if len(headers) != 3 || headers[1].Name != "information_schema" {
		t.Errorf("SchemaHeaders() = %+v", headers)
	}
}

func TestWorkerLimit(t *testing.T) {
	cat := &schema.Catalog{Name: "prod", Schemas: []schema.Schema{{Name: "wide"}}}
	for i := range 20 {
		cat.Schemas[0].Tables = append(cat.Schemas[0].Tables, schema.Table{Name: fmt.Sprintf("t%02d", i)})
	}
	conn := &fakeConn{catalog: cat}

	if _, err := New(conn, 3).ExtractCatalog(context.Background(), "prod", Options{}); err != nil {
		t.Fatalf("ExtractCatalog() error: %v", err)
	}
	if got := conn.maxSeen.Load(); got > 3 {
		t.Errorf("max concurrent fetches = %d, want <= 3", got)
	}
	if len(conn.calls) != 20 {
		t.Errorf("fetched %d tables, want 20", len(conn.calls))
	}
}

func TestExtractErrors(t *testing.T) {
	conn := &fakeConn{catalog: fixture(), failOn: "b"}
	_, err := New(conn, 2).ExtractCatalog(context.Background(), "prod", Options{})
	if err == nil {
		t.Fatal("expected error from failing table fetch")
	}

	_, err = New(&fakeConn{catalog: fixture()}, 2).ExtractCatalog(context.Background(), "dev", Options{})
	if !errors.Is(err, adapter.ErrNotFound) {
		t.Errorf("unknown catalog error = %v, want ErrNotFound", err)
	}

	if _, err := New(nil, 1).ExtractCatalog(context.Background(), "prod", Options{}); !errors.Is(err, adapter.ErrNotConnected) {
		t.Errorf("nil connection error = %v, want ErrNotConnected", err)
	}
}

func TestIterSchemasStops(t *testing.T) {
	e := New(&fakeConn{catalog: fixture()}, 2)
	stop := errors.New("stop")
	var seen []string
	err := e.IterSchemas(context.Background(), "prod", Options{SkipSystem: true}, func(s *schema.Schema) error {
		seen = append(seen, s.Name)
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("IterSchemas() error = %v, want stop", err)
	}
	if !reflect.DeepEqual(seen, []string{"audit"}) {
		t.Errorf("seen = %v, want [audit]", seen)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	conn := &fakeConn{catalog: fixture(), delay: true}
	if _, err := New(conn, 1).ExtractCatalog(ctx, "prod", Options{Schemas: []string{"sales"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
