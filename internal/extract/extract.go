// Package extract walks a live catalog through an adapter.Connection and
// builds the schema model. Table details are fetched concurrently on a
// fixed-size worker pool; output order does not depend on scheduling.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/sadopc/catalogsync/internal/adapter"
	"github.com/sadopc/catalogsync/internal/schema"
)

// DefaultWorkers is the pool size used when Extractor.Workers is not set.
const DefaultWorkers = 4

// Options controls what is extracted.
type Options struct {
	// Schemas restricts extraction to the named schemas. Empty means all.
	Schemas []string
	// SkipSystem drops engine metadata schemas such as information_schema.
	SkipSystem bool
	// IncludeMetadata keeps storage locations.
	IncludeMetadata bool
	// Tags fetches governance tags.
	Tags bool
}

func (o Options) fetch() adapter.FetchOptions {
	return adapter.FetchOptions{Tags: o.Tags, Metadata: o.IncludeMetadata}
}

// Extractor reads catalogs from a connection.
type Extractor struct {
	conn    adapter.Connection
	Workers int
	Logger  *slog.Logger
}

// New returns an extractor using workers concurrent table fetches.
func New(conn adapter.Connection, workers int) *Extractor {
	return &Extractor{conn: conn, Workers: workers, Logger: slog.Default()}
}

func (e *Extractor) workers() int {
	if e.Workers <= 0 {
		return DefaultWorkers
	}
	return e.Workers
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// ExtractCatalog extracts the catalog header and every matching schema.
func (e *Extractor) ExtractCatalog(ctx context.Context, catalog string, opts Options) (*schema.Catalog, error) {
	if e.conn == nil {
		return nil, adapter.ErrNotConnected
	}
	cat, err := e.conn.Catalog(ctx, catalog, opts.fetch())
	if err != nil {
		return nil, fmt.Errorf("extract catalog: %w", err)
	}
	cat.Schemas = nil

	err = e.IterSchemas(ctx, catalog, opts, func(s *schema.Schema) error {
		cat.Schemas = append(cat.Schemas, *s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// IterSchemas extracts matching schemas one at a time, in name order, and
// passes each to fn. Returning an error from fn stops the walk.
func (e *Extractor) IterSchemas(ctx context.Context, catalog string, opts Options, fn func(*schema.Schema) error) error {
	if e.conn == nil {
		return adapter.ErrNotConnected
	}
	headers, err := e.SchemaHeaders(ctx, catalog, opts)
	if err != nil {
		return err
	}
	for i := range headers {
		s, err := e.ExtractSchema(ctx, catalog, headers[i], opts)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

// SchemaHeaders lists the schemas selected by opts, name-sorted, without
// their tables.
func (e *Extractor) SchemaHeaders(ctx context.Context, catalog string, opts Options) ([]schema.Schema, error) {
	all, err := e.conn.Schemas(ctx, catalog, opts.fetch())
	if err != nil {
		return nil, fmt.Errorf("extract schemas: %w", err)
	}
	var out []schema.Schema
	for _, s := range all {
		if opts.SkipSystem && adapter.IsSystemSchema(s.Name) {
			continue
		}
		if len(opts.Schemas) > 0 && !slices.Contains(opts.Schemas, s.Name) {
			continue
		}
		if !opts.Tags {
			s.Tags = nil
		}
		out = append(out, s)
	}
	schema.SortSchemas(out)
	return out, nil
}

// ExtractSchema fills in the tables of a schema header. Table details are
// fetched on the worker pool and written into their slot, so tables come
// back name-sorted regardless of completion order.
func (e *Extractor) ExtractSchema(ctx context.Context, catalog string, header schema.Schema, opts Options) (*schema.Schema, error) {
	log := e.logger().With("catalog", catalog, "schema", header.Name)

	tables, err := e.conn.Tables(ctx, catalog, header.Name)
	if err != nil {
		return nil, fmt.Errorf("extract tables of %s: %w", header.Name, err)
	}
	schema.SortTables(tables)
	log.Debug("listing tables", "count", len(tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	out := make([]schema.Table, len(tables))
	for i := range tables {
		g.Go(func() error {
			t, err := e.conn.Table(gctx, catalog, header.Name, tables[i], opts.fetch())
			if err != nil {
				return fmt.Errorf("extract table %s.%s: %w", header.Name, tables[i].Name, err)
			}
			out[i] = normalizeTable(t, opts)
			log.Debug("extracted table", "table", t.Name, "columns", len(t.Columns))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := header
	s.Tables = out
	log.Info("extracted schema", "tables", len(out))
	return &s, nil
}

// normalizeTable applies option filtering and orders columns by position.
func normalizeTable(t schema.Table, opts Options) schema.Table {
	if !opts.IncludeMetadata {
		t.StorageLocation = nil
	}
	if !opts.Tags {
		t.Tags = nil
	}
	t.Columns = t.SortedColumns()
	for i := range t.Columns {
		if t.Columns[i].Position <= 0 {
			t.Columns[i].Position = schema.UnknownPosition
		}
		if !opts.Tags {
			t.Columns[i].Tags = nil
		}
	}
	return t
}
