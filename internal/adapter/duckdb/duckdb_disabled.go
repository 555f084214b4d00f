//go:build !duckdb

package duckdb

import (
	"context"
	"errors"

	"github.com/sadopc/catalogsync/internal/adapter"
	"github.com/sadopc/catalogsync/internal/schema"
)

var errDisabled = errors.New("DuckDB support not compiled in. Rebuild with -tags duckdb")

func init() {
	adapter.Register(&disabledAdapter{})
}

type disabledAdapter struct{}

func (d *disabledAdapter) Name() string     { return "duckdb" }
func (d *disabledAdapter) DefaultPort() int { return 0 }

func (d *disabledAdapter) Connect(_ context.Context, _ string) (adapter.Connection, error) {
	return nil, errDisabled
}

// disabledConnection is never instantiated but satisfies the interface at compile time.
var _ adapter.Connection = (*disabledConnection)(nil)

type disabledConnection struct{}

func (c *disabledConnection) Catalogs(_ context.Context) ([]string, error) {
	return nil, errDisabled
}
func (c *disabledConnection) Catalog(_ context.Context, _ string, _ adapter.FetchOptions) (*schema.Catalog, error) {
	return nil, errDisabled
}
func (c *disabledConnection) Schemas(_ context.Context, _ string, _ adapter.FetchOptions) ([]schema.Schema, error) {
	return nil, errDisabled
}
func (c *disabledConnection) Tables(_ context.Context, _, _ string) ([]schema.Table, error) {
	return nil, errDisabled
}
func (c *disabledConnection) Table(_ context.Context, _, _ string, t schema.Table, _ adapter.FetchOptions) (schema.Table, error) {
	return t, errDisabled
}
func (c *disabledConnection) Ping(_ context.Context) error { return errDisabled }
func (c *disabledConnection) Close() error                 { return errDisabled }
func (c *disabledConnection) AdapterName() string          { return "duckdb" }
