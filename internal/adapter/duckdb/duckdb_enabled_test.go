//go:build duckdb

package duckdb

import (
	"context"
	"reflect"
	"testing"

	"github.com/sadopc/catalogsync/internal/adapter"
	"github.com/sadopc/catalogsync/internal/schema"
)

func TestDuckDB_Introspection(t *testing.T) {
	ctx := context.Background()
	conn, err := (&duckdbAdapter{}).Connect(ctx, "duckdb://")
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer conn.Close()

	db := conn.(*duckdbConn).db
	for _, stmt := range []string{
		"CREATE TABLE users (id BIGINT PRIMARY KEY, email VARCHAR NOT NULL)",
		"CREATE TABLE orders (id BIGINT, user_id BIGINT REFERENCES users(id))",
		"COMMENT ON TABLE users IS 'accounts'",
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}

	cats, err := conn.Catalogs(ctx)
	if err != nil || !reflect.DeepEqual(cats, []string{"memory"}) {
		t.Fatalf("Catalogs() = %v, %v", cats, err)
	}

	tables, err := conn.Tables(ctx, "memory", "main")
	if err != nil {
		t.Fatalf("Tables() error: %v", err)
	}
	if len(tables) != 2 || tables[1].Name != "users" || schema.Deref(tables[1].Comment) != "accounts" {
		t.Fatalf("Tables() = %+v", tables)
	}

	users, err := conn.Table(ctx, "memory", "main", tables[1], adapter.FetchOptions{})
	if err != nil {
		t.Fatalf("Table(users) error: %v", err)
	}
	if users.PrimaryKey == nil || !reflect.DeepEqual(users.PrimaryKey.Columns, []string{"id"}) {
		t.Errorf("users primary key = %+v", users.PrimaryKey)
	}
	if c := users.Column("email"); c == nil || c.Nullable || c.DataType != "VARCHAR" {
		t.Errorf("email column = %+v", c)
	}

	orders, err := conn.Table(ctx, "memory", "main", tables[0], adapter.FetchOptions{})
	if err != nil {
		t.Fatalf("Table(orders) error: %v", err)
	}
	if len(orders.ForeignKeys) != 1 || orders.ForeignKeys[0].RefTable != "users" {
		t.Errorf("orders foreign keys = %+v", orders.ForeignKeys)
	}
}
