package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/catalogsync/internal/diff"
	"github.com/sadopc/catalogsync/internal/schema"
)

func sampleSchema() *schema.Schema {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &schema.Schema{
		Name:    "main",
		Comment: schema.StringPtr("Main schema"),
		Tags:    map[string]string{"env": "prod"},
		Tables: []schema.Table{{
			Name:      "users",
			TableType: schema.TableTypeManaged,
			Comment:   schema.StringPtr("User accounts"),
			CreatedAt: &created,
			Tags:      map[string]string{"domain": "identity"},
			Columns: []schema.Column{
				{Name: "id", DataType: "BIGINT", Nullable: false, Comment: schema.StringPtr("primary key col"), Position: 1},
				{Name: "name", DataType: "STRING", Nullable: true, Position: 2},
			},
			PrimaryKey:  &schema.PrimaryKey{Name: "pk_users", Columns: []string{"id"}},
			ForeignKeys: []schema.ForeignKey{{Name: "fk_org", Columns: []string{"org_id"}, RefSchema: "orgs", RefTable: "organizations", RefColumns: []string{"id"}}},
		}},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatYAML, FormatJSON} {
		t.Run(string(f), func(t *testing.T) {
			orig := sampleSchema()
			data, err := MarshalSchema(orig, f)
			if err != nil {
				t.Fatalf("MarshalSchema() error: %v", err)
			}
			got, err := UnmarshalSchema(data, f)
			if err != nil {
				t.Fatalf("UnmarshalSchema() error: %v", err)
			}

			if d := diff.Schemas(got, orig, diff.Options{IncludeMetadata: true}); d.Status != diff.Unchanged {
				t.Errorf("round trip changed the schema: %+v", d)
			}
			tbl := got.Tables[0]
			if tbl.Columns[0].Nullable {
				t.Error("nullable=false was not preserved")
			}
			if !tbl.CreatedAt.Equal(*orig.Tables[0].CreatedAt) {
				t.Errorf("CreatedAt = %v, want %v", tbl.CreatedAt, orig.Tables[0].CreatedAt)
			}
			if tbl.Columns[1].Position != 2 {
				t.Errorf("Position = %d, want 2", tbl.Columns[1].Position)
			}
		})
	}
}

func TestEmptyFieldsOmitted(t *testing.T) {
	s := &schema.Schema{Name: "empty", Tables: []schema.Table{{Name: "t", Columns: []schema.Column{{Name: "c", DataType: "INT", Nullable: false}}}}}
	data, err := MarshalSchema(s, FormatYAML)
	if err != nil {
		t.Fatalf("MarshalSchema() error: %v", err)
	}
	text := string(data)
	for _, absent := range []string{"comment", "owner", "tags", "primary_key", "foreign_keys", "table_type", "created_at"} {
		if strings.Contains(text, absent+":") {
			t.Errorf("YAML contains %q:\n%s", absent, text)
		}
	}
	if !strings.Contains(text, "nullable: false") {
		t.Errorf("YAML lost nullable: false:\n%s", text)
	}
}

func TestNullableDefaultsTrue(t *testing.T) {
	in := []byte("name: main\ntables:\n  - name: t\n    columns:\n      - name: c\n        data_type: INT\n")
	s, err := UnmarshalSchema(in, FormatYAML)
	if err != nil {
		t.Fatalf("UnmarshalSchema() error: %v", err)
	}
	if !s.Tables[0].Columns[0].Nullable {
		t.Error("missing nullable should decode as true")
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	if _, err := UnmarshalSchema([]byte("{"), FormatJSON); err == nil {
		t.Error("expected error for malformed JSON")
	}
	_, err := UnmarshalSchema([]byte("name: main\ntables:\n  - name: a\n  - name: a\n"), FormatYAML)
	if !errors.Is(err, schema.ErrInvalid) {
		t.Errorf("duplicate tables error = %v, want ErrInvalid", err)
	}
}

func TestCatalogRoundTrip(t *testing.T) {
	cat := &schema.Catalog{Name: "prod", Comment: schema.StringPtr("Production"), Schemas: []schema.Schema{*sampleSchema()}}
	data, err := MarshalCatalog(cat, FormatJSON)
	if err != nil {
		t.Fatalf("MarshalCatalog() error: %v", err)
	}
	got, err := UnmarshalCatalog(data, FormatJSON)
	if err != nil {
		t.Fatalf("UnmarshalCatalog() error: %v", err)
	}
	if got.Name != "prod" || schema.Deref(got.Comment) != "Production" || len(got.Schemas) != 1 {
		t.Errorf("UnmarshalCatalog() = %+v", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"yaml", FormatYAML, false},
		{"YML", FormatYAML, false},
		{"", FormatYAML, false},
		{"json", FormatJSON, false},
		{"toml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteAndLoadDir(t *testing.T) {
	dir := t.TempDir()
	schemas := []schema.Schema{{Name: "sales"}, *sampleSchema(), {Name: "audit"}}

	paths, err := WriteDir(dir, schemas, FormatJSON)
	if err != nil {
		t.Fatalf("WriteDir() error: %v", err)
	}
	if len(paths) != 3 || filepath.Base(paths[1]) != "main.json" {
		t.Errorf("WriteDir() paths = %v", paths)
	}

	loaded, err := LoadDir(dir, nil)
	if err != nil {
		t.Fatalf("LoadDir() error: %v", err)
	}
	if loaded.Format != FormatJSON {
		t.Errorf("Format = %q, want json", loaded.Format)
	}
	if want := []string{"audit", "main", "sales"}; !reflect.DeepEqual(loaded.Names(), want) {
		t.Errorf("Names() = %v, want %v", loaded.Names(), want)
	}

	filtered, err := LoadDir(dir, []string{"sales", "missing"})
	if err != nil {
		t.Fatalf("LoadDir(filtered) error: %v", err)
	}
	if want := []string{"sales"}; !reflect.DeepEqual(filtered.Names(), want) {
		t.Errorf("filtered Names() = %v, want %v", filtered.Names(), want)
	}
	if c := filtered.Catalog("prod"); c.Name != "prod" || len(c.Schemas) != 1 {
		t.Errorf("Catalog() = %+v", c)
	}
}

func TestLoadDirErrors(t *testing.T) {
	empty := t.TempDir()
	if _, err := LoadDir(empty, nil); !errors.Is(err, ErrNoSnapshots) {
		t.Errorf("empty dir error = %v, want ErrNoSnapshots", err)
	}

	mixed := t.TempDir()
	for _, name := range []string{"a.yaml", "b.json"} {
		if err := os.WriteFile(filepath.Join(mixed, name), []byte("name: x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := LoadDir(mixed, nil); !errors.Is(err, ErrMixedFormats) {
		t.Errorf("mixed dir error = %v, want ErrMixedFormats", err)
	}

	file := filepath.Join(empty, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(file, nil); err == nil {
		t.Error("expected error when path is a file")
	}
	if _, err := LoadDir(filepath.Join(empty, "nope"), nil); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestWriteSQLDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sql")
	paths, err := WriteSQLDir(dir, []SQLFile{{Schema: "main", Statements: []string{"CREATE SCHEMA x;", "-- DROP TABLE y;"}}})
	if err != nil {
		t.Fatalf("WriteSQLDir() error: %v", err)
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "CREATE SCHEMA x;\n-- DROP TABLE y;\n" {
		t.Errorf("main.sql = %q", got)
	}
}
