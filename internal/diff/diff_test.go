package diff

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sadopc/catalogsync/internal/schema"
)

func sampleCatalog() *schema.Catalog {
	return &schema.Catalog{
		Name: "prod",
		Schemas: []schema.Schema{
			{
				Name:    "main",
				Comment: schema.StringPtr("core tables"),
				Tags:    map[string]string{"env": "prod"},
				Tables: []schema.Table{
					{
						Name:      "orders",
						TableType: schema.TableTypeManaged,
						Columns: []schema.Column{
							{Name: "id", DataType: "BIGINT", Position: 1},
							{Name: "user_id", DataType: "BIGINT", Nullable: true, Position: 2},
						},
						PrimaryKey:  &schema.PrimaryKey{Name: "pk_orders", Columns: []string{"id"}},
						ForeignKeys: []schema.ForeignKey{{Columns: []string{"user_id"}, RefSchema: "main", RefTable: "users", RefColumns: []string{"id"}}},
					},
					{
						Name:      "users",
						TableType: schema.TableTypeManaged,
						Tags:      map[string]string{"pii": "true"},
						Columns: []schema.Column{
							{Name: "id", DataType: "BIGINT", Position: 1},
							{Name: "email", DataType: "STRING", Nullable: true, Position: 2, Tags: map[string]string{"pii": "email"}},
						},
					},
				},
			},
		},
	}
}

func TestIdenticalInputsAreUnchanged(t *testing.T) {
	cat := sampleCatalog()
	d := Catalogs(cat, sampleCatalog(), Options{IncludeMetadata: true})

	if d.HasChanges() {
		t.Fatalf("HasChanges() = true for identical catalogs: %+v", d.Schemas)
	}
	if len(d.Schemas) != 0 {
		t.Errorf("Schemas = %d entries, want 0", len(d.Schemas))
	}

	sd := Schemas(&cat.Schemas[0], &cat.Schemas[0], Options{})
	if sd.Status != Unchanged || len(sd.Changes) != 0 || len(sd.Tables) != 0 {
		t.Errorf("schema diff of itself = %+v, want unchanged", sd)
	}
}

func TestDisjointKeysClassification(t *testing.T) {
	live := &schema.Schema{Name: "main", Tables: []schema.Table{{Name: "a"}, {Name: "b"}}}
	stored := &schema.Schema{Name: "main", Tables: []schema.Table{{Name: "c"}}}

	statuses := func(d *SchemaDiff) map[string]Status {
		m := make(map[string]Status)
		for _, t := range d.Tables {
			m[t.Name] = t.Status
		}
		return m
	}

	got := statuses(Schemas(live, stored, Options{}))
	want := map[string]Status{"a": Added, "b": Added, "c": Removed}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("diff(live, stored) = %v, want %v", got, want)
	}

	got = statuses(Schemas(stored, live, Options{}))
	want = map[string]Status{"a": Removed, "b": Removed, "c": Added}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("diff(stored, live) = %v, want %v", got, want)
	}
}

func TestOutputOrder(t *testing.T) {
	live := &schema.Catalog{Name: "c", Schemas: []schema.Schema{
		{Name: "z_new"}, {Name: "b", Comment: schema.StringPtr("x")}, {Name: "a_new"},
	}}
	stored := &schema.Catalog{Name: "c", Schemas: []schema.Schema{
		{Name: "b"}, {Name: "gone"},
	}}

	d := Catalogs(live, stored, Options{})
	var got []string
	for _, s := range d.Schemas {
		got = append(got, s.Status.Marker()+s.Name)
	}
	want := []string{"~b", "-gone", "+z_new", "+a_new"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestAddedRemovedCarryEntity(t *testing.T) {
	live := sampleCatalog()
	stored := &schema.Catalog{Name: "prod", Schemas: []schema.Schema{{Name: "legacy"}}}

	d := Catalogs(live, stored, Options{})
	main := d.Schema("main")
	if main == nil || main.Status != Added {
		t.Fatalf("schema main = %+v, want added", main)
	}
	if main.Schema == nil || len(main.Schema.Tables) != 2 {
		t.Errorf("added schema should carry its tables, got %+v", main.Schema)
	}
	legacy := d.Schema("legacy")
	if legacy == nil || legacy.Status != Removed || legacy.Schema == nil || legacy.Schema.Name != "legacy" {
		t.Errorf("schema legacy = %+v, want removed with entity", legacy)
	}
}

func TestTagChange(t *testing.T) {
	live := &schema.Schema{Name: "main", Tags: map[string]string{"env": "prod"}}
	stored := &schema.Schema{Name: "main", Tags: map[string]string{"env": "staging", "team": "data"}}

	d := Schemas(live, stored, Options{})
	if d.Status != Modified {
		t.Fatalf("Status = %v, want modified", d.Status)
	}
	if len(d.Changes) != 1 {
		t.Fatalf("Changes = %+v, want one aggregate tags change", d.Changes)
	}
	c := d.Changes[0]
	if c.Field != FieldTags {
		t.Errorf("Field = %q, want %q", c.Field, FieldTags)
	}

	set, unset := TagDelta(Tags(c.Old), Tags(c.New))
	if !reflect.DeepEqual(set, map[string]string{"env": "prod"}) {
		t.Errorf("set = %v, want env=prod", set)
	}
	if !reflect.DeepEqual(unset, []string{"team"}) {
		t.Errorf("unset = %v, want [team]", unset)
	}
}

func TestTagDelta(t *testing.T) {
	tests := []struct {
		name      string
		old, new  map[string]string
		wantSet   map[string]string
		wantUnset []string
	}{
		{"both empty", nil, nil, map[string]string{}, nil},
		{"all new", nil, map[string]string{"a": "1"}, map[string]string{"a": "1"}, nil},
		{"all removed", map[string]string{"b": "1", "a": "2"}, nil, map[string]string{}, []string{"a", "b"}},
		{"unchanged key skipped", map[string]string{"a": "1", "b": "1"}, map[string]string{"a": "1", "b": "2"}, map[string]string{"b": "2"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, unset := TagDelta(tt.old, tt.new)
			if !reflect.DeepEqual(set, tt.wantSet) {
				t.Errorf("set = %v, want %v", set, tt.wantSet)
			}
			if !reflect.DeepEqual(unset, tt.wantUnset) {
				t.Errorf("unset = %v, want %v", unset, tt.wantUnset)
			}
		})
	}
}

func TestColumnAdded(t *testing.T) {
	stored := &schema.Table{Name: "users", Columns: []schema.Column{
		{Name: "id", DataType: "BIGINT", Position: 1},
		{Name: "email", DataType: "STRING", Position: 2},
	}}
	live := &schema.Table{Name: "users", Columns: []schema.Column{
		{Name: "id", DataType: "BIGINT", Position: 1},
		{Name: "email", DataType: "STRING", Position: 2},
		{Name: "phone", DataType: "STRING", Position: 3},
	}}

	d := Tables(live, stored, Options{})
	if d.Status != Modified {
		t.Fatalf("Status = %v, want modified", d.Status)
	}
	if len(d.Changes) != 0 {
		t.Errorf("Changes = %+v, want none", d.Changes)
	}
	if len(d.Columns) != 1 || d.Columns[0].Name != "phone" || d.Columns[0].Status != Added {
		t.Errorf("Columns = %+v, want one added phone", d.Columns)
	}
}

func TestColumnFieldChanges(t *testing.T) {
	stored := &schema.Column{Name: "amount", DataType: "INT", Nullable: true}
	live := &schema.Column{Name: "amount", DataType: "BIGINT", Nullable: false, Comment: schema.StringPtr("total"), Position: 7}

	d := Columns(live, stored)
	want := []FieldChange{
		{Field: FieldDataType, Old: "INT", New: "BIGINT"},
		{Field: FieldNullable, Old: true, New: false},
		{Field: FieldComment, Old: nil, New: "total"},
	}
	if !reflect.DeepEqual(d.Changes, want) {
		t.Errorf("Changes = %+v, want %+v", d.Changes, want)
	}
}

func TestPrimaryKey(t *testing.T) {
	tests := []struct {
		name         string
		live, stored *schema.PrimaryKey
		want         Status
		wantNil      bool
	}{
		{"both absent", nil, nil, Unchanged, true},
		{"same", &schema.PrimaryKey{Name: "pk_users", Columns: []string{"id"}}, &schema.PrimaryKey{Name: "pk_users", Columns: []string{"id"}}, Unchanged, true},
		{"added", &schema.PrimaryKey{Columns: []string{"id"}}, nil, Added, false},
		{"removed", nil, &schema.PrimaryKey{Columns: []string{"id"}}, Removed, false},
		{"replaced", &schema.PrimaryKey{Name: "pk_users", Columns: []string{"id", "org_id"}}, &schema.PrimaryKey{Name: "pk_users", Columns: []string{"id"}}, Modified, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Tables(&schema.Table{Name: "users", PrimaryKey: tt.live}, &schema.Table{Name: "users", PrimaryKey: tt.stored}, Options{})
			if tt.wantNil {
				if d.PrimaryKey != nil {
					t.Errorf("PrimaryKey = %+v, want nil", d.PrimaryKey)
				}
				return
			}
			if d.PrimaryKey == nil || d.PrimaryKey.Status != tt.want {
				t.Fatalf("PrimaryKey = %+v, want status %v", d.PrimaryKey, tt.want)
			}
			if d.PrimaryKey.Name != "pk_users" {
				t.Errorf("Name = %q, want pk_users", d.PrimaryKey.Name)
			}
			if d.Status != Modified {
				t.Errorf("table Status = %v, want modified", d.Status)
			}
		})
	}
}

func TestForeignKeys(t *testing.T) {
	fk := func(ref string) schema.ForeignKey {
		return schema.ForeignKey{Name: "fk_user", Columns: []string{"user_id"}, RefSchema: "main", RefTable: ref, RefColumns: []string{"id"}}
	}
	live := &schema.Table{Name: "orders", ForeignKeys: []schema.ForeignKey{
		fk("accounts"),
		{Columns: []string{"org_id"}, RefSchema: "main", RefTable: "orgs", RefColumns: []string{"id"}},
	}}
	stored := &schema.Table{Name: "orders", ForeignKeys: []schema.ForeignKey{fk("users")}}

	d := Tables(live, stored, Options{})
	if len(d.ForeignKeys) != 2 {
		t.Fatalf("ForeignKeys = %+v, want 2 entries", d.ForeignKeys)
	}
	if got := d.ForeignKeys[0]; got.Name != "fk_user" || got.Status != Modified || got.Old.RefTable != "users" || got.New.RefTable != "accounts" {
		t.Errorf("ForeignKeys[0] = %+v, want modified fk_user users -> accounts", got)
	}
	if got := d.ForeignKeys[1]; got.Name != "fk_orders_org_id" || got.Status != Added || got.New == nil {
		t.Errorf("ForeignKeys[1] = %+v, want added fk_orders_org_id", got)
	}
}

func TestTableTypeChange(t *testing.T) {
	stored := &schema.Table{Name: "events", TableType: schema.TableTypeManaged}
	live := &schema.Table{Name: "events", TableType: schema.TableTypeExternal, Comment: schema.StringPtr("raw")}

	d := Tables(live, stored, Options{})
	want := []FieldChange{
		{Field: FieldTableType, Old: "MANAGED", New: "EXTERNAL"},
		{Field: FieldComment, Old: nil, New: "raw"},
	}
	if !reflect.DeepEqual(d.Changes, want) {
		t.Fatalf("Changes = %+v, want %+v", d.Changes, want)
	}
	for _, v := range []any{d.Changes[0].Old, d.Changes[0].New} {
		if _, ok := v.(string); !ok {
			t.Errorf("table_type value %#v is %T, want string", v, v)
		}
	}
}

func TestIncludeMetadata(t *testing.T) {
	stored := &schema.Table{Name: "t", Owner: schema.StringPtr("alice"), StorageLocation: schema.StringPtr("s3://a")}
	live := &schema.Table{Name: "t", Owner: schema.StringPtr("bob"), StorageLocation: schema.StringPtr("s3://b")}

	if d := Tables(live, stored, Options{}); d.Status != Unchanged {
		t.Errorf("without metadata Status = %v, want unchanged", d.Status)
	}

	d := Tables(live, stored, Options{IncludeMetadata: true})
	if Change(d.Changes, FieldOwner) == nil || Change(d.Changes, FieldStorageLocation) == nil {
		t.Errorf("Changes = %+v, want owner and storage_location", d.Changes)
	}
}

func TestCreatedAtAndPositionIgnored(t *testing.T) {
	stored := sampleCatalog()
	live := sampleCatalog()
	live.Schemas[0].Tables[1].Columns[0].Position = 40
	live.Schemas[0].Tables[1].Columns[1].Position = 50

	if d := Catalogs(live, stored, Options{}); d.HasChanges() {
		t.Errorf("position-only changes reported: %+v", d.Schemas)
	}
}

func TestCompare(t *testing.T) {
	a := sampleCatalog()

	n, err := Compare(a, *sampleCatalog(), Options{})
	if err != nil {
		t.Fatalf("Compare(catalog, catalog) error: %v", err)
	}
	if _, ok := n.(*CatalogDiff); !ok {
		t.Errorf("Compare returned %T, want *CatalogDiff", n)
	}

	n, err = Compare(a.Schemas[0].Tables[0], &a.Schemas[0].Tables[0], Options{})
	if err != nil {
		t.Fatalf("Compare(table, table) error: %v", err)
	}
	if n.NodeStatus() != Unchanged || n.NodeName() != "orders" {
		t.Errorf("Compare(table, table) = %s %v", n.NodeName(), n.NodeStatus())
	}

	mismatches := []struct {
		name         string
		live, stored any
	}{
		{"table vs column", &a.Schemas[0].Tables[0], &a.Schemas[0].Tables[0].Columns[0]},
		{"nil pointer", (*schema.Schema)(nil), &a.Schemas[0]},
		{"unsupported type", "main", "main"},
	}
	for _, tt := range mismatches {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compare(tt.live, tt.stored, Options{})
			if !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("Compare error = %v, want ErrShapeMismatch", err)
			}
			var sme *ShapeMismatchError
			if !errors.As(err, &sme) {
				t.Errorf("error %T is not a *ShapeMismatchError", err)
			}
		})
	}
}

func TestReverse(t *testing.T) {
	live := sampleCatalog()
	stored := sampleCatalog()
	stored.Schemas[0].Tags = map[string]string{"env": "dev"}
	stored.Schemas[0].Tables[1].Columns = stored.Schemas[0].Tables[1].Columns[:1]
	stored.Schemas[0].Tables[0].PrimaryKey = nil
	stored.Schemas = append(stored.Schemas, schema.Schema{Name: "old"})

	forward := Catalogs(live, stored, Options{})
	backward := Catalogs(stored, live, Options{})
	reversed := forward.Reverse()

	main := reversed.Schema("main")
	if c := Change(main.Changes, FieldTags); c == nil || Tags(c.Old)["env"] != "prod" || Tags(c.New)["env"] != "dev" {
		t.Errorf("reversed tag change = %+v", c)
	}
	if got := reversed.Schema("old").Status; got != Added {
		t.Errorf("reversed schema old = %v, want added", got)
	}
	if got := main.Table("users").Column("email").Status; got != Removed {
		t.Errorf("reversed column email = %v, want removed", got)
	}
	pk := main.Table("orders").PrimaryKey
	if pk.Status != Removed || pk.Old == nil || pk.New != nil {
		t.Errorf("reversed pk = %+v, want removed with Old set", pk)
	}
	if forward.Schema("old").Status != Removed {
		t.Error("Reverse modified the receiver")
	}

	if reversed.Summary() != backward.Summary() {
		t.Errorf("reversed summary %+v != swapped summary %+v", reversed.Summary(), backward.Summary())
	}
}

func TestSummary(t *testing.T) {
	live := sampleCatalog()
	stored := sampleCatalog()
	stored.Schemas[0].Tables = stored.Schemas[0].Tables[:1]
	stored.Schemas[0].Tables[0].Columns[1].DataType = "INT"
	stored.Schemas[0].Tables[0].ForeignKeys = nil

	got := Catalogs(live, stored, Options{}).Summary()
	want := Summary{
		Schemas:     Counts{Modified: 1},
		Tables:      Counts{Added: 1, Modified: 1},
		Columns:     Counts{Modified: 1},
		Constraints: Counts{Added: 1},
	}
	if got != want {
		t.Errorf("Summary() = %+v, want %+v", got, want)
	}
	if got.Tables.Total() != 2 {
		t.Errorf("Tables.Total() = %d, want 2", got.Tables.Total())
	}
}

func TestIgnoreAdded(t *testing.T) {
	live := &schema.Catalog{Name: "prod", Schemas: []schema.Schema{{Name: "default"}, {Name: "new"}, {Name: "kept"}}}
	stored := &schema.Catalog{Name: "prod", Schemas: []schema.Schema{{Name: "kept"}, {Name: "default_old"}}}

	d := Catalogs(live, stored, Options{IgnoreAdded: []string{"default"}})
	var got []string
	for _, s := range d.Schemas {
		got = append(got, s.Name+":"+s.Status.String())
	}
	want := []string{"default_old:" + Removed.String(), "new:" + Added.String()}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("schemas = %v, want %v", got, want)
	}

	// An ignored name that exists on both sides is still compared.
	stored.Schemas = append(stored.Schemas, schema.Schema{Name: "default", Comment: schema.StringPtr("x")})
	d = Catalogs(live, stored, Options{IgnoreAdded: []string{"default"}})
	if d.Schema("default") == nil {
		t.Error("ignored name present on both sides should still be diffed")
	}
}

func TestSummaryAll(t *testing.T) {
	s := Summary{
		Schemas: Counts{Added: 1},
		Tables:  Counts{Removed: 2},
		Columns: Counts{Modified: 3, Added: 1},
	}
	got := s.All()
	if want := (Counts{Added: 2, Removed: 2, Modified: 3}); got != want {
		t.Errorf("All() = %+v, want %+v", got, want)
	}
	if got.Total() != 7 {
		t.Errorf("Total() = %d, want 7", got.Total())
	}
}
