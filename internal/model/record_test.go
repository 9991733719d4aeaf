package model

import (
	"reflect"
	"testing"
)

func testSchema() *Schema {
	return MustSchema("card", 1, FieldTitle, FieldCompany, FieldSalary)
}

func TestRecordKeysMatchSchema(t *testing.T) {
	s := testSchema()
	b := NewRecordBuilder(s)
	b.Set(FieldTitle, "Analista")

	rec := b.Build()
	m := rec.Map()
	if len(m) != s.Len() {
		t.Fatalf("len(Map) = %d, want %d", len(m), s.Len())
	}
	for _, f := range s.Fields() {
		if _, ok := m[f]; !ok {
			t.Errorf("Map missing key %q", f)
		}
	}
	if rec.Get(FieldCompany) != "" {
		t.Errorf("Get(company) = %q, want empty", rec.Get(FieldCompany))
	}
}

func TestRecordBuilderRejectsUnknownField(t *testing.T) {
	b := NewRecordBuilder(testSchema())
	if b.Set("gender", "x") {
		t.Error("Set on field outside schema should return false")
	}
	if _, ok := b.Build().Map()["gender"]; ok {
		t.Error("record gained a key outside its schema")
	}
}

func TestRecordImmutableAfterBuild(t *testing.T) {
	b := NewRecordBuilder(testSchema())
	b.Set(FieldTitle, "first")
	rec := b.Build()

	b.Set(FieldTitle, "second")
	if rec.Get(FieldTitle) != "first" {
		t.Errorf("built record changed to %q after builder mutation", rec.Get(FieldTitle))
	}

	vals := rec.Values()
	vals[0] = "mutated"
	if rec.Get(FieldTitle) != "first" {
		t.Error("Values() exposed internal storage")
	}
}

func TestRecordWiden(t *testing.T) {
	rec := NewRecord(testSchema(), map[string]string{FieldTitle: "Dev", FieldSalary: "₡1"})
	wide := rec.Widen(OutputSchema)

	if wide.Schema() != OutputSchema {
		t.Fatal("Widen did not switch schema")
	}
	if len(wide.Values()) != len(OutputFields) {
		t.Errorf("len(Values) = %d, want %d", len(wide.Values()), len(OutputFields))
	}
	if wide.Get(FieldTitle) != "Dev" || wide.Get(FieldSalary) != "₡1" {
		t.Errorf("Widen lost values: %v", wide.Map())
	}
}

func TestMergeOverlayWins(t *testing.T) {
	s := testSchema()
	base := NewRecord(s, map[string]string{FieldTitle: "card title", FieldCompany: "ACME"})
	detail := NewRecord(s, map[string]string{FieldTitle: "detail title", FieldSalary: "$900"})

	got := Merge(s, base, detail).Map()
	want := map[string]string{FieldTitle: "detail title", FieldCompany: "ACME", FieldSalary: "$900"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}
	if base.Get(FieldTitle) != "card title" {
		t.Error("Merge modified base")
	}
}

func TestNewSchemaRejectsDuplicates(t *testing.T) {
	if _, err := NewSchema("x", 1, "a", "b", "a"); err == nil {
		t.Fatal("expected error for duplicate field")
	}
}

func TestOutputSchemaCoversSiteSchemas(t *testing.T) {
	if !OutputSchema.Covers(testSchema()) {
		t.Error("output schema should cover card schema")
	}
}

func TestRecordKey(t *testing.T) {
	s := MustSchema("k", 1, FieldJobID, FieldURL, FieldTitle, FieldCompany)
	tests := []struct {
		fields map[string]string
		want   string
	}{
		{map[string]string{FieldJobID: "42", FieldURL: "u"}, "42"},
		{map[string]string{FieldURL: "https://x/1", FieldTitle: "t"}, "https://x/1"},
		{map[string]string{FieldTitle: "Dev", FieldCompany: "ACME"}, "Dev|ACME"},
		{map[string]string{}, ""},
	}
	for _, tt := range tests {
		if got := RecordKey(NewRecord(s, tt.fields)); got != tt.want {
			t.Errorf("RecordKey(%v) = %q, want %q", tt.fields, got, tt.want)
		}
	}
}
