package model

// Record is one finalized job posting. It is fixed-shape: every field of its
// schema is present, defaulting to "". A Record is never mutated after Build;
// use Merge or Widen to derive a new one.
type Record struct {
	schema *Schema
	values []string
}

// RecordBuilder accumulates field values while one card, detail page or modal
// is being extracted.
type RecordBuilder struct {
	schema *Schema
	values []string
}

// NewRecordBuilder returns a builder with every field of schema set to "".
func NewRecordBuilder(schema *Schema) *RecordBuilder {
	return &RecordBuilder{schema: schema, values: make([]string, schema.Len())}
}

// Set stores value under name. Names outside the schema are ignored and
// reported as false, so a record never gains extra keys.
func (b *RecordBuilder) Set(name, value string) bool {
	i, ok := b.schema.index[name]
	if !ok {
		return false
	}
	b.values[i] = value
	return true
}

// SetIfEmpty stores value only when the field is still unknown.
func (b *RecordBuilder) SetIfEmpty(name, value string) bool {
	if b.Get(name) != "" {
		return false
	}
	return b.Set(name, value)
}

func (b *RecordBuilder) Get(name string) string {
	if i, ok := b.schema.index[name]; ok {
		return b.values[i]
	}
	return ""
}

// Build snapshots the builder into an immutable Record. The builder may keep
// being used; later changes do not leak into the returned Record.
func (b *RecordBuilder) Build() Record {
	values := make([]string, len(b.values))
	copy(values, b.values)
	return Record{schema: b.schema, values: values}
}

// NewRecord builds a record from a map; keys outside schema are dropped.
func NewRecord(schema *Schema, fields map[string]string) Record {
	b := NewRecordBuilder(schema)
	for k, v := range fields {
		b.Set(k, v)
	}
	return b.Build()
}

func (r Record) Schema() *Schema { return r.schema }

// Get returns the value of name, or "" when unknown or not in the schema.
func (r Record) Get(name string) string {
	if r.schema == nil {
		return ""
	}
	if i, ok := r.schema.index[name]; ok {
		return r.values[i]
	}
	return ""
}

// Values returns the field values in schema order.
func (r Record) Values() []string {
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

// Map returns the record keyed by field name. The key set always equals the
// schema's field set.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	if r.schema == nil {
		return m
	}
	for i, f := range r.schema.fields {
		m[f] = r.values[i]
	}
	return m
}

// Filled counts fields holding a non-empty value.
func (r Record) Filled() int {
	n := 0
	for _, v := range r.values {
		if v != "" {
			n++
		}
	}
	return n
}

// Widen re-keys the record onto a larger schema. Fields missing from the
// target are dropped, target fields missing from the record default to "".
func (r Record) Widen(to *Schema) Record {
	b := NewRecordBuilder(to)
	if r.schema != nil {
		for i, f := range r.schema.fields {
			b.Set(f, r.values[i])
		}
	}
	return b.Build()
}

// Merge returns a new record on schema where non-empty values of overlay win
// over base. Neither input is modified.
func Merge(schema *Schema, base, overlay Record) Record {
	b := NewRecordBuilder(schema)
	for _, f := range schema.fields {
		if v := overlay.Get(f); v != "" {
			b.Set(f, v)
			continue
		}
		b.Set(f, base.Get(f))
	}
	return b.Build()
}
