package model

import "fmt"

// Field names shared by every site schema.
const (
	FieldSourceSite   = "source_site"
	FieldJobID        = "job_id"
	FieldTitle        = "title"
	FieldCompany      = "company"
	FieldDescription  = "description"
	FieldCategory     = "category"
	FieldType         = "type"
	FieldTag          = "tag"
	FieldFeatured     = "featured"
	FieldFeaturedImg  = "featured_image"
	FieldFilled       = "filled"
	FieldUrgent       = "urgent"
	FieldExpiryDate   = "expiry_date"
	FieldDeadline     = "application_deadline_date"
	FieldExpirySource = "expiry_source"
	FieldPostingDate  = "posting_date"
	FieldLocation     = "location"
	FieldAddress      = "address"
	FieldMapLocation  = "map_location"
	FieldSalary       = "salary"
	FieldSalaryType   = "salary_type"
	FieldMaxSalary    = "max_salary"
	FieldExperience   = "experience"
	FieldCareerLevel  = "career_level"
	FieldQualify      = "qualification"
	FieldGender       = "gender"
	FieldApplyType    = "apply_type"
	FieldApplyURL     = "apply_url"
	FieldApplyEmail   = "apply_email"
	FieldVideoURL     = "video_url"
	FieldPhotos       = "photos"
	FieldURL          = "url"
)

// Values written to FieldExpirySource.
const (
	ExpiryScraped     = "scraped"
	ExpiryPlaceholder = "placeholder"
)

// Schema is an ordered, versioned set of field names. Every Record built
// against a schema carries exactly these keys.
type Schema struct {
	Name    string
	Version int
	fields  []string
	index   map[string]int
}

// NewSchema builds a schema. Duplicate or empty field names are rejected.
func NewSchema(name string, version int, fields ...string) (*Schema, error) {
	s := &Schema{
		Name:    name,
		Version: version,
		fields:  make([]string, 0, len(fields)),
		index:   make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f == "" {
			return nil, fmt.Errorf("schema %s: empty field name", name)
		}
		if _, dup := s.index[f]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %q", name, f)
		}
		s.index[f] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustSchema is NewSchema for static definitions.
func MustSchema(name string, version int, fields ...string) *Schema {
	s, err := NewSchema(name, version, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns a copy of the field names in order.
func (s *Schema) Fields() []string {
	out := make([]string, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Schema) Len() int { return len(s.fields) }

// Has reports whether name is part of the schema.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Covers reports whether every field of other is also in s.
func (s *Schema) Covers(other *Schema) bool {
	for _, f := range other.fields {
		if !s.Has(f) {
			return false
		}
	}
	return true
}

func (s *Schema) String() string {
	return fmt.Sprintf("%s/v%d", s.Name, s.Version)
}

// OutputFields is the column order of the CSV export.
var OutputFields = []string{
	FieldSourceSite, FieldJobID, FieldTitle, FieldCompany, FieldDescription,
	FieldCategory, FieldType, FieldTag, FieldFeatured, FieldFeaturedImg,
	FieldFilled, FieldUrgent, FieldExpiryDate, FieldDeadline, FieldExpirySource,
	FieldPostingDate, FieldLocation, FieldAddress, FieldMapLocation, FieldSalary,
	FieldSalaryType, FieldMaxSalary, FieldExperience, FieldCareerLevel,
	FieldQualify, FieldGender, FieldApplyType, FieldApplyURL, FieldApplyEmail,
	FieldVideoURL, FieldPhotos, FieldURL,
}

// OutputSchema is the superset schema every site record is widened to before
// export.
var OutputSchema = MustSchema("jobs", 3, OutputFields...)
