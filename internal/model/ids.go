package model

// IdentifierSet is an insertion-ordered set of opaque job identifiers. It only
// grows; once frozen further additions are ignored.
type IdentifierSet struct {
	seen   map[string]struct{}
	order  []string
	frozen bool
}

func NewIdentifierSet() *IdentifierSet {
	return &IdentifierSet{seen: make(map[string]struct{})}
}

// Add inserts id and reports whether it was new. Empty ids are ignored.
func (s *IdentifierSet) Add(id string) bool {
	if s.frozen || id == "" {
		return false
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// AddAll inserts every id and returns how many were new.
func (s *IdentifierSet) AddAll(ids []string) int {
	added := 0
	for _, id := range ids {
		if s.Add(id) {
			added++
		}
	}
	return added
}

func (s *IdentifierSet) Has(id string) bool {
	_, ok := s.seen[id]
	return ok
}

func (s *IdentifierSet) Len() int { return len(s.order) }

// Freeze stops growth and returns the identifiers in discovery order.
func (s *IdentifierSet) Freeze() []string {
	s.frozen = true
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
