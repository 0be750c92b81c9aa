package reminder

import "sort"

// NotifiedKey identifies one reminder on one calendar day.
type NotifiedKey struct {
	EntryID string
	Date    string
}

// NotifiedSet records reminders already fired. The zero value is empty and
// ready to use.
type NotifiedSet struct {
	keys map[NotifiedKey]struct{}
}

func NewNotifiedSet(keys ...NotifiedKey) NotifiedSet {
	s := NotifiedSet{keys: make(map[NotifiedKey]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

func (s NotifiedSet) Has(k NotifiedKey) bool {
	_, ok := s.keys[k]
	return ok
}

func (s *NotifiedSet) Add(k NotifiedKey) {
	if s.keys == nil {
		s.keys = make(map[NotifiedKey]struct{})
	}
	s.keys[k] = struct{}{}
}

func (s *NotifiedSet) Clear() {
	s.keys = nil
}

func (s NotifiedSet) Len() int { return len(s.keys) }

func (s NotifiedSet) Clone() NotifiedSet {
	out := NotifiedSet{keys: make(map[NotifiedKey]struct{}, len(s.keys))}
	for k := range s.keys {
		out.keys[k] = struct{}{}
	}
	return out
}

// Keys returns the members ordered by date, then entry ID.
func (s NotifiedSet) Keys() []NotifiedKey {
	out := make([]NotifiedKey, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].EntryID < out[j].EntryID
	})
	return out
}
