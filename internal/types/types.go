// Package types holds the shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, storage backends and tests all import types without
// depending on each other.
package types

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Student is a single student's persisted attribute set.
//
// The name, gpa and enrolled fields are opaque: whatever JSON value the
// client sent is stored as is. A field the client never sent stays
// absent in the stored document.
//
// Field order is the key order of the persisted JSON document:
//
//	{ "record_id": 1700000000000, "first_name": "Ann", "last_name": "Lee",
//	  "gpa": "3.9", "enrolled": "true" }
type Student struct {
	RecordID  int64 `json:"record_id"`
	FirstName Field `json:"first_name,omitempty"`
	LastName  Field `json:"last_name,omitempty"`
	GPA       Field `json:"gpa,omitempty"`
	Enrolled  Field `json:"enrolled,omitempty"`
}

// UnmarshalJSON accepts record_id as a JSON number or as a decimal
// string. A record_id that is neither decodes as 0 rather than failing
// the whole document.
func (s *Student) UnmarshalJSON(data []byte) error {
	type plain Student
	aux := struct {
		*plain
		RecordID json.RawMessage `json:"record_id"`
	}{plain: (*plain)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.RecordID = parseRecordID(aux.RecordID)
	return nil
}

func parseRecordID(raw json.RawMessage) int64 {
	var text string
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0
		}
	} else {
		text = string(raw)
	}

	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// SameName reports whether s and other share the (first_name, last_name)
// pair. Two absent values are equal; an absent value never equals "" or
// null.
func (s Student) SameName(other Student) bool {
	return s.FirstName.Equal(other.FirstName) &&
		s.LastName.Equal(other.LastName)
}

// Field is one opaque attribute, held as the raw JSON value it arrived
// as. The zero Field is absent and is dropped by omitempty.
type Field []byte

// String returns a Field holding the JSON string v. Form values and
// tests build fields this way.
func String(v string) Field {
	data, _ := json.Marshal(v)
	return Field(data)
}

// IsAbsent reports whether the field was never set.
func (f Field) IsAbsent() bool {
	return len(f) == 0
}

// MarshalJSON writes the stored value verbatim.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.IsAbsent() {
		return []byte("null"), nil
	}
	return f, nil
}

// UnmarshalJSON keeps a copy of any JSON value, null included.
func (f *Field) UnmarshalJSON(data []byte) error {
	*f = append(Field(nil), data...)
	return nil
}

// Equal compares two fields the way the duplicate check needs: scalars
// (strings, numbers, booleans, null) compare by value, so "A" equals
// "A" and 1 equals 1.0. Objects and arrays never equal anything.
func (f Field) Equal(other Field) bool {
	if f.IsAbsent() || other.IsAbsent() {
		return f.IsAbsent() && other.IsAbsent()
	}

	a, ok := f.scalar()
	if !ok {
		return false
	}
	b, ok := other.scalar()
	if !ok {
		return false
	}
	return a == b
}

func (f Field) scalar() (any, bool) {
	trimmed := bytes.TrimSpace(f)
	if len(trimmed) == 0 || trimmed[0] == '{' || trimmed[0] == '[' {
		return nil, false
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, false
	}
	return v, true
}
