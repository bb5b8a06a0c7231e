package storage

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aanand-mishra/student-server/internal/types"
)

// EncodeDocument renders a student as its persisted form: a two-space
// indented JSON object.
func EncodeDocument(student types.Student) ([]byte, error) {
	data, err := json.MarshalIndent(student, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// DecodeDocument parses a persisted document.
func DecodeDocument(data []byte) (types.Student, error) {
	var student types.Student
	if err := json.Unmarshal(data, &student); err != nil {
		return types.Student{}, fmt.Errorf("decode document: %w", err)
	}
	return student, nil
}

// SortByID orders students by ascending record ID in place.
func SortByID(students []types.Student) {
	sort.Slice(students, func(i, j int) bool {
		return students[i].RecordID < students[j].RecordID
	})
}
