// Package storagetest is a conformance suite every storage.Storage
// backend runs from its own tests.
package storagetest

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-server/internal/storage"
	"github.com/aanand-mishra/student-server/internal/types"
)

// Factory returns an empty store. Cleanup is the factory's business
// (t.Cleanup, t.TempDir).
type Factory func(t *testing.T) storage.Storage

// Student builds a fully populated record.
func Student(first, last, gpa, enrolled string) types.Student {
	return types.Student{
		FirstName: types.String(first),
		LastName:  types.String(last),
		GPA:       types.String(gpa),
		Enrolled:  types.String(enrolled),
	}
}

// Run exercises the record store contract against stores from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("create then get returns the same fields", func(t *testing.T) {
		s := newStore(t)

		id, err := s.CreateStudent(Student("Ann", "Lee", "3.9", "true"))
		require.NoError(t, err)
		assert.Positive(t, id)

		doc, err := s.GetStudentByID(id)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(doc, &got))
		assert.Equal(t, float64(id), got["record_id"])
		assert.Equal(t, "Ann", got["first_name"])
		assert.Equal(t, "Lee", got["last_name"])
		assert.Equal(t, "3.9", got["gpa"])
		assert.Equal(t, "true", got["enrolled"])
	})

	t.Run("stored document is two-space indented", func(t *testing.T) {
		s := newStore(t)

		id, err := s.CreateStudent(Student("Ann", "Lee", "3.9", "true"))
		require.NoError(t, err)

		doc, err := s.GetStudentByID(id)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(string(doc), "{\n  \"record_id\": "), "record_id comes first")
		assert.Contains(t, string(doc), "\n  \"first_name\": \"Ann\",\n  \"last_name\": \"Lee\"")
	})

	t.Run("duplicate name pair is a conflict regardless of other fields", func(t *testing.T) {
		s := newStore(t)

		_, err := s.CreateStudent(Student("Ann", "Lee", "3.9", "true"))
		require.NoError(t, err)

		_, err = s.CreateStudent(Student("Ann", "Lee", "2.0", "false"))
		assert.ErrorIs(t, err, storage.ErrConflict)

		students, err := s.GetStudents()
		require.NoError(t, err)
		assert.Len(t, students, 1)
	})

	t.Run("same first name with different last name is not a duplicate", func(t *testing.T) {
		s := newStore(t)

		_, err := s.CreateStudent(Student("Ann", "Lee", "3.9", "true"))
		require.NoError(t, err)
		_, err = s.CreateStudent(Student("Ann", "Park", "3.9", "true"))
		require.NoError(t, err)
	})

	t.Run("absent names count as the same name", func(t *testing.T) {
		s := newStore(t)

		_, err := s.CreateStudent(types.Student{GPA: types.String("1.0")})
		require.NoError(t, err)

		_, err = s.CreateStudent(types.Student{})
		assert.ErrorIs(t, err, storage.ErrConflict)

		_, err = s.CreateStudent(types.Student{
			FirstName: types.String(""),
			LastName:  types.String(""),
		})
		assert.NoError(t, err, "empty strings are not absent")
	})

	t.Run("non-string values are stored as sent", func(t *testing.T) {
		s := newStore(t)

		id, err := s.CreateStudent(types.Student{
			FirstName: types.String("Ann"),
			LastName:  types.String("Lee"),
			GPA:       types.Field(`3.9`),
			Enrolled:  types.Field(`true`),
		})
		require.NoError(t, err)

		doc, err := s.GetStudentByID(id)
		require.NoError(t, err)
		assert.Contains(t, string(doc), "\"gpa\": 3.9,\n  \"enrolled\": true\n")

		students, err := s.GetStudents()
		require.NoError(t, err)
		require.Len(t, students, 1)
		assert.Equal(t, types.Field(`3.9`), students[0].GPA)
		assert.Equal(t, types.Field(`true`), students[0].Enrolled)
	})

	t.Run("numeric names are compared by value", func(t *testing.T) {
		s := newStore(t)

		_, err := s.CreateStudent(types.Student{FirstName: types.Field(`7`), LastName: types.Field(`null`)})
		require.NoError(t, err)

		_, err = s.CreateStudent(types.Student{FirstName: types.Field(`7.0`), LastName: types.Field(`null`)})
		assert.ErrorIs(t, err, storage.ErrConflict)

		_, err = s.CreateStudent(types.Student{FirstName: types.String("7"), LastName: types.Field(`null`)})
		assert.NoError(t, err, "the string \"7\" is not the number 7")

		_, err = s.CreateStudent(types.Student{FirstName: types.Field(`7`)})
		assert.NoError(t, err, "null is not absent")
	})

	t.Run("concurrent creates of one name pair store exactly one record", func(t *testing.T) {
		s := newStore(t)

		const workers = 20
		errs := make([]error, workers)

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = s.CreateStudent(Student("Ann", "Lee", "3.9", "true"))
			}(i)
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			assert.ErrorIs(t, err, storage.ErrConflict)
		}
		assert.Equal(t, 1, created)

		students, err := s.GetStudents()
		require.NoError(t, err)
		assert.Len(t, students, 1)
	})

	t.Run("absent fields are left out of the document", func(t *testing.T) {
		s := newStore(t)

		id, err := s.CreateStudent(types.Student{FirstName: types.String("Solo")})
		require.NoError(t, err)

		doc, err := s.GetStudentByID(id)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(doc, &got))
		assert.NotContains(t, got, "last_name")
		assert.NotContains(t, got, "gpa")
		assert.NotContains(t, got, "enrolled")
	})

	t.Run("consecutive creates get distinct increasing ids", func(t *testing.T) {
		s := newStore(t)

		first, err := s.CreateStudent(Student("A", "One", "1", "true"))
		require.NoError(t, err)
		second, err := s.CreateStudent(Student("B", "Two", "2", "true"))
		require.NoError(t, err)

		assert.Greater(t, second, first)
	})

	t.Run("get of a missing id is not found", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetStudentByID(0)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("list of an empty store is an empty slice", func(t *testing.T) {
		s := newStore(t)

		students, err := s.GetStudents()
		require.NoError(t, err)
		assert.NotNil(t, students)
		assert.Empty(t, students)
	})

	t.Run("list returns every record in id order", func(t *testing.T) {
		s := newStore(t)

		var ids []int64
		for _, name := range []string{"Ann", "Bob", "Cid"} {
			id, err := s.CreateStudent(Student(name, "Lee", "3.0", "true"))
			require.NoError(t, err)
			ids = append(ids, id)
		}

		students, err := s.GetStudents()
		require.NoError(t, err)
		require.Len(t, students, 3)
		for i, student := range students {
			assert.Equal(t, ids[i], student.RecordID)
		}
	})

	t.Run("update replaces every field and keeps the id", func(t *testing.T) {
		s := newStore(t)

		id, err := s.CreateStudent(Student("Ann", "Lee", "3.9", "true"))
		require.NoError(t, err)

		err = s.UpdateStudentByID(id, types.Student{
			RecordID:  id + 1000,
			FirstName: types.String("Anna"),
			LastName:  types.String("Li"),
		})
		require.NoError(t, err)

		doc, err := s.GetStudentByID(id)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(doc, &got))
		assert.Equal(t, float64(id), got["record_id"])
		assert.Equal(t, "Anna", got["first_name"])
		assert.Equal(t, "Li", got["last_name"])
		assert.NotContains(t, got, "gpa", "old fields are discarded")
		assert.NotContains(t, got, "enrolled")
	})

	t.Run("update does not check for duplicates", func(t *testing.T) {
		s := newStore(t)

		_, err := s.CreateStudent(Student("Ann", "Lee", "3.9", "true"))
		require.NoError(t, err)
		id, err := s.CreateStudent(Student("Bob", "Ray", "3.1", "true"))
		require.NoError(t, err)

		assert.NoError(t, s.UpdateStudentByID(id, Student("Ann", "Lee", "1.0", "false")))
	})

	t.Run("update of a missing id is not found and creates nothing", func(t *testing.T) {
		s := newStore(t)

		err := s.UpdateStudentByID(42, Student("Ann", "Lee", "3.9", "true"))
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.GetStudentByID(42)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete removes the record", func(t *testing.T) {
		s := newStore(t)

		id, err := s.CreateStudent(Student("Ann", "Lee", "3.9", "true"))
		require.NoError(t, err)

		require.NoError(t, s.DeleteStudentByID(id))

		_, err = s.GetStudentByID(id)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = s.CreateStudent(Student("Ann", "Lee", "3.9", "true"))
		assert.NoError(t, err, "name pair is free again after delete")
	})

	t.Run("delete of a missing id is not found", func(t *testing.T) {
		s := newStore(t)

		assert.ErrorIs(t, s.DeleteStudentByID(7), storage.ErrNotFound)
	})
}
