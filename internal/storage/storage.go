// Package storage defines the Storage interface: the contract that every
// record backend (directory of JSON files, SQLite, bolt, in-memory) must
// satisfy to work with this application.
//
// Handlers only ever see this interface, so switching backends is a
// configuration change and tests can run against the in-memory store.
package storage

import (
	"errors"
	"fmt"

	"github.com/aanand-mishra/student-server/internal/types"
)

// Failure classes surfaced by every backend. Backends wrap them with %w;
// callers match with errors.Is.
var (
	// ErrConflict: a record with the same first/last name already exists.
	ErrConflict = errors.New("duplicate record")

	// ErrNotFound: the record is absent or could not be read/removed.
	ErrNotFound = errors.New("record not found")

	// ErrStorageFailure: writing a document failed.
	ErrStorageFailure = errors.New("storage failure")

	// ErrInternal: reading back the record set failed.
	ErrInternal = errors.New("internal storage error")
)

// Storage is the record store contract.
type Storage interface {
	// CreateStudent assigns a fresh record ID, persists the student and
	// returns the ID. Fails with ErrConflict when the name pair is taken
	// and with ErrStorageFailure when the document cannot be written.
	CreateStudent(student types.Student) (int64, error)

	// GetStudentByID returns the stored document exactly as persisted.
	// Fails with ErrNotFound.
	GetStudentByID(id int64) ([]byte, error)

	// GetStudents returns every stored record ordered by record ID.
	// Returns an empty slice (not nil) when there are none. Any single
	// unreadable document fails the whole call with ErrInternal.
	GetStudents() ([]types.Student, error)

	// UpdateStudentByID replaces every field of an existing record. The
	// stored record ID is always id. Fails with ErrNotFound when the
	// record does not exist and ErrStorageFailure when the write fails.
	UpdateStudentByID(id int64, student types.Student) error

	// DeleteStudentByID removes a record. Any failure, including the
	// record never having existed, is ErrNotFound.
	DeleteStudentByID(id int64) error

	// Close releases backend resources.
	Close() error
}

// Wrap tags cause with one of the failure classes above so that both the
// class and the underlying error survive errors.Is. op names the backend
// step, e.g. "CreateStudent: write".
func Wrap(op string, class, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", op, class)
	}
	return fmt.Errorf("%s: %w: %w", op, class, cause)
}
