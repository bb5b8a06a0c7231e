// Package instrumented wraps any storage.Storage and counts its
// operations in Prometheus.
package instrumented

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aanand-mishra/student-server/internal/storage"
	"github.com/aanand-mishra/student-server/internal/types"
)

// OperationsTotal counts record store calls by operation and outcome.
var OperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "students_store_operations_total",
		Help: "Record store operations by operation and result",
	},
	[]string{"operation", "result"},
)

// Result label values.
const (
	ResultOK             = "ok"
	ResultConflict       = "conflict"
	ResultNotFound       = "not_found"
	ResultStorageFailure = "storage_failure"
	ResultInternalError  = "internal_error"
	ResultUnknown        = "unknown"
)

// Storage is a storage.Storage that records every call.
type Storage struct {
	next storage.Storage
}

// Wrap decorates next.
func Wrap(next storage.Storage) *Storage {
	return &Storage{next: next}
}

func (s *Storage) CreateStudent(student types.Student) (int64, error) {
	id, err := s.next.CreateStudent(student)
	observe("create", err)
	return id, err
}

func (s *Storage) GetStudentByID(id int64) ([]byte, error) {
	doc, err := s.next.GetStudentByID(id)
	observe("get", err)
	return doc, err
}

func (s *Storage) GetStudents() ([]types.Student, error) {
	students, err := s.next.GetStudents()
	observe("list", err)
	return students, err
}

func (s *Storage) UpdateStudentByID(id int64, student types.Student) error {
	err := s.next.UpdateStudentByID(id, student)
	observe("update", err)
	return err
}

func (s *Storage) DeleteStudentByID(id int64) error {
	err := s.next.DeleteStudentByID(id)
	observe("delete", err)
	return err
}

func (s *Storage) Close() error {
	return s.next.Close()
}

func observe(operation string, err error) {
	OperationsTotal.WithLabelValues(operation, Result(err)).Inc()
}

// Result maps a store error to its metric label.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, storage.ErrConflict):
		return ResultConflict
	case errors.Is(err, storage.ErrNotFound):
		return ResultNotFound
	case errors.Is(err, storage.ErrStorageFailure):
		return ResultStorageFailure
	case errors.Is(err, storage.ErrInternal):
		return ResultInternalError
	default:
		return ResultUnknown
	}
}
