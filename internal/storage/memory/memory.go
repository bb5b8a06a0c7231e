// Package memory is an in-process storage.Storage backed by a map from
// record ID to encoded document. Used by tests and by the "memory"
// storage driver; nothing survives a restart.
package memory

import (
	"sync"

	"github.com/aanand-mishra/student-server/internal/storage"
	"github.com/aanand-mishra/student-server/internal/types"
)

// Memory is the map-backed record store. The embedded lock guards docs.
type Memory struct {
	sync.RWMutex
	docs map[int64][]byte
	ids  storage.IDGenerator
}

// New returns an empty store drawing record IDs from ids.
func New(ids storage.IDGenerator) *Memory {
	return &Memory{
		docs: make(map[int64][]byte),
		ids:  ids,
	}
}

// CreateStudent checks every stored record for the name pair and stores
// the new one under the same lock.
func (m *Memory) CreateStudent(student types.Student) (int64, error) {
	m.Lock()
	defer m.Unlock()

	for _, data := range m.docs {
		existing, err := storage.DecodeDocument(data)
		if err != nil {
			return 0, storage.Wrap("CreateStudent: duplicate scan", storage.ErrStorageFailure, err)
		}
		if existing.SameName(student) {
			return 0, storage.Wrap("CreateStudent", storage.ErrConflict, nil)
		}
	}

	student.RecordID = m.ids.NextID()
	data, err := storage.EncodeDocument(student)
	if err != nil {
		return 0, storage.Wrap("CreateStudent", storage.ErrStorageFailure, err)
	}
	m.docs[student.RecordID] = data
	return student.RecordID, nil
}

// GetStudentByID returns a copy of the stored document.
func (m *Memory) GetStudentByID(id int64) ([]byte, error) {
	m.RLock()
	defer m.RUnlock()

	data, ok := m.docs[id]
	if !ok {
		return nil, storage.Wrap("GetStudentByID", storage.ErrNotFound, nil)
	}
	return append([]byte(nil), data...), nil
}

// GetStudents decodes every document, ordered by record ID.
func (m *Memory) GetStudents() ([]types.Student, error) {
	m.RLock()
	defer m.RUnlock()

	students := make([]types.Student, 0, len(m.docs))
	for _, data := range m.docs {
		student, err := storage.DecodeDocument(data)
		if err != nil {
			return nil, storage.Wrap("GetStudents", storage.ErrInternal, err)
		}
		students = append(students, student)
	}

	storage.SortByID(students)
	return students, nil
}

// UpdateStudentByID replaces an existing document.
func (m *Memory) UpdateStudentByID(id int64, student types.Student) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.docs[id]; !ok {
		return storage.Wrap("UpdateStudentByID", storage.ErrNotFound, nil)
	}

	student.RecordID = id
	data, err := storage.EncodeDocument(student)
	if err != nil {
		return storage.Wrap("UpdateStudentByID", storage.ErrStorageFailure, err)
	}
	m.docs[id] = data
	return nil
}

// DeleteStudentByID drops the document.
func (m *Memory) DeleteStudentByID(id int64) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.docs[id]; !ok {
		return storage.Wrap("DeleteStudentByID", storage.ErrNotFound, nil)
	}
	delete(m.docs, id)
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
