// Package bolt stores records in an embedded bbolt key-value file. Keys
// are big-endian record IDs, so a cursor walks records in ID order;
// values are the persisted JSON documents.
package bolt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/aanand-mishra/student-server/internal/storage"
	"github.com/aanand-mishra/student-server/internal/types"
)

var studentsBucket = []byte("students")

// Store is the bbolt-backed record store.
type Store struct {
	db  *bolt.DB
	ids storage.IDGenerator
}

// New opens (or creates) the database file at path and makes sure the
// students bucket exists.
func New(path string, ids storage.IDGenerator) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt.New: open: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(studentsBucket)
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt.New: %w", err)
	}

	return &Store{db: db, ids: ids}, nil
}

func key(id int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

// CreateStudent scans and inserts inside a single read-write transaction;
// bolt allows one writer at a time, so the check and the put are atomic.
func (s *Store) CreateStudent(student types.Student) (int64, error) {
	var id int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(studentsBucket)

		err := b.ForEach(func(_, v []byte) error {
			existing, err := storage.DecodeDocument(v)
			if err != nil {
				return storage.Wrap("CreateStudent: duplicate scan", storage.ErrStorageFailure, err)
			}
			if existing.SameName(student) {
				return storage.Wrap("CreateStudent", storage.ErrConflict, nil)
			}
			return nil
		})
		if err != nil {
			return err
		}

		student.RecordID = s.ids.NextID()
		doc, err := storage.EncodeDocument(student)
		if err != nil {
			return storage.Wrap("CreateStudent", storage.ErrStorageFailure, err)
		}
		if err := b.Put(key(student.RecordID), doc); err != nil {
			return storage.Wrap("CreateStudent: put", storage.ErrStorageFailure, err)
		}

		id = student.RecordID
		return nil
	})
	if err != nil {
		return 0, classify(err, storage.ErrStorageFailure, "CreateStudent: commit")
	}
	return id, nil
}

// GetStudentByID returns a copy of the stored document.
func (s *Store) GetStudentByID(id int64) ([]byte, error) {
	var doc []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(studentsBucket).Get(key(id))
		if v == nil {
			return storage.Wrap("GetStudentByID", storage.ErrNotFound, nil)
		}
		// v is only valid for the life of the transaction.
		doc = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, classify(err, storage.ErrNotFound, "GetStudentByID: view")
	}
	return doc, nil
}

// GetStudents walks the bucket in key order, which is record ID order.
func (s *Store) GetStudents() ([]types.Student, error) {
	students := make([]types.Student, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(studentsBucket).ForEach(func(_, v []byte) error {
			student, err := storage.DecodeDocument(v)
			if err != nil {
				return storage.Wrap("GetStudents", storage.ErrInternal, err)
			}
			students = append(students, student)
			return nil
		})
	})
	if err != nil {
		return nil, classify(err, storage.ErrInternal, "GetStudents: view")
	}
	return students, nil
}

// UpdateStudentByID replaces an existing document in one transaction.
func (s *Store) UpdateStudentByID(id int64, student types.Student) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(studentsBucket)
		if b.Get(key(id)) == nil {
			return storage.Wrap("UpdateStudentByID", storage.ErrNotFound, nil)
		}

		student.RecordID = id
		doc, err := storage.EncodeDocument(student)
		if err != nil {
			return storage.Wrap("UpdateStudentByID", storage.ErrStorageFailure, err)
		}
		if err := b.Put(key(id), doc); err != nil {
			return storage.Wrap("UpdateStudentByID: put", storage.ErrStorageFailure, err)
		}
		return nil
	})
	if err != nil {
		return classify(err, storage.ErrStorageFailure, "UpdateStudentByID: commit")
	}
	return nil
}

// DeleteStudentByID removes the key.
func (s *Store) DeleteStudentByID(id int64) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(studentsBucket)
		if b.Get(key(id)) == nil {
			return storage.Wrap("DeleteStudentByID", storage.ErrNotFound, nil)
		}
		return b.Delete(key(id))
	})
	if err != nil {
		return classify(err, storage.ErrNotFound, "DeleteStudentByID")
	}
	return nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// classify passes through errors already tagged with a failure class and
// tags everything else (bolt transaction errors) with fallback.
func classify(err, fallback error, op string) error {
	for _, class := range []error{
		storage.ErrConflict,
		storage.ErrNotFound,
		storage.ErrStorageFailure,
		storage.ErrInternal,
	} {
		if errors.Is(err, class) {
			return err
		}
	}
	return storage.Wrap(op, fallback, err)
}
