// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// Each record is one row. The persisted JSON document is kept verbatim in
// the document column so GetStudentByID can return it byte for byte.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/aanand-mishra/student-server/internal/storage"
	"github.com/aanand-mishra/student-server/internal/types"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
type SQLite struct {
	Db  *sql.DB
	ids storage.IDGenerator
}

// New opens the SQLite database at path, creates the students table if it
// does not already exist, and returns a ready-to-use *SQLite.
func New(path string, ids storage.IDGenerator) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// One connection: SQLite allows a single writer anyway, and it keeps
	// the create transaction (scan, then insert) free of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			record_id INTEGER PRIMARY KEY,
			document  TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db, ids: ids}, nil
}

// CreateStudent runs the duplicate check and the insert in one
// transaction. Field values are opaque JSON, so the name comparison
// happens on the decoded documents rather than in SQL.
func (s *SQLite) CreateStudent(student types.Student) (int64, error) {
	tx, err := s.Db.Begin()
	if err != nil {
		return 0, storage.Wrap("CreateStudent: begin", storage.ErrStorageFailure, err)
	}
	defer tx.Rollback()

	taken, err := nameTaken(tx, student)
	if err != nil {
		return 0, storage.Wrap("CreateStudent: duplicate scan", storage.ErrStorageFailure, err)
	}
	if taken {
		return 0, storage.Wrap("CreateStudent", storage.ErrConflict, nil)
	}

	student.RecordID = s.ids.NextID()
	doc, err := storage.EncodeDocument(student)
	if err != nil {
		return 0, storage.Wrap("CreateStudent", storage.ErrStorageFailure, err)
	}

	_, err = tx.Exec(
		"INSERT INTO students (record_id, document) VALUES (?, ?)",
		student.RecordID, string(doc),
	)
	if err != nil {
		return 0, storage.Wrap("CreateStudent: insert", storage.ErrStorageFailure, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, storage.Wrap("CreateStudent: commit", storage.ErrStorageFailure, err)
	}

	return student.RecordID, nil
}

// GetStudentByID returns the stored document column.
func (s *SQLite) GetStudentByID(id int64) ([]byte, error) {
	var doc string
	err := s.Db.QueryRow(
		"SELECT document FROM students WHERE record_id = ? LIMIT 1", id,
	).Scan(&doc)
	if err != nil {
		return nil, storage.Wrap("GetStudentByID: scan", storage.ErrNotFound, err)
	}
	return []byte(doc), nil
}

// GetStudents decodes every stored document, ordered by record_id.
func (s *SQLite) GetStudents() ([]types.Student, error) {
	rows, err := s.Db.Query("SELECT document FROM students ORDER BY record_id")
	if err != nil {
		return nil, storage.Wrap("GetStudents: query", storage.ErrInternal, err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)

	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, storage.Wrap("GetStudents: scan row", storage.ErrInternal, err)
		}

		student, err := storage.DecodeDocument([]byte(doc))
		if err != nil {
			return nil, storage.Wrap("GetStudents", storage.ErrInternal, err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, storage.Wrap("GetStudents: rows iteration", storage.ErrInternal, err)
	}

	return students, nil
}

// UpdateStudentByID replaces the row. Zero affected rows means the record
// was never there.
func (s *SQLite) UpdateStudentByID(id int64, student types.Student) error {
	student.RecordID = id
	doc, err := storage.EncodeDocument(student)
	if err != nil {
		return storage.Wrap("UpdateStudentByID", storage.ErrStorageFailure, err)
	}

	result, err := s.Db.Exec(
		"UPDATE students SET document = ? WHERE record_id = ?",
		string(doc), id,
	)
	if err != nil {
		return storage.Wrap("UpdateStudentByID: exec", storage.ErrStorageFailure, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return storage.Wrap("UpdateStudentByID: rows affected", storage.ErrStorageFailure, err)
	}
	if n == 0 {
		return storage.Wrap("UpdateStudentByID", storage.ErrNotFound, nil)
	}
	return nil
}

// DeleteStudentByID removes the row.
func (s *SQLite) DeleteStudentByID(id int64) error {
	result, err := s.Db.Exec("DELETE FROM students WHERE record_id = ?", id)
	if err != nil {
		return storage.Wrap("DeleteStudentByID: exec", storage.ErrNotFound, err)
	}

	n, err := result.RowsAffected()
	if err != nil || n == 0 {
		return storage.Wrap("DeleteStudentByID", storage.ErrNotFound, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

func nameTaken(tx *sql.Tx, student types.Student) (bool, error) {
	rows, err := tx.Query("SELECT document FROM students")
	if err != nil {
		return false, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return false, fmt.Errorf("scan row: %w", err)
		}
		existing, err := storage.DecodeDocument([]byte(doc))
		if err != nil {
			return false, err
		}
		if existing.SameName(student) {
			return true, nil
		}
	}
	return false, rows.Err()
}
