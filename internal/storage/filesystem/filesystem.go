// Package filesystem provides the default storage.Storage implementation:
// every record is a standalone, pretty-printed JSON document named
// <record_id>.json inside a single directory.
//
// The directory is the only source of truth. Nothing is cached, so every
// read, duplicate check and listing goes back to the files on disk.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/aanand-mishra/student-server/internal/storage"
	"github.com/aanand-mishra/student-server/internal/types"
)

// DocumentExt is the suffix of every record document.
const DocumentExt = ".json"

// tmpExt marks a document that is still being written.
const tmpExt = ".tmp"

// Filesystem is the directory-backed record store.
type Filesystem struct {
	// Dir holds the record documents. Created on the first write.
	Dir string

	ids storage.IDGenerator

	// mu serializes writers so that a create's duplicate scan and its
	// write cannot interleave with another create in this process.
	mu sync.Mutex
}

// New returns a store rooted at dir. The directory is not touched until
// the first record is created.
func New(dir string, ids storage.IDGenerator) *Filesystem {
	return &Filesystem{Dir: dir, ids: ids}
}

// DocumentPath returns the file that holds record id.
func (f *Filesystem) DocumentPath(id int64) string {
	return filepath.Join(f.Dir, strconv.FormatInt(id, 10)+DocumentExt)
}

// CreateStudent scans every document for the same name pair, then writes
// the new record under a freshly generated ID.
func (f *Filesystem) CreateStudent(student types.Student) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.Dir, 0o750); err != nil {
		return 0, storage.Wrap("CreateStudent: mkdir", storage.ErrStorageFailure, err)
	}

	taken, err := f.nameTaken(student)
	if err != nil {
		return 0, storage.Wrap("CreateStudent: duplicate scan", storage.ErrStorageFailure, err)
	}
	if taken {
		return 0, storage.Wrap("CreateStudent", storage.ErrConflict, nil)
	}

	student.RecordID = f.ids.NextID()
	if err := f.write(student); err != nil {
		return 0, storage.Wrap("CreateStudent: write", storage.ErrStorageFailure, err)
	}

	return student.RecordID, nil
}

// GetStudentByID returns the document bytes untouched.
func (f *Filesystem) GetStudentByID(id int64) ([]byte, error) {
	data, err := os.ReadFile(f.DocumentPath(id))
	if err != nil {
		return nil, storage.Wrap("GetStudentByID: read", storage.ErrNotFound, err)
	}
	return data, nil
}

// GetStudents reads and parses every document in the directory. A missing
// directory simply means no records yet.
func (f *Filesystem) GetStudents() ([]types.Student, error) {
	paths, err := f.documentPaths()
	if err != nil {
		return nil, storage.Wrap("GetStudents: list", storage.ErrInternal, err)
	}

	students := make([]types.Student, 0, len(paths))
	for _, path := range paths {
		student, err := readDocument(path)
		if err != nil {
			return nil, storage.Wrap("GetStudents: read", storage.ErrInternal, err)
		}
		students = append(students, student)
	}

	storage.SortByID(students)
	return students, nil
}

// UpdateStudentByID overwrites an existing document. There is no upsert:
// the document must already be on disk.
func (f *Filesystem) UpdateStudentByID(id int64, student types.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.DocumentPath(id)); err != nil {
		return storage.Wrap("UpdateStudentByID: stat", storage.ErrNotFound, err)
	}

	student.RecordID = id
	if err := f.write(student); err != nil {
		return storage.Wrap("UpdateStudentByID: write", storage.ErrStorageFailure, err)
	}
	return nil
}

// DeleteStudentByID removes the document. A missing file and a failed
// removal are reported the same way.
func (f *Filesystem) DeleteStudentByID(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.DocumentPath(id)); err != nil {
		return storage.Wrap("DeleteStudentByID: remove", storage.ErrNotFound, err)
	}
	return nil
}

// Close is a no-op; no handles outlive a single operation.
func (f *Filesystem) Close() error {
	return nil
}

func (f *Filesystem) nameTaken(student types.Student) (bool, error) {
	paths, err := f.documentPaths()
	if err != nil {
		return false, err
	}

	for _, path := range paths {
		existing, err := readDocument(path)
		if err != nil {
			return false, err
		}
		if existing.SameName(student) {
			return true, nil
		}
	}
	return false, nil
}

// documentPaths lists every record document, skipping subdirectories and
// in-flight temp files.
func (f *Filesystem) documentPaths() ([]string, error) {
	entries, err := os.ReadDir(f.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", f.Dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), DocumentExt) {
			continue
		}
		paths = append(paths, filepath.Join(f.Dir, entry.Name()))
	}
	return paths, nil
}

func readDocument(path string) (types.Student, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Student{}, err
	}
	student, err := storage.DecodeDocument(data)
	if err != nil {
		return types.Student{}, fmt.Errorf("%s: %w", path, err)
	}
	return student, nil
}

// write stores the document atomically: temp file, fsync, rename. A
// reader therefore sees either the old document or the new one.
func (f *Filesystem) write(student types.Student) error {
	data, err := storage.EncodeDocument(student)
	if err != nil {
		return err
	}

	path := f.DocumentPath(student.RecordID)
	tmpPath := path + tmpExt

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fsync: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}
