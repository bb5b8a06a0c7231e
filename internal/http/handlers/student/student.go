// Package student contains all HTTP handlers for the Student resource.
//
// Handlers follow the closure / factory pattern: each exported function
// receives the storage dependency once, at route registration, and
// returns the http.HandlerFunc that runs on every request.
//
//	router.Post("/students", student.New(storage))
//
// The handlers hold no logic beyond decoding the body, calling the store
// and mapping its failure class to a status code.
package student

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-server/internal/storage"
	"github.com/aanand-mishra/student-server/internal/types"
	"github.com/aanand-mishra/student-server/internal/utils/response"
)

// RecordIDParam is the route parameter naming a record.
const RecordIDParam = "record_id"

// maxFormMemory bounds the in-memory part of a multipart body.
const maxFormMemory = 1 << 20

var validate = validator.New()

// ListResponse is the body of GET /students.
type ListResponse struct {
	Students []types.Student `json:"students"`
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /students
// Creates a student from a JSON or form-encoded body.
//
// Request body:
//
//	{ "first_name": "Ann", "last_name": "Lee", "gpa": "3.9", "enrolled": "true" }
//
// Responses:
//
//	201 Created   { "record_id": 1700000000000, "message": "successfully created" }
//	409 Conflict  { "message": "Conflict - duplicate record" }
//	404 Not Found { "record_id": -1, "message": "error - unable to create resource" }
//
// The 404 on a failed write is what existing clients of this API expect,
// so it stays.
// ─────────────────────────────────────────────────────────────────────────────
func New(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		student, err := decodeStudent(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.Message(response.MsgMalformedBody))
			return
		}

		id, err := storage.CreateStudent(student)
		if err != nil {
			if isConflict(err) {
				slog.Info("student exists")
				response.WriteJSON(w, http.StatusConflict, response.Message(response.MsgDuplicate))
				return
			}
			slog.Error("error creating student", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusNotFound,
				response.Record(response.UnassignedRecordID, response.MsgCreateFailed))
			return
		}

		slog.Info("student created", slog.Int64("record_id", id))
		response.WriteJSON(w, http.StatusCreated, response.Record(id, response.MsgCreated))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /students/{record_id}
// Responds with the stored document exactly as persisted.
//
//	200 OK        the stored document
//	404 Not Found { "record_id": ..., "message": "error - resource not found" }
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, RecordIDParam)
		slog.Info("getting a student", slog.String("record_id", raw))

		id, ok := parseRecordID(raw)
		if !ok {
			response.WriteJSON(w, http.StatusNotFound, response.Record(raw, response.MsgNotFound))
			return
		}

		doc, err := storage.GetStudentByID(id)
		if err != nil {
			slog.Error("error getting student",
				slog.String("record_id", raw),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusNotFound, response.Record(id, response.MsgNotFound))
			return
		}

		response.WriteRaw(w, http.StatusOK, doc)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /students
//
//	200 OK        { "students": [ ... ] }   (empty array, never null)
//	500 Internal  { "message": "error - internal server error" }
//
// ─────────────────────────────────────────────────────────────────────────────
func GetList(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("getting all students")

		students, err := storage.GetStudents()
		if err != nil {
			slog.Error("error getting students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError,
				response.Message(response.MsgInternalError))
			return
		}

		response.WriteJSON(w, http.StatusOK, ListResponse{Students: students})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /students/{record_id}
// Replaces ALL fields of an existing student; fields missing from the body
// are dropped from the record.
//
//	200 OK        { "record_id": ..., "message": "successfully updated" }
//	403 Forbidden { "record_id": ..., "message": "error - unable to update resource" }
//	404 Not Found { "record_id": ..., "message": "error - resource not found" }
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, RecordIDParam)
		slog.Info("updating a student", slog.String("record_id", raw))

		id, ok := parseRecordID(raw)
		if !ok {
			response.WriteJSON(w, http.StatusNotFound, response.Record(raw, response.MsgNotFound))
			return
		}

		student, err := decodeStudent(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.Message(response.MsgMalformedBody))
			return
		}

		if err := storage.UpdateStudentByID(id, student); err != nil {
			slog.Error("error updating student",
				slog.String("record_id", raw),
				slog.String("error", err.Error()))
			if isNotFound(err) {
				response.WriteJSON(w, http.StatusNotFound, response.Record(id, response.MsgNotFound))
				return
			}
			response.WriteJSON(w, http.StatusForbidden, response.Record(id, response.MsgUpdateFailed))
			return
		}

		slog.Info("student updated", slog.Int64("record_id", id))
		response.WriteJSON(w, http.StatusOK, response.Record(id, response.MsgUpdated))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /students/{record_id}
//
//	200 OK        { "record_id": ..., "message": "record deleted" }
//	404 Not Found { "record_id": ..., "message": "error - resource not found" }
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, RecordIDParam)
		slog.Info("deleting a student", slog.String("record_id", raw))

		id, ok := parseRecordID(raw)
		if !ok {
			response.WriteJSON(w, http.StatusNotFound, response.Record(raw, response.MsgNotFound))
			return
		}

		if err := storage.DeleteStudentByID(id); err != nil {
			slog.Error("error deleting student",
				slog.String("record_id", raw),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusNotFound, response.Record(id, response.MsgNotFound))
			return
		}

		slog.Info("student deleted", slog.Int64("record_id", id))
		response.WriteJSON(w, http.StatusOK, response.Record(id, response.MsgDeleted))
	}
}

// parseRecordID accepts only the canonical decimal form of an int64 ID.
// Anything else, "007" included, cannot name a stored record.
func parseRecordID(raw string) (int64, bool) {
	if err := validate.Var(raw, "required,number"); err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || strconv.FormatInt(id, 10) != raw {
		return 0, false
	}
	return id, true
}

// decodeStudent reads the record fields from a JSON or form body. JSON
// values are kept whatever their type; form values are strings. Fields
// the client did not send stay absent.
func decodeStudent(r *http.Request) (types.Student, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		var student types.Student
		err := json.NewDecoder(r.Body).Decode(&student)
		if errors.Is(err, io.EOF) {
			return types.Student{}, nil
		}
		return student, err
	}

	var err error
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(maxFormMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return types.Student{}, err
	}

	return types.Student{
		FirstName: formValue(r, "first_name"),
		LastName:  formValue(r, "last_name"),
		GPA:       formValue(r, "gpa"),
		Enrolled:  formValue(r, "enrolled"),
	}, nil
}

func formValue(r *http.Request, key string) types.Field {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return types.String(values[0])
}

func isConflict(err error) bool {
	return errors.Is(err, storage.ErrConflict)
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
