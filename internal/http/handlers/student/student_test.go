package student_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-server/internal/http/handlers/student"
	"github.com/aanand-mishra/student-server/internal/storage"
	"github.com/aanand-mishra/student-server/internal/storage/memory"
	"github.com/aanand-mishra/student-server/internal/types"
)

func newRouter(s storage.Storage) http.Handler {
	r := chi.NewRouter()
	r.Post("/students", student.New(s))
	r.Get("/students", student.GetList(s))
	r.Get("/students/{record_id}", student.GetByID(s))
	r.Put("/students/{record_id}", student.Update(s))
	r.Delete("/students/{record_id}", student.Delete(s))
	return r
}

func newMemoryRouter() http.Handler {
	return newRouter(memory.New(storage.NewClockIDGenerator(nil)))
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func create(t *testing.T, h http.Handler, body string) int64 {
	t.Helper()
	w := do(t, h, http.MethodPost, "/students", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(decode(t, w)["record_id"].(float64))
}

const ann = `{"first_name":"Ann","last_name":"Lee","gpa":"3.9","enrolled":"true"}`

func TestCreate(t *testing.T) {
	t.Run("unique name pair is created with a numeric record id", func(t *testing.T) {
		h := newMemoryRouter()

		w := do(t, h, http.MethodPost, "/students", ann)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		body := decode(t, w)
		assert.Equal(t, "successfully created", body["message"])
		assert.IsType(t, float64(0), body["record_id"])
		assert.Positive(t, body["record_id"])
	})

	t.Run("duplicate name pair is rejected with 409", func(t *testing.T) {
		h := newMemoryRouter()
		create(t, h, ann)

		w := do(t, h, http.MethodPost, "/students",
			`{"first_name":"Ann","last_name":"Lee","gpa":"1.0","enrolled":"false"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, map[string]any{"message": "Conflict - duplicate record"}, decode(t, w))

		list := decode(t, do(t, h, http.MethodGet, "/students", ""))
		assert.Len(t, list["students"], 1, "no new record persisted")
	})

	t.Run("form encoded body", func(t *testing.T) {
		h := newMemoryRouter()

		form := url.Values{
			"first_name": {"Ann"},
			"last_name":  {"Lee"},
			"gpa":        {"3.9"},
			"enrolled":   {"true"},
		}
		req := httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)

		id := int64(decode(t, w)["record_id"].(float64))
		got := decode(t, do(t, h, http.MethodGet, "/students/"+itoa(id), ""))
		assert.Equal(t, "Ann", got["first_name"])
		assert.Equal(t, "3.9", got["gpa"])
	})

	t.Run("multipart body", func(t *testing.T) {
		h := newMemoryRouter()

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("first_name", "Ann"))
		require.NoError(t, mw.WriteField("last_name", "Lee"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/students", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)

		id := int64(decode(t, w)["record_id"].(float64))
		got := decode(t, do(t, h, http.MethodGet, "/students/"+itoa(id), ""))
		assert.Equal(t, "Lee", got["last_name"])
		assert.NotContains(t, got, "gpa")
	})

	t.Run("missing fields are stored as absent", func(t *testing.T) {
		h := newMemoryRouter()

		id := create(t, h, `{"first_name":"Ann"}`)

		got := decode(t, do(t, h, http.MethodGet, "/students/"+itoa(id), ""))
		assert.Equal(t, "Ann", got["first_name"])
		assert.NotContains(t, got, "last_name")
		assert.NotContains(t, got, "enrolled")
	})

	t.Run("non-string values are accepted and stored as sent", func(t *testing.T) {
		h := newMemoryRouter()

		id := create(t, h, `{"first_name":"Ann","last_name":"Lee","gpa":3.9,"enrolled":true}`)

		w := do(t, h, http.MethodGet, "/students/"+itoa(id), "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{
			"record_id":  float64(id),
			"first_name": "Ann",
			"last_name":  "Lee",
			"gpa":        3.9,
			"enrolled":   true,
		}, decode(t, w))

		list := do(t, h, http.MethodGet, "/students", "")
		assert.Contains(t, list.Body.String(), `"gpa":3.9,"enrolled":true`)
	})

	t.Run("string record_id in the body is ignored", func(t *testing.T) {
		h := newMemoryRouter()

		id := create(t, h, `{"record_id":"abc","first_name":"Ann"}`)

		got := decode(t, do(t, h, http.MethodGet, "/students/"+itoa(id), ""))
		assert.Equal(t, float64(id), got["record_id"])
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		h := newMemoryRouter()

		w := do(t, h, http.MethodPost, "/students", `{"first_name":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "error - malformed request body", decode(t, w)["message"])
	})

	t.Run("storage failure answers 404 with record id -1", func(t *testing.T) {
		h := newRouter(&failingStore{err: storage.Wrap("write", storage.ErrStorageFailure, errors.New("disk full"))})

		w := do(t, h, http.MethodPost, "/students", ann)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, map[string]any{
			"record_id": float64(-1),
			"message":   "error - unable to create resource",
		}, decode(t, w))
	})
}

func TestGetByID(t *testing.T) {
	t.Run("returns the stored fields", func(t *testing.T) {
		h := newMemoryRouter()
		id := create(t, h, ann)

		w := do(t, h, http.MethodGet, "/students/"+itoa(id), "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Equal(t, map[string]any{
			"record_id":  float64(id),
			"first_name": "Ann",
			"last_name":  "Lee",
			"gpa":        "3.9",
			"enrolled":   "true",
		}, decode(t, w))
	})

	t.Run("returns the document verbatim", func(t *testing.T) {
		doc := []byte("{\n  \"record_id\": 9,\n  \"first_name\": \"Raw\"\n}")
		h := newRouter(&failingStore{doc: doc})

		w := do(t, h, http.MethodGet, "/students/9", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, string(doc), w.Body.String())
	})

	t.Run("missing id 0 is 404", func(t *testing.T) {
		h := newMemoryRouter()

		w := do(t, h, http.MethodGet, "/students/0", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, map[string]any{
			"record_id": float64(0),
			"message":   "error - resource not found",
		}, decode(t, w))
	})

	t.Run("non numeric id is 404 and echoed back", func(t *testing.T) {
		h := newMemoryRouter()

		w := do(t, h, http.MethodGet, "/students/..%2Fsecret", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "error - resource not found", decode(t, w)["message"])
	})

	t.Run("leading zeros do not name the record", func(t *testing.T) {
		h := newMemoryRouter()
		id := create(t, h, ann)

		for _, path := range []string{"/students/0" + itoa(id), "/students/00" + itoa(id), "/students/+" + itoa(id)} {
			w := do(t, h, http.MethodGet, path, "")
			assert.Equal(t, http.StatusNotFound, w.Code, path)
		}

		w := do(t, h, http.MethodDelete, "/students/0"+itoa(id), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "0"+itoa(id), decode(t, w)["record_id"])

		w = do(t, h, http.MethodPut, "/students/0"+itoa(id), ann)
		assert.Equal(t, http.StatusNotFound, w.Code)

		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/students/"+itoa(id), "").Code,
			"record untouched")
	})

	t.Run("id overflowing int64 is 404", func(t *testing.T) {
		h := newMemoryRouter()

		w := do(t, h, http.MethodGet, "/students/99999999999999999999", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "99999999999999999999", decode(t, w)["record_id"])
	})
}

func TestGetList(t *testing.T) {
	t.Run("empty store lists an empty array", func(t *testing.T) {
		h := newMemoryRouter()

		w := do(t, h, http.MethodGet, "/students", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"students":[]}`, w.Body.String())
	})

	t.Run("lists every record", func(t *testing.T) {
		h := newMemoryRouter()
		ids := map[float64]bool{}
		for _, body := range []string{
			ann,
			`{"first_name":"Bob","last_name":"Ray","gpa":"2.5","enrolled":"false"}`,
			`{"first_name":"Cid","last_name":"Moe","gpa":"3.1","enrolled":"true"}`,
		} {
			ids[float64(create(t, h, body))] = true
		}

		w := do(t, h, http.MethodGet, "/students", "")
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Students []map[string]any `json:"students"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Students, 3)
		for _, s := range body.Students {
			assert.True(t, ids[s["record_id"].(float64)])
		}
	})

	t.Run("read failure is 500", func(t *testing.T) {
		h := newRouter(&failingStore{err: storage.Wrap("read", storage.ErrInternal, errors.New("bad file"))})

		w := do(t, h, http.MethodGet, "/students", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, map[string]any{"message": "error - internal server error"}, decode(t, w))
	})
}

func TestUpdate(t *testing.T) {
	t.Run("replaces every field", func(t *testing.T) {
		h := newMemoryRouter()
		id := create(t, h, ann)

		w := do(t, h, http.MethodPut, "/students/"+itoa(id),
			`{"first_name":"Anna","last_name":"Li","record_id":1}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{
			"record_id": float64(id),
			"message":   "successfully updated",
		}, decode(t, w))

		got := decode(t, do(t, h, http.MethodGet, "/students/"+itoa(id), ""))
		assert.Equal(t, map[string]any{
			"record_id":  float64(id),
			"first_name": "Anna",
			"last_name":  "Li",
		}, got, "old fields are discarded and the path id wins")
	})

	t.Run("missing record is 404", func(t *testing.T) {
		h := newMemoryRouter()

		w := do(t, h, http.MethodPut, "/students/12345", ann)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "error - resource not found", decode(t, w)["message"])

		list := decode(t, do(t, h, http.MethodGet, "/students", ""))
		assert.Empty(t, list["students"], "no upsert")
	})

	t.Run("write failure is 403", func(t *testing.T) {
		h := newRouter(&failingStore{err: storage.Wrap("write", storage.ErrStorageFailure, errors.New("read-only"))})

		w := do(t, h, http.MethodPut, "/students/5", ann)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, map[string]any{
			"record_id": float64(5),
			"message":   "error - unable to update resource",
		}, decode(t, w))
	})
}

func TestDelete(t *testing.T) {
	t.Run("removes the record", func(t *testing.T) {
		h := newMemoryRouter()
		id := create(t, h, ann)

		w := do(t, h, http.MethodDelete, "/students/"+itoa(id), "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{
			"record_id": float64(id),
			"message":   "record deleted",
		}, decode(t, w))

		assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/students/"+itoa(id), "").Code)
	})

	t.Run("missing record is 404", func(t *testing.T) {
		h := newMemoryRouter()

		w := do(t, h, http.MethodDelete, "/students/1", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "error - resource not found", decode(t, w)["message"])
	})
}

func TestAnnLeeExample(t *testing.T) {
	h := newMemoryRouter()

	first := do(t, h, http.MethodPost, "/students", ann)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "successfully created", decode(t, first)["message"])

	second := do(t, h, http.MethodPost, "/students", ann)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.JSONEq(t, `{"message":"Conflict - duplicate record"}`, second.Body.String())
}

// failingStore fails every call with err, or serves doc from GetStudentByID
// when err is nil.
type failingStore struct {
	err error
	doc []byte
}

func (s *failingStore) CreateStudent(types.Student) (int64, error) { return 0, s.err }

func (s *failingStore) GetStudentByID(int64) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

func (s *failingStore) GetStudents() ([]types.Student, error)       { return nil, s.err }
func (s *failingStore) UpdateStudentByID(int64, types.Student) error { return s.err }
func (s *failingStore) DeleteStudentByID(int64) error                { return s.err }
func (s *failingStore) Close() error                                 { return nil }

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
