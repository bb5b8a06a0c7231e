// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler in this application sends JSON back to the client, so
// the header/status/encode sequence lives here rather than in each handler.
package response

import (
	"encoding/json"
	"net/http"
)

// Messages carried in the "message" field of every non-document response.
const (
	MsgCreated         = "successfully created"
	MsgUpdated         = "successfully updated"
	MsgDeleted         = "record deleted"
	MsgDuplicate       = "Conflict - duplicate record"
	MsgNotFound        = "error - resource not found"
	MsgCreateFailed    = "error - unable to create resource"
	MsgUpdateFailed    = "error - unable to update resource"
	MsgInternalError   = "error - internal server error"
	MsgMalformedBody   = "error - malformed request body"
	UnassignedRecordID = -1
)

// Response is the envelope for every reply that is not a stored document:
//
//	{ "record_id": 1700000000000, "message": "successfully created" }
//
// RecordID is omitted when nil. It usually holds the int64 record ID, but
// echoes the raw path segment when that segment is not a valid ID.
type Response struct {
	RecordID any    `json:"record_id,omitempty"`
	Message  string `json:"message"`
}

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteRaw writes an already-encoded JSON document untouched.
func WriteRaw(w http.ResponseWriter, status int, doc []byte) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(doc)
	return err
}

// Message builds a Response without a record ID.
func Message(msg string) Response {
	return Response{Message: msg}
}

// Record builds a Response about a specific record.
func Record(recordID any, msg string) Response {
	return Response{RecordID: recordID, Message: msg}
}
