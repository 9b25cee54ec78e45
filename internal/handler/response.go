package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON and writeError so the API keeps
// one set of body shapes:
//
//	{"msg": "Post not found"}                              single message
//	{"errors": [{"msg": "Title is required", "param": "title"}]}  field errors
//
// ERROR MAPPING:
// Services return typed errors from internal/apperror, usually wrapped with
// fmt.Errorf("...: %w", err). writeError walks the chain with errors.Is/As
// and picks the status. A *cascade.Error is checked first.
//
//	ErrValidation         → 422 {errors}
//	ErrConflict           → 409 {errors}
//	ErrInvalidCredentials → 400 {errors}
//	ErrBadRequest         → 400 {msg}
//	ErrUnauthorized       → 401 {msg}
//	ErrForbidden          → 403 {msg}
//	ErrNotFound           → 404 {msg}
//	*cascade.Error        → 500 {msg, failedSteps}
//	anything else         → 500 {msg: "Server error"}
//
// Internal error text never reaches the client; it is logged instead.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/cascade"
)

const (
	msgServerError = "Server error"
	msgInvalidJSON = "Invalid JSON body"
)

// maxBodyBytes caps request bodies; stories are the largest legitimate input.
const maxBodyBytes = 1 << 20

// MessageResponse is the {"msg": ...} body.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// FieldError is one entry of an {"errors": [...]} body.
type FieldError struct {
	Msg   string `json:"msg"`
	Param string `json:"param,omitempty"`
}

type ErrorsResponse struct {
	Errors []FieldError `json:"errors"`
}

// CascadeErrorResponse reports an incomplete deletion.
type CascadeErrorResponse struct {
	Msg         string   `json:"msg"`
	FailedSteps []string `json:"failedSteps"`
}

// writeJSON sets the headers before the status; anything set after the
// first Write is ignored by net/http.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageResponse{Msg: msg})
}

// writeError maps err to a status and body. Server-side failures are logged
// with the request's method and path.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	// A cascade may wrap typed step errors; it is still a server-side failure.
	if cerr, ok := cascade.AsError(err); ok {
		logFailure(r, logger, err)
		writeJSON(w, http.StatusInternalServerError, CascadeErrorResponse{
			Msg:         msgServerError,
			FailedSteps: cerr.FailedSteps(),
		})
		return
	}

	var fields *apperror.ValidationErrors
	if errors.As(err, &fields) {
		body := ErrorsResponse{Errors: make([]FieldError, 0, len(fields.Fields))}
		for _, f := range fields.Fields {
			body.Errors = append(body.Errors, FieldError{Msg: f.Message, Param: f.Field})
		}
		writeJSON(w, http.StatusUnprocessableEntity, body)
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation):
			writeJSON(w, http.StatusUnprocessableEntity, ErrorsResponse{
				Errors: []FieldError{{Msg: appErr.Message, Param: appErr.Field}},
			})
			return
		case errors.Is(err, apperror.ErrConflict):
			writeJSON(w, http.StatusConflict, ErrorsResponse{Errors: []FieldError{{Msg: appErr.Message}}})
			return
		case errors.Is(err, apperror.ErrInvalidCredentials):
			writeJSON(w, http.StatusBadRequest, ErrorsResponse{Errors: []FieldError{{Msg: appErr.Message}}})
			return
		case errors.Is(err, apperror.ErrBadRequest):
			writeMessage(w, http.StatusBadRequest, appErr.Message)
			return
		case errors.Is(err, apperror.ErrUnauthorized):
			writeMessage(w, http.StatusUnauthorized, appErr.Message)
			return
		case errors.Is(err, apperror.ErrForbidden):
			writeMessage(w, http.StatusForbidden, appErr.Message)
			return
		case errors.Is(err, apperror.ErrNotFound):
			writeMessage(w, http.StatusNotFound, appErr.Message)
			return
		}
	}

	logFailure(r, logger, err)
	writeMessage(w, http.StatusInternalServerError, msgServerError)
}

func logFailure(r *http.Request, logger *slog.Logger, err error) {
	logger.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}

// decodeJSON reads a JSON object body into dst. An empty body decodes to the
// zero value so endpoints with all-optional fields accept it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeMessage(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}
