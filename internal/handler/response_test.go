package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/cascade"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriteError(t *testing.T) {
	var fields apperror.ValidationErrors
	fields.Add("name", "Name is required")
	fields.Add("email", "Please include a valid email")

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "field errors",
			err:      fields.Err(),
			wantCode: http.StatusUnprocessableEntity,
			wantBody: `{"errors":[{"msg":"Name is required","param":"name"},{"msg":"Please include a valid email","param":"email"}]}`,
		},
		{
			name:     "single validation error",
			err:      fmt.Errorf("creating post: %w", apperror.ValidationFailed("title", "Title is required")),
			wantCode: http.StatusUnprocessableEntity,
			wantBody: `{"errors":[{"msg":"Title is required","param":"title"}]}`,
		},
		{
			name:     "conflict",
			err:      apperror.Conflict("User already exists"),
			wantCode: http.StatusConflict,
			wantBody: `{"errors":[{"msg":"User already exists"}]}`,
		},
		{
			name:     "invalid credentials",
			err:      apperror.InvalidCredentials(),
			wantCode: http.StatusBadRequest,
			wantBody: `{"errors":[{"msg":"Invalid credentials"}]}`,
		},
		{
			name:     "bad reference",
			err:      apperror.BadReference("post", "nope"),
			wantCode: http.StatusBadRequest,
			wantBody: `{"msg":"invalid post \"nope\""}`,
		},
		{
			name:     "forbidden",
			err:      apperror.Forbidden("User not authorized"),
			wantCode: http.StatusForbidden,
			wantBody: `{"msg":"User not authorized"}`,
		},
		{
			name:     "wrapped not found",
			err:      fmt.Errorf("loading: %w", apperror.NotFound("Post", "x")),
			wantCode: http.StatusNotFound,
			wantBody: `{"msg":"Post not found"}`,
		},
		{
			name: "cascade wrapping a not found step",
			err: &cascade.Error{
				Op:      "delete post",
				Failed:  []cascade.StepError{{Step: "delete comments", Err: apperror.NotFound("Comment", "x")}},
				Skipped: []string{"delete post"},
			},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"msg":"Server error","failedSteps":["delete comments"]}`,
		},
		{
			name:     "internal error text is hidden",
			err:      errors.New("disk on fire"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"msg":"Server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)

			writeError(rr, req, discardLogger(), tt.err)

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Text string `json:"text"`
	}

	t.Run("empty body is the zero value", func(t *testing.T) {
		var dst body
		rr := httptest.NewRecorder()
		ok := decodeJSON(rr, httptest.NewRequest(http.MethodPut, "/", http.NoBody), &dst)
		assert.True(t, ok)
		assert.Empty(t, dst.Text)
	})

	t.Run("malformed body", func(t *testing.T) {
		var dst body
		rr := httptest.NewRecorder()
		ok := decodeJSON(rr, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"text":`)), &dst)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"msg":"Invalid JSON body"}`, rr.Body.String())
	})

	t.Run("oversized body", func(t *testing.T) {
		var dst body
		big := `{"text":"` + strings.Repeat("a", maxBodyBytes) + `"}`
		rr := httptest.NewRecorder()
		ok := decodeJSON(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big)), &dst)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSkillList(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{name: "array", input: `["go","sql"]`, want: []string{"go", "sql"}},
		{name: "comma separated", input: `"go, sql ,docker"`, want: []string{"go", " sql ", "docker"}},
		{name: "number", input: `42`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s skillList
			err := json.Unmarshal([]byte(tt.input), &s)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, []string(s))
		})
	}
}
