package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/letteros/letteros/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("name", "is required"), http.StatusBadRequest},
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized},
		{"forbidden", fmt.Errorf("get product: %w", domain.ErrForbidden), http.StatusForbidden},
		{"not found", fmt.Errorf("get: %w", domain.ErrNotFound), http.StatusNotFound},
		{"upstream", fmt.Errorf("llm: %w", domain.ErrUpstream), http.StatusInternalServerError},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestWriteErrorValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, domain.NewValidationError("count", "must be positive"))

	var body struct {
		Error   string              `json:"error"`
		Details []domain.FieldError `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Details, 1)
	assert.Equal(t, "count", body.Details[0].Field)
}

type titled struct {
	Title string `json:"title"`
}

func (t titled) Validate() error {
	if t.Title == "" {
		return domain.NewValidationError("title", "is required")
	}
	return nil
}

func TestDecodeValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":""}`))
	rec := httptest.NewRecorder()
	var dst titled
	assert.False(t, Decode(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"ok"}`))
	rec = httptest.NewRecorder()
	assert.True(t, Decode(rec, req, &dst))
	assert.Equal(t, "ok", dst.Title)
}
