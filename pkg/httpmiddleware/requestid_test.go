package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	var ctxID string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	echoed := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, echoed)
	assert.Equal(t, echoed, ctxID)

	_, err := uuid.Parse(echoed)
	assert.NoError(t, err)
}

func TestRequestID_ReusesValidHeader(t *testing.T) {
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "trace-1234")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "trace-1234", rec.Header().Get("X-Request-ID"))
}

func TestRequestID_ReplacesInvalidHeader(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "control characters", id: "bad\nid"},
		{name: "too long", id: strings.Repeat("x", 129)},
		{name: "non ascii", id: "идентификатор"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", tt.id)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get("X-Request-ID")
			assert.NotEqual(t, tt.id, got)
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}
