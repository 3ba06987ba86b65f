package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "41.349", r.URL.Query().Get("lat"))
		assert.Equal(t, "69.240562", r.URL.Query().Get("lon"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"display_name":"12 Amir Temur Avenue, Tashkent"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	got := c.ReverseGeocode(context.Background(), 41.349, 69.240562)
	assert.Equal(t, "12 Amir Temur Avenue, Tashkent", got)
}

func TestReverseGeocode_FallsBackToPlaceholder(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
		{
			name: "empty display name",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"display_name":""}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New(srv.URL, time.Second)
			got := c.ReverseGeocode(context.Background(), 41.311081, 69.240562)
			assert.Equal(t, "41.31108, 69.24056", got)
		})
	}
}

func TestReverseGeocode_DisabledWithoutBaseURL(t *testing.T) {
	c := New("", time.Second)
	got := c.ReverseGeocode(context.Background(), 41.311081, 69.240562)
	assert.Equal(t, "41.31108, 69.24056", got)
}

func TestReverseGeocode_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close()

	c := New(srv.URL, 100*time.Millisecond)
	got := c.ReverseGeocode(context.Background(), 41.311081, 69.240562)
	assert.Equal(t, "41.31108, 69.24056", got)
}
