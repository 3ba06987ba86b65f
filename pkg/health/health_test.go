package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passingCheck() CheckFunc {
	return func(_ context.Context) error {
		return nil
	}
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error {
		return errors.New(msg)
	}
}

func decodeProbe(t *testing.T, w *httptest.ResponseRecorder) probeResult {
	t.Helper()

	var body probeResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("check1", time.Second, passingCheck())
	h.AddLivenessCheck("check2", time.Second, passingCheck())

	// Checks start healthy by default.
	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeProbe(t, w).Status)
}

func TestLiveEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failingCheck("connection refused"))

	// Drive the check past the failure threshold so it flips to unhealthy.
	ctx := context.Background()
	h.liveness[0].run(ctx)
	h.liveness[0].run(ctx)
	h.liveness[0].run(ctx)

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := decodeProbe(t, w)
	assert.Equal(t, "unavailable", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestLiveEndpoint_FailureBelowThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("flaky", time.Second, failingCheck("temporary"))

	// Two failures, threshold is three. Still healthy.
	ctx := context.Background()
	h.liveness[0].run(ctx)
	h.liveness[0].run(ctx)

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyEndpoint_Gate(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passingCheck())

	// Not ready until SetReady(true), regardless of check results.
	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h.SetReady(true)

	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadyEndpoint_FailingCheck(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, failingCheck("dial timeout"))
	h.SetReady(true)

	ctx := context.Background()
	for range defaultFailureThreshold {
		h.readiness[0].run(ctx)
	}

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCheckRecovery(t *testing.T) {
	calls := 0
	flaky := func(_ context.Context) error {
		calls++
		if calls <= defaultFailureThreshold {
			return errors.New("still starting")
		}
		return nil
	}

	h := New()
	h.AddLivenessCheck("warmup", time.Second, flaky)

	ctx := context.Background()
	c := h.liveness[0]
	for range defaultFailureThreshold {
		c.run(ctx)
	}
	assert.False(t, c.healthy.Load())

	// One success is enough to recover.
	c.run(ctx)
	assert.True(t, c.healthy.Load())
}

func TestStartRunsChecksImmediately(t *testing.T) {
	done := make(chan struct{})
	var once bool

	h := New()
	h.AddLivenessCheck("probe", time.Second, func(_ context.Context) error {
		if !once {
			once = true
			close(done)
		}
		return nil
	})

	h.Start(context.Background(), time.Hour)
	defer h.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("check did not run on Start")
	}
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
