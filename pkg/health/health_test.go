package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct {
	fail atomic.Bool
}

func (p *pinger) Ping(context.Context) error {
	if p.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func serve(t *testing.T, fn http.HandlerFunc) (int, response) {
	t.Helper()
	w := httptest.NewRecorder()
	fn(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var resp response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return w.Code, resp
}

func TestReadyEndpoint_ManualFlag(t *testing.T) {
	h := New()

	code, resp := serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, resp.Checks, "_readiness")

	h.SetReady(true)
	code, resp = serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
}

func TestCheck_FailureThreshold(t *testing.T) {
	p := &pinger{}
	p.fail.Store(true)
	c := newCheck("postgres", time.Second, PingCheck(p))
	ctx := context.Background()

	for range FailureThreshold - 1 {
		c.run(ctx)
		_, failed := c.failure()
		assert.False(t, failed)
	}
	c.run(ctx)
	msg, failed := c.failure()
	require.True(t, failed)
	assert.Contains(t, msg, "connection refused")

	p.fail.Store(false)
	c.run(ctx)
	_, failed = c.failure()
	assert.False(t, failed)
}

func TestHealth_StartRunsChecks(t *testing.T) {
	p := &pinger{}
	p.fail.Store(true)

	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("postgres", time.Second, PingCheck(p))
	h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(1_000_000))
	h.Start(context.Background(), 5*time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)
	code, resp := serve(t, h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, resp.Checks, "postgres")

	code, _ = serve(t, h.LiveEndpoint)
	assert.Equal(t, http.StatusOK, code)

	p.fail.Store(false)
	require.Eventually(t, h.IsReady, time.Second, 5*time.Millisecond)
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}

func TestPingCheck(t *testing.T) {
	p := &pinger{}
	check := PingCheck(p)
	ctx := context.Background()

	require.NoError(t, check(ctx))

	p.fail.Store(true)
	err := check(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping")
	assert.Contains(t, err.Error(), "connection refused")
}
