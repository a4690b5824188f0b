package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutbox struct {
	pending, dead int64
	err           error
}

func (f fakeOutbox) Pending(context.Context) (int64, error)     { return f.pending, f.err }
func (f fakeOutbox) DeadLetters(context.Context) (int64, error) { return f.dead, f.err }

func getHealth(t *testing.T, h http.HandlerFunc) (int, HealthStatus) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var hs HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hs))
	return rec.Code, hs
}

func TestHealthReportsRedisAndOutbox(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	hc := NewHealthChecker(nil, rc, fakeOutbox{pending: 4})
	code, hs := getHealth(t, hc.HandleHealth)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", hs.Status)
	assert.Equal(t, "not_configured", hs.Checks["database"].Status)
	assert.Equal(t, "up", hs.Checks["redis"].Status)
	assert.Equal(t, "up", hs.Checks["outbox"].Status)
	assert.Equal(t, "4 pending", hs.Checks["outbox"].Message)
}

func TestHealthDeadLettersDegrade(t *testing.T) {
	hc := NewHealthChecker(nil, nil, fakeOutbox{pending: 1, dead: 2})
	_, hs := getHealth(t, hc.HandleHealth)

	assert.Equal(t, "degraded", hs.Status)
	assert.Equal(t, "degraded", hs.Checks["outbox"].Status)
	assert.Equal(t, "1 pending, 2 dead-lettered writes", hs.Checks["outbox"].Message)
}

func TestReadinessFailsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rc.Close() })
	mr.Close()

	hc := NewHealthChecker(nil, rc, nil)
	rec := httptest.NewRecorder()
	hc.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["ready"])
	assert.Equal(t, "unhealthy", body["status"])
}

func TestCustomProbe(t *testing.T) {
	hc := &HealthChecker{startTime: time.Now()}
	hc.Add(Probe{Name: "llm", Timeout: time.Second, Check: func(context.Context) (string, error) {
		return "", errors.New("no api key")
	}})
	_, hs := getHealth(t, hc.HandleHealth)
	assert.Equal(t, "unhealthy", hs.Status)
	assert.Equal(t, "no api key", hs.Checks["llm"].Message)
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0m 5s", formatUptime(5*time.Second))
	assert.Equal(t, "2h 3m 0s", formatUptime(2*time.Hour+3*time.Minute))
	assert.Equal(t, "1d 1h 0m 0s", formatUptime(25*time.Hour))
}
