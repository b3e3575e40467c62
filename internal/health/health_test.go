package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/navroute/internal/router"
)

func fixed(status Status) CheckFunc {
	return func() Check { return Check{Status: status} }
}

func TestChecker_Health(t *testing.T) {
	t.Parallel()

	c := NewChecker("1.2.3")
	start := c.startTime
	c.now = func() time.Time { return start.Add(90 * time.Second) }

	resp := c.Health()
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "1m30s", resp.Uptime)
}

func TestChecker_Readiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   Status
	}{
		{name: "no checks", want: StatusHealthy},
		{
			name:   "all healthy",
			checks: map[string]CheckFunc{"a": fixed(StatusHealthy), "b": fixed(StatusHealthy)},
			want:   StatusHealthy,
		},
		{
			name:   "degraded",
			checks: map[string]CheckFunc{"a": fixed(StatusHealthy), "b": fixed(StatusDegraded)},
			want:   StatusDegraded,
		},
		{
			name:   "unhealthy wins",
			checks: map[string]CheckFunc{"a": fixed(StatusUnhealthy), "b": fixed(StatusDegraded)},
			want:   StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("test")
			for name, fn := range tt.checks {
				c.RegisterCheck(name, fn)
			}

			resp := c.Readiness()
			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
		})
	}
}

func TestChecker_RegisterUnregister(t *testing.T) {
	t.Parallel()

	c := NewChecker("test")
	c.RegisterCheck("b", fixed(StatusHealthy))
	c.RegisterCheck("a", fixed(StatusUnhealthy))
	assert.Equal(t, []string{"a", "b"}, c.Names())

	c.UnregisterCheck("a")
	assert.Equal(t, []string{"b"}, c.Names())
	assert.Equal(t, StatusHealthy, c.Readiness().Status)
}

func TestChecker_Handlers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		check      Status
		wantCode   int
		wantStatus Status
	}{
		{name: "health", path: "/health", check: StatusUnhealthy, wantCode: http.StatusOK, wantStatus: StatusHealthy},
		{name: "ready", path: "/ready", check: StatusHealthy, wantCode: http.StatusOK, wantStatus: StatusHealthy},
		{name: "ready degraded", path: "/ready", check: StatusDegraded, wantCode: http.StatusOK, wantStatus: StatusDegraded},
		{name: "not ready", path: "/ready", check: StatusUnhealthy, wantCode: http.StatusServiceUnavailable, wantStatus: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("test")
			c.RegisterCheck("x", fixed(tt.check))
			mux := http.NewServeMux()
			c.Register(mux)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body struct {
				Status Status `json:"status"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
		})
	}
}

func TestRouterCheck(t *testing.T) {
	t.Parallel()

	r := router.New(router.WithRoot(""))
	r.Add("/a", func(context.Context, router.Params, string) {})
	check := RouterCheck(r)

	got := check()
	assert.Equal(t, StatusHealthy, got.Status)
	assert.Equal(t, "1 routes", got.Message)

	r.Pause(true)
	assert.Equal(t, StatusDegraded, check().Status)

	r.Pause(false)
	assert.Equal(t, StatusHealthy, check().Status)

	r.Destroy()
	got = check()
	assert.Equal(t, StatusUnhealthy, got.Status)
	assert.Equal(t, "destroyed", got.Message)
}

func TestReloadTracker(t *testing.T) {
	t.Parallel()

	var tracker ReloadTracker
	assert.Equal(t, StatusHealthy, tracker.Check().Status)

	tracker.Observe(errors.New("routes[0].path: path cannot be empty"))
	got := tracker.Check()
	assert.Equal(t, StatusDegraded, got.Status)
	assert.Contains(t, got.Message, "routes[0].path")

	tracker.Observe(nil)
	assert.Equal(t, StatusHealthy, tracker.Check().Status)
}
