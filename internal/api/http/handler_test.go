package apiHttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vibe-gaming/account-recovery/internal/config"
	"github.com/vibe-gaming/account-recovery/internal/service"
)

type allowAllCSRF struct{}

func (allowAllCSRF) IsValid(*http.Request) bool { return true }

func (allowAllCSRF) Issue() (string, time.Duration, error) { return "token", time.Hour, nil }

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Limiter = config.Limiter{RPS: 100, Burst: 100, TTL: time.Minute}
	cfg.HttpServer.CORSOrigins = []string{"https://app.example.com"}
	return cfg
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return NewHandlers(&service.Services{}, allowAllCSRF{}, cfg).Init(ctx, cfg)
}

func TestHealth(t *testing.T) {
	cfg := newTestConfig()
	router := newTestRouter(t, cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestCORS_Preflight(t *testing.T) {
	cfg := newTestConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/password-reset/start", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type,X-CSRF-Token")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_UnknownOriginRejected(t *testing.T) {
	cfg := newTestConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
