package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/notify"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/ratelimit"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/relay"
	"github.com/yaronhayo/contractor-clone-craft-sub000/pkg/logging"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.EmailMessage
}

func (s *recordingSender) Send(_ context.Context, msg notify.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func newTestRouter(t *testing.T, adminSecret string) (http.Handler, *recordingSender) {
	t.Helper()

	logger := logging.Default()
	sender := &recordingSender{}
	limiter := ratelimit.NewMemoryLimiter(100, time.Minute)
	t.Cleanup(limiter.Close)

	handler := relay.NewHandler(relay.Config{
		FromEmail: "no-reply@example.com",
		ToEmail:   "leads@example.com",
	}, sender, nil, limiter, nil, logger)

	cfg := &Config{
		Logger:          logger,
		RelayHandler:    handler,
		AdminAuthSecret: adminSecret,
	}
	return New(cfg), sender
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterSendEmail(t *testing.T) {
	router, sender := newTestRouter(t, "")

	payload, _ := json.Marshal(map[string]string{
		"type":    "estimate_request",
		"name":    "Jane Doe",
		"phone":   "201-555-0100",
		"email":   "jane@example.com",
		"address": "1 Main St",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/send-email", bytes.NewReader(payload))
	req.RemoteAddr = "203.0.113.5:4321"
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sender.sent))
	}
}

func TestRouterSendEmailWrongMethod(t *testing.T) {
	router, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/send-email", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("method rejection should carry a JSON body: %v", err)
	}
	if resp["error"] == "" {
		t.Error("expected an error message in the body")
	}
}

func TestRouterAdminTestSendRequiresToken(t *testing.T) {
	router, sender := newTestRouter(t, "admin-secret")

	req := httptest.NewRequest(http.MethodPost, "/admin/test-send", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
	if len(sender.sent) != 0 {
		t.Fatal("unauthorized request must not dispatch")
	}
}

func TestRouterAdminTestSendWithToken(t *testing.T) {
	router, sender := newTestRouter(t, "admin-secret")

	claims := jwt.RegisteredClaims{
		Subject:   "operator",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("admin-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/test-send", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one test email, got %d", len(sender.sent))
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}
