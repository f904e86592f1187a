package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	secret := []byte("test-secret")
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))
	handler := mw.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/alerts/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthMiddleware_RejectionIsJSON(t *testing.T) {
	mw := NewMiddleware([]byte("test-secret"), NewDefaultPolicy(nil, nil))
	handler := mw.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/plants/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if resp.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate challenge")
	}
	if !strings.Contains(resp.Body.String(), `"error":"auth: invalid token"`) {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}
}

func TestAuthMiddleware_StreamAcceptsQueryToken(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "viewer")
	handler := NewMiddleware(secret, NewDefaultPolicy(nil, nil)).Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/alerts/stream?access_token="+token, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/alerts/?access_token="+token, nil)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("query token outside the stream should be ignored, got %d", resp.Code)
	}
}

func TestAuthMiddleware_ExemptHealth(t *testing.T) {
	mw := NewMiddleware([]byte("test-secret"), NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil))
	handler := mw.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestAuthMiddleware_DisabledWithoutSecret(t *testing.T) {
	mw := NewMiddleware(nil, NewDefaultPolicy(nil, nil))
	handler := mw.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodDelete, "/plants/1", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected guard to be disabled, got %d", resp.Code)
	}
}

func TestAuthMiddleware_ViewerForbiddenCapture(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "viewer")
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))
	handler := mw.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/control-panel-data/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestAuthMiddleware_OperatorForbiddenUserAdmin(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "operator")
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))
	handler := mw.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/auth-users/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestAuthMiddleware_OperatorCreatesAlert(t *testing.T) {
	secret := []byte("test-secret")
	token, err := IssueToken(secret, "user-7", RoleOperator, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))
	var subject string
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = SubjectFromContext(r.Context())
		if RoleFromContext(r.Context()) != RoleOperator {
			t.Errorf("role not propagated")
		}
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/alerts/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	if subject != "user-7" {
		t.Fatalf("expected subject user-7, got %q", subject)
	}
}

func TestPolicyAuditLogsNeedAdmin(t *testing.T) {
	policy := NewDefaultPolicy(nil, nil)
	role, ok := policy.RequiredRole(httptest.NewRequest(http.MethodGet, "/audit-logs/", nil))
	if !ok || role != RoleAdmin {
		t.Fatalf("expected admin for audit reads, got %q", role)
	}
	role, _ = policy.RequiredRole(httptest.NewRequest(http.MethodGet, "/lines/", nil))
	if role != RoleViewer {
		t.Fatalf("expected viewer for line reads, got %q", role)
	}
}

func TestNormalizeRoleIgnoresCase(t *testing.T) {
	role, ok := NormalizeRole(" Admin ")
	if !ok || role != RoleAdmin {
		t.Fatalf("expected admin, got %q %v", role, ok)
	}
}

func TestPanelSignatureMiddleware(t *testing.T) {
	secret := []byte("panel-secret")
	mw := NewPanelSignatureMiddleware(secret, time.Minute)
	handler := mw.Wrap(okHandler())

	body := `{"Vry": 230}`
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/control-panel-data/", strings.NewReader(body))
	req.Header.Set(PanelTimestampHeader, ts)
	req.Header.Set(PanelSignatureHeader, SignPanelPayload(secret, ts, []byte(body)))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/control-panel-data/", strings.NewReader(body))
	req.Header.Set(PanelTimestampHeader, ts)
	req.Header.Set(PanelSignatureHeader, "deadbeef")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func mustToken(t *testing.T, secret []byte, role string) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
