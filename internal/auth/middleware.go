package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// StreamTokenPaths may carry the token as ?access_token= because browser
// EventSource clients cannot set headers.
var StreamTokenPaths = map[string]struct{}{"/alerts/stream": {}}

// Middleware validates JWTs and enforces RBAC.
type Middleware struct {
	Secret []byte
	Policy Policy
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{Secret: secret, Policy: policy}
}

// Wrap applies auth and RBAC to the handler. A middleware without a secret
// passes every request through.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil || len(m.Secret) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		required, ok := m.Policy.RequiredRole(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := ParseJWT(requestToken(r), m.Secret)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="plant-monitor"`)
			if !errors.Is(err, ErrUnauthorized) {
				err = ErrInvalidToken
			}
			writeAuthError(w, http.StatusUnauthorized, err)
			return
		}
		role, _ := NormalizeRole(claims.Role)
		if !RoleAtLeast(role, required) {
			writeAuthError(w, http.StatusForbidden, ErrForbidden)
			return
		}
		ctx := WithIdentity(r.Context(), role, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestToken(r *http.Request) string {
	if token := extractBearer(r); token != "" {
		return token
	}
	if r.Method == http.MethodGet {
		if _, ok := StreamTokenPaths[r.URL.Path]; ok {
			return strings.TrimSpace(r.URL.Query().Get("access_token"))
		}
	}
	return ""
}

func extractBearer(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func writeAuthError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
