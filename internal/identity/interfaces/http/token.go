package identityhttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	apihttp "plant-monitor/internal/api/http"
	"plant-monitor/internal/apperrors"
	"plant-monitor/internal/auth"
	identity "plant-monitor/internal/identity/domain"
)

const (
	maxBodyBytes    = 1 << 14
	defaultTokenTTL = 12 * time.Hour
)

// Authenticator checks user credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*identity.User, error)
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Role        string `json:"role"`
}

// TokenHandler serves POST /auth/token, exchanging email and password for a bearer token.
type TokenHandler struct {
	users  Authenticator
	secret []byte
	ttl    time.Duration
	logger *log.Logger
}

// NewTokenHandler constructs the handler. A zero ttl uses 12h.
func NewTokenHandler(users Authenticator, secret []byte, ttl time.Duration, logger *log.Logger) (*TokenHandler, error) {
	if users == nil {
		return nil, errors.New("token handler: nil authenticator")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TokenHandler{users: users, secret: secret, ttl: ttl, logger: logger}, nil
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if len(h.secret) == 0 {
		apihttp.WriteError(w, http.StatusServiceUnavailable, "token issuing disabled")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		apihttp.WriteError(w, http.StatusBadRequest, "read body error")
		return
	}
	var req tokenRequest
	if err := json.Unmarshal(body, &req); err != nil {
		apihttp.RespondError(w, h.logger, "auth: token", apperrors.Invalidf("invalid json: %v", err))
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="plant-monitor"`)
		apihttp.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		apihttp.RespondError(w, h.logger, "auth: token", err)
		return
	}
	role, ok := auth.NormalizeRole(user.RoleName)
	if !ok {
		apihttp.WriteError(w, http.StatusForbidden, "auth: role "+strconv.Quote(user.RoleName)+" cannot sign in")
		return
	}

	token, err := auth.IssueToken(h.secret, strconv.FormatInt(user.ID, 10), role, h.ttl)
	if err != nil {
		apihttp.RespondError(w, h.logger, "auth: token", err)
		return
	}
	h.logger.Printf("auth: issued %s token for user %d", role, user.ID)
	apihttp.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.ttl / time.Second),
		Role:        string(role),
	})
}
