package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// PanelTimestampHeader carries the unix seconds the panel signed at.
	PanelTimestampHeader = "X-Panel-Timestamp"
	// PanelSignatureHeader carries hex(HMAC-SHA256(secret, timestamp + "\n" + body)).
	PanelSignatureHeader = "X-Panel-Signature"
)

// PanelSignatureMiddleware validates signed control-panel submissions.
type PanelSignatureMiddleware struct {
	Secret  []byte
	MaxSkew time.Duration
}

// NewPanelSignatureMiddleware constructs the middleware. A nil secret disables it.
func NewPanelSignatureMiddleware(secret []byte, maxSkew time.Duration) *PanelSignatureMiddleware {
	return &PanelSignatureMiddleware{Secret: secret, MaxSkew: maxSkew}
}

// Wrap enforces panel signature validation on POST requests.
func (m *PanelSignatureMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil || len(m.Secret) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		timestamp := strings.TrimSpace(r.Header.Get(PanelTimestampHeader))
		signature := strings.TrimSpace(r.Header.Get(PanelSignatureHeader))
		if timestamp == "" || signature == "" {
			http.Error(w, "missing panel signature", http.StatusUnauthorized)
			return
		}
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			http.Error(w, "invalid panel timestamp", http.StatusUnauthorized)
			return
		}
		skew := time.Since(time.Unix(ts, 0))
		if skew < 0 {
			skew = -skew
		}
		if m.MaxSkew > 0 && skew > m.MaxSkew {
			http.Error(w, "panel signature expired", http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read body error", http.StatusBadRequest)
			return
		}
		_ = r.Body.Close()

		expected := SignPanelPayload(m.Secret, timestamp, body)
		if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
			http.Error(w, "invalid panel signature", http.StatusUnauthorized)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// SignPanelPayload computes the signature a panel sends for body at timestamp.
func SignPanelPayload(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("\n"))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
