package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"whatsapp-telegram-bridge/internal/infra/logging"
)

const webhookIssuer = "whatsapp-telegram-bridge"

// WebhookAuth mints and checks the per-instance token the gateway echoes back
// as "Authorization: Bearer <token>" on every webhook call. A zero value
// (empty secret) disables both.
type WebhookAuth struct {
	secret []byte
	log    *zerolog.Logger
}

func NewWebhookAuth(secret string, logger *zerolog.Logger) *WebhookAuth {
	l := logger.With().Str("component", "WebhookAuth").Logger()
	return &WebhookAuth{secret: []byte(secret), log: &l}
}

func (a *WebhookAuth) Enabled() bool { return a != nil && len(a.secret) > 0 }

// Issue returns an HS256 token bound to instanceID. Tokens do not expire;
// rotating the secret invalidates all of them.
func (a *WebhookAuth) Issue(instanceID int64) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	claims := jwt.RegisteredClaims{
		Issuer:   webhookIssuer,
		Subject:  strconv.FormatInt(instanceID, 10),
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses tok and returns the instance id it was minted for.
func (a *WebhookAuth) Verify(tok string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(webhookIssuer))
	if err != nil || !parsed.Valid {
		return 0, errors.New("invalid token")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid subject")
	}
	return id, nil
}

type ctxKey int

const authInstanceKey ctxKey = iota

// authInstanceFrom returns the instance id proven by the bearer token, if any.
func authInstanceFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(authInstanceKey).(int64)
	return id, ok
}

// Middleware rejects requests without a valid bearer token with 401.
func (a *WebhookAuth) Middleware(next http.Handler) http.Handler {
	if !a.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := r.Header.Get("Authorization")
		if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			return
		}
		id, err := a.Verify(strings.TrimSpace(hdr[7:]))
		if err != nil {
			l := logging.With(r.Context(), a.log)
			l.Warn().Err(err).Msg("webhook token rejected")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		ctx := context.WithValue(r.Context(), authInstanceKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
