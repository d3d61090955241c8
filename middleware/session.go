package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CookieName = "anoto_session"
	SessionTTL = 30 * 24 * time.Hour
)

type ctxKey int

const sessionKey ctxKey = 1

// Sessions issues and verifies anonymous session tokens. A session is a
// random UUID signed into an HS256 JWT; it carries no personal data.
type Sessions struct {
	secret []byte
	logger *zap.Logger
	now    func() time.Time
}

func NewSessions(secret string, logger *zap.Logger) *Sessions {
	return &Sessions{secret: []byte(secret), logger: logger, now: time.Now}
}

// Issue creates a new session and its signed token.
func (s *Sessions) Issue() (id, token string, expiresAt time.Time, err error) {
	id = uuid.NewString()
	expiresAt = s.now().Add(SessionTTL)
	claims := jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("middleware: sign session: %w", err)
	}
	return id, token, expiresAt, nil
}

// Parse verifies a token and returns its session id.
func (s *Sessions) Parse(tokenStr string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", fmt.Errorf("middleware: bad session subject: %w", err)
	}
	return claims.Subject, nil
}

// SetCookie stores the token in an HttpOnly cookie.
func (s *Sessions) SetCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// tokenFrom reads a Bearer token, falling back to the session cookie.
func tokenFrom(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return "", false
		}
		return tokenStr, true
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// RequireSession rejects requests without a valid session with 401.
func (s *Sessions) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, ok := tokenFrom(r)
		if !ok {
			http.Error(w, "Session missing", http.StatusUnauthorized)
			return
		}
		id, err := s.Parse(tokenStr)
		if err != nil {
			s.logger.Debug("session rejected", zap.Error(err))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), id)))
	})
}

// OptionalSession attaches the session when a valid one is presented and
// otherwise lets the request through untouched.
func (s *Sessions) OptionalSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenStr, ok := tokenFrom(r); ok {
			if id, err := s.Parse(tokenStr); err == nil {
				r = r.WithContext(WithSession(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

func SessionFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey).(string)
	return id, ok && id != ""
}
