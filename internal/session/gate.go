// Package session implements the demo authentication gate.
// Any non-empty username/password pair is admitted; the decision is kept in a
// client-side cookie holding the serialized {username}.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vilaca/branch-dashboard/internal/domain"
)

// ErrMalformedToken is returned when a cookie value cannot be decoded into a session.
var ErrMalformedToken = errors.New("malformed session token")

// DefaultTTL is the lifetime of the session cookie.
const DefaultTTL = 7 * 24 * time.Hour

// Options configures a Gate.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Gate admits users and hydrates sessions from the request cookie.
// It keeps no server-side state; the cookie is the session.
type Gate struct {
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     *slog.Logger
}

// NewGate creates a gate. Empty options fall back to cookie "user" and DefaultTTL.
func NewGate(opts Options, logger *slog.Logger) *Gate {
	if opts.CookieName == "" {
		opts.CookieName = "user"
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		logger:     logger,
	}
}

// CookieName returns the name of the persisted session cookie.
func (g *Gate) CookieName() string {
	return g.cookieName
}

// Login admits the user iff both fields are non-empty and persists the session cookie.
// On failure nothing is written.
func (g *Gate) Login(w http.ResponseWriter, username, password string) (domain.Session, bool) {
	if username == "" || password == "" {
		return domain.Anonymous, false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    EncodeToken(username),
		Path:     "/",
		MaxAge:   int(g.ttl.Seconds()),
		Expires:  time.Now().Add(g.ttl),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return domain.Session{Authenticated: true, Username: username}, true
}

// Logout removes the session cookie unconditionally.
func (g *Gate) Logout(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Hydrate reads the session from the request cookie.
// A missing or malformed cookie yields the anonymous session.
func (g *Gate) Hydrate(r *http.Request) domain.Session {
	c, err := r.Cookie(g.cookieName)
	if err != nil {
		return domain.Anonymous
	}

	username, err := DecodeToken(c.Value)
	if err != nil {
		g.logger.Debug("ignoring session cookie", "error", err)
		return domain.Anonymous
	}

	return domain.Session{Authenticated: true, Username: username}
}

// Require admits only authenticated requests and stores the session in the context.
// Browsers are redirected to /login; API and websocket callers get 401.
func (g *Gate) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := g.Hydrate(r)
		if !s.Authenticated {
			if wantsJSON(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"authentication required"}`))
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		r.URL.Path == "/ws" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

type token struct {
	Username string `json:"username"`
}

// EncodeToken serializes {username} into an opaque cookie-safe value.
func EncodeToken(username string) string {
	data, _ := json.Marshal(token{Username: username})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeToken is the inverse of EncodeToken.
func DecodeToken(value string) (string, error) {
	if value == "" {
		return "", fmt.Errorf("%w: empty", ErrMalformedToken)
	}
	data, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	var t token
	if err := json.Unmarshal(data, &t); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if t.Username == "" {
		return "", fmt.Errorf("%w: empty username", ErrMalformedToken)
	}
	return t.Username, nil
}

type sessionCtxKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s domain.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// FromContext returns the session stored by Require, or the anonymous session.
func FromContext(ctx context.Context) domain.Session {
	s, ok := ctx.Value(sessionCtxKey{}).(domain.Session)
	if !ok {
		return domain.Anonymous
	}
	return s
}
