// Package csrf implements the double-submit cookie guard. Nothing is stored
// server side: a request is valid when its header token equals its cookie.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

// HeaderName carries the token echoed by the client.
const HeaderName = "X-CSRF-Token"

const (
	defaultCookieName = "csrf_token"
	defaultMaxAge     = time.Hour
	tokenBytes        = 32
)

// Token is an opaque anti-forgery value.
type Token string

// Guard issues and validates tokens.
type Guard struct {
	cookieName string
	maxAge     time.Duration
	random     func([]byte) (int, error)
}

type Option func(*Guard)

func WithCookieName(name string) Option {
	return func(g *Guard) {
		if name != "" {
			g.cookieName = name
		}
	}
}

func WithMaxAge(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.maxAge = d
		}
	}
}

// WithRandom replaces the entropy source. Tests use it to force failures.
func WithRandom(r func([]byte) (int, error)) Option {
	return func(g *Guard) {
		g.random = r
	}
}

func New(opts ...Option) *Guard {
	g := &Guard{
		cookieName: defaultCookieName,
		maxAge:     defaultMaxAge,
		random:     rand.Read,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CookieName returns the name of the cookie half of the pair.
func (g *Guard) CookieName() string {
	return g.cookieName
}

// Issue generates a fresh 256-bit token and the cookie that carries it.
func (g *Guard) Issue() (Token, *http.Cookie, error) {
	buf := make([]byte, tokenBytes)
	if _, err := g.random(buf); err != nil {
		return "", nil, fmt.Errorf("generate csrf token: %w", err)
	}
	token := Token(base64.RawURLEncoding.EncodeToString(buf))
	return token, &http.Cookie{
		Name:     g.cookieName,
		Value:    string(token),
		Path:     "/",
		MaxAge:   int(g.maxAge.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// Validate requires both halves to be present and identical.
func (g *Guard) Validate(headerToken, cookieToken string) bool {
	if headerToken == "" || cookieToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(headerToken), []byte(cookieToken)) == 1
}

// ValidateRequest reads the header and cookie halves from r.
func (g *Guard) ValidateRequest(r *http.Request) bool {
	var cookieToken string
	if c, err := r.Cookie(g.cookieName); err == nil {
		cookieToken = c.Value
	}
	return g.Validate(r.Header.Get(HeaderName), cookieToken)
}
