package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the name of the session cookie.
const CookieName = "flowmind_session"

// ErrUnauthenticated is returned when a request carries no valid session:
// missing cookie, bad signature, or expired token.
var ErrUnauthenticated = errors.New("not authenticated")

// Session is the authenticated state attached to a request.
type Session struct {
	Username  string
	FullName  string
	ExpiresAt time.Time
}

// Sessions issues and validates session cookies. Sessions are stateless:
// the username, display name, and absolute expiry live in a signed HS256
// token, so terminating a session is clearing the cookie and expiry is
// enforced by signature-checked claims rather than server-side state.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions creates a session manager with the given signing secret and TTL.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

type sessionClaims struct {
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// Establish sets a session cookie for the identity with expiry = now + TTL.
// Re-authenticating while already authenticated simply overwrites the cookie.
func (s *Sessions) Establish(w http.ResponseWriter, identity Identity) error {
	now := s.now().UTC()
	exp := now.Add(s.ttl)

	claims := sessionClaims{
		FullName: identity.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Terminate clears the session cookie unconditionally.
func (s *Sessions) Terminate(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Require validates the session cookie on a request. It returns
// ErrUnauthenticated for a missing cookie, an invalid signature, or an
// expired token; every protected operation goes through this guard.
func (s *Sessions) Require(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Session{}, ErrUnauthenticated
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return Session{}, ErrUnauthenticated
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return Session{}, ErrUnauthenticated
	}

	return Session{
		Username:  claims.Subject,
		FullName:  claims.FullName,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
