// Package authn is the local view of the external sign-in provider: who is
// signed in, whether that is known yet, and how to obtain a bearer token.
package authn

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSignedOut is returned by Token when no user is signed in.
var ErrSignedOut = errors.New("no signed-in user")

// Session is consumed by the sync engine. UserID is "" when signed out; both
// answers are meaningless until Loaded reports true.
type Session interface {
	Loaded() bool
	UserID() string
	Token(ctx context.Context) (string, error)
}

// TokenFunc fetches a fresh bearer credential for userID.
type TokenFunc func(ctx context.Context, userID string) (string, error)

// State is a mutable Session driven by sign-in callbacks.
type State struct {
	mu     sync.RWMutex
	loaded bool
	userID string
	token  TokenFunc
}

// NewState returns a session that is not loaded yet.
func NewState(token TokenFunc) *State {
	return &State{token: token}
}

// Static returns a loaded session for userID ("" means signed out).
func Static(userID string, token TokenFunc) *State {
	s := NewState(token)
	s.SignIn(userID)
	return s
}

func (s *State) SignIn(userID string) {
	s.mu.Lock()
	s.loaded = true
	s.userID = strings.TrimSpace(userID)
	s.mu.Unlock()
}

func (s *State) SignOut() {
	s.SignIn("")
}

func (s *State) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *State) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *State) Token(ctx context.Context) (string, error) {
	s.mu.RLock()
	user, fn := s.userID, s.token
	s.mu.RUnlock()
	if user == "" {
		return "", ErrSignedOut
	}
	if fn == nil {
		return "", nil
	}
	return fn(ctx, user)
}

type Claims struct {
	jwt.RegisteredClaims
}

// Mint signs an HS256 token whose subject is userID.
func Mint(secret, userID string, ttl time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id required")
	}
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verify checks an HS256 token and returns its subject.
func Verify(secret, token string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("subject claim required")
	}
	return claims.Subject, nil
}

// MintingTokens returns a TokenFunc that signs a short-lived token per call.
func MintingTokens(secret string, ttl time.Duration) TokenFunc {
	return func(_ context.Context, userID string) (string, error) {
		return Mint(secret, userID, ttl, time.Now())
	}
}
