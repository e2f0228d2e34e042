package platform

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenRefreshMargin renews a token shortly before it expires
const tokenRefreshMargin = time.Minute

// Identity is who the platform token is issued for. An admin token is used
// by the template generator; the console acts as a single customer.
type Identity struct {
	CustomerID   string
	CustomerName string
	Admin        bool
}

// TokenSource issues HS512 platform tokens signed with the workspace secret
// and caches them until shortly before they expire.
type TokenSource struct {
	workspaceKey string
	secret       []byte
	identity     Identity
	ttl          time.Duration
	now          func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource creates a token source for the workspace.
func NewTokenSource(workspaceKey, workspaceSecret string, identity Identity, ttl time.Duration) (*TokenSource, error) {
	if workspaceKey == "" || workspaceSecret == "" {
		return nil, fmt.Errorf("workspace key and secret are required")
	}
	if !identity.Admin && identity.CustomerID == "" {
		return nil, fmt.Errorf("customer id is required for non-admin tokens")
	}
	if ttl <= tokenRefreshMargin {
		return nil, fmt.Errorf("token ttl must be longer than %v", tokenRefreshMargin)
	}
	return &TokenSource{
		workspaceKey: workspaceKey,
		secret:       []byte(workspaceSecret),
		identity:     identity,
		ttl:          ttl,
		now:          time.Now,
	}, nil
}

// Token returns a valid token, signing a new one when the cached token is
// about to expire.
func (s *TokenSource) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(tokenRefreshMargin).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"iss": s.workspaceKey,
		"iat": now.Unix(),
		"exp": expires.Unix(),
	}
	if s.identity.Admin {
		claims["isAdmin"] = true
	} else {
		claims["id"] = s.identity.CustomerID
		claims["name"] = s.identity.CustomerName
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign platform token: %w", err)
	}
	s.token = signed
	s.expires = expires
	return signed, nil
}
