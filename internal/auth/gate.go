package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnknownUser = errors.New("unknown admin user")
	ErrLocked      = errors.New("admin user is locked")
)

// InvalidPasswordError is returned for a wrong password while attempts remain.
type InvalidPasswordError struct {
	AttemptsRemaining int
}

func (e *InvalidPasswordError) Error() string {
	return fmt.Sprintf("invalid password, %d attempts remaining", e.AttemptsRemaining)
}

type Config struct {
	// Users maps a user name to its secret. A secret starting with "$2" is a bcrypt hash.
	Users           map[string]string
	TokenSecret     []byte
	TokenTTL        time.Duration
	MaxAttempts     int
	LockoutDuration time.Duration
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type attemptState struct {
	failures    int
	lockedUntil time.Time
}

// Gate checks admin credentials and locks a user out after repeated failures.
// Lockout state lives in process memory and resets on restart.
type Gate struct {
	users       map[string]string
	tokens      *TokenIssuer
	maxAttempts int
	lockout     time.Duration
	now         func() time.Time

	mu       sync.Mutex
	attempts map[string]*attemptState
}

// NewGate returns a disabled gate when cfg has no users.
func NewGate(cfg Config) (*Gate, error) {
	g := &Gate{
		users:       make(map[string]string, len(cfg.Users)),
		maxAttempts: cfg.MaxAttempts,
		lockout:     cfg.LockoutDuration,
		now:         time.Now,
		attempts:    make(map[string]*attemptState),
	}

	for name, secret := range cfg.Users {
		name = strings.TrimSpace(name)
		if name == "" || secret == "" {
			return nil, fmt.Errorf("admin user %q has an empty name or secret", name)
		}
		g.users[name] = secret
	}

	if len(g.users) == 0 {
		return g, nil
	}

	if g.maxAttempts <= 0 {
		g.maxAttempts = 3
	}
	if g.lockout <= 0 {
		g.lockout = 15 * time.Minute
	}

	tokens, err := NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	g.tokens = tokens

	return g, nil
}

// Enabled reports whether admin users are configured. A disabled gate lets every request through.
func (g *Gate) Enabled() bool {
	return g != nil && len(g.users) > 0
}

func (g *Gate) MaxAttempts() int {
	return g.maxAttempts
}

func (g *Gate) Login(_ context.Context, userName, password string) (*LoginResult, error) {
	secret, ok := g.users[userName]
	if !ok {
		return nil, ErrUnknownUser
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	state := g.attempts[userName]
	if state == nil {
		state = &attemptState{}
		g.attempts[userName] = state
	}

	if now.Before(state.lockedUntil) {
		return nil, ErrLocked
	}

	if !verifySecret(secret, password) {
		state.failures++
		if state.failures >= g.maxAttempts {
			state.failures = 0
			state.lockedUntil = now.Add(g.lockout)
			return nil, ErrLocked
		}
		return nil, &InvalidPasswordError{AttemptsRemaining: g.maxAttempts - state.failures}
	}

	delete(g.attempts, userName)

	token, expiresAt, err := g.tokens.Issue(userName)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt}, nil
}

func (g *Gate) Authorize(token string) (*Claims, error) {
	if !g.Enabled() {
		return nil, ErrInvalidToken
	}

	claims, err := g.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	if _, ok := g.users[claims.UserName]; !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func verifySecret(secret, password string) bool {
	if strings.HasPrefix(secret, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(secret), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(password)) == 1
}
