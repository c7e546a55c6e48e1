package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestGate(t *testing.T, users map[string]string) (*Gate, *time.Time) {
	t.Helper()

	gate, err := NewGate(Config{
		Users:           users,
		TokenSecret:     []byte("test-secret"),
		TokenTTL:        time.Hour,
		MaxAttempts:     3,
		LockoutDuration: 15 * time.Minute,
	})
	require.NoError(t, err)

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return clock }
	gate.tokens.now = func() time.Time { return clock }

	return gate, &clock
}

func TestGate_DisabledWithoutUsers(t *testing.T) {
	gate, err := NewGate(Config{})
	require.NoError(t, err)

	assert.False(t, gate.Enabled())
	_, err = gate.Authorize("anything")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGate_RequiresSecretWhenUsersConfigured(t *testing.T) {
	_, err := NewGate(Config{Users: map[string]string{"ops": "pw"}, TokenTTL: time.Hour})
	assert.Error(t, err)
}

func TestGate_LoginWithPlainSecret(t *testing.T) {
	gate, clock := newTestGate(t, map[string]string{"ops": "correct horse"})

	result, err := gate.Login(context.Background(), "ops", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, clock.Add(time.Hour), result.ExpiresAt)

	claims, err := gate.Authorize(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.UserName)
}

func TestGate_LoginWithBcryptSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	gate, _ := newTestGate(t, map[string]string{"ops": string(hash)})

	_, err = gate.Login(context.Background(), "ops", "s3cret")
	assert.NoError(t, err)

	_, err = gate.Login(context.Background(), "ops", string(hash))
	var invalid *InvalidPasswordError
	assert.ErrorAs(t, err, &invalid, "the hash itself is not the password")
}

func TestGate_UnknownUser(t *testing.T) {
	gate, _ := newTestGate(t, map[string]string{"ops": "pw"})

	_, err := gate.Login(context.Background(), "mallory", "pw")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestGate_LocksAfterMaxAttempts(t *testing.T) {
	gate, clock := newTestGate(t, map[string]string{"ops": "pw"})
	ctx := context.Background()

	_, err := gate.Login(ctx, "ops", "nope")
	var invalid *InvalidPasswordError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 2, invalid.AttemptsRemaining)

	_, err = gate.Login(ctx, "ops", "nope")
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 1, invalid.AttemptsRemaining)

	_, err = gate.Login(ctx, "ops", "nope")
	assert.ErrorIs(t, err, ErrLocked)

	_, err = gate.Login(ctx, "ops", "pw")
	assert.ErrorIs(t, err, ErrLocked, "correct password is refused while locked")

	*clock = clock.Add(16 * time.Minute)
	_, err = gate.Login(ctx, "ops", "pw")
	assert.NoError(t, err)
}

func TestGate_SuccessResetsFailures(t *testing.T) {
	gate, _ := newTestGate(t, map[string]string{"ops": "pw"})
	ctx := context.Background()

	_, _ = gate.Login(ctx, "ops", "nope")
	_, _ = gate.Login(ctx, "ops", "nope")
	_, err := gate.Login(ctx, "ops", "pw")
	require.NoError(t, err)

	_, err = gate.Login(ctx, "ops", "nope")
	var invalid *InvalidPasswordError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, 2, invalid.AttemptsRemaining)
}

func TestTokenIssuer_RejectsExpiredAndForeignTokens(t *testing.T) {
	issuer, err := NewTokenIssuer([]byte("secret-a"), time.Minute)
	require.NoError(t, err)

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return clock }

	token, _, err := issuer.Issue("ops")
	require.NoError(t, err)

	other, err := NewTokenIssuer([]byte("secret-b"), time.Minute)
	require.NoError(t, err)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clock = clock.Add(2 * time.Minute)
	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gate, _ := newTestGate(t, map[string]string{"ops": "pw"})

	engine := gin.New()
	engine.GET("/private", RequireAdmin(gate), func(c *gin.Context) {
		c.String(http.StatusOK, ClaimsFromContext(c.Request.Context()).UserName)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	result, err := gate.Login(context.Background(), "ops", "pw")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops", w.Body.String())
}

func TestRequireAdmin_OpenWhenDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gate, err := NewGate(Config{})
	require.NoError(t, err)

	engine := gin.New()
	engine.GET("/private", RequireAdmin(gate), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
