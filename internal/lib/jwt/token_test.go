package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-0123456789abcdef"

func newTestMaker(t *testing.T, secret string, ttl time.Duration) *HMACMaker {
	t.Helper()
	m, err := NewMaker(secret, ttl)
	require.NoError(t, err)
	return m
}

func TestNewMaker_WeakSecret(t *testing.T) {
	m, err := NewMaker("short", time.Hour)
	assert.ErrorIs(t, err, ErrWeakSecret)
	assert.Nil(t, m)
}

func TestHMACMaker_RoundTrip(t *testing.T) {
	maker := newTestMaker(t, testSecret, 15*time.Minute)

	tests := []struct {
		name   string
		userID string
		email  string
		role   string
	}{
		{name: "founder", userID: "550e8400-e29b-41d4-a716-446655440000", email: "founder@example.com", role: "founder"},
		{name: "talent", userID: "u-talent", email: "talent@example.com", role: "talent"},
		{name: "finance admin", userID: "u-fin", email: "fin@example.com", role: "finance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.userID, tt.email, tt.role)
			require.NoError(t, err)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, tt.userID, claims.UserID)
			assert.Equal(t, tt.userID, claims.Subject)
			assert.Equal(t, tt.email, claims.Email)
			assert.Equal(t, tt.role, claims.Role)
			assert.Equal(t, Issuer, claims.Issuer)
			assert.Equal(t, jwt.ClaimStrings{Audience}, claims.Audience)
			assert.NotEmpty(t, claims.ID)
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestHMACMaker_UniqueIDs(t *testing.T) {
	maker := newTestMaker(t, testSecret, time.Hour)
	first, err := maker.GenerateToken("u1", "u1@example.com", "founder")
	require.NoError(t, err)
	second, err := maker.GenerateToken("u1", "u1@example.com", "founder")
	require.NoError(t, err)

	a, err := maker.ParseToken(first)
	require.NoError(t, err)
	b, err := maker.ParseToken(second)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestHMACMaker_Leeway(t *testing.T) {
	maker := newTestMaker(t, testSecret, time.Minute)
	issued := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	maker.now = func() time.Time { return issued }
	token, err := maker.GenerateToken("u1", "u1@example.com", "founder")
	require.NoError(t, err)

	maker.now = func() time.Time { return issued.Add(time.Minute + 10*time.Second) }
	_, err = maker.ParseToken(token)
	assert.NoError(t, err)

	maker.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = maker.ParseToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestHMACMaker_RejectsInvalidTokens(t *testing.T) {
	maker := newTestMaker(t, testSecret, 15*time.Minute)

	valid, err := maker.GenerateToken("u1", "u1@example.com", "founder")
	require.NoError(t, err)
	expired, err := newTestMaker(t, testSecret, -time.Hour).GenerateToken("u1", "u1@example.com", "founder")
	require.NoError(t, err)
	wrongSecret, err := newTestMaker(t, "another-secret-key-0123456789abc", 15*time.Minute).GenerateToken("u1", "u1@example.com", "founder")
	require.NoError(t, err)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u1",
		Role:   "founder",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   Issuer,
			Audience: jwt.ClaimStrings{Audience},
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "expired token", token: expired},
		{name: "wrong secret key", token: wrongSecret},
		{name: "tampered token", token: valid + "tampered"},
		{name: "foreign issuer", token: foreign},
		{name: "missing expiry", token: noExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}
