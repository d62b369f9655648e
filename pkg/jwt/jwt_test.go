package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, expiresAt, err := m.GenerateToken(7, "alice@example.com", "Tenant", 7)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.AccountID)
	assert.Equal(t, "Tenant", claims.Role)
	assert.Equal(t, uint(7), claims.TenantID)
	assert.Equal(t, "Tenant:7", claims.Subject)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	token, _, err := NewJWTManager("one", time.Hour).GenerateToken(1, "admin", "Admin", 0)
	require.NoError(t, err)

	_, err = NewJWTManager("two", time.Hour).VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute)
	token, _, err := m.GenerateToken(1, "admin", "Admin", 0)
	require.NoError(t, err)

	_, err = m.VerifyToken(token)
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 2*time.Hour, ParseDuration("2h"))
	assert.Equal(t, 24*time.Hour, ParseDuration("7d"))
	assert.Equal(t, 24*time.Hour, ParseDuration("-1h"))
}
