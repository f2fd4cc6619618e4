package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apostol-ai/agent-backend/internal/config"
	"github.com/apostol-ai/agent-backend/internal/entity"
)

func newTestManager(ttl time.Duration) *Manager {
	return NewManager(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: ttl})
}

func TestHashAndCheckPassword(t *testing.T) {
	m := newTestManager(time.Hour)

	hash, err := m.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, m.CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, m.CheckPassword(hash, "wrong password"))
}

func TestIssueAndParseToken(t *testing.T) {
	m := newTestManager(time.Hour)

	token, err := m.IssueToken("user-123")
	require.NoError(t, err)

	userID, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestParseToken_Invalid(t *testing.T) {
	m := newTestManager(time.Hour)

	_, err := m.ParseToken("not-a-token")
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)

	// Token signed with a different secret.
	other := NewManager(config.AuthConfig{JWTSecret: "other-secret", TokenTTL: time.Hour})
	token, err := other.IssueToken("user-123")
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)
}

func TestParseToken_Expired(t *testing.T) {
	m := newTestManager(-time.Minute)

	token, err := m.IssueToken("user-123")
	require.NoError(t, err)

	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, entity.ErrInvalidCredentials)
}
