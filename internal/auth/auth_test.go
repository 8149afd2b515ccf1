package auth

import (
	"testing"
	"time"

	"github.com/betterbench/betterbench/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	hash, err := HashPassword("park-life")
	require.NoError(t, err)
	return NewService(hash, "test-secret", ttl)
}

func TestLoginAndVerify(t *testing.T) {
	s := newTestService(t, time.Hour)

	token, err := s.Login("park-life")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, s.Verify(token))
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newTestService(t, time.Hour)

	_, err := s.Login("wrong")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestVerify_Garbage(t *testing.T) {
	s := newTestService(t, time.Hour)
	assert.ErrorIs(t, s.Verify("not.a.token"), common.ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	s := newTestService(t, -time.Minute)

	token, err := s.Login("park-life")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Verify(token), common.ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	s := newTestService(t, time.Hour)
	token, err := s.Login("park-life")
	require.NoError(t, err)

	other := NewService("", "different-secret", time.Hour)
	assert.ErrorIs(t, other.Verify(token), common.ErrInvalidToken)
}
