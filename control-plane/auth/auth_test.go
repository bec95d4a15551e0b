package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type passwords map[string]string

func (p passwords) Password(_ context.Context, name string) (string, error) {
	pw, ok := p[name]
	if !ok {
		return "", errors.New("no such tenant")
	}
	return pw, nil
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, IsHash(hash))

	assert.True(t, VerifyPassword(hash, "s3cret"))
	assert.False(t, VerifyPassword(hash, "wrong"))
	assert.True(t, VerifyPassword("plain", "plain"))
	assert.False(t, VerifyPassword("plain", "plain "))
	assert.False(t, IsHash("plain"))
}

func TestCheckPassword(t *testing.T) {
	a := New(passwords{"alice": "pw"}, "", 0)
	ctx := context.Background()
	assert.NoError(t, a.CheckPassword(ctx, "alice", "pw"))
	assert.ErrorIs(t, a.CheckPassword(ctx, "alice", "nope"), ErrInvalidCredentials)
	assert.ErrorIs(t, a.CheckPassword(ctx, "mallory", "pw"), ErrInvalidCredentials)
	assert.ErrorIs(t, a.CheckPassword(ctx, "", ""), ErrInvalidCredentials)
}

func TestTokens(t *testing.T) {
	a := New(passwords{}, "signing-key", time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	token, expires, err := a.IssueToken("alice")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expires)

	name, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	other := New(passwords{}, "other-key", time.Hour)
	other.now = a.now
	_, err = other.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	a.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = a.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokensDisabled(t *testing.T) {
	a := New(passwords{}, "", time.Hour)
	assert.False(t, a.TokensEnabled())
	_, _, err := a.IssueToken("alice")
	assert.ErrorIs(t, err, ErrTokensDisabled)
	_, err = a.VerifyToken("x")
	assert.ErrorIs(t, err, ErrTokensDisabled)
}
