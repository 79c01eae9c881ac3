package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

func testIdentity() Identity {
	return Identity{UserID: "u-1", Email: "a@b.com", Name: "Y", CompanyName: "X"}
}

func TestTokenService_IssueAndParse(t *testing.T) {
	svc := NewTokenService(testSecret, 24*time.Hour, "bookkeeping", nil)

	token, expiresAt, err := svc.Issue(testIdentity())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, testIdentity(), claims.Identity)
	assert.Equal(t, "u-1", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_Errors(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour, "bookkeeping", nil)
	token, _, err := svc.Issue(testIdentity())
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := NewTokenService(testSecret, time.Hour, "bookkeeping", nil)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService("another-secret-another-secret-00", time.Hour, "bookkeeping", nil)
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenService_Revoke(t *testing.T) {
	ctx := context.Background()
	svc := NewTokenService(testSecret, time.Hour, "bookkeeping", NewInMemoryTokenBlacklist())

	token, _, err := svc.Issue(testIdentity())
	require.NoError(t, err)

	claims, err := svc.Verify(ctx, token)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, claims))
	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrRevokedToken)

	// a fresh token for the same user is unaffected
	fresh, _, err := svc.Issue(testIdentity())
	require.NoError(t, err)
	_, err = svc.Verify(ctx, fresh)
	assert.NoError(t, err)
}

func TestTokenService_RevokeAll(t *testing.T) {
	ctx := context.Background()
	t0 := time.Now()
	bl := NewInMemoryTokenBlacklist()
	svc := NewTokenService(testSecret, time.Hour, "bookkeeping", bl)
	svc.now = func() time.Time { return t0 }

	old, _, err := svc.Issue(testIdentity())
	require.NoError(t, err)

	bl.now = func() time.Time { return t0.Add(2 * time.Second) }
	require.NoError(t, svc.RevokeAll(ctx, "u-1"))

	_, err = svc.Verify(ctx, old)
	assert.ErrorIs(t, err, ErrRevokedToken)

	svc.now = func() time.Time { return t0.Add(2 * time.Second) }
	newer, _, err := svc.Issue(testIdentity())
	require.NoError(t, err)
	_, err = svc.Verify(ctx, newer)
	assert.NoError(t, err)
}

func TestInMemoryTokenBlacklist_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	bl := NewInMemoryTokenBlacklist()
	bl.now = func() time.Time { return now }

	require.NoError(t, bl.AddToBlacklist(ctx, "jti-1", time.Minute))
	ok, err := bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	bl.now = func() time.Time { return now.Add(2 * time.Minute) }
	ok, err = bl.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, bl.AddToBlacklist(ctx, "jti-2", time.Minute))
	assert.NotContains(t, bl.jtis, "jti-1", "expired entries are pruned on write")
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("123456")
	require.NoError(t, err)
	assert.NotEqual(t, "123456", hash)

	ok, err := CheckPassword(hash, "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-hash", "123456")
	assert.Error(t, err)
}
