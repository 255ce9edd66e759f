package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/domain"
	"hrms-backend/internal/service"
)

func TestRefreshManager_RotateInvalidatesOld(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{})
	v := f.register(t, "emp@x.com", "pw")
	m := service.NewRefreshManager(&auth.RefreshTokens{TTL: time.Hour}, f.clock.Now)
	repo := f.store.RefreshTokens()

	oldRaw, rec, err := m.Issue(ctx, repo, v.UserID, domain.ClientMeta{})
	require.NoError(t, err)
	assert.Nil(t, rec.UserAgent)
	assert.True(t, rec.ExpiresAt.Equal(f.clock.Now().Add(time.Hour)))

	got, err := m.Validate(ctx, repo, oldRaw)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	newRaw, next, err := m.Rotate(ctx, f.store, got, domain.ClientMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, v.UserID, next.UserID)

	_, err = m.Validate(ctx, repo, oldRaw)
	assert.ErrorIs(t, err, service.ErrInvalidRefreshToken)

	fresh, err := m.Validate(ctx, repo, newRaw)
	require.NoError(t, err)
	assert.Equal(t, v.UserID, fresh.UserID)

	// 旧记录已吊销，再次轮换必须失败且不产生新 token
	_, _, err = m.Rotate(ctx, f.store, got, domain.ClientMeta{})
	assert.ErrorIs(t, err, service.ErrInvalidRefreshToken)
	assert.EqualValues(t, 2, f.countTokens(t))
}

func TestRefreshManager_Expiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fixtureOpts{})
	v := f.register(t, "emp@x.com", "pw")
	m := service.NewRefreshManager(&auth.RefreshTokens{TTL: time.Hour}, f.clock.Now)

	raw, _, err := m.Issue(ctx, f.store.RefreshTokens(), v.UserID, domain.ClientMeta{})
	require.NoError(t, err)

	f.clock.Advance(59 * time.Minute)
	_, err = m.Validate(ctx, f.store.RefreshTokens(), raw)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = m.Validate(ctx, f.store.RefreshTokens(), raw)
	assert.ErrorIs(t, err, service.ErrRefreshExpired)

	_, err = m.Validate(ctx, f.store.RefreshTokens(), "")
	assert.ErrorIs(t, err, service.ErrInvalidRefreshToken)
}
