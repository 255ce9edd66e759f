package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/domain"
)

// RefreshManager refresh token 生命周期：签发、校验、轮换
type RefreshManager struct {
	tokens *auth.RefreshTokens
	now    func() time.Time
}

func NewRefreshManager(tokens *auth.RefreshTokens, now func() time.Time) *RefreshManager {
	if now == nil {
		now = time.Now
	}
	return &RefreshManager{tokens: tokens, now: now}
}

// Issue 生成并落库（只存摘要），返回原始值
func (m *RefreshManager) Issue(ctx context.Context, repo domain.RefreshTokenRepository, userID string, meta domain.ClientMeta) (string, *domain.RefreshToken, error) {
	issued, err := m.tokens.Issue()
	if err != nil {
		return "", nil, err
	}
	rec := &domain.RefreshToken{
		UserID:    userID,
		TokenHash: issued.Digest,
		ExpiresAt: m.tokens.Expiry(m.now()),
		UserAgent: clip(meta.UserAgent, 255),
		IP:        clip(meta.IP, 45),
	}
	if err := repo.Create(ctx, rec); err != nil {
		return "", nil, fmt.Errorf("store refresh token: %w", err)
	}
	return issued.Raw, rec, nil
}

// Validate 未找到/已吊销 → ErrInvalidRefreshToken；过期 → ErrRefreshExpired
func (m *RefreshManager) Validate(ctx context.Context, repo domain.RefreshTokenRepository, raw string) (*domain.RefreshToken, error) {
	if raw == "" {
		return nil, ErrInvalidRefreshToken
	}
	rec, err := repo.FindByDigest(ctx, auth.DigestRefresh(raw))
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.Revoked {
		return nil, ErrInvalidRefreshToken
	}
	if rec.Expired(m.now()) {
		return nil, ErrRefreshExpired
	}
	return rec, nil
}

// Rotate 吊销旧 token 并签发新 token，同一事务；
// 旧 token 已被并发使用时返回 ErrInvalidRefreshToken 且不签发新 token
func (m *RefreshManager) Rotate(ctx context.Context, store domain.Store, rec *domain.RefreshToken, meta domain.ClientMeta) (string, *domain.RefreshToken, error) {
	var (
		raw  string
		next *domain.RefreshToken
	)
	err := store.Transaction(ctx, func(tx domain.Store) error {
		ok, err := tx.RefreshTokens().Revoke(ctx, rec.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidRefreshToken
		}
		raw, next, err = m.Issue(ctx, tx.RefreshTokens(), rec.UserID, meta)
		return err
	})
	if err != nil {
		return "", nil, err
	}
	rec.Revoked = true
	return raw, next, nil
}

func clip(s string, n int) *string {
	if s == "" {
		return nil
	}
	if len(s) > n {
		// 回退到 rune 起始字节，避免截出非法 UTF-8
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	return &s
}
