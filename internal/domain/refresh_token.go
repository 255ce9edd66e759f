package domain

import (
	"context"
	"time"
)

// RefreshToken 只存 TokenHash（SHA-256），原始值不落库；不物理删除（审计）
type RefreshToken struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"size:36;not null;index"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	Revoked   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
	UserAgent *string `gorm:"size:255"`
	IP        *string `gorm:"size:45"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (t *RefreshToken) Expired(now time.Time) bool { return !now.Before(t.ExpiresAt) }

func (t *RefreshToken) Valid(now time.Time) bool { return !t.Revoked && !t.Expired(now) }

// ClientMeta 签发时记录的客户端信息
type ClientMeta struct {
	UserAgent string
	IP        string
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, t *RefreshToken) error
	FindByDigest(ctx context.Context, digest string) (*RefreshToken, error)
	// Revoke 条件更新 revoked=false → true，返回是否本次完成吊销
	Revoke(ctx context.Context, id string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}
