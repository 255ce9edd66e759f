package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/domain"
)

// EventPublisher 认证事件出口（AMQP）；失败只记日志
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Metrics 认证相关计数
type Metrics interface {
	AuthEvent(op, result string)
}

// Deps 进程启动时构造一次，之后只读
type Deps struct {
	Store   domain.Store
	Hasher  *auth.Hasher
	JWT     *auth.JWTer
	Refresh *RefreshManager
	Roles   *RoleService
	Cache   ViewCache      // 可为 nil
	Events  EventPublisher // 可为 nil
	Metrics Metrics        // 可为 nil
	Log     *zap.Logger
	Now     func() time.Time
}

func (d *Deps) defaults() {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
}

func (d *Deps) publish(ctx context.Context, key string, payload any) {
	if d.Events == nil {
		return
	}
	if err := d.Events.Publish(ctx, key, payload); err != nil {
		d.Log.Warn("publish event failed", zap.String("event", key), zap.Error(err))
	}
}

func (d *Deps) record(op, result string) {
	if d.Metrics != nil {
		d.Metrics.AuthEvent(op, result)
	}
}

func (d *Deps) invalidate(ctx context.Context, userID string) {
	if d.Cache != nil {
		d.Cache.Invalidate(ctx, userID)
	}
}

// UserEvent 事件负载
type UserEvent struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Roles  []string  `json:"roles"`
	At     time.Time `json:"at"`
}

const (
	EventUserRegistered      = "user.registered"
	EventUserLogin           = "user.login"
	EventUserRolesAssigned   = "user.roles_assigned"
	EventUserPasswordChanged = "user.password_changed"
)
