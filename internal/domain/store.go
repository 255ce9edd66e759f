package domain

import (
	"context"
	"errors"
)

// ErrDuplicate 唯一约束冲突（email / role name / token digest）
var ErrDuplicate = errors.New("duplicate key")

// Store 聚合各仓储；Transaction 内的 Store 绑定同一事务
type Store interface {
	Users() UserRepository
	Roles() RoleRepository
	RefreshTokens() RefreshTokenRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
