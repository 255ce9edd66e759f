package repo

import (
	"context"

	"gorm.io/gorm"

	"hrms-backend/internal/domain"
)

// Store gorm 实现；事务内的 Store 共享同一个 tx
type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Users() domain.UserRepository                  { return NewUserRepo(s.db) }
func (s *Store) Roles() domain.RoleRepository                  { return NewRoleRepo(s.db) }
func (s *Store) RefreshTokens() domain.RefreshTokenRepository { return NewTokenRepo(s.db) }

// DB 底层连接（迁移 / 测试用）
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Transaction(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Migrate 建表（users → employees → roles → user_roles → refresh_tokens）
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&domain.User{}, "Roles", &domain.UserRole{}); err != nil {
		return err
	}
	return db.AutoMigrate(
		&domain.User{},
		&domain.Employee{},
		&domain.Role{},
		&domain.UserRole{},
		&domain.RefreshToken{},
	)
}
