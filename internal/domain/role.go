package domain

import "context"

type Role struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:50;not null" json:"name"`
}

func (Role) TableName() string { return "roles" }

// UserRole 多对多关联行
type UserRole struct {
	UserID string `gorm:"primaryKey;size:36"`
	RoleID uint   `gorm:"primaryKey"`
}

func (UserRole) TableName() string { return "user_roles" }

type RoleRepository interface {
	FindByName(ctx context.Context, name string) (*Role, error)
	Create(ctx context.Context, r *Role) error
	// ListNames 按创建顺序
	ListNames(ctx context.Context) ([]string, error)
}
