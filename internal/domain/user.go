package domain

import (
	"context"
	"time"
)

type User struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Email         string     `gorm:"uniqueIndex;size:191;not null" json:"email"`
	PasswordHash  string     `gorm:"size:100;not null" json:"-"`
	FullName      string     `gorm:"size:255;not null" json:"fullName"`
	ProfilePhoto  *string    `gorm:"type:text" json:"profilePhoto"`
	IsActive      bool       `gorm:"not null;default:true" json:"isActive"`
	EmailVerified bool       `gorm:"not null;default:false" json:"emailVerified"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	LastActive    *time.Time `json:"lastActive"`
	Roles         []Role     `gorm:"many2many:user_roles;constraint:OnDelete:CASCADE" json:"roles"`
	Employee      *Employee  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"employee,omitempty"`
}

func (User) TableName() string { return "users" }

// RoleNames 当前角色快照（用于签发 access token）
func (u *User) RoleNames() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Name)
	}
	return out
}

// UserPatch 可修改字段，nil 表示不改；PasswordHash 只由改密流程写入
type UserPatch struct {
	FullName     *string
	ProfilePhoto *string
	IsActive     *bool
	PasswordHash *string
}

// UserFilter q 模糊匹配 email / full_name；EmployeeID 精确匹配
type UserFilter struct {
	Q          string
	EmployeeID string
}

// UserRepository 未找到时返回 (nil, nil)；查询结果带 Roles 和 Employee
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	// CreateEmployee 员工档案，唯一键冲突返回 ErrDuplicate
	CreateEmployee(ctx context.Context, e *Employee) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, f UserFilter, offset, limit int) ([]User, int64, error)
	Patch(ctx context.Context, id string, p UserPatch) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	ReplaceRoles(ctx context.Context, userID string, roleIDs []uint) error
}
