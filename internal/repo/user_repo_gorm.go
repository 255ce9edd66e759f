package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hrms-backend/internal/domain"
	"hrms-backend/pkg/utils"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Roles", func(db *gorm.DB) *gorm.DB {
		return db.Order("roles.id")
	}).Preload("Employee")
}

// likeEscaper LIKE 通配符按字面匹配；MySQL 下 '\' 需要转义，统一用 '!'
var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error)
}

func (r *UserRepo) CreateEmployee(ctx context.Context, e *domain.Employee) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.withRelations(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.withRelations(ctx).First(&u, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context, f domain.UserFilter, offset, limit int) ([]domain.User, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if s := strings.TrimSpace(f.Q); s != "" {
			like := "%" + likeEscaper.Replace(s) + "%"
			db = db.Where("(email LIKE ? ESCAPE '!' OR full_name LIKE ? ESCAPE '!')", like, like)
		}
		if id := strings.TrimSpace(f.EmployeeID); id != "" {
			db = db.Where("id IN (?)", r.db.Model(&domain.Employee{}).Select("user_id").Where("employee_id = ?", id))
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []domain.User
	err := r.withRelations(ctx).Scopes(scope).
		Order("created_at desc").Order("id").
		Offset(offset).Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepo) Patch(ctx context.Context, id string, p domain.UserPatch) error {
	fields := map[string]any{}
	if p.FullName != nil {
		fields["full_name"] = *p.FullName
	}
	if p.ProfilePhoto != nil {
		fields["profile_photo"] = *p.ProfilePhoto
	}
	if p.IsActive != nil {
		fields["is_active"] = *p.IsActive
	}
	if p.PasswordHash != nil {
		fields["password_hash"] = *p.PasswordHash
	}
	if len(fields) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *UserRepo) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("last_active", at).Error
}

// ReplaceRoles 整体替换：先删旧关联再插入新集合（调用方负责事务）
func (r *UserRepo) ReplaceRoles(ctx context.Context, userID string, roleIDs []uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("user_id = ?", userID).Delete(&domain.UserRole{}).Error; err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return nil
	}
	rows := make([]domain.UserRole, 0, len(roleIDs))
	for _, id := range roleIDs {
		rows = append(rows, domain.UserRole{UserID: userID, RoleID: id})
	}
	return translate(db.Create(&rows).Error)
}
