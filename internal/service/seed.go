package service

import (
	"context"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/domain"
)

// SuperAdmin 初始超级管理员账号
type SuperAdmin struct {
	Email    string
	Password string
	FullName string
}

type SeedResult struct {
	Roles   []string
	Admin   *domain.UserView
	Created bool // false 表示已有账号，仅追加 SUPER-ADMIN
}

// Seed 可重复执行：保证核心角色存在；admin 非空时创建账号，已存在则只追加 SUPER-ADMIN（不改密码）
func (s *UserService) Seed(ctx context.Context, admin *SuperAdmin) (SeedResult, error) {
	roles, err := s.Roles.EnsureAll(ctx, auth.CoreRoles)
	if err != nil {
		return SeedResult{}, err
	}
	res := SeedResult{Roles: make([]string, 0, len(roles))}
	for _, r := range roles {
		res.Roles = append(res.Roles, r.Name)
	}
	if admin == nil {
		return res, nil
	}

	u, err := s.Store.Users().FindByEmail(ctx, normaliseEmail(admin.Email))
	if err != nil {
		return SeedResult{}, err
	}
	if u == nil {
		v, err := createAccount(ctx, &s.Deps, RegisterInput{
			Email:    admin.Email,
			Password: admin.Password,
			FullName: admin.FullName,
		}, auth.RoleSuperAdmin, nil)
		if err != nil {
			return SeedResult{}, err
		}
		res.Admin, res.Created = &v, true
		return res, nil
	}

	want, err := s.Roles.EnsureAll(ctx, auth.NormaliseRoles(append(u.RoleNames(), auth.RoleSuperAdmin)))
	if err != nil {
		return SeedResult{}, err
	}
	ids := make([]uint, 0, len(want))
	for _, r := range want {
		ids = append(ids, r.ID)
	}
	if err := s.Store.Transaction(ctx, func(tx domain.Store) error {
		return tx.Users().ReplaceRoles(ctx, u.ID, ids)
	}); err != nil {
		return SeedResult{}, err
	}
	s.invalidate(ctx, u.ID)
	v, err := s.reload(ctx, u.ID)
	if err != nil {
		return SeedResult{}, err
	}
	res.Admin = &v
	return res, nil
}
