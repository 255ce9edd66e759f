package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/domain"
)

// RoleService 角色按需创建 + 默认角色解析
type RoleService struct {
	store       domain.Store
	defaultRole string
	vocabulary  []string
}

// NewRoleService defaultRole / vocabulary 会先规范化；vocabulary 为空表示不限制
func NewRoleService(store domain.Store, defaultRole string, vocabulary []string) *RoleService {
	return &RoleService{
		store:       store,
		defaultRole: auth.NormaliseRole(defaultRole),
		vocabulary:  auth.NormaliseRoles(vocabulary),
	}
}

// Ensure 查找或创建；并发下唯一约束冲突时回读
func (s *RoleService) Ensure(ctx context.Context, name string) (*domain.Role, error) {
	repo := s.store.Roles()
	r, err := repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if r != nil {
		return r, nil
	}
	r = &domain.Role{Name: name}
	if err := repo.Create(ctx, r); err != nil {
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, err
		}
		r, err = repo.FindByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, fmt.Errorf("role %q vanished after duplicate insert", name)
		}
	}
	return r, nil
}

func (s *RoleService) EnsureAll(ctx context.Context, names []string) ([]domain.Role, error) {
	out := make([]domain.Role, 0, len(names))
	for _, n := range names {
		r, err := s.Ensure(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

// ResolveDefault 优先级：配置默认角色(已存在) → EMPLOYEE(已存在) → 任一已有角色 → 创建 EMPLOYEE
func (s *RoleService) ResolveDefault(ctx context.Context) (string, error) {
	repo := s.store.Roles()
	if s.defaultRole != "" {
		r, err := repo.FindByName(ctx, s.defaultRole)
		if err != nil {
			return "", err
		}
		if r != nil {
			return r.Name, nil
		}
	}
	names, err := repo.ListNames(ctx)
	if err != nil {
		return "", err
	}
	if slices.Contains(names, auth.RoleEmployee) {
		return auth.RoleEmployee, nil
	}
	if len(names) > 0 {
		return names[0], nil
	}
	if _, err := s.Ensure(ctx, auth.RoleEmployee); err != nil {
		return "", err
	}
	return auth.RoleEmployee, nil
}

// Canonical 规范化并校验一组角色名，任一非法即 ErrValidation
func (s *RoleService) Canonical(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		n := auth.NormaliseRole(v)
		if n == "" || !auth.ValidRoleName(n) {
			return nil, validationf("invalid role: %q", v)
		}
		if len(s.vocabulary) > 0 && !slices.Contains(s.vocabulary, n) {
			return nil, validationf("unknown role: %q", v)
		}
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out, nil
}
