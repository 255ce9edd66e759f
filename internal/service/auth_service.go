package service

import (
	"context"
	"errors"
	"net/mail"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/domain"
)

// bcrypt 只处理前 72 字节，超出部分直接拒绝
const maxPasswordBytes = 72

// AuthService 注册、登录、刷新、注销与请求认证
type AuthService struct {
	Deps
	publicRoles []string

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService publicRoles 为自助注册时允许自选的角色，空表示一律使用默认角色
func NewAuthService(d Deps, publicRoles []string) *AuthService {
	d.defaults()
	return &AuthService{Deps: d, publicRoles: auth.NormaliseRoles(publicRoles)}
}

type RegisterInput struct {
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	FullName     string  `json:"full_name"`
	ProfilePhoto *string `json:"profile_photo"`
	Role         string  `json:"role"`
}

// Register 创建账号，不签发任何 token
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (domain.UserView, error) {
	roleName := ""
	if strings.TrimSpace(in.Role) != "" {
		n := auth.NormaliseRole(in.Role)
		if !slices.Contains(s.publicRoles, n) {
			s.record("register", "rejected")
			return domain.UserView{}, validationf("role %q cannot be self-assigned", in.Role)
		}
		roleName = n
	}
	v, err := createAccount(ctx, &s.Deps, in, roleName, nil)
	if err != nil {
		s.record("register", "error")
		return domain.UserView{}, err
	}
	s.record("register", "ok")
	s.publish(ctx, EventUserRegistered, UserEvent{UserID: v.UserID, Email: v.Email, Roles: v.Roles, At: s.Now().UTC()})
	return v, nil
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login 未知邮箱 / 密码错误 / 账号停用统一返回 ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta domain.ClientMeta) (domain.TokenPair, error) {
	email := normaliseEmail(in.Email)
	if email == "" || in.Password == "" {
		return domain.TokenPair{}, validationf("email and password are required")
	}
	u, err := s.Store.Users().FindByEmail(ctx, email)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if u == nil {
		// 抹平时间差，避免枚举邮箱
		_, _ = s.Hasher.Verify(in.Password, s.dummyDigest())
		s.record("login", "invalid_credentials")
		return domain.TokenPair{}, ErrInvalidCredentials
	}
	ok, err := s.Hasher.Verify(in.Password, u.PasswordHash)
	if err != nil {
		s.Log.Error("stored password digest unreadable", zap.String("user_id", u.ID), zap.Error(err))
	}
	if !ok || !u.IsActive {
		s.record("login", "invalid_credentials")
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	now := s.Now().UTC()
	if err := s.Store.Users().TouchLastActive(ctx, u.ID, now); err != nil {
		return domain.TokenPair{}, err
	}
	u.LastActive = &now

	access, _, err := s.JWT.Issue(u.ID, u.RoleNames())
	if err != nil {
		return domain.TokenPair{}, err
	}
	raw, _, err := s.Refresh.Issue(ctx, s.Store.RefreshTokens(), u.ID, meta)
	if err != nil {
		return domain.TokenPair{}, err
	}
	s.invalidate(ctx, u.ID)
	s.record("login", "ok")
	s.publish(ctx, EventUserLogin, UserEvent{UserID: u.ID, Email: u.Email, Roles: u.RoleNames(), At: now})
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "bearer",
		User:         domain.NewUserView(u),
	}, nil
}

// RefreshSession 轮换 refresh token 并按当前角色重新签发 access token
func (s *AuthService) RefreshSession(ctx context.Context, raw string, meta domain.ClientMeta) (domain.TokenPair, error) {
	if raw == "" {
		return domain.TokenPair{}, ErrUnauthenticated
	}
	rec, err := s.Refresh.Validate(ctx, s.Store.RefreshTokens(), raw)
	if err != nil {
		return domain.TokenPair{}, s.refreshFailure(err)
	}
	u, err := s.Store.Users().FindByID(ctx, rec.UserID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if u == nil || !u.IsActive {
		s.record("refresh", "inactive")
		return domain.TokenPair{}, ErrUnauthenticated
	}

	next, _, err := s.Refresh.Rotate(ctx, s.Store, rec, meta)
	if err != nil {
		return domain.TokenPair{}, s.refreshFailure(err)
	}
	// 轮换成功后才算活跃
	now := s.Now().UTC()
	if err := s.Store.Users().TouchLastActive(ctx, u.ID, now); err != nil {
		return domain.TokenPair{}, err
	}
	u.LastActive = &now

	access, _, err := s.JWT.Issue(u.ID, u.RoleNames())
	if err != nil {
		return domain.TokenPair{}, err
	}
	s.invalidate(ctx, u.ID)
	s.record("refresh", "ok")
	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: next,
		TokenType:    "bearer",
		User:         domain.NewUserView(u),
	}, nil
}

func (s *AuthService) refreshFailure(err error) error {
	switch {
	case errors.Is(err, ErrRefreshExpired):
		s.record("refresh", "expired")
		return ErrUnauthenticated
	case errors.Is(err, ErrInvalidRefreshToken):
		s.record("refresh", "invalid")
		return ErrUnauthenticated
	}
	return err
}

// Logout all=true 时吊销 userID 名下全部 token，否则只吊销给出的 token
func (s *AuthService) Logout(ctx context.Context, raw, userID string, all bool) (int64, error) {
	repo := s.Store.RefreshTokens()
	if all {
		if userID == "" {
			return 0, ErrUnauthenticated
		}
		n, err := repo.RevokeAllForUser(ctx, userID)
		if err != nil {
			return 0, err
		}
		s.record("logout", "all")
		return n, nil
	}
	if raw == "" {
		return 0, validationf("refresh_token is required")
	}
	rec, err := repo.FindByDigest(ctx, auth.DigestRefresh(raw))
	if err != nil {
		return 0, err
	}
	if rec == nil || (userID != "" && rec.UserID != userID) {
		return 0, ErrUnauthenticated
	}
	ok, err := repo.Revoke(ctx, rec.ID)
	if err != nil {
		return 0, err
	}
	s.record("logout", "ok")
	if ok {
		return 1, nil
	}
	return 0, nil
}

// Authenticate 校验 access token，并确认用户仍存在且启用；返回的用户带当前角色
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.JWT.Verify(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	u, err := s.Store.Users().FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

// Authorize 当前角色与 allowed 无交集则 ErrForbidden；allowed 为空一律拒绝
func Authorize(u *domain.User, allowed ...string) error {
	if u == nil {
		return ErrUnauthenticated
	}
	if !auth.HasAnyRole(u.RoleNames(), allowed) {
		return ErrForbidden
	}
	return nil
}

func (s *AuthService) dummyDigest() string {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash("timing-equaliser")
		if err != nil {
			s.Log.Warn("build dummy digest", zap.Error(err))
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func normaliseEmail(v string) string { return strings.ToLower(strings.TrimSpace(v)) }

func validateAccountInput(in RegisterInput) (RegisterInput, error) {
	in.Email = normaliseEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	switch {
	case in.Email == "":
		return in, validationf("email is required")
	case in.Password == "":
		return in, validationf("password is required")
	case in.FullName == "":
		return in, validationf("full_name is required")
	case len(in.Password) > maxPasswordBytes:
		return in, validationf("password must be at most %d bytes", maxPasswordBytes)
	}
	if a, err := mail.ParseAddress(in.Email); err != nil || a.Address != in.Email {
		return in, validationf("invalid email %q", in.Email)
	}
	return in, nil
}

// createAccount 校验 → 查重 → 哈希 → 确保角色存在 → 事务内建用户、员工档案并关联角色；
// roleName 为空使用默认角色，emp 为 nil 不建档案
func createAccount(ctx context.Context, d *Deps, in RegisterInput, roleName string, emp *domain.Employee) (domain.UserView, error) {
	in, err := validateAccountInput(in)
	if err != nil {
		return domain.UserView{}, err
	}
	existing, err := d.Store.Users().FindByEmail(ctx, in.Email)
	if err != nil {
		return domain.UserView{}, err
	}
	if existing != nil {
		return domain.UserView{}, conflictf("email already registered")
	}
	if roleName == "" {
		if roleName, err = d.Roles.ResolveDefault(ctx); err != nil {
			return domain.UserView{}, err
		}
	}
	role, err := d.Roles.Ensure(ctx, roleName)
	if err != nil {
		return domain.UserView{}, err
	}
	digest, err := d.Hasher.Hash(in.Password)
	if err != nil {
		return domain.UserView{}, err
	}

	u := &domain.User{
		Email:        in.Email,
		PasswordHash: digest,
		FullName:     in.FullName,
		ProfilePhoto: in.ProfilePhoto,
		IsActive:     true,
	}
	err = d.Store.Transaction(ctx, func(tx domain.Store) error {
		if err := tx.Users().Create(ctx, u); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return conflictf("email already registered")
			}
			return err
		}
		if emp != nil {
			emp.UserID = u.ID
			if err := tx.Users().CreateEmployee(ctx, emp); err != nil {
				if errors.Is(err, domain.ErrDuplicate) {
					return conflictf("employee_id or aadhar_no already exists")
				}
				return err
			}
		}
		return tx.Users().ReplaceRoles(ctx, u.ID, []uint{role.ID})
	})
	if err != nil {
		return domain.UserView{}, err
	}
	u.Roles = []domain.Role{*role}
	u.Employee = emp
	return domain.NewUserView(u), nil
}
