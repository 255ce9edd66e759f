package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"hrms-backend/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// UserService 管理端用户操作与本人资料
type UserService struct {
	Deps
}

func NewUserService(d Deps) *UserService {
	d.defaults()
	return &UserService{Deps: d}
}

// EmployeeInput 管理端建号时随请求体平铺提交的员工档案字段
type EmployeeInput struct {
	EmployeeID   string `json:"employee_id"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	FathersName  string `json:"fathers_name"`
	AadharNo     string `json:"aadhar_no"`
	DateOfBirth  string `json:"date_of_birth"`
	WorkPosition string `json:"work_position"`
}

type CreateUserInput struct {
	RegisterInput
	EmployeeInput
}

// employee 全部为空返回 nil；出现任一字段则七项必填，出生日期为 YYYY-MM-DD
func (in EmployeeInput) employee() (*domain.Employee, error) {
	fields := []struct{ name, value string }{
		{"employee_id", in.EmployeeID},
		{"phone", in.Phone},
		{"address", in.Address},
		{"fathers_name", in.FathersName},
		{"aadhar_no", in.AadharNo},
		{"date_of_birth", in.DateOfBirth},
		{"work_position", in.WorkPosition},
	}
	var missing []string
	for i := range fields {
		fields[i].value = strings.TrimSpace(fields[i].value)
		if fields[i].value == "" {
			missing = append(missing, fields[i].name)
		}
	}
	if len(missing) == len(fields) {
		return nil, nil
	}
	if len(missing) > 0 {
		return nil, validationf("missing fields: %s", strings.Join(missing, ", "))
	}
	if _, err := time.Parse(time.DateOnly, fields[5].value); err != nil {
		return nil, validationf("date_of_birth must be YYYY-MM-DD")
	}
	return &domain.Employee{
		EmployeeID:   fields[0].value,
		Phone:        fields[1].value,
		Address:      fields[2].value,
		FathersName:  fields[3].value,
		AadharNo:     fields[4].value,
		DateOfBirth:  fields[5].value,
		WorkPosition: fields[6].value,
	}, nil
}

// CreateUser 管理员建号；角色名需通过词表校验，空则使用默认角色；
// 带员工字段时用户与档案同一事务创建
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (domain.UserView, error) {
	roleName := ""
	if strings.TrimSpace(in.Role) != "" {
		names, err := s.Roles.Canonical([]string{in.Role})
		if err != nil {
			return domain.UserView{}, err
		}
		roleName = names[0]
	}
	emp, err := in.employee()
	if err != nil {
		return domain.UserView{}, err
	}
	v, err := createAccount(ctx, &s.Deps, in.RegisterInput, roleName, emp)
	if err != nil {
		return domain.UserView{}, err
	}
	s.publish(ctx, EventUserRegistered, UserEvent{UserID: v.UserID, Email: v.Email, Roles: v.Roles, At: s.Now().UTC()})
	return v, nil
}

type Page struct {
	Total int64             `json:"total"`
	Items []domain.UserView `json:"items"`
}

func (s *UserService) List(ctx context.Context, f domain.UserFilter, offset, limit int) (Page, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	users, total, err := s.Store.Users().List(ctx, f, offset, limit)
	if err != nil {
		return Page{}, err
	}
	return Page{Total: total, Items: domain.NewUserViews(users)}, nil
}

// Get 读穿缓存；未找到不缓存
func (s *UserService) Get(ctx context.Context, id string) (domain.UserView, error) {
	load := func(ctx context.Context) (*domain.UserView, error) {
		u, err := s.Store.Users().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, ErrNotFound
		}
		v := domain.NewUserView(u)
		return &v, nil
	}
	var (
		v   *domain.UserView
		err error
	)
	if s.Cache != nil {
		v, err = s.Cache.GetOrLoad(ctx, id, load)
	} else {
		v, err = load(ctx)
	}
	if err != nil {
		return domain.UserView{}, err
	}
	if v == nil {
		return domain.UserView{}, ErrNotFound
	}
	return *v, nil
}

// Update 部分更新 full_name / profile_photo / is_active
func (s *UserService) Update(ctx context.Context, id string, p domain.UserPatch) (domain.UserView, error) {
	if p.FullName != nil {
		name := strings.TrimSpace(*p.FullName)
		if name == "" {
			return domain.UserView{}, validationf("full_name must not be empty")
		}
		p.FullName = &name
	}
	if p.ProfilePhoto != nil {
		photo := stripDataURI(*p.ProfilePhoto)
		p.ProfilePhoto = &photo
	}
	p.PasswordHash = nil
	return s.patch(ctx, id, p)
}

// ChangePassword 重设密码并吊销该用户全部 refresh token，同一事务
func (s *UserService) ChangePassword(ctx context.Context, id, password string) error {
	switch {
	case password == "":
		return validationf("new_password is required")
	case len(password) > maxPasswordBytes:
		return validationf("password must be at most %d bytes", maxPasswordBytes)
	}
	u, err := s.Store.Users().FindByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrNotFound
	}
	digest, err := s.Hasher.Hash(password)
	if err != nil {
		return err
	}
	var revoked int64
	err = s.Store.Transaction(ctx, func(tx domain.Store) error {
		if err := tx.Users().Patch(ctx, id, domain.UserPatch{PasswordHash: &digest}); err != nil {
			return err
		}
		revoked, err = tx.RefreshTokens().RevokeAllForUser(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.record("password_change", "ok")
	s.Log.Info("password changed", zap.String("user_id", id), zap.Int64("sessions_revoked", revoked))
	s.publish(ctx, EventUserPasswordChanged, UserEvent{UserID: u.ID, Email: u.Email, Roles: u.RoleNames(), At: s.Now().UTC()})
	return nil
}

// UpdatePhoto 本人头像；接受裸 base64 或 data URI
func (s *UserService) UpdatePhoto(ctx context.Context, id, photo string) (domain.UserView, error) {
	photo = stripDataURI(strings.TrimSpace(photo))
	if photo == "" {
		return domain.UserView{}, validationf("profile_photo is required")
	}
	return s.patch(ctx, id, domain.UserPatch{ProfilePhoto: &photo})
}

func (s *UserService) patch(ctx context.Context, id string, p domain.UserPatch) (domain.UserView, error) {
	users := s.Store.Users()
	u, err := users.FindByID(ctx, id)
	if err != nil {
		return domain.UserView{}, err
	}
	if u == nil {
		return domain.UserView{}, ErrNotFound
	}
	if err := users.Patch(ctx, id, p); err != nil {
		return domain.UserView{}, err
	}
	s.invalidate(ctx, id)
	return s.reload(ctx, id)
}

// AssignRoles 整体替换用户角色集合（事务内），缺失的角色自动创建
func (s *UserService) AssignRoles(ctx context.Context, userID string, names []string) (domain.UserView, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.UserView{}, validationf("user_id is required")
	}
	if len(names) == 0 {
		return domain.UserView{}, validationf("roles must not be empty")
	}
	canonical, err := s.Roles.Canonical(names)
	if err != nil {
		return domain.UserView{}, err
	}
	u, err := s.Store.Users().FindByID(ctx, userID)
	if err != nil {
		return domain.UserView{}, err
	}
	if u == nil {
		return domain.UserView{}, ErrNotFound
	}
	roles, err := s.Roles.EnsureAll(ctx, canonical)
	if err != nil {
		return domain.UserView{}, err
	}
	ids := make([]uint, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	err = s.Store.Transaction(ctx, func(tx domain.Store) error {
		return tx.Users().ReplaceRoles(ctx, userID, ids)
	})
	if err != nil {
		return domain.UserView{}, err
	}
	s.invalidate(ctx, userID)
	v, err := s.reload(ctx, userID)
	if err != nil {
		return domain.UserView{}, err
	}
	s.publish(ctx, EventUserRolesAssigned, UserEvent{UserID: v.UserID, Email: v.Email, Roles: v.Roles, At: s.Now().UTC()})
	return v, nil
}

func (s *UserService) reload(ctx context.Context, id string) (domain.UserView, error) {
	u, err := s.Store.Users().FindByID(ctx, id)
	if err != nil {
		return domain.UserView{}, err
	}
	if u == nil {
		return domain.UserView{}, ErrNotFound
	}
	return domain.NewUserView(u), nil
}

// stripDataURI "data:image/png;base64,xxx" → "xxx"
func stripDataURI(v string) string {
	if strings.HasPrefix(v, "data:image") {
		if i := strings.Index(v, ","); i >= 0 {
			return v[i+1:]
		}
	}
	return v
}
