package domain

import "time"

// UserView 对外用户视图，不含密码摘要
type UserView struct {
	UserID        string     `json:"user_id"`
	Email         string     `json:"email"`
	FullName      string     `json:"full_name"`
	ProfilePhoto  *string    `json:"profile_photo"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastActive    *time.Time `json:"last_active"`
	Role          *string    `json:"role"`
	Roles         []string   `json:"roles"`
	Employee      *Employee  `json:"employee"`
}

func NewUserView(u *User) UserView {
	roles := u.RoleNames()
	v := UserView{
		UserID:        u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		ProfilePhoto:  u.ProfilePhoto,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		LastActive:    u.LastActive,
		Roles:         roles,
		Employee:      u.Employee,
	}
	if len(roles) > 0 {
		first := roles[0]
		v.Role = &first
	}
	return v
}

func NewUserViews(us []User) []UserView {
	out := make([]UserView, 0, len(us))
	for i := range us {
		out = append(out, NewUserView(&us[i]))
	}
	return out
}

// TokenPair 登录 / 刷新响应
type TokenPair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	User         UserView `json:"user"`
}
