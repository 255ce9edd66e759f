package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/domain"
	"hrms-backend/internal/service"
	"hrms-backend/internal/transport/http/ez"
	mdw "hrms-backend/internal/transport/http/middleware"
)

// Policy 各接口组允许的角色 + refresh cookie 名
type Policy struct {
	UsersAllowed   []string
	UserGetAllowed []string
	AssignAllowed  []string
	RefreshCookie  string
}

type AuthHandler struct {
	auth   *service.AuthService
	users  *service.UserService
	policy Policy
	log    *zap.Logger
}

func NewAuthHandler(a *service.AuthService, u *service.UserService, p Policy, l *zap.Logger) *AuthHandler {
	if p.RefreshCookie == "" {
		p.RefreshCookie = "refresh_token"
	}
	// 未配置时回落到内置名单
	if len(p.UsersAllowed) == 0 {
		p.UsersAllowed = []string{auth.RoleSuperAdmin, auth.RoleAdmin, auth.RoleManager}
	}
	if len(p.UserGetAllowed) == 0 {
		p.UserGetAllowed = []string{auth.RoleSuperAdmin, auth.RoleAdmin}
	}
	if len(p.AssignAllowed) == 0 {
		p.AssignAllowed = []string{auth.RoleSuperAdmin, auth.RoleAdmin}
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &AuthHandler{auth: a, users: u, policy: p, log: l}
}

func clientMeta(c *gin.Context) domain.ClientMeta {
	return domain.ClientMeta{UserAgent: c.Request.UserAgent(), IP: c.ClientIP()}
}

// refreshToken body → cookie → X-Refresh-Token → Authorization: Refresh
func (h *AuthHandler) refreshToken(c *gin.Context, body string) string {
	cookie, _ := c.Cookie(h.policy.RefreshCookie)
	return service.RefreshSources{
		Body:          body,
		Cookie:        cookie,
		Header:        c.GetHeader("X-Refresh-Token"),
		Authorization: c.GetHeader("Authorization"),
	}.Pick()
}

type refreshIn struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutIn struct {
	RefreshToken string `json:"refresh_token"`
	All          bool   `json:"all"`
}

type photoIn struct {
	ProfilePhoto string `json:"profile_photo"`
}

type patchIn struct {
	FullName     *string `json:"full_name"`
	ProfilePhoto *string `json:"profile_photo"`
	IsActive     *bool   `json:"is_active"`
}

type assignIn struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}

type passwordIn struct {
	NewPassword string `json:"new_password"`
}

type listQ struct {
	Q          string `form:"q"`
	EmployeeID string `form:"employee_id"`
	Offset     int    `form:"offset"`
	Limit      int    `form:"limit"`
}

// Mount 挂到 /api/v1/auth；guard 为 Bearer 鉴权，limit 作用于未登录接口
func (h *AuthHandler) Mount(g *gin.RouterGroup, guard gin.HandlerFunc, limit gin.HandlerFunc) {
	public := g.Group("")
	if limit != nil {
		public.Use(limit)
	}
	pub := ez.New(public, h.log)

	ez.RegisterAction[service.RegisterInput, domain.UserView](pub, nil, ez.Action[service.RegisterInput, domain.UserView]{
		Method: http.MethodPost,
		Path:   "/register",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *gorm.DB, in *service.RegisterInput) (domain.UserView, error) {
			v, err := h.auth.Register(c.Request.Context(), *in)
			return v, mapErr(err)
		},
	})

	ez.RegisterAction[service.LoginInput, domain.TokenPair](pub, nil, ez.Action[service.LoginInput, domain.TokenPair]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, _ *gorm.DB, in *service.LoginInput) (domain.TokenPair, error) {
			p, err := h.auth.Login(c.Request.Context(), *in, clientMeta(c))
			if err != nil {
				h.log.Info("login rejected", zap.String("ip", c.ClientIP()), zap.Error(err))
			}
			return p, mapErr(err)
		},
	})

	ez.RegisterAction[refreshIn, domain.TokenPair](pub, nil, ez.Action[refreshIn, domain.TokenPair]{
		Method: http.MethodPost,
		Path:   "/refresh",
		Binder: ez.BindJSONOptional,
		Handler: func(c *gin.Context, _ *gorm.DB, in *refreshIn) (domain.TokenPair, error) {
			p, err := h.auth.RefreshSession(c.Request.Context(), h.refreshToken(c, in.RefreshToken), clientMeta(c))
			if err != nil {
				h.log.Info("refresh rejected", zap.String("ip", c.ClientIP()), zap.Error(err))
			}
			return p, mapErr(err)
		},
	})

	ez.RegisterAction[logoutIn, gin.H](pub, nil, ez.Action[logoutIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/logout",
		Binder: ez.BindJSONOptional,
		Handler: func(c *gin.Context, _ *gorm.DB, in *logoutIn) (gin.H, error) {
			all := in.All
			if q, err := strconv.ParseBool(c.Query("all")); err == nil {
				all = all || q
			}
			// Bearer 可选；all=true 时必须有效
			userID := ""
			if bearer := service.BearerToken(c.GetHeader("Authorization")); bearer != "" {
				u, err := h.auth.Authenticate(c.Request.Context(), bearer)
				if err != nil {
					return nil, mapErr(err)
				}
				userID = u.ID
			}
			raw := ""
			if !all {
				raw = h.refreshToken(c, in.RefreshToken)
			}
			n, err := h.auth.Logout(c.Request.Context(), raw, userID, all)
			if err != nil {
				return nil, mapErr(err)
			}
			return gin.H{"revoked": n}, nil
		},
	})

	authed := g.Group("", guard)
	sec := ez.New(authed, h.log)

	ez.RegisterAction[struct{}, domain.UserView](sec, nil, ez.Action[struct{}, domain.UserView]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (domain.UserView, error) {
			u, ok := mdw.CurrentUser(c)
			if !ok {
				return domain.UserView{}, ez.Unauthorized("unauthenticated")
			}
			return domain.NewUserView(u), nil
		},
	})

	ez.RegisterAction[photoIn, domain.UserView](sec, nil, ez.Action[photoIn, domain.UserView]{
		Method: http.MethodPatch,
		Path:   "/me/photo",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, _ *gorm.DB, in *photoIn) (domain.UserView, error) {
			v, err := h.users.UpdatePhoto(c.Request.Context(), c.GetString(ez.KeyUserID), in.ProfilePhoto)
			return v, mapErr(err)
		},
	})

	ez.RegisterAction[service.CreateUserInput, domain.UserView](sec, nil, ez.Action[service.CreateUserInput, domain.UserView]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  h.policy.UsersAllowed,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ *gorm.DB, in *service.CreateUserInput) (domain.UserView, error) {
			v, err := h.users.CreateUser(c.Request.Context(), *in)
			return v, mapErr(err)
		},
	})

	ez.RegisterAction[listQ, service.Page](sec, nil, ez.Action[listQ, service.Page]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindQuery,
		Auth:   true,
		Roles:  h.policy.UsersAllowed,
		Handler: func(c *gin.Context, _ *gorm.DB, in *listQ) (service.Page, error) {
			f := domain.UserFilter{Q: in.Q, EmployeeID: in.EmployeeID}
			p, err := h.users.List(c.Request.Context(), f, in.Offset, in.Limit)
			return p, mapErr(err)
		},
	})

	ez.RegisterAction[struct{}, domain.UserView](sec, nil, ez.Action[struct{}, domain.UserView]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  h.policy.UserGetAllowed,
		Handler: func(c *gin.Context, _ *gorm.DB, _ *struct{}) (domain.UserView, error) {
			v, err := h.users.Get(c.Request.Context(), c.Param("id"))
			return v, mapErr(err)
		},
	})

	ez.RegisterAction[patchIn, domain.UserView](sec, nil, ez.Action[patchIn, domain.UserView]{
		Method: http.MethodPatch,
		Path:   "/users/:id",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  h.policy.UsersAllowed,
		Handler: func(c *gin.Context, _ *gorm.DB, in *patchIn) (domain.UserView, error) {
			v, err := h.users.Update(c.Request.Context(), c.Param("id"), domain.UserPatch{
				FullName:     in.FullName,
				ProfilePhoto: in.ProfilePhoto,
				IsActive:     in.IsActive,
			})
			return v, mapErr(err)
		},
	})

	ez.RegisterAction[passwordIn, gin.H](sec, nil, ez.Action[passwordIn, gin.H]{
		Method: http.MethodPut,
		Path:   "/users/:id/password",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  h.policy.UsersAllowed,
		Handler: func(c *gin.Context, _ *gorm.DB, in *passwordIn) (gin.H, error) {
			id := c.Param("id")
			if err := h.users.ChangePassword(c.Request.Context(), id, in.NewPassword); err != nil {
				return nil, mapErr(err)
			}
			h.log.Info("password changed by admin",
				zap.String("by", c.GetString(ez.KeyUserID)),
				zap.String("user_id", id),
			)
			return gin.H{"message": "password updated"}, nil
		},
	})

	ez.RegisterAction[assignIn, domain.UserView](sec, nil, ez.Action[assignIn, domain.UserView]{
		Method: http.MethodPost,
		Path:   "/assign-roles",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  h.policy.AssignAllowed,
		Handler: func(c *gin.Context, _ *gorm.DB, in *assignIn) (domain.UserView, error) {
			v, err := h.users.AssignRoles(c.Request.Context(), in.UserID, in.Roles)
			if err == nil {
				h.log.Info("roles assigned",
					zap.String("by", c.GetString(ez.KeyUserID)),
					zap.String("user_id", in.UserID),
					zap.Strings("roles", v.Roles),
				)
			}
			return v, mapErr(err)
		},
	})
}
