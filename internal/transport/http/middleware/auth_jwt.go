package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/domain"
	"hrms-backend/internal/service"
	"hrms-backend/internal/transport/http/ez"
	resp "hrms-backend/internal/transport/http/response"
)

// Authenticator access token → 当前用户（已确认存在且启用）
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// AuthJWT 校验 Bearer token，写入 userId / roles / currentUser
func AuthJWT(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := service.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			resp.Abort(c, resp.CodeUnauthorized, "unauthenticated")
			return
		}
		u, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				resp.Abort(c, resp.CodeUnauthorized, "unauthenticated")
				return
			}
			_ = c.Error(err)
			resp.Abort(c, resp.CodeServerError, "internal error")
			return
		}
		SetCurrentUser(c, u)
		c.Next()
	}
}

func SetCurrentUser(c *gin.Context, u *domain.User) {
	c.Set(ez.KeyUserID, u.ID)
	c.Set(ez.KeyRoles, u.RoleNames())
	c.Set(ez.KeyCurrentUser, u)
}

// CurrentUser 仅在 AuthJWT 之后可用
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(ez.KeyCurrentUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok && u != nil
}

// RequireRoles 当前角色需命中 allowed 其一；allowed 为空一律拒绝
func RequireRoles(allowed ...string) gin.HandlerFunc {
	want := auth.NormaliseRoles(allowed)
	return func(c *gin.Context) {
		if c.GetString(ez.KeyUserID) == "" {
			resp.Abort(c, resp.CodeUnauthorized, "unauthenticated")
			return
		}
		if !auth.HasAnyRole(c.GetStringSlice(ez.KeyRoles), want) {
			resp.Abort(c, resp.CodeForbidden, "forbidden")
			return
		}
		c.Next()
	}
}
