package handler

import (
	"errors"

	"hrms-backend/internal/service"
	"hrms-backend/internal/transport/http/ez"
)

// mapErr service 错误 → AErr；未知错误交给 ez 记日志并回 500
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrValidation):
		return ez.BadRequest(err.Error())
	case errors.Is(err, service.ErrConflict):
		return ez.Conflict(service.Detail(err, service.ErrConflict))
	case errors.Is(err, service.ErrInvalidCredentials):
		return ez.Unauthorized("invalid credentials")
	case errors.Is(err, service.ErrUnauthenticated):
		return ez.Unauthorized("unauthenticated")
	case errors.Is(err, service.ErrForbidden):
		return ez.Forbidden("forbidden")
	case errors.Is(err, service.ErrNotFound):
		return ez.NotFound("user not found")
	}
	return err
}
