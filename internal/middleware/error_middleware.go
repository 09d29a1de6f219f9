package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/deniz/labstock/internal/app/models/dto"
	"github.com/deniz/labstock/internal/pkg/apperrors"
)

// HandleAPIError maps domain errors to HTTP responses. Controllers call it
// for every service error so status codes stay consistent across endpoints.
func HandleAPIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrComponentNotFound),
		errors.Is(err, apperrors.ErrRequestNotFound),
		errors.Is(err, apperrors.ErrResourceNotFound):
		c.JSON(404, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, err.Error()),
		})
		return
	case errors.Is(err, apperrors.ErrInvalidTransition):
		c.JSON(409, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidTransition, err.Error()),
		})
		return
	case errors.Is(err, apperrors.ErrInsufficientStock):
		c.JSON(409, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInsufficientStock, err.Error()),
		})
		return
	case errors.Is(err, apperrors.ErrInvalidQuantity):
		c.JSON(400, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidQuantity, err.Error()),
		})
		return
	case errors.Is(err, apperrors.ErrComponentOnLoan):
		c.JSON(409, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceConflict, err.Error()),
		})
		return
	case errors.Is(err, apperrors.ErrEmailAlreadyExists):
		c.JSON(409, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceAlreadyExists, "Email already exists"),
		})
		return
	case errors.Is(err, apperrors.ErrConflict):
		c.JSON(409, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeResourceConflict, err.Error()),
		})
		return
	case errors.Is(err, apperrors.ErrPermissionDenied):
		c.JSON(403, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeForbidden, "Permission denied"),
		})
		return
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		c.JSON(401, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidCredentials, "Invalid credentials"),
		})
		return
	case errors.Is(err, apperrors.ErrTokenExpired):
		c.JSON(401, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired"),
		})
		return
	case errors.Is(err, apperrors.ErrTokenInvalid):
		c.JSON(401, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token"),
		})
		return
	case errors.Is(err, apperrors.ErrTokenNotFound), errors.Is(err, apperrors.ErrTokenRevoked):
		c.JSON(401, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeTokenNotFound, "Token not found"),
		})
		return
	case errors.Is(err, apperrors.ErrValidationFailed), errors.Is(err, apperrors.ErrBadRequest):
		c.JSON(400, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeValidationFailed, err.Error()),
		})
		return
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		c.JSON(503, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeStoreUnavailable, "Store unavailable, retry later"),
		})
		return
	case errors.Is(err, apperrors.ErrNotificationFailed):
		c.JSON(502, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeExternalServiceError, "Notification delivery failed"),
		})
		return
	default:
		c.JSON(500, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error"),
		})
		return
	}
}
