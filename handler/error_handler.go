package handler

import (
	"errors"
	"go-user-api/common"
	"go-user-api/model"
	"go-user-api/service"
	"net/http"
)

func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

// toAppError maps service errors to HTTP statuses. Known errors carry their
// own message to the client; anything else becomes a 500 with fallback.
func toAppError(err error, fallback string) *common.AppError {
	switch {
	case errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrAvatarRequired),
		errors.Is(err, service.ErrCoverImageRequired),
		errors.Is(err, service.ErrPasswordTooLong):
		return common.NewAppError(http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, model.ErrFileTooLarge),
		errors.Is(err, model.ErrFileTypeForbidden):
		return common.NewAppError(http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, ErrInvalidForm):
		return common.NewAppError(http.StatusBadRequest, ErrInvalidForm.Error(), err)
	case errors.Is(err, service.ErrUserExists),
		errors.Is(err, service.ErrEmailTaken):
		return common.NewAppError(http.StatusConflict, err.Error(), err)
	case errors.Is(err, service.ErrInvalidCredentials):
		return common.NewAppError(http.StatusUnauthorized, service.ErrInvalidCredentials.Error(), err)
	case errors.Is(err, service.ErrTokenMissing):
		return common.NewAppError(http.StatusUnauthorized, service.ErrTokenMissing.Error(), err)
	case errors.Is(err, service.ErrRefreshTokenReused):
		return common.NewAppError(http.StatusUnauthorized, service.ErrRefreshTokenReused.Error(), err)
	case errors.Is(err, service.ErrInvalidToken):
		return common.NewAppError(http.StatusUnauthorized, service.ErrInvalidToken.Error(), err)
	case errors.Is(err, service.ErrUserNotFound):
		return common.NewAppError(http.StatusNotFound, err.Error(), err)
	case errors.Is(err, service.ErrUploadFailed):
		return common.NewAppError(http.StatusBadGateway, err.Error(), err)
	default:
		return common.NewAppError(http.StatusInternalServerError, fallback, err)
	}
}
