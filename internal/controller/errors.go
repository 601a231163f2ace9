package controller

import (
	"errors"
	"net/http"

	"levelup_backend/internal/model"
	"levelup_backend/internal/progression"
	"levelup_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to HTTP statuses; anything unknown is logged as a 500.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrContentNotFound), errors.Is(err, util.ErrUserNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrInvalidLevel),
		errors.Is(err, util.ErrInvalidContent),
		errors.Is(err, util.ErrInvalidImport),
		errors.Is(err, model.ErrInvalidOption):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrUsernameTaken):
		util.Error(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, err.Error())
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, progression.ErrNoQuestions):
		util.Error(ctx, http.StatusUnprocessableEntity, "No test questions available. Please contact administrator.")
	default:
		util.LogInternalError(ctx, err)
	}
}

// currentUserID is the authenticated user's ID; it writes a 401 and returns false when the
// request carries no claims.
func currentUserID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}

// pathID parses the :id parameter, writing a 400 when it is not a positive integer.
func pathID(ctx *gin.Context) (uint, bool) {
	id := util.MustParseUint(ctx.Param("id"))
	if id == 0 {
		util.BadRequest(ctx, "invalid id")
		return 0, false
	}
	return id, true
}
