package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/insighted/schoolprofile/internal/errors"
	"github.com/insighted/schoolprofile/internal/services"
)

// respondError maps a service error onto the API error envelope.
// notFound is the message used when the target does not exist.
func respondError(c *gin.Context, err error, notFound string) {
	var fieldErrors validator.ValidationErrors
	switch {
	case errors.As(err, &fieldErrors) && len(fieldErrors) > 0:
		apierrors.ValidationError(c, fieldErrors)
	case errors.Is(err, services.ErrValidation):
		apierrors.BadRequest(c, err.Error(), nil)
	case errors.Is(err, services.ErrProfileNotFound),
		errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrCandidateNotFound):
		apierrors.NotFound(c, notFound)
	case errors.Is(err, services.ErrReferenceUnavailable):
		apierrors.ServiceUnavailable(c, "Reference data is not available; school lookup is disabled", err)
	case errors.Is(err, services.ErrPersistence):
		apierrors.ServiceUnavailable(c, "The change could not be saved; nothing was written, please retry", err)
	default:
		apierrors.InternalServerError(c, "An unexpected error occurred", err)
	}
}

// bindError reports a request that could not be bound.
func bindError(c *gin.Context, err error, message string) {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		apierrors.ValidationError(c, fieldErrors)
		return
	}
	apierrors.BadRequest(c, message, nil)
}
