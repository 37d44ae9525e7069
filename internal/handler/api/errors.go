package api

import (
	"errors"
	"net/http"

	"TrendCast/internal/domain/models"
	xhttp "TrendCast/pkg/http"
)

// domainError maps engine and use case errors to response errors.
func domainError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var insufficient *models.InsufficientDataError
	if errors.As(err, &insufficient) {
		e := xhttp.BadRequestError(models.CodeInsufficientData, insufficient.Error()).
			WithParam("got", insufficient.Got).
			WithParam("need", insufficient.Need)
		if insufficient.Category != "" {
			e.WithParam("category", insufficient.Category)
		}
		return e.WithError(err)
	}

	var malformed *models.MalformedObservationError
	if errors.As(err, &malformed) {
		e := xhttp.BadRequestError(models.CodeMalformedObservation, malformed.Error()).
			WithParam("index", malformed.Index).
			WithParam("field", malformed.Field)
		if malformed.Category != "" {
			e.WithParam("category", malformed.Category)
		}
		return e.WithError(err)
	}

	var invalid *models.InvalidRequestError
	if errors.As(err, &invalid) {
		return xhttp.ValidationFailedError([]xhttp.ValidationError{{
			Code:    "ERR_INVALID",
			Field:   invalid.Field,
			Message: invalid.Error(),
		}}).WithError(err)
	}

	return xhttp.NewAppError(xhttp.CodeInternal, "", "Something went wrong", http.StatusInternalServerError).WithError(err)
}
