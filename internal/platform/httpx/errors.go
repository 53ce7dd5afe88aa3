package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/assetline/assetline/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Business-rule violations keep their stable code in the payload so
// clients can branch without parsing messages.
func RespondError(w http.ResponseWriter, err error) {
	if rule, ok := shared.AsRule(err); ok {
		JSON(w, http.StatusUnprocessableEntity, ProblemDetail{
			Title:  "Business Rule Violation",
			Status: http.StatusUnprocessableEntity,
			Detail: rule.Message,
			Code:   rule.Code,
		})
		return
	}
	var invalid validator.ValidationErrors
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrVersionConflict):
		Problem(w, http.StatusConflict, "Conflict", "the record was modified concurrently, retry with fresh data")
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.As(err, &invalid):
		Problem(w, http.StatusBadRequest, "Validation Failed", invalid.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
