package shared

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"pulse/internal/domain/filters"
	"pulse/internal/domain/options"
	"pulse/internal/domain/reports"
	"pulse/internal/domain/reviews"
	"pulse/internal/domain/views"
	"pulse/internal/platform/backend"
	"pulse/internal/transport/http/api"
)

// FailFromError maps a domain or backend error onto the envelope.
func FailFromError(w http.ResponseWriter, requestID string, err error) {
	var submitErr *reviews.SubmitError
	var backendErr *backend.Error

	switch {
	case errors.Is(err, views.ErrSessionNotFound),
		errors.Is(err, views.ErrDraftNotFound),
		errors.Is(err, filters.ErrUnknownView),
		errors.Is(err, reports.ErrUnknownChart),
		errors.Is(err, reviews.ErrReviewNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, views.ErrNoOrganization), errors.Is(err, reviews.ErrEmptyText):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, reports.ErrNothingToExport):
		api.Fail(w, http.StatusConflict, "no_data", err.Error(), requestID)
	case errors.Is(err, options.ErrSuperseded):
		api.Fail(w, http.StatusConflict, "superseded", err.Error(), requestID)
	case errors.As(err, &submitErr):
		api.FailWithDetails(w, http.StatusBadGateway, "upstream_failed", backend.UserMessage(submitErr.Err),
			map[string]any{"step": submitErr.Step, "reviewId": submitErr.ReviewID}, requestID)
	case errors.As(err, &backendErr):
		api.FailWithDetails(w, http.StatusBadGateway, "upstream_failed", backend.UserMessage(err),
			map[string]any{"operation": backendErr.Operation, "status": backendErr.Status}, requestID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		api.Fail(w, http.StatusServiceUnavailable, "canceled", "request canceled", requestID)
	default:
		api.Fail(w, http.StatusBadGateway, "upstream_failed", backend.DefaultAlertMessage, requestID)
	}
}
