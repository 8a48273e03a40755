package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cliptube/backend/internal/reactions"
	"github.com/cliptube/backend/internal/repositories"

	"github.com/cliptube/backend/internal/logging"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func errorPayload(message string) map[string]string {
	return map[string]string{"error": message}
}

// toggleFailure maps engine errors to a response status and message shared by
// the reaction and subscription handlers.
func toggleFailure(err error) (int, string) {
	switch {
	case errors.Is(err, reactions.ErrNotFound):
		return http.StatusNotFound, "target not found"
	case errors.Is(err, reactions.ErrSelfSubscription):
		return http.StatusBadRequest, "you can't subscribe to your own channel"
	case errors.Is(err, reactions.ErrInvalidPolarity):
		return http.StatusBadRequest, "reaction must be like or dislike"
	case errors.Is(err, reactions.ErrInconsistentState):
		return http.StatusInternalServerError, "reaction state is inconsistent"
	case errors.Is(err, repositories.ErrUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "unable to update relation"
	}
}
