package httphandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// errorMappings pairs a domain sentinel with its HTTP status and the message
// shown to callers. Order matters: the first match wins.
var errorMappings = []struct {
	err     error
	status  int
	message string
}{
	{model.ErrUnauthorized, http.StatusForbidden, "permission denied"},
	{model.ErrNotFound, http.StatusNotFound, "not found"},
	{model.ErrDecryptionFailed, http.StatusInternalServerError, "failed to decrypt keys"},
	{model.ErrConversationResolved, http.StatusConflict, "conversation is resolved"},
	{model.ErrConflict, http.StatusConflict, "conflict"},
	{model.ErrInvalidStatusTransition, http.StatusConflict, "invalid status transition"},
	{model.ErrInvalidArgument, http.StatusBadRequest, "invalid argument"},
	{model.ErrUpstreamService, http.StatusBadGateway, "upstream service error"},
	{model.ErrConfigurationMissing, http.StatusServiceUnavailable, "service not configured"},
}

// writeServiceError maps an application error to a response. Unexpected
// errors are logged and reported as internal server errors; their details
// never reach the caller.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				logger.Error(op+" failed", "error", err)
			}
			writeError(w, m.status, m.message)
			return
		}
	}

	logger.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
