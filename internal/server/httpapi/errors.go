package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/comicvault/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotVerified):
		return http.StatusForbidden
	case errors.Is(err, common.ErrPaymentNotConfirmed):
		return http.StatusPaymentRequired
	}
	switch common.KindOf(err) {
	case common.KindValidationFailure:
		return http.StatusBadRequest
	case common.KindUnauthorized:
		return http.StatusUnauthorized
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindConflict:
		return http.StatusConflict
	case common.KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the text shown to clients. Internal errors never
// leak their detail.
func publicMessage(err error) string {
	for _, known := range []error{
		common.ErrNotVerified, common.ErrPaymentNotConfirmed, common.ErrMissingFields,
		common.ErrInvalidCredentials, common.ErrUnauthenticated, common.ErrTokenInvalid,
		common.ErrAlreadyExists, common.ErrReferenceConsumed, common.ErrItemNotFound,
		common.ErrNotFound, common.ErrUpstreamUnavailable, common.ErrAssetExists,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return common.ErrInternal.Error()
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		h.logger.Debug(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: publicMessage(err)})
}
