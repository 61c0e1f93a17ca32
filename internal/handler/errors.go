package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"prdbuilder/internal/domain"
	"prdbuilder/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var notOpen *domain.SessionNotOpenError
	var httpErr domain.HTTPError

	switch {
	case errors.As(err, &notOpen):
		httputil.RespondErrorWithExtras(w, notOpen.StatusCode(), notOpen.Error(), map[string]interface{}{
			"prd_id": notOpen.PRDID,
		})
	case errors.As(err, &httpErr):
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrSessionClosed):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
