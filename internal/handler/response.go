package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockpilot/stockpilot-go/internal/crypto"
	"github.com/stockpilot/stockpilot-go/internal/middleware"
	"github.com/stockpilot/stockpilot-go/internal/model"
	"github.com/stockpilot/stockpilot-go/internal/policy"
	"github.com/stockpilot/stockpilot-go/internal/repository"
	"github.com/stockpilot/stockpilot-go/internal/service"
)

const maxBodyBytes = 1 << 20 // 1MB

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// decodeJSON reads a size-limited JSON body into dst. On failure the
// response is already written and false is returned.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
		case errors.Is(err, model.ErrInvalidAmount):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		}
		return false
	}
	return true
}

// writeError maps a service error onto an HTTP status. Unknown errors are
// logged and hidden behind a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse(verr.Reason))
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrProductNameTaken),
		errors.Is(err, service.ErrInternalCodeTaken),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrRefreshTokenRequired):
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrIncorrectPassword):
		writeJSON(w, http.StatusUnauthorized, errorResponse(err.Error()))
	case errors.Is(err, crypto.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse("invalid or expired token"))
	case errors.Is(err, service.ErrRefreshScope):
		writeJSON(w, http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, policy.ErrNotFound), errors.Is(err, repository.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse(policy.ErrNotFound.Error()))
	case errors.Is(err, service.ErrTooManyAttempts):
		writeJSON(w, http.StatusTooManyRequests, errorResponse(err.Error()))
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
	}
}

// requireUser returns the authenticated caller or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return 0, false
	}
	return userID, true
}

// pathID parses a positive numeric route parameter. Anything else cannot
// name a stored row, so it is reported as not found.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusNotFound, errorResponse(policy.ErrNotFound.Error()))
		return 0, false
	}
	return id, true
}
