package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/service"
)

// ============================================================
// Shared helper functions
// ============================================================

// NoticeHeader carries a one-line message for the page a redirect leads to.
const NoticeHeader = "X-Notice"

// CodeSuperseded marks a page load abandoned for a newer load of the same page.
const CodeSuperseded = "superseded"

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// formErrorResponse is the body of every failed form submission.
type formErrorResponse struct {
	Errors domain.FieldErrors `json:"errors"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeFormErrors(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, formErrorResponse{Errors: domain.FieldErrorsOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// redirect answers 303 See Other to path, with an optional notice.
func redirect(w http.ResponseWriter, r *http.Request, path, notice string) {
	if notice != "" {
		w.Header().Set(NoticeHeader, notice)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// handleServiceError maps service errors to HTTP responses by kind. Form
// failures carry the field error map; a 401 on a page behind the session
// sends the browser to the login page.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	if errors.Is(err, service.ErrSuperseded) {
		logger.Debug("request superseded", zap.String("path", r.URL.Path))
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Code: CodeSuperseded})
		return
	}

	var circuitOpen *domain.ErrCircuitOpen

	switch domain.KindOf(err) {
	case domain.KindValidation:
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeFormErrors(w, http.StatusUnprocessableEntity, err)
	case domain.KindConflict:
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeFormErrors(w, http.StatusConflict, err)
	case domain.KindNotFound:
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case domain.KindUnauthorized:
		if isProtected(r.Context()) {
			logger.Warn("session rejected by API", zap.String("path", r.URL.Path))
			redirect(w, r, "/login", "")
			return
		}
		writeFormErrors(w, http.StatusUnauthorized, err)
	case domain.KindForbidden:
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeFormErrors(w, http.StatusForbidden, err)
	default:
		if errors.As(err, &circuitOpen) {
			logger.Error("circuit breaker open", zap.Error(err))
			writeFormErrors(w, http.StatusServiceUnavailable, err)
			return
		}
		logger.Error("backend error", zap.Error(err))
		writeFormErrors(w, http.StatusBadGateway, err)
	}
}
