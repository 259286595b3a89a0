package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/service"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/session"
)

// ============================================================
// Authentication
// ============================================================

type loginResponse struct {
	User    *domain.User       `json:"user"`
	Session domain.SessionView `json:"session"`
}

// loginHandler never redirects, signed in or not.
func loginHandler(authSvc *service.AuthService, sessions *session.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /login")
		defer span.End()

		var form domain.CredentialForm
		if !decode(w, r, &form) {
			return
		}

		user, err := authSvc.Login(ctx, form)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, loginResponse{User: user, Session: sessions.View()})
	}
}

func registerHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /register")
		defer span.End()

		var form domain.CredentialForm
		if !decode(w, r, &form) {
			return
		}

		if err := authSvc.Register(ctx, form); err != nil {
			handleServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{"status": "registered", "next": "/login"})
	}
}

func logoutHandler(authSvc *service.AuthService, sessions *session.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := authSvc.Logout(); err != nil {
			logger.Error("logout: clearing session storage failed", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, sessions.View())
	}
}

func listCategoriesHandler(categories *service.CategoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /categories")
		defer span.End()

		cats, err := categories.List(ctx)
		if err != nil {
			handleServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, cats)
	}
}
