package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/port"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/session"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/validation"
)

var tracer = otel.Tracer("service")

const (
	MsgInvalidCredentials = "Invalid username or password"
	MsgUsernameTaken      = "Username already taken"
)

// AuthService runs the login and registration forms and owns the session
// transitions they cause.
type AuthService struct {
	api      port.AuthAPI
	sessions *session.Manager
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(
	api port.AuthAPI,
	sessions *session.Manager,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		api:      api,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// Login
// ============================================================

// Login validates the form, exchanges the credentials for a token and opens
// the session in the tier chosen by RememberMe. Validation failures never
// reach the network. A rejected login leaves the session untouched.
func (s *AuthService) Login(ctx context.Context, form domain.CredentialForm) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if err := validation.ValidateLogin(form).Err(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("auth.remember", form.RememberMe))

	resp, err := s.api.Login(ctx, domain.LoginRequest{Username: form.Username, Password: form.Password})
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindUnauthorized:
			s.logger.Warn("login rejected", zap.String("username", form.Username))
			return nil, &domain.ErrUnauthorized{Message: MsgInvalidCredentials}
		case domain.KindValidation:
			return nil, err
		default:
			s.logger.Error("login failed", zap.String("username", form.Username), zap.Error(err))
			return nil, &domain.ErrServer{Detail: err.Error()}
		}
	}

	user := domain.User{ID: resp.UserID, Username: resp.Username}
	if err := s.sessions.Login(user, resp.AccessToken, form.RememberMe); err != nil {
		return nil, &domain.ErrServer{Detail: fmt.Sprintf("store session: %v", err)}
	}
	return &user, nil
}

// ============================================================
// Register
// ============================================================

// Register validates the form and creates the account. It does not sign
// the user in. A taken username is reported on the username field.
func (s *AuthService) Register(ctx context.Context, form domain.CredentialForm) error {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	if err := validation.ValidateRegistration(form).Err(); err != nil {
		return err
	}

	err := s.api.Register(ctx, domain.RegisterRequest{Username: form.Username, Password: form.Password})
	if err == nil {
		s.logger.Info("account registered", zap.String("username", form.Username))
		return nil
	}
	if domain.KindOf(err) == domain.KindConflict {
		return &domain.ErrConflict{Field: domain.FieldUsername, Message: MsgUsernameTaken}
	}
	s.logger.Warn("register failed", zap.String("username", form.Username), zap.Error(err))
	return err
}

// Logout ends the session. It never calls the API.
func (s *AuthService) Logout() error {
	return s.sessions.Logout()
}
