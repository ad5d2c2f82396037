package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/identity"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
	"github.com/noah-isme/portal-sabido-api/pkg/validation"
)

type authStudentRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	FindByUID(ctx context.Context, uid string) (*models.Student, error)
}

type authInstructorRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Instructor, error)
	FindByUID(ctx context.Context, uid string) (*models.Instructor, error)
}

// AuthProvider is the external authentication capability.
type AuthProvider interface {
	CreateAccount(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SignOut(ctx context.Context, uid string) error
}

type sessionIssuer interface {
	Issue(ctx context.Context, record models.UserRecord) (*models.LoginResponse, error)
	Revoke(ctx context.Context, session *models.Session) error
}

// Login validation messages shown to users.
const (
	msgNoAccount        = "No account found with this email address"
	msgRoleMismatch     = "This email is registered as a %s, but you selected %s"
	msgValidationFailed = "Failed to validate credentials. Please try again."
)

// AuthService resolves roles, validates logins and manages sign in/out.
type AuthService struct {
	students    authStudentRepository
	instructors authInstructorRepository
	provider    AuthProvider
	sessions    sessionIssuer
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(students authStudentRepository, instructors authInstructorRepository, provider AuthProvider, sessions sessionIssuer, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &AuthService{
		students:    students,
		instructors: instructors,
		provider:    provider,
		sessions:    sessions,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
	}
}

// ResolveRole finds the record holding email. Students are searched first.
// It returns repository.ErrNotFound when neither set matches.
func (s *AuthService) ResolveRole(ctx context.Context, email string) (models.UserRecord, models.Role, error) {
	email = identity.NormalizeEmail(email)

	student, err := s.students.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return student, models.RoleStudent, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, "", fmt.Errorf("resolve student by email: %w", err)
	}

	instructor, err := s.instructors.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return instructor, models.RoleInstructor, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, "", fmt.Errorf("resolve instructor by email: %w", err)
	}

	return nil, "", repository.ErrNotFound
}

// ValidateLogin checks the asserted role against the stored record. It never
// returns an error; lookup failures surface as LoginLookupFailed.
func (s *AuthService) ValidateLogin(ctx context.Context, email string, asserted models.Role) models.LoginValidation {
	result := s.validateLogin(ctx, email, asserted)
	s.metrics.RecordLoginValidation(string(result.Outcome))
	return result
}

func (s *AuthService) validateLogin(ctx context.Context, email string, asserted models.Role) models.LoginValidation {
	record, role, err := s.ResolveRole(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.LoginValidation{Outcome: models.LoginNoAccount, Message: msgNoAccount}
		}
		s.logger.Warn("login validation lookup failed", zap.Error(err))
		return models.LoginValidation{Outcome: models.LoginLookupFailed, Message: msgValidationFailed}
	}
	if role != asserted {
		return models.LoginValidation{
			Outcome:      models.LoginRoleMismatch,
			ResolvedRole: role,
			Message:      fmt.Sprintf(msgRoleMismatch, role, asserted),
		}
	}
	return models.LoginValidation{Outcome: models.LoginAccepted, Record: record, ResolvedRole: role}
}

// Login validates the role, verifies credentials with the provider and opens a session.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	check := s.ValidateLogin(ctx, req.Email, req.Role)
	switch check.Outcome {
	case models.LoginAccepted:
	case models.LoginNoAccount:
		return nil, appErrors.Clone(appErrors.ErrNoAccount, check.Message)
	case models.LoginRoleMismatch:
		return nil, appErrors.Clone(appErrors.ErrRoleMismatch, check.Message)
	default:
		return nil, appErrors.Clone(appErrors.ErrUpstream, check.Message)
	}

	uid, err := s.provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if uid != check.Record.AuthUID() {
		s.logger.Error("auth uid does not match stored record",
			zap.String("record_id", check.Record.RecordID()), zap.String("uid", uid))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	resp, err := s.sessions.Issue(ctx, check.Record)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.String("uid", uid), zap.String("role", check.ResolvedRole.String()), zap.String("ip", req.IP))
	return resp, nil
}

// Logout signs the user out of the provider and drops the session.
func (s *AuthService) Logout(ctx context.Context, session *models.Session) error {
	if session == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.provider.SignOut(ctx, session.UID); err != nil {
		s.logger.Warn("provider sign out failed", zap.String("uid", session.UID), zap.Error(err))
	}
	return s.sessions.Revoke(ctx, session)
}

// CurrentUser reloads a record by auth UID, checking students then instructors.
func (s *AuthService) CurrentUser(ctx context.Context, uid string) (models.UserRecord, error) {
	student, err := s.students.FindByUID(ctx, uid)
	if err == nil {
		return student, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load user")
	}

	instructor, err := s.instructors.FindByUID(ctx, uid)
	if err == nil {
		return instructor, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load user")
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
}
