package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
	"github.com/noah-isme/portal-sabido-api/pkg/validation"
)

type contactUpdater interface {
	UpdateContact(ctx context.Context, id, contactNumber string) error
}

type currentUserLoader interface {
	CurrentUser(ctx context.Context, uid string) (models.UserRecord, error)
}

type sessionRefresher interface {
	Refresh(ctx context.Context, session *models.Session, record models.UserRecord) error
}

// UserService serves the profile of the logged in user.
type UserService struct {
	loader      currentUserLoader
	students    contactUpdater
	instructors contactUpdater
	sessions    sessionRefresher
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(loader currentUserLoader, students, instructors contactUpdater, sessions sessionRefresher, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{loader: loader, students: students, instructors: instructors, sessions: sessions, cache: cache, validator: validate, logger: logger}
}

// Current reloads the session's record from the store and refreshes the
// session copy.
func (s *UserService) Current(ctx context.Context, session *models.Session) (models.UserRecord, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	record, err := s.loader.CurrentUser(ctx, session.UID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Refresh(ctx, session, record); err != nil {
		s.logger.Warn("session refresh failed", zap.String("session_id", session.ID), zap.Error(err))
	}
	return record, nil
}

// UpdateContact changes the contact number of the current record.
func (s *UserService) UpdateContact(ctx context.Context, session *models.Session, req dto.UpdateContactRequest) (models.UserRecord, error) {
	if session == nil || session.Record() == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.ContactNumber = strings.TrimSpace(req.ContactNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact number")
	}

	var (
		recordID = session.Record().RecordID()
		err      error
	)
	switch session.Role {
	case models.RoleStudent:
		err = s.students.UpdateContact(ctx, recordID, req.ContactNumber)
		if err == nil {
			s.cache.Invalidate(ctx, RosterCacheKey(session.Record().LinkedCode()))
		}
	case models.RoleInstructor:
		err = s.instructors.UpdateContact(ctx, recordID, req.ContactNumber)
	default:
		return nil, appErrors.ErrForbidden
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to update contact number")
	}
	return s.Current(ctx, session)
}
