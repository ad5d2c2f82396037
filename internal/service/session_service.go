package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
)

type sessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionConfig signs and expires sessions.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// SessionService holds the current user server side. Clients carry a signed
// token naming the session; the record itself never leaves the store.
type SessionService struct {
	store  sessionStore
	config SessionConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(store sessionStore, config SessionConfig, logger *zap.Logger) *SessionService {
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{store: store, config: config, now: func() time.Time { return time.Now().UTC() }, logger: logger}
}

// Issue opens a session for record and returns the signed token.
func (s *SessionService) Issue(ctx context.Context, record models.UserRecord) (*models.LoginResponse, error) {
	if record == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "cannot open a session without a user")
	}
	session := models.NewSession(uuid.NewString(), record, s.now(), s.config.TTL)
	if err := s.store.Save(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to store session")
	}
	token, err := s.sign(session)
	if err != nil {
		_ = s.store.Delete(ctx, session.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign session token")
	}
	return &models.LoginResponse{Token: token, ExpiresAt: session.ExpiresAt, Role: session.Role, User: record}, nil
}

// Authenticate verifies a token and loads its session.
func (s *SessionService) Authenticate(ctx context.Context, tokenString string) (*models.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	session, err := s.store.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrMalformedRecord) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load session")
	}
	if session.UID != claims.UID || session.Role != claims.Role || session.Record() == nil {
		s.logger.Warn("session does not match token", zap.String("session_id", session.ID))
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
	}
	return session, nil
}

// Refresh replaces the stored record, keeping the original expiry.
func (s *SessionService) Refresh(ctx context.Context, session *models.Session, record models.UserRecord) error {
	if record.AuthUID() != session.UID || record.Role() != session.Role {
		return appErrors.Clone(appErrors.ErrForbidden, "record does not belong to session")
	}
	session.SetRecord(record)
	if err := s.store.Save(ctx, session); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to refresh session")
	}
	return nil
}

// Revoke deletes the session.
func (s *SessionService) Revoke(ctx context.Context, session *models.Session) error {
	if err := s.store.Delete(ctx, session.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to end session")
	}
	return nil
}

func (s *SessionService) sign(session *models.Session) (string, error) {
	claims := &models.SessionClaims{
		SessionID: session.ID,
		UID:       session.UID,
		Role:      session.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   session.UID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			NotBefore: jwt.NewNumericDate(session.CreatedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}
