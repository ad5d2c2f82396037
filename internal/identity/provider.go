// Package identity is the authentication provider boundary. Callers only see
// the stable user identifier it returns.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
)

type accountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	TouchSignIn(ctx context.Context, uid string, ts time.Time) error
}

// Provider creates accounts and verifies credentials.
type Provider struct {
	accounts accountStore
	cost     int
	logger   *zap.Logger
}

// NewProvider constructs a Provider hashing with bcrypt.DefaultCost.
func NewProvider(accounts accountStore, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{accounts: accounts, cost: bcrypt.DefaultCost, logger: logger}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (p *Provider) WithCost(cost int) *Provider {
	p.cost = cost
	return p
}

// CreateAccount registers credentials and returns the new auth UID.
func (p *Provider) CreateAccount(ctx context.Context, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	account := &models.Account{
		UID:          uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", appErrors.Clone(appErrors.ErrConflict, "email address is already in use")
		}
		return "", appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to create account")
	}
	return account.UID, nil
}

// SignIn verifies credentials and returns the auth UID.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, error) {
	account, err := p.accounts.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return "", appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to verify credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if err := p.accounts.TouchSignIn(ctx, account.UID, time.Now().UTC()); err != nil {
		p.logger.Warn("failed to record sign in", zap.String("uid", account.UID), zap.Error(err))
	}
	return account.UID, nil
}

// SignOut ends the provider side of a session. Credentials are stateless here.
func (p *Provider) SignOut(_ context.Context, uid string) error {
	p.logger.Debug("account signed out", zap.String("uid", uid))
	return nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
