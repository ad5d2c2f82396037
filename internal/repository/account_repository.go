package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/portal-sabido-api/internal/models"
)

// AccountRepository stores credentials for the identity provider.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new instance of AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts an account. A taken email yields ErrDuplicate.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO accounts (uid, email, password_hash, created_at, last_sign_in_at)
        VALUES (:uid, :email, :password_hash, :created_at, :last_sign_in_at)`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create account: %w", ErrDuplicate)
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// FindByEmail returns an account by email address.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	const query = `SELECT uid, email, password_hash, created_at, last_sign_in_at FROM accounts WHERE email = $1 LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return &account, nil
}

// TouchSignIn records the latest successful sign in.
func (r *AccountRepository) TouchSignIn(ctx context.Context, uid string, ts time.Time) error {
	const query = `UPDATE accounts SET last_sign_in_at = $2 WHERE uid = $1`
	if _, err := r.db.ExecContext(ctx, query, uid, ts); err != nil {
		return fmt.Errorf("touch sign in: %w", err)
	}
	return nil
}
