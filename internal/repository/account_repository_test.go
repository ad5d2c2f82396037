package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portal-sabido-api/internal/models"
)

func TestAccountRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE email = $1 LIMIT 1")).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"uid", "email", "password_hash", "created_at", "last_sign_in_at"}).
			AddRow("u1", "ana@example.com", "$2a$hash", time.Now(), nil))

	account, err := repo.FindByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", account.UID)
	assert.Nil(t, account.LastSignInAt)
}

func TestAccountRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAccountRepository(db)

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Account{UID: "u1", Email: "ana@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMigrateAppliesSchema(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS accounts")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.Contains(t, Schema(), "instructors_instructor_code_key")
	assert.NoError(t, mock.ExpectationsWereMet())
}
