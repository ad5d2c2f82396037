package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portal-sabido-api/internal/models"
)

var studentColumnNames = []string{"id", "uid", "first_name", "middle_name", "last_name", "age", "gender", "email", "contact_number",
	"address", "church_affiliate", "student_id", "instructor_reference", "assessment", "balance", "remarks", "status", "created_at", "updated_at"}

func studentRow(rows *sqlmock.Rows, id, last, status string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "uid-"+id, "First", "", last, 17, "female", id+"@example.com", "0912", "Street", "Parish",
		models.DeriveStudentID(id), "1234", 0.0, 150.0, "", status, now, now)
}

func TestStudentRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE email = $1 LIMIT 1")).
		WithArgs("abc@example.com").
		WillReturnRows(studentRow(sqlmock.NewRows(studentColumnNames), "abc", "Cruz", "active"))

	student, err := repo.FindByEmail(context.Background(), "abc@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Cruz", student.LastName)
	assert.Equal(t, 150.0, student.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByUIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE uid = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(studentColumnNames))

	_, err := repo.FindByUID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStudentRepositoryListSkipsMalformed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db, nil)

	rows := sqlmock.NewRows(studentColumnNames)
	studentRow(rows, "a1", "Reyes", "active")
	studentRow(rows, "a2", "Bautista", "expelled")
	studentRow(rows, "a3", "Aquino", "graduated")
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE instructor_reference = $1 ORDER BY created_at ASC, id ASC")).
		WithArgs("1234").
		WillReturnRows(rows)

	students, err := repo.ListByInstructorCode(context.Background(), "1234")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "a1", students[0].ID)
	assert.Equal(t, "a3", students[1].ID)
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db, nil)

	mock.ExpectExec("INSERT INTO students").
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{UID: "u1", FirstName: "Ana", LastName: "Cruz", Email: "ana@example.com", InstructorReference: "1234", Status: models.StudentStatusActive}
	require.NoError(t, repo.Create(context.Background(), student))
	assert.NotEmpty(t, student.ID)
	assert.False(t, student.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySetStudentID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db, nil)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET student_id = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("abcdef12", "STUABCDEF", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetStudentID(context.Background(), "abcdef12", "STUABCDEF"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateInfoPartial(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db, nil)

	remarks := "Paid in cash"
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students SET remarks = $2, updated_at = $3 WHERE id = $1 RETURNING")).
		WithArgs("a1", remarks, sqlmock.AnyArg()).
		WillReturnRows(studentRow(sqlmock.NewRows(studentColumnNames), "a1", "Cruz", "active"))

	student, err := repo.UpdateInfo(context.Background(), "a1", models.StudentInfoUpdate{Remarks: &remarks})
	require.NoError(t, err)
	assert.Equal(t, "a1", student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateInfoBoth(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db, nil)

	balance := 0.0
	remarks := ""
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students SET balance = $2, remarks = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("missing", balance, remarks, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(studentColumnNames))

	_, err := repo.UpdateInfo(context.Background(), "missing", models.StudentInfoUpdate{Balance: &balance, Remarks: &remarks})
	assert.ErrorIs(t, err, ErrNotFound)
}
