package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/pkg/validation"
)

const studentColumns = `id, uid, first_name, middle_name, last_name, age, gender, email, contact_number, address, church_affiliate,
        student_id, instructor_reference, assessment, balance, remarks, status, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db       *sqlx.DB
	validate *validator.Validate
	logger   *zap.Logger
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB, logger *zap.Logger) *StudentRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentRepository{db: db, validate: validation.Shared(), logger: logger}
}

// FindByID fetches a student by record id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return r.findOne(ctx, "find student by id", `SELECT `+studentColumns+` FROM students WHERE id = $1 LIMIT 1`, id)
}

// FindByEmail fetches a student by email.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	return r.findOne(ctx, "find student by email", `SELECT `+studentColumns+` FROM students WHERE email = $1 LIMIT 1`, email)
}

// FindByUID fetches a student by auth UID.
func (r *StudentRepository) FindByUID(ctx context.Context, uid string) (*models.Student, error) {
	return r.findOne(ctx, "find student by uid", `SELECT `+studentColumns+` FROM students WHERE uid = $1 LIMIT 1`, uid)
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (` + studentColumns + `)
        VALUES (:id, :uid, :first_name, :middle_name, :last_name, :age, :gender, :email, :contact_number, :address, :church_affiliate,
        :student_id, :instructor_reference, :assessment, :balance, :remarks, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// SetStudentID patches the derived display id.
func (r *StudentRepository) SetStudentID(ctx context.Context, id, studentID string) error {
	const query = `UPDATE students SET student_id = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, studentID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set student id: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByInstructorCode returns every student referencing code in insertion order.
func (r *StudentRepository) ListByInstructorCode(ctx context.Context, code string) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE instructor_reference = $1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, "list students by instructor", query, code)
}

// ListAll returns every student.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	return r.list(ctx, "list students", `SELECT `+studentColumns+` FROM students ORDER BY created_at ASC, id ASC`)
}

// UpdateInfo applies a partial balance/remarks update and returns the new record.
func (r *StudentRepository) UpdateInfo(ctx context.Context, id string, update models.StudentInfoUpdate) (*models.Student, error) {
	sets := []string{}
	args := []interface{}{id}
	if update.Balance != nil {
		args = append(args, *update.Balance)
		sets = append(sets, fmt.Sprintf("balance = $%d", len(args)))
	}
	if update.Remarks != nil {
		args = append(args, *update.Remarks)
		sets = append(sets, fmt.Sprintf("remarks = $%d", len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := fmt.Sprintf(`UPDATE students SET %s WHERE id = $1 RETURNING %s`, strings.Join(sets, ", "), studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update student info: %w", err)
	}
	return &student, nil
}

// UpdateContact replaces the contact number.
func (r *StudentRepository) UpdateContact(ctx context.Context, id, contactNumber string) error {
	const query = `UPDATE students SET contact_number = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, contactNumber, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update student contact: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *StudentRepository) findOne(ctx context.Context, op, query string, arg interface{}) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := CheckShape(r.validate, &student); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &student, nil
}

func (r *StudentRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]models.Student, error) {
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	valid := students[:0]
	for i := range students {
		if err := CheckShape(r.validate, &students[i]); err != nil {
			r.logger.Warn("skipping malformed student record", zap.String("id", students[i].ID), zap.Error(err))
			continue
		}
		valid = append(valid, students[i])
	}
	return valid, nil
}
