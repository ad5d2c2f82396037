package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/pkg/validation"
)

const instructorColumns = `id, uid, name, email, contact_number, instructor_code, created_at, updated_at`

// InstructorRepository persists instructors and their student rosters.
type InstructorRepository struct {
	db       *sqlx.DB
	validate *validator.Validate
	logger   *zap.Logger
}

// NewInstructorRepository constructs an InstructorRepository.
func NewInstructorRepository(db *sqlx.DB, logger *zap.Logger) *InstructorRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorRepository{db: db, validate: validation.Shared(), logger: logger}
}

// FindByCode returns the instructor owning code.
func (r *InstructorRepository) FindByCode(ctx context.Context, code string) (*models.Instructor, error) {
	return r.findOne(ctx, "find instructor by code", `SELECT `+instructorColumns+` FROM instructors WHERE instructor_code = $1 LIMIT 1`, code)
}

// FindByEmail returns the instructor registered with email.
func (r *InstructorRepository) FindByEmail(ctx context.Context, email string) (*models.Instructor, error) {
	return r.findOne(ctx, "find instructor by email", `SELECT `+instructorColumns+` FROM instructors WHERE email = $1 LIMIT 1`, email)
}

// FindByUID returns the instructor bound to an auth UID.
func (r *InstructorRepository) FindByUID(ctx context.Context, uid string) (*models.Instructor, error) {
	return r.findOne(ctx, "find instructor by uid", `SELECT `+instructorColumns+` FROM instructors WHERE uid = $1 LIMIT 1`, uid)
}

// ExistsByCode reports whether any instructor holds code.
func (r *InstructorRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM instructors WHERE instructor_code = $1 LIMIT 1`, code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check instructor code: %w", err)
	}
	return true, nil
}

// Create inserts a new instructor. A taken code yields ErrDuplicate.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if instructor.CreatedAt.IsZero() {
		instructor.CreatedAt = now
	}
	instructor.UpdatedAt = now
	if instructor.Students == nil {
		instructor.Students = []string{}
	}
	const query = `INSERT INTO instructors (` + instructorColumns + `)
        VALUES (:id, :uid, :name, :email, :contact_number, :instructor_code, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create instructor: %w", ErrDuplicate)
		}
		return fmt.Errorf("create instructor: %w", err)
	}
	for _, uid := range instructor.Students {
		if err := r.AddStudent(ctx, instructor.ID, uid); err != nil {
			return err
		}
	}
	return nil
}

// AddStudent links a student UID into the roster. Re-adding is a no-op.
func (r *InstructorRepository) AddStudent(ctx context.Context, instructorID, studentUID string) error {
	const query = `INSERT INTO instructor_students (instructor_id, student_uid, added_at) VALUES ($1, $2, $3)
        ON CONFLICT (instructor_id, student_uid) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, instructorID, studentUID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add roster student: %w", err)
	}
	return nil
}

// UpdateContact replaces the contact number.
func (r *InstructorRepository) UpdateContact(ctx context.Context, id, contactNumber string) error {
	const query = `UPDATE instructors SET contact_number = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, contactNumber, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update instructor contact: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns every instructor ordered by creation.
func (r *InstructorRepository) ListAll(ctx context.Context) ([]models.Instructor, error) {
	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, `SELECT `+instructorColumns+` FROM instructors ORDER BY created_at ASC`); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	valid := instructors[:0]
	for i := range instructors {
		if err := r.loadStudents(ctx, &instructors[i]); err != nil {
			return nil, err
		}
		if err := CheckShape(r.validate, &instructors[i]); err != nil {
			r.logger.Warn("skipping malformed instructor record", zap.String("id", instructors[i].ID), zap.Error(err))
			continue
		}
		valid = append(valid, instructors[i])
	}
	return valid, nil
}

func (r *InstructorRepository) findOne(ctx context.Context, op, query string, arg interface{}) (*models.Instructor, error) {
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.loadStudents(ctx, &instructor); err != nil {
		return nil, err
	}
	if err := CheckShape(r.validate, &instructor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &instructor, nil
}

func (r *InstructorRepository) loadStudents(ctx context.Context, instructor *models.Instructor) error {
	uids := []string{}
	const query = `SELECT student_uid FROM instructor_students WHERE instructor_id = $1 ORDER BY added_at ASC, student_uid ASC`
	if err := r.db.SelectContext(ctx, &uids, query, instructor.ID); err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	instructor.Students = uids
	return nil
}
