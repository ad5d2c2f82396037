package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/identity"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
	"github.com/noah-isme/portal-sabido-api/pkg/events"
	"github.com/noah-isme/portal-sabido-api/pkg/validation"
)

type registrationStudentRepository interface {
	FindByUID(ctx context.Context, uid string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	SetStudentID(ctx context.Context, id, studentID string) error
}

type registrationInstructorRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Instructor, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	AddStudent(ctx context.Context, instructorID, studentUID string) error
}

type repairScheduler interface {
	Schedule(studentID string)
}

// Instructor code format messages.
const (
	msgCodeLength     = "Instructor code must be exactly 4 digits"
	msgCodeDigits     = "Instructor code must contain only numbers"
	msgCodeLookupFail = "Failed to validate instructor code. Please try again."
)

// CodeValidation is the verdict on a student-supplied instructor code.
type CodeValidation struct {
	Valid      bool
	Instructor *models.Instructor
	Message    string
}

// RegistrationService writes new student and instructor records.
type RegistrationService struct {
	students    registrationStudentRepository
	instructors registrationInstructorRepository
	codes       *InstructorCodeService
	provider    AuthProvider
	repairs     repairScheduler
	cache       *CacheService
	publisher   events.Publisher
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// RegistrationDeps groups RegistrationService collaborators.
type RegistrationDeps struct {
	Students    registrationStudentRepository
	Instructors registrationInstructorRepository
	Codes       *InstructorCodeService
	Provider    AuthProvider
	Repairs     repairScheduler
	Cache       *CacheService
	Publisher   events.Publisher
	Validator   *validator.Validate
	Metrics     *MetricsService
	Logger      *zap.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(deps RegistrationDeps) *RegistrationService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validation.New()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Noop{}
	}
	if deps.Codes == nil {
		deps.Codes = NewInstructorCodeService(deps.Instructors, nil, DefaultCodeAttempts, deps.Metrics, deps.Logger)
	}
	return &RegistrationService{
		students:    deps.Students,
		instructors: deps.Instructors,
		codes:       deps.Codes,
		provider:    deps.Provider,
		repairs:     deps.Repairs,
		cache:       deps.Cache,
		publisher:   deps.Publisher,
		validator:   deps.Validator,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ValidateInstructorCode checks format and then looks the instructor up.
// Lookup failures yield an invalid verdict rather than an error.
func (s *RegistrationService) ValidateInstructorCode(ctx context.Context, code string) CodeValidation {
	code = strings.TrimSpace(code)
	if len(code) != 4 {
		return CodeValidation{Message: msgCodeLength}
	}
	if !validation.IsInstructorCode(code) {
		return CodeValidation{Message: msgCodeDigits}
	}
	instructor, err := s.instructors.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return CodeValidation{Message: appErrors.ErrInvalidInstructorCode.Message}
		}
		s.logger.Warn("instructor code lookup failed", zap.String("code", code), zap.Error(err))
		return CodeValidation{Message: msgCodeLookupFail}
	}
	return CodeValidation{Valid: true, Instructor: instructor}
}

// SaveStudent persists a student for an existing auth UID and links it into
// the instructor's roster. Repeating the call with the same UID repairs and
// returns the existing record instead of creating a second one.
func (s *RegistrationService) SaveStudent(ctx context.Context, form dto.StudentRegistrationRequest, uid string) (string, error) {
	check := s.ValidateInstructorCode(ctx, form.InstructorCode)
	if !check.Valid {
		return "", appErrors.Clone(appErrors.ErrInvalidInstructorCode, check.Message)
	}
	instructor := check.Instructor

	existing, err := s.students.FindByUID(ctx, uid)
	switch {
	case err == nil:
		if existing.InstructorReference != instructor.InstructorCode {
			s.logger.Warn("registration retry with a different instructor code",
				zap.String("student_id", existing.ID), zap.String("registered_code", existing.InstructorReference), zap.String("requested_code", instructor.InstructorCode))
			return "", appErrors.Clone(appErrors.ErrConflict, "this account is already registered under another instructor")
		}
		return existing.ID, s.completeStudent(ctx, existing, instructor)
	case !errors.Is(err, repository.ErrNotFound):
		return "", appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to check existing registration")
	}

	now := s.now()
	student := &models.Student{
		UID:                 uid,
		FirstName:           strings.TrimSpace(form.FirstName),
		MiddleName:          strings.TrimSpace(form.MiddleName),
		LastName:            strings.TrimSpace(form.LastName),
		Age:                 form.Age,
		Gender:              form.Gender,
		Email:               identity.NormalizeEmail(form.Email),
		ContactNumber:       strings.TrimSpace(form.ContactNumber),
		Address:             strings.TrimSpace(form.Address),
		ChurchAffiliate:     strings.TrimSpace(form.ChurchAffiliate),
		InstructorReference: instructor.InstructorCode,
		Status:              models.StudentStatusActive,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.students.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", appErrors.Clone(appErrors.ErrConflict, "a student with this account already exists")
		}
		return "", appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "Failed to save registration. Please try again.")
	}

	return student.ID, s.completeStudent(ctx, student, instructor)
}

// completeStudent derives the display id and asserts roster membership. Both
// steps are idempotent; on failure a repair is scheduled.
func (s *RegistrationService) completeStudent(ctx context.Context, student *models.Student, instructor *models.Instructor) error {
	if want := models.DeriveStudentID(student.ID); student.StudentID != want {
		if err := s.students.SetStudentID(ctx, student.ID, want); err != nil {
			return s.partialFailure(student, "assign student id", err)
		}
		student.StudentID = want
	}
	if !instructor.HasStudent(student.UID) {
		if err := s.instructors.AddStudent(ctx, instructor.ID, student.UID); err != nil {
			return s.partialFailure(student, "link student to instructor", err)
		}
		instructor.Students = append(instructor.Students, student.UID)
	}
	return nil
}

func (s *RegistrationService) partialFailure(student *models.Student, step string, err error) error {
	s.logger.Warn("student registration incomplete", zap.String("student_id", student.ID), zap.String("step", step), zap.Error(err))
	if s.repairs != nil {
		s.repairs.Schedule(student.ID)
	}
	return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "Registration saved but not fully linked. It will be completed automatically.")
}

// SaveInstructor persists an instructor after re-checking the requested code.
func (s *RegistrationService) SaveInstructor(ctx context.Context, form dto.InstructorRegistrationRequest, uid string) (string, error) {
	code := strings.TrimSpace(form.InstructorCode)
	if !validation.IsInstructorCode(code) {
		return "", appErrors.Clone(appErrors.ErrValidation, msgCodeDigits)
	}
	if s.codes.IsTaken(ctx, code) {
		return "", appErrors.ErrCodeAlreadyInUse
	}

	now := s.now()
	instructor := &models.Instructor{
		UID:            uid,
		Name:           strings.TrimSpace(form.Name),
		Email:          identity.NormalizeEmail(form.Email),
		ContactNumber:  strings.TrimSpace(form.ContactNumber),
		InstructorCode: code,
		Students:       []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.instructors.Create(ctx, instructor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", appErrors.ErrCodeAlreadyInUse
		}
		return "", appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "Failed to save registration. Please try again.")
	}
	return instructor.ID, nil
}

// RegisterStudent validates the form, creates the auth account and saves the student.
func (s *RegistrationService) RegisterStudent(ctx context.Context, form dto.StudentRegistrationRequest) (*models.Student, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	check := s.ValidateInstructorCode(ctx, form.InstructorCode)
	if !check.Valid {
		return nil, appErrors.Clone(appErrors.ErrInvalidInstructorCode, check.Message)
	}

	uid, err := s.provider.CreateAccount(ctx, form.Email, form.Password)
	if err != nil {
		return nil, err
	}
	id, err := s.SaveStudent(ctx, form, uid)
	if err != nil && id == "" {
		return nil, err
	}

	student, lookupErr := s.students.FindByUID(ctx, uid)
	if lookupErr != nil {
		return nil, appErrors.Wrap(lookupErr, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load registration")
	}
	s.cache.Invalidate(ctx, RosterCacheKey(student.InstructorReference))
	if err != nil {
		return student, err
	}

	s.metrics.RecordRegistration(models.RoleStudent.String())
	s.publish(ctx, events.StudentRegistered, map[string]string{
		"student_id":      student.ID,
		"uid":             student.UID,
		"instructor_code": student.InstructorReference,
	})
	s.logger.Info("student registered", zap.String("student_id", student.ID), zap.String("instructor_code", student.InstructorReference))
	return student, nil
}

// RegisterInstructor validates the form, creates the auth account and saves the instructor.
func (s *RegistrationService) RegisterInstructor(ctx context.Context, form dto.InstructorRegistrationRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if s.codes.IsTaken(ctx, form.InstructorCode) {
		return nil, appErrors.ErrCodeAlreadyInUse
	}

	uid, err := s.provider.CreateAccount(ctx, form.Email, form.Password)
	if err != nil {
		return nil, err
	}
	id, err := s.SaveInstructor(ctx, form, uid)
	if err != nil {
		return nil, err
	}

	instructor, err := s.instructors.FindByCode(ctx, strings.TrimSpace(form.InstructorCode))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load registration")
	}
	s.metrics.RecordRegistration(models.RoleInstructor.String())
	s.publish(ctx, events.InstructorRegistered, map[string]string{
		"instructor_id":   id,
		"uid":             uid,
		"instructor_code": instructor.InstructorCode,
	})
	s.logger.Info("instructor registered", zap.String("instructor_id", id), zap.String("instructor_code", instructor.InstructorCode))
	return instructor, nil
}

func (s *RegistrationService) publish(ctx context.Context, event string, data interface{}) {
	if err := s.publisher.Publish(ctx, event, data); err != nil {
		s.logger.Warn("event publish failed", zap.String("event", event), zap.Error(err))
	}
}
