package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
	"github.com/noah-isme/portal-sabido-api/pkg/validation"
)

type rosterStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListByInstructorCode(ctx context.Context, code string) ([]models.Student, error)
	UpdateInfo(ctx context.Context, id string, update models.StudentInfoUpdate) (*models.Student, error)
}

// RosterService aggregates the students linked to an instructor code.
type RosterService struct {
	repo      rosterStudentRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger

	// collate.Collator is not safe for concurrent use
	collMu   sync.Mutex
	collator *collate.Collator
}

// NewRosterService constructs the service.
func NewRosterService(repo rosterStudentRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		repo:      repo,
		cache:     cache,
		validator: validate,
		logger:    logger,
		collator:  collate.New(language.English, collate.Loose),
	}
}

// ListStudents returns every student referencing code, ascending by last
// name with ties kept in stored order. Failures yield an empty list.
func (s *RosterService) ListStudents(ctx context.Context, code string) []models.Student {
	var cached []models.Student
	if s.cache.Get(ctx, RosterCacheKey(code), &cached) {
		return cached
	}

	students, err := s.repo.ListByInstructorCode(ctx, code)
	if err != nil {
		s.logger.Warn("list roster failed", zap.String("code", code), zap.Error(err))
		return []models.Student{}
	}
	s.SortByLastName(students)
	s.cache.Set(ctx, RosterCacheKey(code), students, 0)
	return students
}

// Roster returns the sorted roster with payment status and a summary.
func (s *RosterService) Roster(ctx context.Context, code string) ([]dto.RosterStudent, dto.RosterSummary) {
	students := s.ListStudents(ctx, code)
	rows := make([]dto.RosterStudent, 0, len(students))
	summary := dto.RosterSummary{Total: len(students)}
	for _, st := range students {
		status := models.PaymentStatusFor(st.Balance)
		rows = append(rows, dto.RosterStudent{Student: st, PaymentStatus: status})
		if st.Status == models.StudentStatusActive {
			summary.Active++
		}
		switch status {
		case models.PaymentPaid:
			summary.Paid++
		case models.PaymentPending:
			summary.Pending++
		case models.PaymentOverpaid:
			summary.Overpaid++
		}
		summary.TotalBalance += st.Balance
	}
	return rows, summary
}

// UpdateInfo edits balance and/or remarks of a student owned by instructorCode.
func (s *RosterService) UpdateInfo(ctx context.Context, instructorCode, studentID string, req dto.UpdateStudentInfoRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student update payload")
	}
	update := models.StudentInfoUpdate{Balance: req.Balance, Remarks: req.Remarks}
	if update.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "balance or remarks is required")
	}

	student, err := s.repo.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load student")
	}
	if student.InstructorReference != instructorCode {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student belongs to another instructor")
	}

	updated, err := s.repo.UpdateInfo(ctx, studentID, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "Failed to update student information")
	}
	s.cache.Invalidate(ctx, RosterCacheKey(instructorCode))
	s.logger.Info("student info updated", zap.String("student_id", studentID), zap.String("instructor_code", instructorCode))
	return updated, nil
}

// SortByLastName sorts in place with locale-aware comparison.
func (s *RosterService) SortByLastName(students []models.Student) {
	s.collMu.Lock()
	defer s.collMu.Unlock()
	sort.SliceStable(students, func(i, j int) bool {
		return s.collator.CompareString(students[i].LastName, students[j].LastName) < 0
	})
}
