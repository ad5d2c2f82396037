package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
	"github.com/noah-isme/portal-sabido-api/pkg/events"
	"github.com/noah-isme/portal-sabido-api/pkg/validation"
)

// UnknownInstructorName is stored when the owning instructor cannot be found.
const UnknownInstructorName = "Unknown Instructor"

type announcementRepository interface {
	Create(ctx context.Context, announcement *models.Announcement) error
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	ListByInstructorCode(ctx context.Context, code string) ([]models.Announcement, error)
	AddViewer(ctx context.Context, id, uid string) error
	AddAcknowledger(ctx context.Context, id, uid string) error
}

type announcementInstructorLookup interface {
	FindByCode(ctx context.Context, code string) (*models.Instructor, error)
}

type announcementStudentLookup interface {
	FindByUID(ctx context.Context, uid string) (*models.Student, error)
}

// AnnouncementService creates announcements and fans them out to students.
type AnnouncementService struct {
	repo        announcementRepository
	instructors announcementInstructorLookup
	students    announcementStudentLookup
	publisher   events.Publisher
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, instructors announcementInstructorLookup, students announcementStudentLookup, publisher events.Publisher, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &AnnouncementService{
		repo:        repo,
		instructors: instructors,
		students:    students,
		publisher:   publisher,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a published announcement owned by instructorCode.
func (s *AnnouncementService) Create(ctx context.Context, instructorCode string, req dto.CreateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	now := s.now()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "expiry must be in the future")
	}

	instructorName := UnknownInstructorName
	instructor, err := s.instructors.FindByCode(ctx, instructorCode)
	switch {
	case err == nil && strings.TrimSpace(instructor.Name) != "":
		instructorName = instructor.Name
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		s.logger.Warn("instructor lookup for announcement failed", zap.String("code", instructorCode), zap.Error(err))
	}

	announcement := &models.Announcement{
		Title:          strings.TrimSpace(req.Title),
		Content:        req.Content,
		Priority:       req.Priority,
		Category:       req.Category,
		InstructorCode: instructorCode,
		InstructorName: instructorName,
		TargetAudience: req.TargetAudience,
		TargetStudents: req.TargetStudents,
		ViewedBy:       []string{},
		AcknowledgedBy: []string{},
		Status:         models.AnnouncementStatusPublished,
		IsPinned:       req.IsPinned,
		Attachments:    models.Attachments(req.Attachments),
		ExpiresAt:      req.ExpiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if announcement.Category == "" {
		announcement.Category = models.AnnouncementCategoryGeneral
	}
	if announcement.TargetAudience == "" {
		announcement.TargetAudience = models.AnnouncementAudienceAll
	}
	if announcement.TargetStudents == nil {
		announcement.TargetStudents = []string{}
	}
	if announcement.Attachments == nil {
		announcement.Attachments = models.Attachments{}
	}

	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "Failed to create announcement")
	}

	if err := s.publisher.Publish(ctx, events.AnnouncementCreated, map[string]string{
		"announcement_id": announcement.ID,
		"instructor_code": announcement.InstructorCode,
		"priority":        string(announcement.Priority),
	}); err != nil {
		s.logger.Warn("event publish failed", zap.String("event", events.AnnouncementCreated), zap.Error(err))
	}
	return announcement, nil
}

// ListForInstructor returns the instructor's announcements newest first.
// Failures yield an empty list.
func (s *AnnouncementService) ListForInstructor(ctx context.Context, code string) []models.Announcement {
	items, err := s.repo.ListByInstructorCode(ctx, code)
	if err != nil {
		s.logger.Warn("list announcements failed", zap.String("code", code), zap.Error(err))
		return []models.Announcement{}
	}
	SortNewestFirst(items)
	return items
}

// ListForStudent resolves the student's instructor code and returns the
// announcements visible to that student.
func (s *AnnouncementService) ListForStudent(ctx context.Context, studentUID string) []models.Announcement {
	student, err := s.students.FindByUID(ctx, studentUID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("student lookup for announcements failed", zap.String("uid", studentUID), zap.Error(err))
		}
		return []models.Announcement{}
	}

	now := s.now()
	all := s.ListForInstructor(ctx, student.InstructorReference)
	visible := make([]models.Announcement, 0, len(all))
	for _, a := range all {
		if visibleTo(a, studentUID, now) {
			visible = append(visible, a)
		}
	}
	return visible
}

// MarkViewed adds the student to the viewer set. Repeats are no-ops.
func (s *AnnouncementService) MarkViewed(ctx context.Context, id, studentUID string) error {
	return s.mark(ctx, id, studentUID, s.repo.AddViewer)
}

// MarkAcknowledged adds the student to the acknowledger set. Repeats are no-ops.
func (s *AnnouncementService) MarkAcknowledged(ctx context.Context, id, studentUID string) error {
	return s.mark(ctx, id, studentUID, s.repo.AddAcknowledger)
}

func (s *AnnouncementService) mark(ctx context.Context, id, studentUID string, add func(context.Context, string, string) error) error {
	announcement, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load announcement")
	}
	student, err := s.students.FindByUID(ctx, studentUID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load student")
	}
	if student.InstructorReference != announcement.InstructorCode {
		return appErrors.Clone(appErrors.ErrForbidden, "announcement belongs to another instructor")
	}
	if !visibleTo(*announcement, studentUID, s.now()) {
		return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	}
	if err := add(ctx, id, studentUID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to update announcement")
	}
	return nil
}

// SortNewestFirst orders by CreatedAt descending. Ties keep their input order,
// which the stores return in insertion order.
func SortNewestFirst(items []models.Announcement) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// ToViews decorates announcements with one student's read state.
func ToViews(items []models.Announcement, studentUID string) []dto.AnnouncementView {
	views := make([]dto.AnnouncementView, 0, len(items))
	for i := range items {
		views = append(views, dto.AnnouncementView{
			Announcement: items[i],
			Viewed:       studentUID != "" && items[i].ViewedByStudent(studentUID),
			Acknowledged: studentUID != "" && items[i].AcknowledgedByStudent(studentUID),
		})
	}
	return views
}

func visibleTo(a models.Announcement, studentUID string, now time.Time) bool {
	if a.Status != models.AnnouncementStatusPublished || a.Expired(now) {
		return false
	}
	if a.TargetAudience == models.AnnouncementAudienceSpecific {
		for _, uid := range a.TargetStudents {
			if uid == studentUID {
				return true
			}
		}
		return false
	}
	return true
}
