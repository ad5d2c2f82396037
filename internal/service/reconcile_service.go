package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	"github.com/noah-isme/portal-sabido-api/pkg/events"
	"github.com/noah-isme/portal-sabido-api/pkg/jobs"
)

// RepairJobType names registration repair jobs.
const RepairJobType = "registration.repair"

type reconcileStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListAll(ctx context.Context) ([]models.Student, error)
	SetStudentID(ctx context.Context, id, studentID string) error
}

type reconcileInstructorRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Instructor, error)
	AddStudent(ctx context.Context, instructorID, studentUID string) error
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// RepairResult describes what one repair changed.
type RepairResult struct {
	StudentID      string `json:"student_id"`
	DisplayIDFixed bool   `json:"display_id_fixed"`
	RosterLinked   bool   `json:"roster_linked"`
	Orphaned       bool   `json:"orphaned"`
}

// RepairSummary aggregates a full reconciliation pass.
type RepairSummary struct {
	Scanned         int `json:"scanned"`
	DisplayIDsFixed int `json:"display_ids_fixed"`
	RosterLinks     int `json:"roster_links"`
	Orphaned        int `json:"orphaned"`
	Failed          int `json:"failed"`
}

// ReconcileService re-derives display ids and re-asserts roster membership
// for students whose registration stopped part way.
type ReconcileService struct {
	students    reconcileStudentRepository
	instructors reconcileInstructorRepository
	queue       jobQueue
	cache       *CacheService
	publisher   events.Publisher
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewReconcileService constructs a ReconcileService.
func NewReconcileService(students reconcileStudentRepository, instructors reconcileInstructorRepository, publisher events.Publisher, metrics *MetricsService, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &ReconcileService{students: students, instructors: instructors, publisher: publisher, metrics: metrics, logger: logger}
}

// AttachQueue routes Schedule through a background queue.
func (s *ReconcileService) AttachQueue(queue jobQueue) {
	s.queue = queue
}

// AttachCache lets repairs drop the cached roster they change.
func (s *ReconcileService) AttachCache(cache *CacheService) {
	s.cache = cache
}

// Schedule requests a background repair of one student.
func (s *ReconcileService) Schedule(studentID string) {
	if s.queue == nil {
		s.logger.Warn("repair queue not configured", zap.String("student_id", studentID))
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Key:     "student:" + studentID,
		Type:    RepairJobType,
		Payload: studentID,
	})
	switch {
	case err == nil:
		s.logger.Info("registration repair scheduled", zap.String("student_id", studentID))
	case errors.Is(err, jobs.ErrDuplicate):
	case errors.Is(err, jobs.ErrQueueFull):
		s.logger.Warn("repair queue full; left for the next reconcile run", zap.String("student_id", studentID))
	default:
		s.logger.Error("failed to schedule registration repair", zap.String("student_id", studentID), zap.Error(err))
	}
}

// JobHandler processes queued repair jobs.
func (s *ReconcileService) JobHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		studentID, ok := job.Payload.(string)
		if !ok || studentID == "" {
			return fmt.Errorf("repair job %s: unexpected payload %T", job.ID, job.Payload)
		}
		_, err := s.RepairStudent(ctx, studentID)
		return err
	}
}

// RepairStudent brings one student to the fully registered state.
func (s *ReconcileService) RepairStudent(ctx context.Context, studentID string) (RepairResult, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		s.metrics.RecordRepair(false)
		return RepairResult{StudentID: studentID}, fmt.Errorf("load student %s: %w", studentID, err)
	}
	result, err := s.repair(ctx, student)
	s.metrics.RecordRepair(err == nil)
	return result, err
}

// RepairAll runs the repair over every student. Individual failures are
// counted and logged; only a failed listing aborts the pass.
func (s *ReconcileService) RepairAll(ctx context.Context) (RepairSummary, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return RepairSummary{}, fmt.Errorf("list students: %w", err)
	}

	var summary RepairSummary
	for i := range students {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Scanned++
		result, err := s.repair(ctx, &students[i])
		s.metrics.RecordRepair(err == nil)
		if err != nil {
			summary.Failed++
			s.logger.Warn("student repair failed", zap.String("student_id", students[i].ID), zap.Error(err))
			continue
		}
		if result.DisplayIDFixed {
			summary.DisplayIDsFixed++
		}
		if result.RosterLinked {
			summary.RosterLinks++
		}
		if result.Orphaned {
			summary.Orphaned++
		}
	}
	s.logger.Info("reconciliation finished",
		zap.Int("scanned", summary.Scanned),
		zap.Int("display_ids_fixed", summary.DisplayIDsFixed),
		zap.Int("roster_links", summary.RosterLinks),
		zap.Int("orphaned", summary.Orphaned),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (s *ReconcileService) repair(ctx context.Context, student *models.Student) (RepairResult, error) {
	result := RepairResult{StudentID: student.ID}

	if want := models.DeriveStudentID(student.ID); student.StudentID != want {
		if err := s.students.SetStudentID(ctx, student.ID, want); err != nil {
			return result, fmt.Errorf("set student id: %w", err)
		}
		student.StudentID = want
		result.DisplayIDFixed = true
	}

	instructor, err := s.instructors.FindByCode(ctx, student.InstructorReference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// no instructor holds the code any more; nothing to link to
			result.Orphaned = true
			s.logger.Warn("student references unknown instructor code",
				zap.String("student_id", student.ID), zap.String("instructor_code", student.InstructorReference))
			return result, nil
		}
		return result, fmt.Errorf("load instructor %s: %w", student.InstructorReference, err)
	}
	if !instructor.HasStudent(student.UID) {
		if err := s.instructors.AddStudent(ctx, instructor.ID, student.UID); err != nil {
			return result, fmt.Errorf("link student: %w", err)
		}
		result.RosterLinked = true
	}

	if result.DisplayIDFixed || result.RosterLinked {
		s.cache.Invalidate(ctx, RosterCacheKey(student.InstructorReference))
		if err := s.publisher.Publish(ctx, events.RegistrationRepaired, result); err != nil {
			s.logger.Warn("event publish failed", zap.String("event", events.RegistrationRepaired), zap.Error(err))
		}
	}
	return result, nil
}
