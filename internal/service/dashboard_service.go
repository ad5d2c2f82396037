package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
)

type dashboardAnnouncements interface {
	ListForInstructor(ctx context.Context, code string) []models.Announcement
	ListForStudent(ctx context.Context, studentUID string) []models.Announcement
}

type dashboardRoster interface {
	Roster(ctx context.Context, code string) ([]dto.RosterStudent, dto.RosterSummary)
}

type dashboardInstructorLookup interface {
	FindByCode(ctx context.Context, code string) (*models.Instructor, error)
}

// DashboardService assembles the landing page for the current session.
type DashboardService struct {
	announcements dashboardAnnouncements
	roster        dashboardRoster
	instructors   dashboardInstructorLookup
	logger        *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(announcements dashboardAnnouncements, roster dashboardRoster, instructors dashboardInstructorLookup, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{announcements: announcements, roster: roster, instructors: instructors, logger: logger}
}

// Build returns the dashboard for the session's role.
func (s *DashboardService) Build(ctx context.Context, session *models.Session) (*dto.DashboardResponse, error) {
	if session == nil || session.Record() == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch record := session.Record().(type) {
	case *models.Instructor:
		return s.instructorDashboard(ctx, record), nil
	case *models.Student:
		return s.studentDashboard(ctx, record), nil
	default:
		return nil, appErrors.Clone(appErrors.ErrInternal, "unsupported session record")
	}
}

func (s *DashboardService) instructorDashboard(ctx context.Context, instructor *models.Instructor) *dto.DashboardResponse {
	rows, summary := s.roster.Roster(ctx, instructor.InstructorCode)
	announcements := s.announcements.ListForInstructor(ctx, instructor.InstructorCode)
	return &dto.DashboardResponse{
		Role:          models.RoleInstructor,
		User:          instructor,
		Announcements: ToViews(announcements, ""),
		Roster:        rows,
		Summary:       &summary,
	}
}

func (s *DashboardService) studentDashboard(ctx context.Context, student *models.Student) *dto.DashboardResponse {
	resp := &dto.DashboardResponse{
		Role:          models.RoleStudent,
		User:          student,
		Announcements: ToViews(s.announcements.ListForStudent(ctx, student.UID), student.UID),
	}
	instructor, err := s.instructors.FindByCode(ctx, student.InstructorReference)
	switch {
	case err == nil:
		resp.Instructor = &dto.InstructorCard{
			Name:          instructor.Name,
			Email:         instructor.Email,
			ContactNumber: instructor.ContactNumber,
			Code:          instructor.InstructorCode,
		}
	case !errors.Is(err, repository.ErrNotFound):
		s.logger.Warn("instructor lookup for dashboard failed", zap.String("code", student.InstructorReference), zap.Error(err))
	}
	return resp
}
