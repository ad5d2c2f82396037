// Package seed loads sample announcements and writes them for instructors.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	"github.com/noah-isme/portal-sabido-api/pkg/validation"
)

// Entry is one announcement template. Owner fields are filled per instructor.
type Entry struct {
	Title     string                      `yaml:"title" validate:"required,max=200"`
	Content   string                      `yaml:"content" validate:"required"`
	Priority  models.AnnouncementPriority `yaml:"priority" validate:"required,priority"`
	Category  models.AnnouncementCategory `yaml:"category" validate:"omitempty,category"`
	Pinned    bool                        `yaml:"pinned"`
	CreatedAt time.Time                   `yaml:"created_at" validate:"required"`
	ExpiresAt *time.Time                  `yaml:"expires_at"`
}

type file struct {
	Announcements []Entry `yaml:"announcements"`
}

// Load decodes a YAML document of the form `announcements: [...]`.
func Load(r io.Reader) ([]Entry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc file
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("seed file is empty")
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	v := validation.Shared()
	for i := range doc.Announcements {
		if err := v.Struct(doc.Announcements[i]); err != nil {
			return nil, fmt.Errorf("announcement %d (%q): %w", i+1, doc.Announcements[i].Title, err)
		}
	}
	if len(doc.Announcements) == 0 {
		return nil, fmt.Errorf("seed file has no announcements")
	}
	return doc.Announcements, nil
}

// LoadFile reads entries from path.
func LoadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

// Defaults returns the built-in sample announcements.
func Defaults() []Entry {
	return []Entry{
		{
			Title:     "Welcome to Portal Sabido!",
			Content:   "Welcome to our learning platform! Here you'll find all your course materials, assignments, and important updates. Make sure to check this dashboard regularly for announcements.",
			Priority:  models.AnnouncementPriorityImportant,
			Category:  models.AnnouncementCategoryGeneral,
			Pinned:    true,
			CreatedAt: day("2025-06-01"),
		},
		{
			Title:     "Weekly Assignment #1 - Due Friday",
			Content:   "Your first weekly assignment is now available. Please complete the exercises in Chapter 1 and submit your answers by Friday, 5:00 PM. Late submissions will result in point deductions.",
			Priority:  models.AnnouncementPriorityUrgent,
			Category:  models.AnnouncementCategoryAssignment,
			Pinned:    true,
			CreatedAt: day("2025-06-02"),
			ExpiresAt: dayPtr("2025-06-06"),
		},
		{
			Title:     "Tuition Payment Reminder",
			Content:   "Tuition payments for this month are due by June 15th. Please keep your payments up to date and contact the office if you need help with payment arrangements.",
			Priority:  models.AnnouncementPriorityImportant,
			Category:  models.AnnouncementCategoryPayment,
			CreatedAt: day("2025-06-03"),
			ExpiresAt: dayPtr("2025-06-15"),
		},
		{
			Title:     "Class Schedule Update",
			Content:   "Next Wednesday's class (June 7th) moves to Thursday (June 8th) at the same time due to a scheduling conflict. All other classes remain as scheduled.",
			Priority:  models.AnnouncementPriorityNormal,
			Category:  models.AnnouncementCategoryEvent,
			CreatedAt: day("2025-06-02"),
		},
		{
			Title:     "Midterm Exam Schedule",
			Content:   "Midterm examinations will be held from June 20-22, 2025. The exam schedule will be posted next week. Office hours are extended during the week before exams.",
			Priority:  models.AnnouncementPriorityImportant,
			Category:  models.AnnouncementCategoryExam,
			CreatedAt: day("2025-06-01"),
		},
		{
			Title:     "Study Tips for Better Learning",
			Content:   "Create a dedicated study space, break large topics into smaller chunks, test yourself often and don't hesitate to ask questions. Consistency is key!",
			Priority:  models.AnnouncementPriorityNormal,
			Category:  models.AnnouncementCategoryGeneral,
			CreatedAt: day("2025-05-30"),
		},
	}
}

type instructorLister interface {
	ListAll(ctx context.Context) ([]models.Instructor, error)
	FindByCode(ctx context.Context, code string) (*models.Instructor, error)
}

type announcementWriter interface {
	Create(ctx context.Context, announcement *models.Announcement) error
	ListAll(ctx context.Context) ([]models.Announcement, error)
}

// Options selects the instructors to seed.
type Options struct {
	// Codes limits seeding to these instructor codes. Empty means every instructor.
	Codes []string
	// Force seeds even when announcements already exist.
	Force bool
}

// Result summarises a seeding run.
type Result struct {
	Instructors int  `json:"instructors"`
	Created     int  `json:"created"`
	Failed      int  `json:"failed"`
	Skipped     bool `json:"skipped"`
	Existing    int  `json:"existing"`
}

// Seeder writes announcement templates for instructors.
type Seeder struct {
	instructors   instructorLister
	announcements announcementWriter
	logger        *zap.Logger
}

// NewSeeder constructs a Seeder.
func NewSeeder(instructors instructorLister, announcements announcementWriter, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{instructors: instructors, announcements: announcements, logger: logger}
}

// Run creates every entry for every selected instructor. Existing
// announcements stop the run unless opts.Force is set.
func (s *Seeder) Run(ctx context.Context, entries []Entry, opts Options) (Result, error) {
	var result Result
	if !opts.Force {
		existing, err := s.announcements.ListAll(ctx)
		if err != nil {
			return result, fmt.Errorf("list announcements: %w", err)
		}
		if len(existing) > 0 {
			result.Skipped = true
			result.Existing = len(existing)
			s.logger.Warn("announcements already exist, skipping seed", zap.Int("existing", len(existing)))
			return result, nil
		}
	}

	targets, err := s.targets(ctx, opts.Codes)
	if err != nil {
		return result, err
	}
	if len(targets) == 0 {
		return result, fmt.Errorf("no instructors found")
	}

	for _, instructor := range targets {
		result.Instructors++
		for _, entry := range entries {
			a := entry.announcement(instructor)
			if err := s.announcements.Create(ctx, a); err != nil {
				result.Failed++
				s.logger.Error("seed announcement failed", zap.String("code", instructor.InstructorCode), zap.String("title", entry.Title), zap.Error(err))
				continue
			}
			result.Created++
			s.logger.Info("seeded announcement", zap.String("code", instructor.InstructorCode), zap.String("id", a.ID), zap.String("title", entry.Title))
		}
	}
	return result, nil
}

func (s *Seeder) targets(ctx context.Context, codes []string) ([]models.Instructor, error) {
	if len(codes) == 0 {
		all, err := s.instructors.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("list instructors: %w", err)
		}
		return all, nil
	}
	out := make([]models.Instructor, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		instructor, err := s.instructors.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("instructor code %s not found", code)
			}
			return nil, fmt.Errorf("find instructor %s: %w", code, err)
		}
		out = append(out, *instructor)
	}
	return out, nil
}

func (e Entry) announcement(instructor models.Instructor) *models.Announcement {
	category := e.Category
	if category == "" {
		category = models.AnnouncementCategoryGeneral
	}
	return &models.Announcement{
		Title:          e.Title,
		Content:        e.Content,
		Priority:       e.Priority,
		Category:       category,
		InstructorCode: instructor.InstructorCode,
		InstructorName: instructor.Name,
		TargetAudience: models.AnnouncementAudienceAll,
		TargetStudents: []string{},
		ViewedBy:       []string{},
		AcknowledgedBy: []string{},
		Status:         models.AnnouncementStatusPublished,
		IsPinned:       e.Pinned,
		Attachments:    models.Attachments{},
		ExpiresAt:      e.ExpiresAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.CreatedAt,
	}
}
