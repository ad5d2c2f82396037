package dto

import (
	"time"

	"github.com/noah-isme/portal-sabido-api/internal/models"
)

// CreateAnnouncementRequest is the payload instructors post. Omitted enums
// take their defaults.
type CreateAnnouncementRequest struct {
	Title          string                      `json:"title" validate:"required,max=200"`
	Content        string                      `json:"content" validate:"required"`
	Priority       models.AnnouncementPriority `json:"priority" validate:"required,priority"`
	Category       models.AnnouncementCategory `json:"category" validate:"omitempty,category"`
	TargetAudience models.AnnouncementAudience `json:"target_audience" validate:"omitempty,audience"`
	TargetStudents []string                    `json:"target_students" validate:"omitempty,dive,required"`
	IsPinned       bool                        `json:"is_pinned"`
	Attachments    []models.Attachment         `json:"attachments" validate:"omitempty,dive"`
	ExpiresAt      *time.Time                  `json:"expires_at"`
}

// AnnouncementView adds the caller's read state to an announcement.
type AnnouncementView struct {
	models.Announcement
	Viewed       bool `json:"viewed"`
	Acknowledged bool `json:"acknowledged"`
}
