package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AnnouncementPriority ranks urgency.
type AnnouncementPriority string

const (
	AnnouncementPriorityNormal    AnnouncementPriority = "normal"
	AnnouncementPriorityImportant AnnouncementPriority = "important"
	AnnouncementPriorityUrgent    AnnouncementPriority = "urgent"
)

// AnnouncementCategory groups announcements by topic.
type AnnouncementCategory string

const (
	AnnouncementCategoryGeneral    AnnouncementCategory = "general"
	AnnouncementCategoryAssignment AnnouncementCategory = "assignment"
	AnnouncementCategoryExam       AnnouncementCategory = "exam"
	AnnouncementCategoryEvent      AnnouncementCategory = "event"
	AnnouncementCategoryPayment    AnnouncementCategory = "payment"
)

// AnnouncementAudience defines who can see an announcement.
type AnnouncementAudience string

const (
	AnnouncementAudienceAll      AnnouncementAudience = "all"
	AnnouncementAudienceSpecific AnnouncementAudience = "specific"
	AnnouncementAudienceClass    AnnouncementAudience = "class"
)

// AnnouncementStatus is the publication lifecycle.
type AnnouncementStatus string

const (
	AnnouncementStatusDraft     AnnouncementStatus = "draft"
	AnnouncementStatusPublished AnnouncementStatus = "published"
	AnnouncementStatusArchived  AnnouncementStatus = "archived"
)

// Attachment references an external file shown with an announcement.
type Attachment struct {
	Name string `json:"name" bson:"name" validate:"required"`
	URL  string `json:"url" bson:"url" validate:"required,url"`
	Type string `json:"type" bson:"type" validate:"required,oneof=pdf image document video other"`
	Size int64  `json:"size" bson:"size" validate:"gte=0"`
}

// Attachments is stored as a JSON column.
type Attachments []Attachment

// Value implements driver.Valuer.
func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *Attachments) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = Attachments{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan attachments: unsupported type %T", src)
	}
	return json.Unmarshal(raw, a)
}

// Announcement is an instructor post fanned out to every student sharing the code.
type Announcement struct {
	ID                   string               `db:"id" bson:"_id" json:"id" validate:"required"`
	Seq                  int64                `db:"seq" bson:"seq" json:"-"`
	Title                string               `db:"title" bson:"title" json:"title" validate:"required"`
	Content              string               `db:"content" bson:"content" json:"content" validate:"required"`
	Priority             AnnouncementPriority `db:"priority" bson:"priority" json:"priority" validate:"required,priority"`
	Category             AnnouncementCategory `db:"category" bson:"category" json:"category" validate:"required,category"`
	InstructorCode       string               `db:"instructor_code" bson:"instructorCode" json:"instructor_code" validate:"required,instructor_code"`
	InstructorName       string               `db:"instructor_name" bson:"instructorName" json:"instructor_name"`
	TargetAudience       AnnouncementAudience `db:"target_audience" bson:"targetAudience" json:"target_audience" validate:"required,audience"`
	TargetStudents       []string             `db:"-" bson:"targetStudents" json:"target_students"`
	ViewedBy             []string             `db:"-" bson:"viewedBy" json:"viewed_by"`
	AcknowledgedBy       []string             `db:"-" bson:"acknowledgedBy" json:"acknowledged_by"`
	Status               AnnouncementStatus   `db:"status" bson:"status" json:"status"`
	IsPinned             bool                 `db:"is_pinned" bson:"isPinned" json:"is_pinned"`
	Attachments          Attachments          `db:"attachments" bson:"attachments" json:"attachments"`
	TotalViews           int                  `db:"total_views" bson:"totalViews" json:"total_views"`
	TotalAcknowledgments int                  `db:"total_acknowledgments" bson:"totalAcknowledgments" json:"total_acknowledgments"`
	ExpiresAt            *time.Time           `db:"expires_at" bson:"expiresAt,omitempty" json:"expires_at,omitempty"`
	CreatedAt            time.Time            `db:"created_at" bson:"createdAt" json:"created_at"`
	UpdatedAt            time.Time            `db:"updated_at" bson:"updatedAt" json:"updated_at"`
}

// ViewedByStudent reports whether uid is in the viewer set.
func (a *Announcement) ViewedByStudent(uid string) bool {
	return containsString(a.ViewedBy, uid)
}

// AcknowledgedByStudent reports whether uid is in the acknowledger set.
func (a *Announcement) AcknowledgedByStudent(uid string) bool {
	return containsString(a.AcknowledgedBy, uid)
}

// Expired reports whether the announcement expired before now.
func (a *Announcement) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && a.ExpiresAt.Before(now)
}

// AnnouncementMember kinds used by set tables.
const (
	MemberTarget       = "target"
	MemberViewed       = "viewed"
	MemberAcknowledged = "acknowledged"
)

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
