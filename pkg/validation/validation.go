package validation

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/portal-sabido-api/internal/models"
)

var (
	instructorCodePattern = regexp.MustCompile(`^\d{4}$`)
	contactNumberPattern  = regexp.MustCompile(`^[\d\s\-\+\(\)]+$`)
)

var (
	shared     *validator.Validate
	sharedOnce sync.Once
)

// New returns a validator with every portal tag registered.
func New() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

// Shared returns a process wide validator. validator.Validate caches struct metadata and is safe for concurrent use.
func Shared() *validator.Validate {
	sharedOnce.Do(func() {
		shared = New()
	})
	return shared
}

// Register adds portal tags to an existing validator.
func Register(v *validator.Validate) {
	_ = v.RegisterValidation("instructor_code", func(fl validator.FieldLevel) bool {
		return IsInstructorCode(fl.Field().String())
	})
	_ = v.RegisterValidation("contact_number", func(fl validator.FieldLevel) bool {
		return contactNumberPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementPriority(fl.Field().String()) {
		case models.AnnouncementPriorityNormal, models.AnnouncementPriorityImportant, models.AnnouncementPriorityUrgent:
			return true
		default:
			return false
		}
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementCategory(fl.Field().String()) {
		case models.AnnouncementCategoryGeneral, models.AnnouncementCategoryAssignment, models.AnnouncementCategoryExam,
			models.AnnouncementCategoryEvent, models.AnnouncementCategoryPayment:
			return true
		default:
			return false
		}
	})
	_ = v.RegisterValidation("audience", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementAudience(fl.Field().String()) {
		case models.AnnouncementAudienceAll, models.AnnouncementAudienceSpecific, models.AnnouncementAudienceClass:
			return true
		default:
			return false
		}
	})
	_ = v.RegisterValidation("student_status", func(fl validator.FieldLevel) bool {
		switch models.StudentStatus(fl.Field().String()) {
		case models.StudentStatusActive, models.StudentStatusInactive, models.StudentStatusGraduated:
			return true
		default:
			return false
		}
	})
}

// IsInstructorCode reports whether code is exactly four ASCII digits.
func IsInstructorCode(code string) bool {
	return instructorCodePattern.MatchString(code)
}

// IsContactNumber reports whether s only holds digits, spaces and phone punctuation.
func IsContactNumber(s string) bool {
	return contactNumberPattern.MatchString(s)
}
