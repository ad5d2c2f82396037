package dto

import "github.com/noah-isme/portal-sabido-api/internal/models"

// DashboardResponse is the role-specific landing payload.
type DashboardResponse struct {
	Role          models.Role        `json:"role"`
	User          models.UserRecord  `json:"user"`
	Announcements []AnnouncementView `json:"announcements"`
	Roster        []RosterStudent    `json:"roster,omitempty"`
	Summary       *RosterSummary     `json:"summary,omitempty"`
	Instructor    *InstructorCard    `json:"instructor,omitempty"`
}

// InstructorCard is what a student sees about their instructor.
type InstructorCard struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
	Code          string `json:"code"`
}
