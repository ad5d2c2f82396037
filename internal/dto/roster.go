package dto

import "github.com/noah-isme/portal-sabido-api/internal/models"

// RosterStudent is one roster row with its derived payment status.
type RosterStudent struct {
	models.Student
	PaymentStatus models.PaymentStatus `json:"payment_status"`
}

// RosterSummary aggregates balances across a roster.
type RosterSummary struct {
	Total        int     `json:"total"`
	Active       int     `json:"active"`
	Paid         int     `json:"paid"`
	Pending      int     `json:"pending"`
	Overpaid     int     `json:"overpaid"`
	TotalBalance float64 `json:"total_balance"`
}

// UpdateStudentInfoRequest edits balance and/or remarks. Absent fields are untouched.
type UpdateStudentInfoRequest struct {
	Balance *float64 `json:"balance"`
	Remarks *string  `json:"remarks" validate:"omitempty,max=2000"`
}
