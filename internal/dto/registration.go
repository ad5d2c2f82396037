package dto

import "github.com/noah-isme/portal-sabido-api/internal/models"

// StudentRegistrationRequest is the student sign-up form.
type StudentRegistrationRequest struct {
	FirstName       string `json:"first_name" validate:"required"`
	MiddleName      string `json:"middle_name"`
	LastName        string `json:"last_name" validate:"required"`
	Age             int    `json:"age" validate:"required,gte=1,lte=120"`
	Gender          string `json:"gender" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	ContactNumber   string `json:"contact_number" validate:"required,contact_number"`
	Address         string `json:"address"`
	ChurchAffiliate string `json:"church_affiliate"`
	InstructorCode  string `json:"instructor_code" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// InstructorRegistrationRequest is the instructor sign-up form. The code is
// normally one previously suggested by GET /instructor-codes/new.
type InstructorRegistrationRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	ContactNumber   string `json:"contact_number" validate:"required,contact_number"`
	InstructorCode  string `json:"instructor_code" validate:"required,instructor_code"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// RegistrationResponse carries the new record and an authenticated session.
type RegistrationResponse struct {
	RecordID string                `json:"record_id"`
	Session  *models.LoginResponse `json:"session,omitempty"`
}

// InstructorCodeResponse is returned by the code suggestion endpoint.
type InstructorCodeResponse struct {
	Code string `json:"code"`
}

// InstructorCodeCheck is the result of validating a code typed by a student.
type InstructorCodeCheck struct {
	Code           string `json:"code"`
	Valid          bool   `json:"valid"`
	InstructorName string `json:"instructor_name,omitempty"`
	Message        string `json:"message,omitempty"`
}

// UpdateContactRequest changes the current user's contact number.
type UpdateContactRequest struct {
	ContactNumber string `json:"contact_number" validate:"required,contact_number"`
}
