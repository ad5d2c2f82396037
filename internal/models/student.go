package models

import (
	"strings"
	"time"
)

// StudentStatus captures enrolment state.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusInactive  StudentStatus = "inactive"
	StudentStatusGraduated StudentStatus = "graduated"
)

// StudentIDPrefix prefixes every derived display id.
const StudentIDPrefix = "STU"

// Student is a registered learner linked to one instructor by code.
type Student struct {
	ID                  string        `db:"id" bson:"_id" json:"id" validate:"required"`
	UID                 string        `db:"uid" bson:"uid" json:"uid" validate:"required"`
	FirstName           string        `db:"first_name" bson:"firstName" json:"first_name" validate:"required"`
	MiddleName          string        `db:"middle_name" bson:"middleName,omitempty" json:"middle_name,omitempty"`
	LastName            string        `db:"last_name" bson:"lastName" json:"last_name" validate:"required"`
	Age                 int           `db:"age" bson:"age" json:"age" validate:"gte=0"`
	Gender              string        `db:"gender" bson:"gender" json:"gender"`
	Email               string        `db:"email" bson:"email" json:"email" validate:"required,email"`
	ContactNumber       string        `db:"contact_number" bson:"contactNumber" json:"contact_number"`
	Address             string        `db:"address" bson:"address" json:"address"`
	ChurchAffiliate     string        `db:"church_affiliate" bson:"churchAffiliate" json:"church_affiliate"`
	StudentID           string        `db:"student_id" bson:"studentId" json:"student_id"`
	InstructorReference string        `db:"instructor_reference" bson:"instructorReference" json:"instructor_reference" validate:"required,instructor_code"`
	Assessment          float64       `db:"assessment" bson:"assessment" json:"assessment"`
	Balance             float64       `db:"balance" bson:"balance" json:"balance"`
	Remarks             string        `db:"remarks" bson:"remarks" json:"remarks"`
	Status              StudentStatus `db:"status" bson:"status" json:"status" validate:"required,student_status"`
	CreatedAt           time.Time     `db:"created_at" bson:"createdAt" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" bson:"updatedAt" json:"updated_at"`
}

func (s *Student) Role() Role             { return RoleStudent }
func (s *Student) RecordID() string       { return s.ID }
func (s *Student) AuthUID() string        { return s.UID }
func (s *Student) EmailAddress() string   { return s.Email }
func (s *Student) LinkedCode() string     { return s.InstructorReference }
func (s *Student) userRecord()            {}

// DisplayName joins the non-empty name parts.
func (s *Student) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.FirstName, s.MiddleName, s.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// DeriveStudentID builds the display id from a storage record id.
func DeriveStudentID(recordID string) string {
	short := recordID
	if len(short) > 6 {
		short = short[:6]
	}
	return StudentIDPrefix + strings.ToUpper(short)
}

// PaymentStatus summarises a balance.
type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "paid"
	PaymentPending  PaymentStatus = "pending"
	PaymentOverpaid PaymentStatus = "overpaid"
)

// PaymentStatusFor maps zero to paid, positive to pending and negative to overpaid.
func PaymentStatusFor(balance float64) PaymentStatus {
	switch {
	case balance > 0:
		return PaymentPending
	case balance < 0:
		return PaymentOverpaid
	default:
		return PaymentPaid
	}
}

// StudentInfoUpdate carries the instructor-editable fields. Nil means unchanged.
type StudentInfoUpdate struct {
	Balance *float64
	Remarks *string
}

// Empty reports whether no field is set.
func (u StudentInfoUpdate) Empty() bool {
	return u.Balance == nil && u.Remarks == nil
}
