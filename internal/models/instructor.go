package models

import "time"

// Instructor owns a unique 4-digit code and a roster of student auth UIDs.
type Instructor struct {
	ID             string    `db:"id" bson:"_id" json:"id" validate:"required"`
	UID            string    `db:"uid" bson:"uid" json:"uid" validate:"required"`
	Name           string    `db:"name" bson:"name" json:"name" validate:"required"`
	Email          string    `db:"email" bson:"email" json:"email" validate:"required,email"`
	ContactNumber  string    `db:"contact_number" bson:"contactNumber" json:"contact_number"`
	InstructorCode string    `db:"instructor_code" bson:"instructorCode" json:"instructor_code" validate:"required,instructor_code"`
	Students       []string  `db:"-" bson:"students" json:"students"`
	CreatedAt      time.Time `db:"created_at" bson:"createdAt" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" bson:"updatedAt" json:"updated_at"`
}

func (i *Instructor) Role() Role           { return RoleInstructor }
func (i *Instructor) RecordID() string     { return i.ID }
func (i *Instructor) AuthUID() string      { return i.UID }
func (i *Instructor) EmailAddress() string { return i.Email }
func (i *Instructor) DisplayName() string  { return i.Name }
func (i *Instructor) userRecord()          {}

// LinkedCode returns the code students register against.
func (i *Instructor) LinkedCode() string { return i.InstructorCode }

// HasStudent reports roster membership.
func (i *Instructor) HasStudent(uid string) bool {
	for _, s := range i.Students {
		if s == uid {
			return true
		}
	}
	return false
}
