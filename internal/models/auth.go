package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials plus the role the user claims to be.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Role      Role   `json:"role" validate:"required,role"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginOutcome classifies a login validation result.
type LoginOutcome string

const (
	LoginAccepted     LoginOutcome = "accepted"
	LoginNoAccount    LoginOutcome = "no_account"
	LoginRoleMismatch LoginOutcome = "role_mismatch"
	LoginLookupFailed LoginOutcome = "lookup_failed"
)

// LoginValidation is the typed result of matching an email against the asserted role.
type LoginValidation struct {
	Outcome      LoginOutcome
	Record       UserRecord
	ResolvedRole Role
	Message      string
}

// Accepted reports whether the user may proceed to credential verification.
func (v LoginValidation) Accepted() bool {
	return v.Outcome == LoginAccepted
}

// LoginResponse returns the session token and current user.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Role      Role        `json:"role"`
	User      interface{} `json:"user"`
}

// Session is the server-side record of who is logged in.
type Session struct {
	ID         string      `json:"id"`
	UID        string      `json:"uid"`
	Role       Role        `json:"role"`
	Student    *Student    `json:"student,omitempty"`
	Instructor *Instructor `json:"instructor,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// NewSession binds a record to a session id.
func NewSession(id string, record UserRecord, now time.Time, ttl time.Duration) *Session {
	sess := &Session{
		ID:        id,
		UID:       record.AuthUID(),
		Role:      record.Role(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	sess.SetRecord(record)
	return sess
}

// SetRecord replaces the stored record.
func (s *Session) SetRecord(record UserRecord) {
	s.Student, s.Instructor = nil, nil
	switch r := record.(type) {
	case *Student:
		s.Student = r
	case *Instructor:
		s.Instructor = r
	}
}

// Record returns the stored user record, or nil when the session is empty.
func (s *Session) Record() UserRecord {
	switch s.Role {
	case RoleStudent:
		if s.Student != nil {
			return s.Student
		}
	case RoleInstructor:
		if s.Instructor != nil {
			return s.Instructor
		}
	}
	return nil
}

// SessionClaims is the JWT payload carried by clients.
type SessionClaims struct {
	SessionID string `json:"sid"`
	UID       string `json:"uid"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}

// Account is the authentication provider's view of a user.
type Account struct {
	UID          string     `db:"uid" bson:"_id" json:"uid"`
	Email        string     `db:"email" bson:"email" json:"email"`
	PasswordHash string     `db:"password_hash" bson:"passwordHash" json:"-"`
	CreatedAt    time.Time  `db:"created_at" bson:"createdAt" json:"created_at"`
	LastSignInAt *time.Time `db:"last_sign_in_at" bson:"lastSignInAt,omitempty" json:"last_sign_in_at,omitempty"`
}
