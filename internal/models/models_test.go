package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" Instructor ")
	require.NoError(t, err)
	assert.Equal(t, RoleInstructor, role)

	_, err = ParseRole("admin")
	assert.Error(t, err)
}

func TestDeriveStudentID(t *testing.T) {
	assert.Equal(t, "STU3FA9C2", DeriveStudentID("3fa9c2d1-77aa-4b1e-9c1f-0f6b2c0d8e11"))
	assert.Equal(t, "STUAB", DeriveStudentID("ab"))
}

func TestPaymentStatusFor(t *testing.T) {
	assert.Equal(t, PaymentPaid, PaymentStatusFor(0))
	assert.Equal(t, PaymentPending, PaymentStatusFor(150.5))
	assert.Equal(t, PaymentOverpaid, PaymentStatusFor(-20))
}

func TestSessionRecordMatchesRole(t *testing.T) {
	now := time.Now().UTC()
	student := &Student{ID: "s1", UID: "u1", FirstName: "Ana", LastName: "Cruz"}
	sess := NewSession("sess-1", student, now, time.Hour)

	assert.Equal(t, RoleStudent, sess.Role)
	assert.Equal(t, "u1", sess.UID)
	assert.Same(t, student, sess.Record())
	assert.Nil(t, sess.Instructor)

	instructor := &Instructor{ID: "i1", UID: "u2", InstructorCode: "1234"}
	sess = NewSession("sess-2", instructor, now, time.Hour)
	assert.Equal(t, "1234", sess.Record().LinkedCode())
	assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)
}

func TestStudentDisplayNameSkipsEmptyParts(t *testing.T) {
	s := &Student{FirstName: "Ana", LastName: "Cruz"}
	assert.Equal(t, "Ana Cruz", s.DisplayName())
	s.MiddleName = "Reyes"
	assert.Equal(t, "Ana Reyes Cruz", s.DisplayName())
}

func TestAttachmentsScan(t *testing.T) {
	var a Attachments
	require.NoError(t, a.Scan([]byte(`[{"name":"syllabus","url":"https://x/y.pdf","type":"pdf","size":10}]`)))
	require.Len(t, a, 1)
	assert.Equal(t, "syllabus", a[0].Name)

	require.NoError(t, a.Scan(nil))
	assert.Empty(t, a)

	assert.Error(t, a.Scan(42))
}

func TestAnnouncementExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	a := &Announcement{ExpiresAt: &past}
	assert.True(t, a.Expired(now))
	a.ExpiresAt = nil
	assert.False(t, a.Expired(now))
}
