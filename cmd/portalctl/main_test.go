package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/bootstrap"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	"github.com/noah-isme/portal-sabido-api/pkg/config"
)

// Fakes embed the store interfaces and override only what the commands call.

type fakeStudents struct {
	bootstrap.StudentStore
	items []models.Student
}

func (f *fakeStudents) ListAll(context.Context) ([]models.Student, error) {
	return append([]models.Student(nil), f.items...), nil
}

func (f *fakeStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			st := f.items[i]
			return &st, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStudents) SetStudentID(_ context.Context, id, studentID string) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].StudentID = studentID
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeInstructors struct {
	bootstrap.InstructorStore
	items []models.Instructor
}

func (f *fakeInstructors) ListAll(context.Context) ([]models.Instructor, error) {
	return append([]models.Instructor(nil), f.items...), nil
}

func (f *fakeInstructors) FindByCode(_ context.Context, code string) (*models.Instructor, error) {
	for i := range f.items {
		if f.items[i].InstructorCode == code {
			in := f.items[i]
			return &in, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeInstructors) AddStudent(_ context.Context, id, uid string) error {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Students = append(f.items[i].Students, uid)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeAnnouncements struct {
	bootstrap.AnnouncementStore
	items []models.Announcement
}

func (f *fakeAnnouncements) ListAll(context.Context) ([]models.Announcement, error) {
	return append([]models.Announcement(nil), f.items...), nil
}

func (f *fakeAnnouncements) Create(_ context.Context, a *models.Announcement) error {
	f.items = append(f.items, *a)
	return nil
}

type fixture struct {
	students      *fakeStudents
	instructors   *fakeInstructors
	announcements *fakeAnnouncements
}

func newFixture() *fixture {
	return &fixture{
		students: &fakeStudents{items: []models.Student{
			{ID: "abcdef12", UID: "uid-ana", FirstName: "Ana", LastName: "Cruz", InstructorReference: "1234", StudentID: "STUABCDEF", Balance: 150},
			{ID: "ghijkl34", UID: "uid-ben", FirstName: "Ben", LastName: "Reyes", InstructorReference: "1234"},
			{ID: "mnopqr56", UID: "uid-cy", FirstName: "Cy", LastName: "Lim", InstructorReference: "9999", StudentID: "STUMNOPQR"},
		}},
		instructors: &fakeInstructors{items: []models.Instructor{
			{ID: "ins1", Name: "Maria Santos", Email: "maria@example.com", InstructorCode: "1234", Students: []string{"uid-ana"}},
		}},
		announcements: &fakeAnnouncements{},
	}
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{open: func(context.Context) (*runtime, error) {
		return &runtime{
			cfg:    &config.Config{StoreDriver: config.StorePostgres},
			logger: zap.NewNop(),
			stores: &bootstrap.Stores{
				Driver:        config.StorePostgres,
				Students:      f.students,
				Instructors:   f.instructors,
				Announcements: f.announcements,
			},
		}, nil
	}}
	var out bytes.Buffer
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrate(t *testing.T) {
	out, err := newFixture().run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "postgres schema is up to date")
}

func TestCheckDB(t *testing.T) {
	f := newFixture()
	f.announcements.items = []models.Announcement{{Title: "Welcome", InstructorCode: "1234", Priority: models.AnnouncementPriorityNormal, TotalViews: 2}}

	out, err := f.run(t, "check-db")
	require.NoError(t, err)
	assert.Contains(t, out, "Maria Santos")
	assert.Contains(t, out, "Cruz, Ana")
	assert.Contains(t, out, "Welcome")

	out, err = f.run(t, "check-db", "--counts-only", "--json")
	require.NoError(t, err)
	var report dbReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, map[string]int{"instructors": 1, "students": 3, "announcements": 1}, report.Counts)
	assert.Empty(t, report.Students)
}

func TestSeedAnnouncements(t *testing.T) {
	f := newFixture()

	out, err := f.run(t, "seed-announcements", "--code", "1234")
	require.NoError(t, err)
	assert.Contains(t, out, "for 1 instructors")
	require.NotEmpty(t, f.announcements.items)
	for _, a := range f.announcements.items {
		assert.Equal(t, "1234", a.InstructorCode)
	}
	seeded := len(f.announcements.items)

	out, err = f.run(t, "seed-announcements")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped")
	assert.Len(t, f.announcements.items, seeded)

	_, err = f.run(t, "seed-announcements", "--code", "0000", "--force")
	assert.Error(t, err)
}

func TestReconcile(t *testing.T) {
	f := newFixture()

	out, err := f.run(t, "reconcile", "--json")
	require.NoError(t, err)
	var summary struct {
		Scanned         int `json:"scanned"`
		DisplayIDsFixed int `json:"display_ids_fixed"`
		RosterLinks     int `json:"roster_links"`
		Orphaned        int `json:"orphaned"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 1, summary.DisplayIDsFixed)
	assert.Equal(t, 1, summary.RosterLinks)
	assert.Equal(t, 1, summary.Orphaned)
	assert.Equal(t, "STUGHIJKL", f.students.items[1].StudentID)
	assert.Contains(t, f.instructors.items[0].Students, "uid-ben")

	out, err = f.run(t, "reconcile", "--student", "ghijkl34")
	require.NoError(t, err)
	assert.Contains(t, out, "display id fixed=false roster linked=false")

	_, err = f.run(t, "reconcile", "--student", "ghost")
	assert.Error(t, err)
}

func TestOpenFailureIsReported(t *testing.T) {
	a := &app{open: func(context.Context) (*runtime, error) { return nil, errors.New("dial tcp: refused") }}
	cmd := newRootCmd(a)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

