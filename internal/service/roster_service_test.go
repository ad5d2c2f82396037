package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
)

func rosterStudents() *memStudents {
	return newMemStudents(
		models.Student{ID: "s1", UID: "u1", FirstName: "Ana", LastName: "Cruz", InstructorReference: "1234", Status: models.StudentStatusActive, Balance: 150},
		models.Student{ID: "s2", UID: "u2", FirstName: "Bea", LastName: "Álvarez", InstructorReference: "1234", Status: models.StudentStatusActive},
		models.Student{ID: "s3", UID: "u3", FirstName: "Cal", LastName: "cruz", InstructorReference: "1234", Status: models.StudentStatusInactive, Balance: -20},
		models.Student{ID: "s4", UID: "u4", FirstName: "Dan", LastName: "Bautista", InstructorReference: "1234", Status: models.StudentStatusActive},
		models.Student{ID: "s5", UID: "u5", FirstName: "Eve", LastName: "Aquino", InstructorReference: "9999", Status: models.StudentStatusActive},
	)
}

func lastNames(students []models.Student) []string {
	out := make([]string, 0, len(students))
	for _, s := range students {
		out = append(out, s.LastName)
	}
	return out
}

func TestListStudentsSortsByLastNameStably(t *testing.T) {
	svc := NewRosterService(rosterStudents(), nil, nil, nil)

	students := svc.ListStudents(context.Background(), "1234")
	assert.Equal(t, []string{"Álvarez", "Bautista", "Cruz", "cruz"}, lastNames(students))
	assert.Equal(t, "s1", students[2].ID)
	assert.Equal(t, "s3", students[3].ID)
}

func TestListStudentsEmptyAndFailure(t *testing.T) {
	repo := rosterStudents()
	svc := NewRosterService(repo, nil, nil, nil)

	empty := svc.ListStudents(context.Background(), "0000")
	assert.Empty(t, empty)

	repo.listErr = assert.AnError
	failed := svc.ListStudents(context.Background(), "1234")
	assert.NotNil(t, failed)
	assert.Empty(t, failed)
}

func TestListStudentsUsesCache(t *testing.T) {
	repo := rosterStudents()
	cacheRepo := newMemCache()
	metrics := NewMetricsService()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, nil, true)
	svc := NewRosterService(repo, cache, nil, nil)
	ctx := context.Background()

	first := svc.ListStudents(ctx, "1234")
	second := svc.ListStudents(ctx, "1234")
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, lastNames(first), lastNames(second))
	assert.True(t, cacheRepo.has(RosterCacheKey("1234")))

	snapshot := metrics.Snapshot()
	assert.EqualValues(t, 1, snapshot.CacheHits)
	assert.EqualValues(t, 1, snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.0001)
}

func TestRosterSummary(t *testing.T) {
	svc := NewRosterService(rosterStudents(), nil, nil, nil)

	rows, summary := svc.Roster(context.Background(), "1234")
	require.Len(t, rows, 4)
	assert.Equal(t, dto.RosterSummary{Total: 4, Active: 3, Paid: 2, Pending: 1, Overpaid: 1, TotalBalance: 130}, summary)
	assert.Equal(t, models.PaymentPending, rows[2].PaymentStatus)
	assert.Equal(t, models.PaymentOverpaid, rows[3].PaymentStatus)
}

func TestUpdateInfoChecksOwnershipAndInvalidatesCache(t *testing.T) {
	repo := rosterStudents()
	cacheRepo := newMemCache()
	svc := NewRosterService(repo, NewCacheService(cacheRepo, nil, time.Minute, nil, true), nil, nil)
	ctx := context.Background()
	svc.ListStudents(ctx, "1234")

	remarks := "Paid in cash"
	zero := 0.0
	updated, err := svc.UpdateInfo(ctx, "1234", "s1", dto.UpdateStudentInfoRequest{Balance: &zero, Remarks: &remarks})
	require.NoError(t, err)
	assert.Zero(t, updated.Balance)
	assert.Equal(t, "Paid in cash", updated.Remarks)
	assert.False(t, cacheRepo.has(RosterCacheKey("1234")))

	_, err = svc.UpdateInfo(ctx, "1234", "s5", dto.UpdateStudentInfoRequest{Remarks: &remarks})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.UpdateInfo(ctx, "1234", "ghost", dto.UpdateStudentInfoRequest{Remarks: &remarks})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestUpdateInfoRequiresAField(t *testing.T) {
	repo := rosterStudents()
	svc := NewRosterService(repo, nil, nil, nil)

	_, err := svc.UpdateInfo(context.Background(), "1234", "s1", dto.UpdateStudentInfoRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.False(t, repo.updateCalled)
}
