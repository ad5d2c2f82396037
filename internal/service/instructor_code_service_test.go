package service

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portal-sabido-api/internal/models"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
)

func TestRandomCodeGeneratorFormat(t *testing.T) {
	gen := RandomCodeGenerator(rand.NewSource(42))
	pattern := regexp.MustCompile(`^\d{4}$`)
	for i := 0; i < 5000; i++ {
		code := gen()
		require.Regexp(t, pattern, code)
		assert.GreaterOrEqual(t, code, "1000")
	}
}

func TestAllocateReturnsFreeCode(t *testing.T) {
	repo := newMemInstructors(models.Instructor{InstructorCode: "1111"}, models.Instructor{InstructorCode: "2222"})
	metrics := NewMetricsService()
	svc := NewInstructorCodeService(repo, sequenceGenerator("1111", "2222", "3333"), 10, metrics, nil)

	code, err := svc.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3333", code)
	assert.False(t, svc.IsTaken(context.Background(), code))

	snap := metrics.Snapshot()
	assert.EqualValues(t, 3, snap.CodeAttempts)
	assert.EqualValues(t, 2, snap.CodeCollisions)
}

func TestAllocateExhaustsAfterTenCollisions(t *testing.T) {
	repo := newMemInstructors(models.Instructor{InstructorCode: "4444"})
	calls := 0
	gen := func() string {
		calls++
		return "4444"
	}
	svc := NewInstructorCodeService(repo, gen, 0, nil, nil)

	_, err := svc.Allocate(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAllocationExhausted))
	assert.Equal(t, DefaultCodeAttempts, calls)
}

func TestIsTakenFailsClosed(t *testing.T) {
	repo := newMemInstructors()
	repo.existsErr = errors.New("connection reset")
	svc := NewInstructorCodeService(repo, sequenceGenerator("5555"), 3, nil, nil)

	assert.True(t, svc.IsTaken(context.Background(), "5555"))

	_, err := svc.Allocate(context.Background())
	assert.True(t, appErrors.Is(err, appErrors.ErrAllocationExhausted))
}

func TestAllocateStopsOnCancelledContext(t *testing.T) {
	svc := NewInstructorCodeService(newMemInstructors(), sequenceGenerator("6666"), 10, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Allocate(ctx)
	assert.True(t, appErrors.Is(err, appErrors.ErrUpstream))
}
