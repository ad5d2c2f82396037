package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
)

// DefaultCodeAttempts bounds unique code allocation.
const DefaultCodeAttempts = 10

type codeLookup interface {
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

// CodeGenerator produces instructor code candidates.
type CodeGenerator func() string

// RandomCodeGenerator draws codes uniformly from 1000..9999.
func RandomCodeGenerator(src rand.Source) CodeGenerator {
	var mu sync.Mutex
	rng := rand.New(src)
	return func() string {
		mu.Lock()
		n := 1000 + rng.Intn(9000)
		mu.Unlock()
		return fmt.Sprintf("%04d", n)
	}
}

// InstructorCodeService generates and allocates unique instructor codes.
type InstructorCodeService struct {
	repo        codeLookup
	generate    CodeGenerator
	maxAttempts int
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewInstructorCodeService constructs the service. A nil generator uses a time-seeded random source.
func NewInstructorCodeService(repo codeLookup, generate CodeGenerator, maxAttempts int, metrics *MetricsService, logger *zap.Logger) *InstructorCodeService {
	if generate == nil {
		generate = RandomCodeGenerator(rand.NewSource(time.Now().UnixNano()))
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorCodeService{repo: repo, generate: generate, maxAttempts: maxAttempts, metrics: metrics, logger: logger}
}

// Generate returns a fresh candidate. It does not check uniqueness.
func (s *InstructorCodeService) Generate() string {
	return s.generate()
}

// IsTaken reports whether an instructor already holds the code. Lookup
// failures count as taken so a broken store never hands out duplicates.
func (s *InstructorCodeService) IsTaken(ctx context.Context, code string) bool {
	exists, err := s.repo.ExistsByCode(ctx, code)
	if err != nil {
		s.logger.Warn("instructor code lookup failed", zap.String("code", code), zap.Error(err))
		return true
	}
	return exists
}

// Allocate generates candidates until one is free or the attempt bound is hit.
func (s *InstructorCodeService) Allocate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "code allocation cancelled")
		}
		code := s.generate()
		taken := s.IsTaken(ctx, code)
		s.metrics.RecordCodeAttempt(taken)
		if !taken {
			return code, nil
		}
		s.logger.Debug("instructor code collision", zap.String("code", code), zap.Int("attempt", attempt))
	}
	s.logger.Warn("instructor code allocation exhausted", zap.Int("attempts", s.maxAttempts))
	return "", appErrors.Clone(appErrors.ErrAllocationExhausted, "Failed to generate a unique instructor code. Please try again.")
}
