package bootstrap

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/handler"
	"github.com/noah-isme/portal-sabido-api/internal/identity"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	"github.com/noah-isme/portal-sabido-api/internal/router"
	"github.com/noah-isme/portal-sabido-api/internal/service"
	"github.com/noah-isme/portal-sabido-api/pkg/config"
	"github.com/noah-isme/portal-sabido-api/pkg/events"
	"github.com/noah-isme/portal-sabido-api/pkg/jobs"
	"github.com/noah-isme/portal-sabido-api/pkg/validation"
)

// RepairQueueName names the registration repair worker pool.
const RepairQueueName = "registration-repair"

// Services holds every wired service of the portal.
type Services struct {
	Metrics       *service.MetricsService
	Cache         *service.CacheService
	Sessions      *service.SessionService
	Codes         *service.InstructorCodeService
	Auth          *service.AuthService
	Registration  *service.RegistrationService
	Announcements *service.AnnouncementService
	Roster        *service.RosterService
	Export        *service.ExportService
	Dashboard     *service.DashboardService
	Users         *service.UserService
	Reconcile     *service.ReconcileService
	RepairQueue   *jobs.Queue

	logger *zap.Logger
}

// Deps are the connections Services are built on. Redis may be nil for
// tooling that never opens sessions; the roster cache is then disabled.
type Deps struct {
	Config    *config.Config
	Stores    *Stores
	Redis     *redis.Client
	Publisher events.Publisher
	Metrics   *service.MetricsService
	Logger    *zap.Logger
}

// NewServices wires the service graph. The repair queue is created but not
// started.
func NewServices(deps Deps) *Services {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = service.NewMetricsService()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.Noop{}
	}
	validate := validation.Shared()
	stores := deps.Stores

	var cacheRepo service.CacheRepository
	var sessionStore sessionBackend = unavailableSessions{}
	if deps.Redis != nil {
		cacheRepo = repository.NewCacheRepository(deps.Redis, logger)
		sessionStore = repository.NewSessionRepository(deps.Redis)
	}
	cache := service.NewCacheService(cacheRepo, metrics, cfg.Roster.CacheTTL, logger, cfg.Roster.CacheEnabled)

	sessions := service.NewSessionService(sessionStore, service.SessionConfig{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Issuer: cfg.Session.Issuer,
	}, logger)

	provider := identity.NewProvider(stores.Accounts, logger)
	codes := service.NewInstructorCodeService(stores.Instructors, nil, cfg.Codes.MaxAttempts, metrics, logger)

	reconcile := service.NewReconcileService(stores.Students, stores.Instructors, publisher, metrics, logger)
	queue := jobs.NewQueue(RepairQueueName, reconcile.JobHandler(), jobs.QueueConfig{
		Workers:    cfg.Reconcile.Workers,
		MaxRetries: cfg.Reconcile.Retries,
		RetryDelay: cfg.Reconcile.RetryDelay,
		Logger:     logger,
	})
	reconcile.AttachQueue(queue)
	reconcile.AttachCache(cache)

	registration := service.NewRegistrationService(service.RegistrationDeps{
		Students:    stores.Students,
		Instructors: stores.Instructors,
		Codes:       codes,
		Provider:    provider,
		Repairs:     reconcile,
		Cache:       cache,
		Publisher:   publisher,
		Validator:   validate,
		Metrics:     metrics,
		Logger:      logger,
	})

	auth := service.NewAuthService(stores.Students, stores.Instructors, provider, sessions, validate, metrics, logger)
	announcements := service.NewAnnouncementService(stores.Announcements, stores.Instructors, stores.Students, publisher, validate, logger)
	roster := service.NewRosterService(stores.Students, cache, validate, logger)
	export := service.NewExportService(roster, logger, nil, nil)
	dashboard := service.NewDashboardService(announcements, roster, stores.Instructors, logger)
	users := service.NewUserService(auth, stores.Students, stores.Instructors, sessions, cache, validate, logger)

	return &Services{
		Metrics:       metrics,
		Cache:         cache,
		Sessions:      sessions,
		Codes:         codes,
		Auth:          auth,
		Registration:  registration,
		Announcements: announcements,
		Roster:        roster,
		Export:        export,
		Dashboard:     dashboard,
		Users:         users,
		Reconcile:     reconcile,
		RepairQueue:   queue,
		logger:        logger,
	}
}

// Handlers builds the HTTP handlers over the services.
func (s *Services) Handlers(checks map[string]handler.ReadinessCheck) router.Handlers {
	return router.Handlers{
		Auth:           handler.NewAuthHandler(s.Auth, s.Registration, s.Sessions, s.logger),
		InstructorCode: handler.NewInstructorCodeHandler(s.Codes, s.Registration),
		User:           handler.NewUserHandler(s.Users),
		Dashboard:      handler.NewDashboardHandler(s.Dashboard),
		Announcement:   handler.NewAnnouncementHandler(s.Announcements),
		Student:        handler.NewStudentHandler(s.Roster, s.Export),
		Metrics:        handler.NewMetricsHandler(s.Metrics, checks),
	}
}

// ErrSessionsUnavailable is returned by session operations when no Redis
// client was configured.
var ErrSessionsUnavailable = errors.New("session store not configured")

type sessionBackend interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

type unavailableSessions struct{}

func (unavailableSessions) Save(context.Context, *models.Session) error { return ErrSessionsUnavailable }

func (unavailableSessions) Get(context.Context, string) (*models.Session, error) {
	return nil, ErrSessionsUnavailable
}

func (unavailableSessions) Delete(context.Context, string) error { return ErrSessionsUnavailable }
