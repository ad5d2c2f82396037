// Package bootstrap opens the storage backends shared by the API server and
// the operator CLI.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	"github.com/noah-isme/portal-sabido-api/internal/repository/mongostore"
	"github.com/noah-isme/portal-sabido-api/pkg/config"
	"github.com/noah-isme/portal-sabido-api/pkg/database"
)

// StudentStore is implemented by both student backends.
type StudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	FindByUID(ctx context.Context, uid string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	SetStudentID(ctx context.Context, id, studentID string) error
	ListByInstructorCode(ctx context.Context, code string) ([]models.Student, error)
	ListAll(ctx context.Context) ([]models.Student, error)
	UpdateInfo(ctx context.Context, id string, update models.StudentInfoUpdate) (*models.Student, error)
	UpdateContact(ctx context.Context, id, contactNumber string) error
}

// InstructorStore is implemented by both instructor backends.
type InstructorStore interface {
	FindByCode(ctx context.Context, code string) (*models.Instructor, error)
	FindByEmail(ctx context.Context, email string) (*models.Instructor, error)
	FindByUID(ctx context.Context, uid string) (*models.Instructor, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	AddStudent(ctx context.Context, instructorID, studentUID string) error
	UpdateContact(ctx context.Context, id, contactNumber string) error
	ListAll(ctx context.Context) ([]models.Instructor, error)
}

// AnnouncementStore is implemented by both announcement backends.
type AnnouncementStore interface {
	Create(ctx context.Context, announcement *models.Announcement) error
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	ListByInstructorCode(ctx context.Context, code string) ([]models.Announcement, error)
	ListAll(ctx context.Context) ([]models.Announcement, error)
	AddViewer(ctx context.Context, id, uid string) error
	AddAcknowledger(ctx context.Context, id, uid string) error
}

// AccountStore is implemented by both credential backends.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	TouchSignIn(ctx context.Context, uid string, ts time.Time) error
}

// Stores bundles the repositories of one backend.
type Stores struct {
	Driver        string
	Students      StudentStore
	Instructors   InstructorStore
	Announcements AnnouncementStore
	Accounts      AccountStore

	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func() error
}

// OpenStores connects to the backend named by cfg.StoreDriver.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		stores := NewMongoStores(db, logger)
		stores.close = func() error { return client.Disconnect(context.Background()) }
		stores.ping = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		return stores, nil
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return NewSQLStores(db, logger), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// NewSQLStores wraps an open Postgres handle.
func NewSQLStores(db *sqlx.DB, logger *zap.Logger) *Stores {
	return &Stores{
		Driver:        config.StorePostgres,
		Students:      repository.NewStudentRepository(db, logger),
		Instructors:   repository.NewInstructorRepository(db, logger),
		Announcements: repository.NewAnnouncementRepository(db, logger),
		Accounts:      repository.NewAccountRepository(db),
		ping:          db.PingContext,
		migrate:       func(ctx context.Context) error { return repository.Migrate(ctx, db) },
		close:         db.Close,
	}
}

// NewMongoStores wraps an open Mongo database.
func NewMongoStores(db *mongo.Database, logger *zap.Logger) *Stores {
	return &Stores{
		Driver:        config.StoreMongo,
		Students:      mongostore.NewStudentStore(db, logger),
		Instructors:   mongostore.NewInstructorStore(db, logger),
		Announcements: mongostore.NewAnnouncementStore(db, logger),
		Accounts:      mongostore.NewAccountStore(db),
		migrate:       func(ctx context.Context) error { return mongostore.EnsureIndexes(ctx, db) },
	}
}

// Ping checks the backend is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Migrate applies the schema (Postgres) or indexes (Mongo).
func (s *Stores) Migrate(ctx context.Context) error {
	if s.migrate == nil {
		return nil
	}
	return s.migrate(ctx)
}

// Close releases the backend connection.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
