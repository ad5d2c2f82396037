package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/repository"
	"github.com/noah-isme/portal-sabido-api/pkg/validation"
)

// InstructorStore keeps instructors with an embedded roster array.
type InstructorStore struct {
	col      *mongo.Collection
	validate *validator.Validate
	logger   *zap.Logger
}

// NewInstructorStore binds the instructors collection.
func NewInstructorStore(db *mongo.Database, logger *zap.Logger) *InstructorStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorStore{col: db.Collection(InstructorsCollection), validate: validation.Shared(), logger: logger}
}

func (s *InstructorStore) FindByCode(ctx context.Context, code string) (*models.Instructor, error) {
	return s.findOne(ctx, "find instructor by code", bson.M{"instructorCode": code})
}

func (s *InstructorStore) FindByEmail(ctx context.Context, email string) (*models.Instructor, error) {
	return s.findOne(ctx, "find instructor by email", bson.M{"email": email})
}

func (s *InstructorStore) FindByUID(ctx context.Context, uid string) (*models.Instructor, error) {
	return s.findOne(ctx, "find instructor by uid", bson.M{"uid": uid})
}

// ExistsByCode reports whether any instructor holds code.
func (s *InstructorStore) ExistsByCode(ctx context.Context, code string) (bool, error) {
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	var doc bson.M
	err := s.col.FindOne(ctx, bson.M{"instructorCode": code}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check instructor code: %w", err)
	}
	return true, nil
}

// Create inserts an instructor document.
func (s *InstructorStore) Create(ctx context.Context, instructor *models.Instructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if instructor.CreatedAt.IsZero() {
		instructor.CreatedAt = now
	}
	instructor.UpdatedAt = now
	if instructor.Students == nil {
		instructor.Students = []string{}
	}
	if _, err := s.col.InsertOne(ctx, instructor); err != nil {
		return fmt.Errorf("create instructor: %w", duplicate(err))
	}
	return nil
}

// AddStudent appends uid to the roster with set-union semantics.
func (s *InstructorStore) AddStudent(ctx context.Context, instructorID, studentUID string) error {
	update := bson.M{
		"$addToSet": bson.M{"students": studentUID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": instructorID}, update)
	if err != nil {
		return fmt.Errorf("add roster student: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *InstructorStore) UpdateContact(ctx context.Context, id, contactNumber string) error {
	update := bson.M{"$set": bson.M{"contactNumber": contactNumber, "updatedAt": time.Now().UTC()}}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update instructor contact: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *InstructorStore) ListAll(ctx context.Context) ([]models.Instructor, error) {
	cursor, err := s.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	defer cursor.Close(ctx)

	var instructors []models.Instructor
	for cursor.Next(ctx) {
		var instructor models.Instructor
		if err := cursor.Decode(&instructor); err != nil {
			s.logger.Warn("skipping undecodable instructor document", zap.Error(err))
			continue
		}
		normaliseInstructor(&instructor)
		if err := repository.CheckShape(s.validate, &instructor); err != nil {
			s.logger.Warn("skipping malformed instructor record", zap.String("id", instructor.ID), zap.Error(err))
			continue
		}
		instructors = append(instructors, instructor)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate instructors: %w", err)
	}
	return instructors, nil
}

func (s *InstructorStore) findOne(ctx context.Context, op string, filter bson.M) (*models.Instructor, error) {
	var instructor models.Instructor
	if err := s.col.FindOne(ctx, filter).Decode(&instructor); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	normaliseInstructor(&instructor)
	if err := repository.CheckShape(s.validate, &instructor); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &instructor, nil
}

func normaliseInstructor(instructor *models.Instructor) {
	if instructor.Students == nil {
		instructor.Students = []string{}
	}
}
