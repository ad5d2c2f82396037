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

// StudentStore persists student documents.
type StudentStore struct {
	col      *mongo.Collection
	validate *validator.Validate
	logger   *zap.Logger
}

// NewStudentStore binds the students collection.
func NewStudentStore(db *mongo.Database, logger *zap.Logger) *StudentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentStore{col: db.Collection(StudentsCollection), validate: validation.Shared(), logger: logger}
}

func (s *StudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return s.findOne(ctx, "find student by id", bson.M{"_id": id})
}

func (s *StudentStore) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	return s.findOne(ctx, "find student by email", bson.M{"email": email})
}

func (s *StudentStore) FindByUID(ctx context.Context, uid string) (*models.Student, error) {
	return s.findOne(ctx, "find student by uid", bson.M{"uid": uid})
}

func (s *StudentStore) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if _, err := s.col.InsertOne(ctx, student); err != nil {
		return fmt.Errorf("create student: %w", duplicate(err))
	}
	return nil
}

func (s *StudentStore) SetStudentID(ctx context.Context, id, studentID string) error {
	update := bson.M{"$set": bson.M{"studentId": studentID, "updatedAt": time.Now().UTC()}}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("set student id: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *StudentStore) ListByInstructorCode(ctx context.Context, code string) ([]models.Student, error) {
	return s.list(ctx, "list students by instructor", bson.M{"instructorReference": code})
}

func (s *StudentStore) ListAll(ctx context.Context) ([]models.Student, error) {
	return s.list(ctx, "list students", bson.M{})
}

// UpdateInfo applies a partial balance/remarks update and returns the new document.
func (s *StudentStore) UpdateInfo(ctx context.Context, id string, update models.StudentInfoUpdate) (*models.Student, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Balance != nil {
		set["balance"] = *update.Balance
	}
	if update.Remarks != nil {
		set["remarks"] = *update.Remarks
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var student models.Student
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&student); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("update student info: %w", err)
	}
	return &student, nil
}

func (s *StudentStore) UpdateContact(ctx context.Context, id, contactNumber string) error {
	update := bson.M{"$set": bson.M{"contactNumber": contactNumber, "updatedAt": time.Now().UTC()}}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update student contact: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *StudentStore) findOne(ctx context.Context, op string, filter bson.M) (*models.Student, error) {
	var student models.Student
	if err := s.col.FindOne(ctx, filter).Decode(&student); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := repository.CheckShape(s.validate, &student); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &student, nil
}

func (s *StudentStore) list(ctx context.Context, op string, filter bson.M) ([]models.Student, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var students []models.Student
	for cursor.Next(ctx) {
		var student models.Student
		if err := cursor.Decode(&student); err != nil {
			s.logger.Warn("skipping undecodable student document", zap.Error(err))
			continue
		}
		if err := repository.CheckShape(s.validate, &student); err != nil {
			s.logger.Warn("skipping malformed student record", zap.String("id", student.ID), zap.Error(err))
			continue
		}
		students = append(students, student)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return students, nil
}
