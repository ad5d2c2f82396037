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

// AnnouncementStore persists announcements with embedded member arrays.
type AnnouncementStore struct {
	col      *mongo.Collection
	counters *mongo.Collection
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAnnouncementStore binds the announcements collection.
func NewAnnouncementStore(db *mongo.Database, logger *zap.Logger) *AnnouncementStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementStore{
		col:      db.Collection(AnnouncementsCollection),
		counters: db.Collection(CountersCollection),
		validate: validation.Shared(),
		logger:   logger,
	}
}

// Create assigns an insertion sequence and stores the announcement.
func (s *AnnouncementStore) Create(ctx context.Context, announcement *models.Announcement) error {
	if announcement.ID == "" {
		announcement.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if announcement.CreatedAt.IsZero() {
		announcement.CreatedAt = now
	}
	if announcement.UpdatedAt.IsZero() {
		announcement.UpdatedAt = announcement.CreatedAt
	}
	normaliseAnnouncement(announcement)

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return err
	}
	announcement.Seq = seq

	if _, err := s.col.InsertOne(ctx, announcement); err != nil {
		return fmt.Errorf("create announcement: %w", duplicate(err))
	}
	return nil
}

func (s *AnnouncementStore) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	var announcement models.Announcement
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&announcement); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find announcement: %w", err)
	}
	normaliseAnnouncement(&announcement)
	if err := repository.CheckShape(s.validate, &announcement); err != nil {
		return nil, fmt.Errorf("find announcement: %w", err)
	}
	return &announcement, nil
}

func (s *AnnouncementStore) ListByInstructorCode(ctx context.Context, code string) ([]models.Announcement, error) {
	return s.list(ctx, "list announcements by instructor", bson.M{"instructorCode": code})
}

func (s *AnnouncementStore) ListAll(ctx context.Context) ([]models.Announcement, error) {
	return s.list(ctx, "list announcements", bson.M{})
}

// AddViewer unions uid into viewedBy and sets totalViews to the set size in one update.
func (s *AnnouncementStore) AddViewer(ctx context.Context, id, uid string) error {
	return s.addMember(ctx, id, uid, "viewedBy", "totalViews")
}

// AddAcknowledger unions uid into acknowledgedBy and sets totalAcknowledgments to the set size.
func (s *AnnouncementStore) AddAcknowledger(ctx context.Context, id, uid string) error {
	return s.addMember(ctx, id, uid, "acknowledgedBy", "totalAcknowledgments")
}

func (s *AnnouncementStore) addMember(ctx context.Context, id, uid, field, counter string) error {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			field: bson.M{"$setUnion": bson.A{bson.M{"$ifNull": bson.A{"$" + field, bson.A{}}}, bson.A{uid}}},
		}}},
		{{Key: "$set", Value: bson.M{
			counter:     bson.M{"$size": "$" + field},
			"updatedAt": time.Now().UTC(),
		}}},
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, pipeline)
	if err != nil {
		return fmt.Errorf("add announcement %s member: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *AnnouncementStore) nextSeq(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx, bson.M{"_id": AnnouncementsCollection}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next announcement seq: %w", err)
	}
	return counter.Seq, nil
}

func (s *AnnouncementStore) list(ctx context.Context, op string, filter bson.M) ([]models.Announcement, error) {
	cursor, err := s.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var items []models.Announcement
	for cursor.Next(ctx) {
		var announcement models.Announcement
		if err := cursor.Decode(&announcement); err != nil {
			s.logger.Warn("skipping undecodable announcement document", zap.Error(err))
			continue
		}
		normaliseAnnouncement(&announcement)
		if err := repository.CheckShape(s.validate, &announcement); err != nil {
			s.logger.Warn("skipping malformed announcement record", zap.String("id", announcement.ID), zap.Error(err))
			continue
		}
		items = append(items, announcement)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

func normaliseAnnouncement(a *models.Announcement) {
	if a.TargetStudents == nil {
		a.TargetStudents = []string{}
	}
	if a.ViewedBy == nil {
		a.ViewedBy = []string{}
	}
	if a.AcknowledgedBy == nil {
		a.AcknowledgedBy = []string{}
	}
	if a.Attachments == nil {
		a.Attachments = models.Attachments{}
	}
}
