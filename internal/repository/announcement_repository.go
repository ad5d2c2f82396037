package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/pkg/validation"
)

const announcementColumns = `id, seq, title, content, priority, category, instructor_code, instructor_name, target_audience,
        status, is_pinned, attachments, total_views, total_acknowledgments, expires_at, created_at, updated_at`

// AnnouncementRepository handles persistence for announcements and their member sets.
type AnnouncementRepository struct {
	db       *sqlx.DB
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAnnouncementRepository constructs the repository.
func NewAnnouncementRepository(db *sqlx.DB, logger *zap.Logger) *AnnouncementRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementRepository{db: db, validate: validation.Shared(), logger: logger}
}

type announcementMember struct {
	AnnouncementID string `db:"announcement_id"`
	Kind           string `db:"kind"`
	StudentUID     string `db:"student_uid"`
}

// Create inserts an announcement together with its target set.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
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
	if announcement.Attachments == nil {
		announcement.Attachments = models.Attachments{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create announcement: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO announcements (id, title, content, priority, category, instructor_code, instructor_name, target_audience,
        status, is_pinned, attachments, total_views, total_acknowledgments, expires_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING seq`
	if err = tx.QueryRowxContext(ctx, query,
		announcement.ID, announcement.Title, announcement.Content, announcement.Priority, announcement.Category,
		announcement.InstructorCode, announcement.InstructorName, announcement.TargetAudience, announcement.Status,
		announcement.IsPinned, announcement.Attachments, announcement.TotalViews, announcement.TotalAcknowledgments,
		announcement.ExpiresAt, announcement.CreatedAt, announcement.UpdatedAt,
	).Scan(&announcement.Seq); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}

	for _, uid := range announcement.TargetStudents {
		if _, err = tx.ExecContext(ctx, insertMemberQuery, announcement.ID, models.MemberTarget, uid, now); err != nil {
			return fmt.Errorf("insert announcement target: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create announcement: %w", err)
	}
	return nil
}

// FindByID returns an announcement with its member sets.
func (r *AnnouncementRepository) FindByID(ctx context.Context, id string) (*models.Announcement, error) {
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, `SELECT `+announcementColumns+` FROM announcements WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find announcement: %w", err)
	}
	items := []models.Announcement{announcement}
	if err := r.attachMembers(ctx, items); err != nil {
		return nil, err
	}
	if err := CheckShape(r.validate, &items[0]); err != nil {
		return nil, fmt.Errorf("find announcement: %w", err)
	}
	return &items[0], nil
}

// ListByInstructorCode returns announcements for code in insertion order.
func (r *AnnouncementRepository) ListByInstructorCode(ctx context.Context, code string) ([]models.Announcement, error) {
	return r.list(ctx, "list announcements by instructor", `SELECT `+announcementColumns+` FROM announcements WHERE instructor_code = $1 ORDER BY seq ASC`, code)
}

// ListAll returns every announcement in insertion order.
func (r *AnnouncementRepository) ListAll(ctx context.Context) ([]models.Announcement, error) {
	return r.list(ctx, "list announcements", `SELECT `+announcementColumns+` FROM announcements ORDER BY seq ASC`)
}

// AddViewer adds uid to the viewer set and re-derives total_views.
func (r *AnnouncementRepository) AddViewer(ctx context.Context, id, uid string) error {
	return r.addMember(ctx, id, models.MemberViewed, uid, "total_views")
}

// AddAcknowledger adds uid to the acknowledger set and re-derives total_acknowledgments.
func (r *AnnouncementRepository) AddAcknowledger(ctx context.Context, id, uid string) error {
	return r.addMember(ctx, id, models.MemberAcknowledged, uid, "total_acknowledgments")
}

const insertMemberQuery = `INSERT INTO announcement_members (announcement_id, kind, student_uid, created_at) VALUES ($1, $2, $3, $4)
        ON CONFLICT (announcement_id, kind, student_uid) DO NOTHING`

func (r *AnnouncementRepository) addMember(ctx context.Context, id, kind, uid, counter string) error {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, insertMemberQuery, id, kind, uid, now); err != nil {
		return fmt.Errorf("add announcement %s member: %w", kind, err)
	}
	query := fmt.Sprintf(`UPDATE announcements SET %s = (SELECT COUNT(*) FROM announcement_members WHERE announcement_id = $1 AND kind = $2), updated_at = $3 WHERE id = $1`, counter)
	res, err := r.db.ExecContext(ctx, query, id, kind, now)
	if err != nil {
		return fmt.Errorf("refresh announcement %s counter: %w", kind, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AnnouncementRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]models.Announcement, error) {
	var items []models.Announcement
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.attachMembers(ctx, items); err != nil {
		return nil, err
	}
	valid := items[:0]
	for i := range items {
		if err := CheckShape(r.validate, &items[i]); err != nil {
			r.logger.Warn("skipping malformed announcement record", zap.String("id", items[i].ID), zap.Error(err))
			continue
		}
		valid = append(valid, items[i])
	}
	return valid, nil
}

func (r *AnnouncementRepository) attachMembers(ctx context.Context, items []models.Announcement) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	index := make(map[string]*models.Announcement, len(items))
	for i := range items {
		ids[i] = items[i].ID
		items[i].TargetStudents = []string{}
		items[i].ViewedBy = []string{}
		items[i].AcknowledgedBy = []string{}
		index[items[i].ID] = &items[i]
	}

	var members []announcementMember
	const query = `SELECT announcement_id, kind, student_uid FROM announcement_members WHERE announcement_id = ANY($1) ORDER BY created_at ASC, student_uid ASC`
	if err := r.db.SelectContext(ctx, &members, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load announcement members: %w", err)
	}
	for _, m := range members {
		a, ok := index[m.AnnouncementID]
		if !ok {
			continue
		}
		switch m.Kind {
		case models.MemberTarget:
			a.TargetStudents = append(a.TargetStudents, m.StudentUID)
		case models.MemberViewed:
			a.ViewedBy = append(a.ViewedBy, m.StudentUID)
		case models.MemberAcknowledged:
			a.AcknowledgedBy = append(a.AcknowledgedBy, m.StudentUID)
		}
	}
	return nil
}
