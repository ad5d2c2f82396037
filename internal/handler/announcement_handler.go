package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/middleware"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/service"
	"github.com/noah-isme/portal-sabido-api/pkg/response"
)

type announcementService interface {
	Create(ctx context.Context, instructorCode string, req dto.CreateAnnouncementRequest) (*models.Announcement, error)
	ListForInstructor(ctx context.Context, code string) []models.Announcement
	ListForStudent(ctx context.Context, studentUID string) []models.Announcement
	MarkViewed(ctx context.Context, id, studentUID string) error
	MarkAcknowledged(ctx context.Context, id, studentUID string) error
}

// AnnouncementHandler manages announcement endpoints.
type AnnouncementHandler struct {
	service announcementService
}

// NewAnnouncementHandler constructs the handler.
func NewAnnouncementHandler(svc announcementService) *AnnouncementHandler {
	return &AnnouncementHandler{service: svc}
}

// List godoc
// @Summary List announcements
// @Description Instructors see their own announcements; students see the announcements visible to them with read state
// @Tags Announcements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}
	var views []dto.AnnouncementView
	switch session.Role {
	case models.RoleInstructor:
		views = service.ToViews(h.service.ListForInstructor(c.Request.Context(), instructorCode(session)), "")
	default:
		views = service.ToViews(h.service.ListForStudent(c.Request.Context(), session.UID), session.UID)
	}
	middleware.SetMeta(c, "count", len(views))
	response.JSON(c, http.StatusOK, views, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Create announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateAnnouncementRequest true "Announcement"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}
	var req dto.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid announcement payload"))
		return
	}
	announcement, err := h.service.Create(c.Request.Context(), instructorCode(session), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, announcement)
}

// View godoc
// @Summary Mark announcement viewed
// @Tags Announcements
// @Security BearerAuth
// @Param id path string true "Announcement ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /announcements/{id}/view [post]
func (h *AnnouncementHandler) View(c *gin.Context) {
	h.mark(c, h.service.MarkViewed)
}

// Acknowledge godoc
// @Summary Acknowledge announcement
// @Tags Announcements
// @Security BearerAuth
// @Param id path string true "Announcement ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /announcements/{id}/acknowledge [post]
func (h *AnnouncementHandler) Acknowledge(c *gin.Context) {
	h.mark(c, h.service.MarkAcknowledged)
}

func (h *AnnouncementHandler) mark(c *gin.Context, fn func(ctx context.Context, id, studentUID string) error) {
	session := requireSession(c)
	if session == nil {
		return
	}
	if err := fn(c.Request.Context(), c.Param("id"), session.UID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
