package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/middleware"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/pkg/response"
)

type dashboardService interface {
	Build(ctx context.Context, session *models.Session) (*dto.DashboardResponse, error)
}

// DashboardHandler exposes the role specific landing page.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(svc dashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Get godoc
// @Summary Dashboard
// @Description Instructors receive their roster and announcements; students receive their instructor's announcements
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}
	resp, err := h.service.Build(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, middleware.ExtractMeta(c))
}
