package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/middleware"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/internal/service"
	"github.com/noah-isme/portal-sabido-api/pkg/response"
)

type rosterService interface {
	Roster(ctx context.Context, code string) ([]dto.RosterStudent, dto.RosterSummary)
	UpdateInfo(ctx context.Context, instructorCode, studentID string, req dto.UpdateStudentInfoRequest) (*models.Student, error)
}

type rosterExporter interface {
	ExportRoster(ctx context.Context, code string, format service.ExportFormat) (*service.ExportResult, error)
}

// StudentHandler serves the instructor's roster.
type StudentHandler struct {
	roster   rosterService
	exporter rosterExporter
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(roster rosterService, exporter rosterExporter) *StudentHandler {
	return &StudentHandler{roster: roster, exporter: exporter}
}

// List godoc
// @Summary List roster
// @Description Students linked to the instructor code, sorted by last name, with payment summary
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}
	rows, summary := h.roster.Roster(c.Request.Context(), instructorCode(session))
	middleware.SetMeta(c, "summary", summary)
	response.JSON(c, http.StatusOK, rows, middleware.ExtractMeta(c))
}

// Update godoc
// @Summary Update student balance or remarks
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student record ID"
// @Param payload body dto.UpdateStudentInfoRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [patch]
func (h *StudentHandler) Update(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}
	var req dto.UpdateStudentInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid student payload"))
		return
	}
	student, err := h.roster.UpdateInfo(c.Request.Context(), instructorCode(session), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RosterStudent{Student: *student, PaymentStatus: models.PaymentStatusFor(student.Balance)})
}

// Export godoc
// @Summary Export roster
// @Tags Students
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /students/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.ExportRoster(c.Request.Context(), instructorCode(session), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
