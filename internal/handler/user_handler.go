package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/pkg/response"
)

type profileService interface {
	Current(ctx context.Context, session *models.Session) (models.UserRecord, error)
	UpdateContact(ctx context.Context, session *models.Session, req dto.UpdateContactRequest) (models.UserRecord, error)
}

// UserHandler serves the current user's profile.
type UserHandler struct {
	service profileService
}

// NewUserHandler constructs a user handler.
func NewUserHandler(svc profileService) *UserHandler {
	return &UserHandler{service: svc}
}

// Me godoc
// @Summary Current user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me [get]
func (h *UserHandler) Me(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}
	record, err := h.service.Current(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, map[string]interface{}{"role": session.Role})
}

// UpdateMe godoc
// @Summary Update contact number
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateContactRequest true "Contact number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /me [patch]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}
	var req dto.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid profile payload"))
		return
	}
	record, err := h.service.UpdateContact(c.Request.Context(), session, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}
