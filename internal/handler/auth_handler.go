package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	"github.com/noah-isme/portal-sabido-api/pkg/response"
)

type loginService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, session *models.Session) error
}

type registrationService interface {
	RegisterStudent(ctx context.Context, form dto.StudentRegistrationRequest) (*models.Student, error)
	RegisterInstructor(ctx context.Context, form dto.InstructorRegistrationRequest) (*models.Instructor, error)
}

type sessionIssuer interface {
	Issue(ctx context.Context, record models.UserRecord) (*models.LoginResponse, error)
}

// AuthHandler wires registration, login and logout.
type AuthHandler struct {
	auth         loginService
	registration registrationService
	sessions     sessionIssuer
	logger       *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth loginService, registration registrationService, sessions sessionIssuer, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: auth, registration: registration, sessions: sessions, logger: logger}
}

// RegisterStudent godoc
// @Summary Register a student
// @Description Creates the auth account and student record, links the student to the instructor roster and opens a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.StudentRegistrationRequest true "Student registration"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /auth/register/student [post]
func (h *AuthHandler) RegisterStudent(c *gin.Context) {
	var req dto.StudentRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid registration payload"))
		return
	}
	student, err := h.registration.RegisterStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, h.registered(c, student))
}

// RegisterInstructor godoc
// @Summary Register an instructor
// @Description Creates the auth account and instructor record holding the chosen instructor code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.InstructorRegistrationRequest true "Instructor registration"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register/instructor [post]
func (h *AuthHandler) RegisterInstructor(c *gin.Context) {
	var req dto.InstructorRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid registration payload"))
		return
	}
	instructor, err := h.registration.RegisterInstructor(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, h.registered(c, instructor))
}

// registered opens a session for a fresh record. A session failure does not
// undo the registration; the client can log in afterwards.
func (h *AuthHandler) registered(c *gin.Context, record models.UserRecord) dto.RegistrationResponse {
	resp := dto.RegistrationResponse{RecordID: record.RecordID()}
	session, err := h.sessions.Issue(c.Request.Context(), record)
	if err != nil {
		h.logger.Warn("session after registration failed", zap.String("uid", record.AuthUID()), zap.Error(err))
		return resp
	}
	resp.Session = session
	return resp
}

// Login godoc
// @Summary Authenticate user
// @Description Checks that the email belongs to the selected role, verifies the password and opens a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Logout godoc
// @Summary Logout current session
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	session := requireSession(c)
	if session == nil {
		return
	}
	if err := h.auth.Logout(c.Request.Context(), session); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
