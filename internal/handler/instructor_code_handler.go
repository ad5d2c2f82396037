package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portal-sabido-api/internal/dto"
	"github.com/noah-isme/portal-sabido-api/internal/service"
	"github.com/noah-isme/portal-sabido-api/pkg/response"
)

type codeAllocator interface {
	Allocate(ctx context.Context) (string, error)
}

type codeValidator interface {
	ValidateInstructorCode(ctx context.Context, code string) service.CodeValidation
}

// InstructorCodeHandler suggests and checks instructor codes.
type InstructorCodeHandler struct {
	allocator codeAllocator
	validator codeValidator
}

// NewInstructorCodeHandler constructs the handler.
func NewInstructorCodeHandler(allocator codeAllocator, validator codeValidator) *InstructorCodeHandler {
	return &InstructorCodeHandler{allocator: allocator, validator: validator}
}

// New godoc
// @Summary Suggest an unused instructor code
// @Tags Instructor Codes
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /instructor-codes/new [get]
func (h *InstructorCodeHandler) New(c *gin.Context) {
	code, err := h.allocator.Allocate(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.InstructorCodeResponse{Code: code})
}

// Validate godoc
// @Summary Check an instructor code
// @Description Reports whether the code belongs to an instructor and returns the instructor name
// @Tags Instructor Codes
// @Produce json
// @Param code path string true "Instructor code"
// @Success 200 {object} response.Envelope
// @Router /instructor-codes/{code} [get]
func (h *InstructorCodeHandler) Validate(c *gin.Context) {
	code := c.Param("code")
	result := h.validator.ValidateInstructorCode(c.Request.Context(), code)
	check := dto.InstructorCodeCheck{Code: code, Valid: result.Valid, Message: result.Message}
	if result.Instructor != nil {
		check.InstructorName = result.Instructor.Name
	}
	response.JSON(c, http.StatusOK, check)
}
