package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portal-sabido-api/internal/middleware"
	"github.com/noah-isme/portal-sabido-api/internal/models"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
	"github.com/noah-isme/portal-sabido-api/pkg/response"
)

// requireSession writes 401 and returns nil when no session is attached.
func requireSession(c *gin.Context) *models.Session {
	session := middleware.CurrentSession(c)
	if session == nil || session.Record() == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	return session
}

// instructorCode returns the code of the logged in instructor.
func instructorCode(session *models.Session) string {
	if session.Instructor == nil {
		return ""
	}
	return session.Instructor.InstructorCode
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
