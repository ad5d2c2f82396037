package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portal-sabido-api/internal/models"
	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
	"github.com/noah-isme/portal-sabido-api/pkg/response"
)

// RequireRole lets the request through only when the session role is allowed.
// It must run after Session.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		session := CurrentSession(c)
		if session == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[session.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("this action is not available to a %s", session.Role)))
			c.Abort()
			return
		}
		c.Next()
	}
}
