package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var fromCtx string
	r.GET("/", func(c *gin.Context) {
		fromCtx = FromContext(c.Request.Context())
		c.String(http.StatusOK, Value(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", fromCtx)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 65))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	_, err := uuid.Parse(rec.Body.String())
	assert.NoError(t, err)
}
