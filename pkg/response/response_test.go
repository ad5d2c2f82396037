package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/portal-sabido-api/pkg/errors"
	"github.com/noah-isme/portal-sabido-api/pkg/middleware/requestid"
)

func TestErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/typed", func(c *gin.Context) { Error(c, appErrors.ErrCodeAlreadyInUse) })
	r.GET("/plain", func(c *gin.Context) { Error(c, errors.New("boom")) })

	req := httptest.NewRequest(http.MethodGet, "/typed", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "CONFLICT", env.Error.Code)
	assert.Equal(t, "req-1", env.Meta["request_id"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestJSONOmitsEmptyMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	JSON(c, http.StatusOK, map[string]string{"code": "4821"}, map[string]interface{}{})

	assert.JSONEq(t, `{"data":{"code":"4821"}}`, rec.Body.String())
}
