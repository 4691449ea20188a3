package delivery

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authdomain "miinplanner-backend/internal/auth/domain"
	"miinplanner-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(v usecase.Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", AuthMiddleware(v, "/api/auth/me"))
	api.GET("/auth/me", func(c *gin.Context) {
		s, _ := SessionFrom(c)
		c.JSON(http.StatusOK, s)
	})
	api.GET("/tasks", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	v := usecase.NewJWTVerifier("secret", time.Hour)
	r := newRouter(v)

	verified, err := v.Issue(authdomain.Session{UID: "u1", EmailVerified: true})
	require.NoError(t, err)
	unverified, err := v.Issue(authdomain.Session{UID: "u2"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/api/tasks", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/api/tasks", "Token "+verified).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/api/tasks", "Bearer garbage").Code)
	assert.Equal(t, http.StatusOK, do(r, "/api/tasks", "Bearer "+verified).Code)

	w := do(r, "/api/tasks", "Bearer "+unverified)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "email not verified")

	w = do(r, "/api/auth/me", "Bearer "+unverified)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"uid":"u2"`)
}
