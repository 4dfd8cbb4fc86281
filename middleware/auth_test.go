package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimthedrew/legit-collections/auth"
	"github.com/kimthedrew/legit-collections/models"
)

const testSecret = "test-secret"

func newProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	protected := r.Group("/", ValidateToken(testSecret))
	protected.GET("/me", func(c *gin.Context) {
		id, _ := UserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	admin := protected.Group("/admin", RequireAdmin())
	admin.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	super := protected.Group("/super", RequireSuperAdmin())
	super.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, role models.Role) string {
	t.Helper()
	token, err := auth.IssueJWT(testSecret, models.User{ID: 7, Email: "x@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func TestValidateTokenMissingHeader(t *testing.T) {
	r := newProtectedRouter()
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
}

func TestValidateTokenBadToken(t *testing.T) {
	r := newProtectedRouter()
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "not-a-token").Code)
}

func TestValidateTokenSetsUserID(t *testing.T) {
	r := newProtectedRouter()
	w := get(r, "/me", tokenFor(t, models.RoleUser))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)
}

func TestRequireAdmin(t *testing.T) {
	r := newProtectedRouter()
	assert.Equal(t, http.StatusForbidden, get(r, "/admin/ping", tokenFor(t, models.RoleUser)).Code)
	assert.Equal(t, http.StatusOK, get(r, "/admin/ping", tokenFor(t, models.RoleLimitedAdmin)).Code)
	assert.Equal(t, http.StatusOK, get(r, "/admin/ping", tokenFor(t, models.RoleSuperAdmin)).Code)
}

func TestRequireSuperAdmin(t *testing.T) {
	r := newProtectedRouter()
	assert.Equal(t, http.StatusForbidden, get(r, "/super/ping", tokenFor(t, models.RoleLimitedAdmin)).Code)
	assert.Equal(t, http.StatusOK, get(r, "/super/ping", tokenFor(t, models.RoleSuperAdmin)).Code)
}
