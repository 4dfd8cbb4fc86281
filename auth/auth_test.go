package auth

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kimthedrew/legit-collections/models"
)

const testSecret = "test-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func newRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/register", RegisterHandler(db, testSecret))
	r.POST("/auth/login", LoginHandler(db, testSecret))
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(db)

	w := postJSON(r, "/auth/register",
		`{"name":"Ann","email":"ann@example.com","password":"secret12"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"token"`)

	// The stored hash verifies but is never the plaintext.
	var user models.User
	require.NoError(t, db.Where("email = ?", "ann@example.com").First(&user).Error)
	assert.NotEqual(t, "secret12", user.PasswordHash)
	assert.True(t, user.VerifyPassword("secret12"))
	assert.Equal(t, models.RoleUser, user.Role)

	w = postJSON(r, "/auth/login",
		`{"email":"ann@example.com","password":"secret12"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(db)

	body := `{"name":"Ann","email":"ann@example.com","password":"secret12"}`
	require.Equal(t, http.StatusCreated, postJSON(r, "/auth/register", body).Code)
	assert.Equal(t, http.StatusConflict, postJSON(r, "/auth/register", body).Code)
}

func TestLoginWrongPassword(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(db)

	postJSON(r, "/auth/register", `{"name":"Ann","email":"ann@example.com","password":"secret12"}`)
	w := postJSON(r, "/auth/login", `{"email":"ann@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRoundTrip(t *testing.T) {
	user := models.User{ID: 42, Email: "ann@example.com", Role: models.RoleLimitedAdmin}
	token, err := IssueJWT(testSecret, user)
	require.NoError(t, err)

	claims, err := ParseJWT(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, models.RoleLimitedAdmin, claims.Role)

	_, err = ParseJWT("other-secret", token)
	assert.Error(t, err)
}
