package adminControllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/models"
)

type LimitedAdminInput struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	Name         string `json:"name" binding:"required"`
	ProductLimit int    `json:"product_limit" binding:"min=0"`
}

// POST /admin/limited-admins — super admin only (enforced by route
// middleware). A product limit of zero means unlimited.
func CreateLimitedAdmin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LimitedAdminInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		email := strings.ToLower(strings.TrimSpace(input.Email))
		var existing models.User
		if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}

		admin := models.User{
			Email:        email,
			Name:         input.Name,
			Role:         models.RoleLimitedAdmin,
			ProductLimit: input.ProductLimit,
		}
		if err := admin.SetPassword(input.Password); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		if err := db.Create(&admin).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create admin"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":            admin.ID,
			"email":         admin.Email,
			"name":          admin.Name,
			"role":          admin.Role,
			"product_limit": admin.ProductLimit,
		})
	}
}

// GET /admin/limited-admins
func ListLimitedAdmins(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var admins []models.User
		if err := db.Where("role = ?", models.RoleLimitedAdmin).Find(&admins).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch admins"})
			return
		}
		c.JSON(http.StatusOK, admins)
	}
}
