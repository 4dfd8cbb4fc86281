package adminControllers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/middleware"
	"github.com/kimthedrew/legit-collections/models"
	"github.com/kimthedrew/legit-collections/storage"
)

func currentAdmin(c *gin.Context, db *gorm.DB) (*models.User, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	return &user, true
}

// scopeProducts narrows queries to the admin's own products unless they
// are a super admin.
func scopeProducts(db *gorm.DB, admin *models.User) *gorm.DB {
	if admin.IsSuperAdmin() {
		return db
	}
	return db.Where("created_by = ?", admin.ID)
}

func uploadImage(c *gin.Context, uploader storage.Uploader) (string, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return "", nil
	}
	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}

	filename := strings.ReplaceAll(fileHeader.Filename, " ", "_")
	key := fmt.Sprintf("products/%s_%s", uuid.NewString()[:8], filename)
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return uploader.Upload(c.Request.Context(), key, contentType, data)
}

// POST /admin/products — multipart form with name, price, description,
// category, optional sizes ("9:4,9.5:2") and an image file.
func CreateProduct(db *gorm.DB, uploader storage.Uploader) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c, db)
		if !ok {
			return
		}

		allowed, err := admin.CanAddProduct(db)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check product limit"})
			return
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "Product limit reached"})
			return
		}

		name := c.PostForm("name")
		priceStr := c.PostForm("price")
		if name == "" || priceStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and price are required"})
			return
		}
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
			return
		}

		sizes, err := parseSizes(c.PostForm("sizes"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		imageURL := c.PostForm("image_url")
		if uploader != nil {
			uploaded, err := uploadImage(c, uploader)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload image"})
				return
			}
			if uploaded != "" {
				imageURL = uploaded
			}
		}

		product := models.Product{
			Name:        name,
			Price:       price,
			Description: c.PostForm("description"),
			Category:    c.DefaultPostForm("category", "Shoes"),
			ImageURL:    imageURL,
			CreatedBy:   admin.ID,
			Sizes:       sizes,
		}
		if err := db.Create(&product).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

// parseSizes reads "9:4,9.5:2" into stock rows.
func parseSizes(raw string) ([]models.SizeStock, error) {
	if raw == "" {
		return nil, nil
	}
	var sizes []models.SizeStock
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid sizes format: %q", pair)
		}
		qty, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("invalid quantity for size %q", parts[0])
		}
		sizes = append(sizes, models.SizeStock{
			Size:     strings.TrimSpace(parts[0]),
			Quantity: qty,
		})
	}
	return sizes, nil
}

// PUT /admin/products/:id
func UpdateProduct(db *gorm.DB, uploader storage.Uploader) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c, db)
		if !ok {
			return
		}

		var product models.Product
		if err := scopeProducts(db, admin).First(&product, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}

		updates := map[string]interface{}{}
		if name := c.PostForm("name"); name != "" {
			updates["name"] = name
		}
		if priceStr := c.PostForm("price"); priceStr != "" {
			price, err := strconv.ParseFloat(priceStr, 64)
			if err != nil || price < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
				return
			}
			updates["price"] = price
		}
		if desc, ok := c.GetPostForm("description"); ok {
			updates["description"] = desc
		}
		if category := c.PostForm("category"); category != "" {
			updates["category"] = category
		}

		if uploader != nil {
			uploaded, err := uploadImage(c, uploader)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload image"})
				return
			}
			if uploaded != "" {
				updates["image_url"] = uploaded
			}
		}

		if len(updates) > 0 {
			if err := db.Model(&product).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
				return
			}
		}

		db.Preload("Sizes").First(&product, product.ID)
		c.JSON(http.StatusOK, product)
	}
}

// DELETE /admin/products/:id — size rows cascade, orders detach via the
// nullable product reference.
func DeleteProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c, db)
		if !ok {
			return
		}

		var product models.Product
		if err := scopeProducts(db, admin).First(&product, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Order{}).
				Where("product_id = ?", product.ID).
				Update("product_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Where("product_id = ?", product.ID).Delete(&models.SizeStock{}).Error; err != nil {
				return err
			}
			return tx.Delete(&product).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
	}
}

type SizeInput struct {
	Size     string `json:"size" binding:"required"`
	Quantity int    `json:"quantity" binding:"min=0"`
}

// POST /admin/products/:id/sizes — upsert a size's stock level.
func UpsertSize(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c, db)
		if !ok {
			return
		}

		var product models.Product
		if err := scopeProducts(db, admin).First(&product, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}

		var input SizeInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var stock models.SizeStock
		err := db.Where("product_id = ? AND size = ?", product.ID, input.Size).First(&stock).Error
		switch {
		case err == nil:
			if err := db.Model(&stock).Update("quantity", input.Quantity).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update size"})
				return
			}
		case err == gorm.ErrRecordNotFound:
			stock = models.SizeStock{ProductID: product.ID, Size: input.Size, Quantity: input.Quantity}
			if err := db.Create(&stock).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create size"})
				return
			}
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up size"})
			return
		}
		c.JSON(http.StatusOK, stock)
	}
}

// DELETE /admin/sizes/:id
func DeleteSize(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := currentAdmin(c, db)
		if !ok {
			return
		}

		var stock models.SizeStock
		if err := db.First(&stock, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Size not found"})
			return
		}

		var product models.Product
		if err := scopeProducts(db, admin).First(&product, "id = ?", stock.ProductID).Error; err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to modify this product"})
			return
		}

		if err := db.Delete(&stock).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete size"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Size deleted"})
	}
}
