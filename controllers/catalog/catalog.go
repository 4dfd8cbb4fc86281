package catalogControllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/models"
)

const pageSize = 9

// GET /products
// Query parameters: page, sort (newest, price_low, price_high, name_az,
// name_za), min_price, max_price, category, availability (in_stock,
// out_of_stock).
func GetProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		if page < 1 {
			page = 1
		}

		query := db.Model(&models.Product{}).Preload("Sizes")

		if minPriceStr := c.Query("min_price"); minPriceStr != "" {
			mp, err := strconv.ParseFloat(minPriceStr, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_price"})
				return
			}
			query = query.Where("price >= ?", mp)
		}
		if maxPriceStr := c.Query("max_price"); maxPriceStr != "" {
			mp, err := strconv.ParseFloat(maxPriceStr, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid max_price"})
				return
			}
			query = query.Where("price <= ?", mp)
		}
		if category := c.Query("category"); category != "" {
			query = query.Where("category = ?", category)
		}

		switch c.Query("availability") {
		case "in_stock":
			query = query.Where(
				"EXISTS (SELECT 1 FROM size_stocks WHERE size_stocks.product_id = products.id AND size_stocks.quantity > 0)",
			)
		case "out_of_stock":
			query = query.Where(
				"NOT EXISTS (SELECT 1 FROM size_stocks WHERE size_stocks.product_id = products.id AND size_stocks.quantity > 0)",
			)
		}

		switch c.DefaultQuery("sort", "newest") {
		case "price_low":
			query = query.Order("price ASC")
		case "price_high":
			query = query.Order("price DESC")
		case "name_az":
			query = query.Order("name ASC")
		case "name_za":
			query = query.Order("name DESC")
		default:
			query = query.Order("id DESC")
		}

		var total int64
		if err := query.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count products"})
			return
		}

		var products []models.Product
		if err := query.Limit(pageSize).Offset((page - 1) * pageSize).Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"products":  products,
			"page":      page,
			"per_page":  pageSize,
			"total":     total,
			"last_page": (total + pageSize - 1) / pageSize,
		})
	}
}

// GET /products/:id
func GetProductByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var product models.Product
		if err := db.Preload("Sizes").First(&product, "id = ?", id).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}

		c.JSON(http.StatusOK, product)
	}
}

// GET /search?q=
func SearchProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Query("q")
		if q == "" {
			c.JSON(http.StatusOK, gin.H{"products": []models.Product{}})
			return
		}

		likePattern := "%" + q + "%"
		var products []models.Product
		if err := db.Preload("Sizes").
			Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", likePattern, likePattern).
			Order("id DESC").
			Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"products": products, "query": q})
	}
}
