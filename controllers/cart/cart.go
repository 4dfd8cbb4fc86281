package cartControllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/cartstore"
	"github.com/kimthedrew/legit-collections/middleware"
	"github.com/kimthedrew/legit-collections/models"
)

type AddToCartInput struct {
	Size string `json:"size" binding:"required"`
}

// POST /cart/add/:product_id
// The selection is validated against current stock at add time; checkout
// re-validates, so staleness here is tolerated.
func AddToCart(db *gorm.DB, carts cartstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
			return
		}

		var input AddToCartInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Please select a size"})
			return
		}

		var product models.Product
		if err := db.Preload("Sizes").First(&product, "id = ?", productID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}

		size := product.SizeFor(input.Size)
		if size == nil || size.Quantity < 1 {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Size " + input.Size + " of " + product.Name + " is out of stock",
			})
			return
		}

		items, err := carts.Get(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}
		items = append(items, models.CartItem{ProductID: uint(productID), Size: input.Size})
		if err := carts.Replace(c.Request.Context(), userID, items); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": product.Name + " (Size " + input.Size + ") added to cart",
			"count":   len(items),
		})
	}
}

// DELETE /cart/:index
// Removing a line restores one unit of the referenced size (compensating
// action). An out-of-range index is a no-op.
func RemoveFromCart(db *gorm.DB, carts cartstore.Store, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		index, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid index"})
			return
		}

		items, err := carts.Get(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}

		if index < 0 || index >= len(items) {
			c.JSON(http.StatusOK, gin.H{"message": "No such cart item", "count": len(items)})
			return
		}

		removed := items[index]
		items = append(items[:index], items[index+1:]...)
		if err := carts.Replace(c.Request.Context(), userID, items); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
			return
		}

		res := db.Model(&models.SizeStock{}).
			Where("product_id = ? AND size = ?", removed.ProductID, removed.Size).
			UpdateColumn("quantity", gorm.Expr("quantity + 1"))
		if res.Error != nil {
			logger.Warn().Err(res.Error).Uint("product_id", removed.ProductID).Msg("failed to restore stock")
		}

		c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart", "count": len(items)})
	}
}

// CartLine is the resolved view of one cart item.
type CartLine struct {
	Index   int            `json:"index"`
	Product models.Product `json:"product"`
	Size    string         `json:"size"`
	Price   float64        `json:"price"`
}

// GET /cart
// Lines whose product has been deleted since selection are skipped.
func GetCart(db *gorm.DB, carts cartstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		items, err := carts.Get(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cart"})
			return
		}

		lines := make([]CartLine, 0, len(items))
		var total float64
		for i, item := range items {
			var product models.Product
			if err := db.Preload("Sizes").First(&product, "id = ?", item.ProductID).Error; err != nil {
				continue
			}
			lines = append(lines, CartLine{
				Index:   i,
				Product: product,
				Size:    item.Size,
				Price:   product.Price,
			})
			total += product.Price
		}

		c.JSON(http.StatusOK, gin.H{"items": lines, "total": total})
	}
}

// DELETE /cart
func ClearCart(carts cartstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		if err := carts.Clear(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
	}
}

// POST /cart/migrate
// One-time migration of carts written in the legacy mixed format, where a
// line could be a bare product id.
func MigrateCart(carts cartstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var raw []json.RawMessage
		if err := c.ShouldBindJSON(&raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart payload"})
			return
		}

		items := cartstore.MigrateLegacy(raw)
		if err := carts.Replace(c.Request.Context(), userID, items); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to migrate cart"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Cart migrated", "count": len(items)})
	}
}
