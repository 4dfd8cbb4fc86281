package orderControllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/middleware"
	"github.com/kimthedrew/legit-collections/models"
)

// OrderView degrades gracefully when the referenced product has been
// deleted: the amount falls back to zero and the product shows as N/A.
type OrderView struct {
	models.Order
	ProductName string  `json:"product_name"`
	TotalPrice  float64 `json:"total_price"`
}

func toView(order models.Order) OrderView {
	view := OrderView{Order: order, ProductName: "N/A"}
	if order.Product != nil {
		view.ProductName = order.Product.Name
		view.TotalPrice = order.Product.Price
	}
	if order.Amount > 0 {
		view.TotalPrice = order.Amount
	}
	return view
}

// GET /orders — the authenticated user's orders, newest first.
func GetUserOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var orders []models.Order
		if err := db.
			Where("user_id = ?", userID).
			Preload("Product").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}

		views := make([]OrderView, len(orders))
		for i, order := range orders {
			views[i] = toView(order)
		}
		c.JSON(http.StatusOK, views)
	}
}

// GET /admin/orders
func GetAllOrders(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orders []models.Order
		if err := db.
			Preload("User").
			Preload("Product").
			Order("created_at DESC").
			Find(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// Notifier sends best-effort status mails to the customer.
type Notifier interface {
	SendStatusUpdate(to, name string, order models.Order) error
}

// PUT /admin/orders/:id/status — fulfillment transitions only; payment
// state is owned by the reconcile paths.
func UpdateOrderStatus(db *gorm.DB, notifier Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input UpdateOrderStatusInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		status, err := models.ParseOrderStatus(input.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var order models.Order
		if err := db.Preload("User").First(&order, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}

		if err := db.Model(&order).Update("status", status).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order status"})
			return
		}

		if notifier != nil {
			order.Status = status
			_ = notifier.SendStatusUpdate(order.User.Email, order.User.Name, order)
		}

		c.JSON(http.StatusOK, gin.H{"message": "Order status updated"})
	}
}
