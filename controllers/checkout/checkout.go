package checkoutControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/checkout"
	"github.com/kimthedrew/legit-collections/middleware"
	"github.com/kimthedrew/legit-collections/models"
)

type CheckoutInput struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
	PhoneNumber   string `json:"phone_number"`
	MpesaPhone    string `json:"mpesa_phone"`
	PaymentCode   string `json:"payment_code"`
}

// POST /checkout
func Checkout(db *gorm.DB, orch *checkout.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var input CheckoutInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		method, err := models.ParsePaymentMethod(input.PaymentMethod)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		result, err := orch.Checkout(c.Request.Context(), user, checkout.Request{
			Method:      method,
			PhoneNumber: input.PhoneNumber,
			MpesaPhone:  input.MpesaPhone,
			PaymentCode: input.PaymentCode,
		})
		if err != nil {
			var unavailable *checkout.ItemUnavailableError
			switch {
			case errors.Is(err, checkout.ErrEmptyCart):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
			case errors.As(err, &unavailable):
				c.JSON(http.StatusConflict, gin.H{"error": unavailable.Error()})
			case errors.Is(err, checkout.ErrPaymentInit):
				// Orders stay Pending; the user should retry with
				// another payment method.
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retryable": true})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing order"})
			}
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
