package adminControllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/checkout"
)

type VerifyPaymentInput struct {
	Code string `json:"code" binding:"required"`
}

// POST /admin/orders/:id/verify — reconciles a manual-code order by
// comparing the operator's code against the customer-supplied one.
func VerifyManualPayment(orchestrator *checkout.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
			return
		}

		var input VerifyPaymentInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		err = orchestrator.VerifyManualPayment(c.Request.Context(), uint(orderID), input.Code)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"message": "Payment verified"})
		case errors.Is(err, checkout.ErrCodeMismatch):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Payment codes do not match"})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify payment"})
		}
	}
}
