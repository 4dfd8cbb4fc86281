package checkoutControllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/checkout"
	"github.com/kimthedrew/legit-collections/middleware"
	"github.com/kimthedrew/legit-collections/models"
	"github.com/kimthedrew/legit-collections/payments/mpesa"
)

// POST /mpesa/callback
// The provider delivers at least once and retries on non-200, so this
// handler always acknowledges with a success envelope; internal failures
// are logged for manual follow-up instead of propagated.
func MpesaCallback(orch *checkout.Orchestrator, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var envelope mpesa.CallbackEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			logger.Error().Err(err).Msg("malformed M-Pesa callback")
			c.JSON(http.StatusOK, mpesa.Ack())
			return
		}

		cb := envelope.Body.STKCallback
		logger.Info().
			Str("checkout_request_id", cb.CheckoutRequestID).
			Int("result_code", cb.ResultCode).
			Msg("M-Pesa callback received")

		receipt, amount, phone := cb.Receipt()
		_, err := orch.Finalize(c.Request.Context(), cb.CheckoutRequestID, checkout.Outcome{
			Success: cb.Succeeded(),
			Receipt: receipt,
			Amount:  amount,
			Phone:   phone,
		})
		if err != nil {
			logger.Error().Err(err).
				Str("checkout_request_id", cb.CheckoutRequestID).
				Msg("M-Pesa reconciliation failed")
		}

		c.JSON(http.StatusOK, mpesa.Ack())
	}
}

// GET /mpesa/status/:order_id
// Client-driven poll while the customer responds to the PIN prompt.
func MpesaStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var order models.Order
		if err := db.First(&order, "id = ?", c.Param("order_id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		if order.UserID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"payment_status":    order.PaymentStatus,
			"order_status":      order.Status,
			"payment_reference": order.PaymentReference,
			"completed":         order.PaymentStatus == models.PaymentStatusCompleted,
		})
	}
}

// GET /pesapal/callback
// Browser return from the hosted payment page; the user is present, so a
// successful reconcile also clears their cart.
func PesapalCallback(orch *checkout.Orchestrator, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		trackingID := c.Query("OrderTrackingId")
		if trackingID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment response"})
			return
		}

		success, err := orch.ReconcileRedirect(c.Request.Context(), trackingID, true)
		if err != nil {
			logger.Error().Err(err).Str("tracking_id", trackingID).Msg("pesapal callback reconciliation failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "Unable to verify payment status. Please contact support."})
			return
		}

		if success {
			c.JSON(http.StatusOK, gin.H{"message": "Payment successful. Your order is being processed."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Payment was not completed. Please try again.", "failed": true})
	}
}

// GET|POST /pesapal/ipn
// Out-of-band notification carrying only the tracking id; resolved by the
// same status query as the browser return. Always acknowledged so the
// provider stops retrying.
func PesapalIPN(orch *checkout.Orchestrator, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		trackingID := c.Query("OrderTrackingId")
		if trackingID == "" {
			trackingID = c.PostForm("OrderTrackingId")
		}
		if trackingID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Missing tracking ID"})
			return
		}

		if _, err := orch.ReconcileRedirect(c.Request.Context(), trackingID, false); err != nil {
			logger.Error().Err(err).Str("tracking_id", trackingID).Msg("pesapal IPN reconciliation failed")
		}

		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}
