package routes

import (
	"github.com/gin-gonic/gin"

	checkoutControllers "github.com/kimthedrew/legit-collections/controllers/checkout"
)

// SetupPaymentRoutes registers the provider-facing confirmation
// endpoints. These are unauthenticated: gateways call them directly.
func SetupPaymentRoutes(r *gin.Engine, deps Deps) {
	r.POST("/mpesa/callback", checkoutControllers.MpesaCallback(deps.Orchestrator, deps.Logger))

	// Pesapal hits the IPN with GET or POST depending on how the
	// notification was registered.
	r.GET("/pesapal/callback", checkoutControllers.PesapalCallback(deps.Orchestrator, deps.Logger))
	r.GET("/pesapal/ipn", checkoutControllers.PesapalIPN(deps.Orchestrator, deps.Logger))
	r.POST("/pesapal/ipn", checkoutControllers.PesapalIPN(deps.Orchestrator, deps.Logger))
}
