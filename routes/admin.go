package routes

import (
	"github.com/gin-gonic/gin"

	adminControllers "github.com/kimthedrew/legit-collections/controllers/admin"
	orderControllers "github.com/kimthedrew/legit-collections/controllers/order"
	"github.com/kimthedrew/legit-collections/middleware"
)

// SetupAdminRoutes registers all "/admin/*" endpoints. Requires a JWT
// with an admin role; limited-admin scoping happens inside the handlers.
func SetupAdminRoutes(r *gin.Engine, deps Deps) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateToken(deps.Config.Auth.JWTSecret), middleware.RequireAdmin())
	{
		// ─────────── Dashboard & Analytics ───────────
		adminGroup.GET("/dashboard", adminControllers.GetDashboard(deps.DB))

		// ─────────── Product Management ───────────
		productAdmin := adminGroup.Group("/products")
		{
			productAdmin.POST("", adminControllers.CreateProduct(deps.DB, deps.Uploader))
			productAdmin.PUT("/:id", adminControllers.UpdateProduct(deps.DB, deps.Uploader))
			productAdmin.DELETE("/:id", adminControllers.DeleteProduct(deps.DB))
			productAdmin.POST("/:id/sizes", adminControllers.UpsertSize(deps.DB))
		}
		adminGroup.DELETE("/sizes/:id", adminControllers.DeleteSize(deps.DB))

		// ─────────── Orders ───────────
		adminGroup.GET("/orders", orderControllers.GetAllOrders(deps.DB))
		adminGroup.POST("/orders/:id/verify", adminControllers.VerifyManualPayment(deps.Orchestrator))
		adminGroup.PUT("/orders/:id/status", orderControllers.UpdateOrderStatus(deps.DB, deps.Notifier))
		adminGroup.GET("/orders/ws", deps.Feed.Handler())

		// ─────────── Exports ───────────
		exportGroup := adminGroup.Group("/export")
		{
			exportGroup.GET("/orders", adminControllers.ExportOrdersCSV(deps.DB))
			exportGroup.GET("/products", adminControllers.ExportProductsCSV(deps.DB))
			exportGroup.GET("/products.xlsx", adminControllers.ExportProductsExcel(deps.DB))
		}

		// ─────────── Admin Management (super admin) ───────────
		superGroup := adminGroup.Group("/limited-admins")
		superGroup.Use(middleware.RequireSuperAdmin())
		{
			superGroup.POST("", adminControllers.CreateLimitedAdmin(deps.DB))
			superGroup.GET("", adminControllers.ListLimitedAdmins(deps.DB))
		}
	}
}
