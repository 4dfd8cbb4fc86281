package routes

import (
	"github.com/gin-gonic/gin"

	cartControllers "github.com/kimthedrew/legit-collections/controllers/cart"
	catalogControllers "github.com/kimthedrew/legit-collections/controllers/catalog"
	checkoutControllers "github.com/kimthedrew/legit-collections/controllers/checkout"
	orderControllers "github.com/kimthedrew/legit-collections/controllers/order"
	userControllers "github.com/kimthedrew/legit-collections/controllers/user"
	wishlistControllers "github.com/kimthedrew/legit-collections/controllers/wishlist"
	"github.com/kimthedrew/legit-collections/middleware"
)

// SetupUserRoutes registers the storefront endpoints. The catalog is
// public; everything touching a cart or an order requires a JWT.
func SetupUserRoutes(r *gin.Engine, deps Deps) {
	// ──────────────── Catalog (public) ────────────────
	r.GET("/products", catalogControllers.GetProducts(deps.DB))
	r.GET("/products/:id", catalogControllers.GetProductByID(deps.DB))
	r.GET("/search", catalogControllers.SearchProducts(deps.DB))

	authed := r.Group("/")
	authed.Use(middleware.ValidateToken(deps.Config.Auth.JWTSecret))
	{
		// ──────────────── Profile ────────────────
		authed.GET("/profile", userControllers.GetProfile(deps.DB))
		authed.PUT("/profile", userControllers.UpdateProfile(deps.DB))

		// ──────────────── Shopping Cart ────────────────
		cartGroup := authed.Group("/cart")
		{
			cartGroup.GET("", cartControllers.GetCart(deps.DB, deps.Carts))
			cartGroup.POST("/add/:product_id", cartControllers.AddToCart(deps.DB, deps.Carts))
			cartGroup.DELETE("/:index", cartControllers.RemoveFromCart(deps.DB, deps.Carts, deps.Logger))
			cartGroup.DELETE("", cartControllers.ClearCart(deps.Carts))
			cartGroup.POST("/migrate", cartControllers.MigrateCart(deps.Carts))
		}

		// ──────────────── Checkout & Orders ────────────────
		authed.POST("/checkout", checkoutControllers.Checkout(deps.DB, deps.Orchestrator))
		authed.GET("/mpesa/status/:order_id", checkoutControllers.MpesaStatus(deps.DB))
		authed.GET("/orders", orderControllers.GetUserOrders(deps.DB))

		// ──────────────── Wishlist ────────────────
		wishGroup := authed.Group("/wishlist")
		{
			wishGroup.GET("", wishlistControllers.GetWishlist(deps.DB))
			wishGroup.POST("/:product_id", wishlistControllers.AddToWishlist(deps.DB))
			wishGroup.DELETE("/:product_id", wishlistControllers.RemoveFromWishlist(deps.DB))
		}
	}
}
