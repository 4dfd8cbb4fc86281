package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/cartstore"
	"github.com/kimthedrew/legit-collections/checkout"
	"github.com/kimthedrew/legit-collections/config"
	orderControllers "github.com/kimthedrew/legit-collections/controllers/order"
	"github.com/kimthedrew/legit-collections/storage"
)

// Deps carries everything the route groups need, constructed once in main.
type Deps struct {
	DB           *gorm.DB
	Config       *config.Config
	Logger       zerolog.Logger
	Carts        cartstore.Store
	Orchestrator *checkout.Orchestrator
	Uploader     storage.Uploader
	Feed         *orderControllers.Feed
	Notifier     orderControllers.Notifier
}

// SetupRoutes is the single entry-point that wires up all route groups.
func SetupRoutes(r *gin.Engine, deps Deps) {
	SetupAuthRoutes(r, deps)

	SetupUserRoutes(r, deps)

	SetupPaymentRoutes(r, deps)

	SetupAdminRoutes(r, deps)
}
