package main

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/cartstore"
	"github.com/kimthedrew/legit-collections/checkout"
	"github.com/kimthedrew/legit-collections/config"
	orderControllers "github.com/kimthedrew/legit-collections/controllers/order"
	"github.com/kimthedrew/legit-collections/mailer"
	"github.com/kimthedrew/legit-collections/models"
	"github.com/kimthedrew/legit-collections/payments/mpesa"
	"github.com/kimthedrew/legit-collections/payments/pesapal"
	"github.com/kimthedrew/legit-collections/routes"
	"github.com/kimthedrew/legit-collections/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting application")

	db, err := gorm.Open(postgres.Open(cfg.Server.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.SizeStock{},
		&models.Order{},
		&models.Wishlist{},
	); err != nil {
		logger.Fatal().Err(err).Msg("auto-migration failed")
	}

	carts := newCartStore(cfg, logger)

	// Payment gateways are optional: without credentials the matching
	// checkout methods return a retryable warning instead of charging.
	var stk checkout.STKGateway
	if ok, reason := cfg.Mpesa.Configured(); ok {
		stk = mpesa.NewClient(cfg.Mpesa, logger)
	} else {
		logger.Warn().Msg(reason + "; STK push checkout disabled")
	}

	var redir checkout.RedirectGateway
	if cfg.Pesapal.ConsumerKey != "" && cfg.Pesapal.ConsumerSecret != "" {
		redir = pesapal.NewClient(cfg.Pesapal, logger)
	} else {
		logger.Warn().Msg("Pesapal credentials not configured; redirect checkout disabled")
	}

	var uploader storage.Uploader
	if cfg.Storage.KeyID != "" {
		b2, err := storage.NewB2Uploader(context.Background(), cfg.Storage, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialise object storage")
		}
		uploader = b2
	} else {
		logger.Warn().Msg("object storage not configured; product image upload disabled")
	}

	mail := mailer.New(cfg.Mail, logger)
	feed := orderControllers.NewFeed(logger)
	orchestrator := checkout.NewOrchestrator(db, carts, stk, redir, mail, feed, cfg, logger)

	r := gin.Default()
	r.MaxMultipartMemory = 32 << 20

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r, routes.Deps{
		DB:           db,
		Config:       cfg,
		Logger:       logger,
		Carts:        carts,
		Orchestrator: orchestrator,
		Uploader:     uploader,
		Feed:         feed,
		Notifier:     mail,
	})

	logger.Info().Str("port", cfg.Server.Port).Msg("server listening")
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

// newCartStore prefers Redis so carts survive restarts; without a
// REDIS_URL it degrades to the in-process store.
func newCartStore(cfg *config.Config, logger zerolog.Logger) cartstore.Store {
	if cfg.Redis.URL == "" {
		logger.Warn().Msg("REDIS_URL not set; using in-memory cart store")
		return cartstore.NewMemory()
	}
	store, err := cartstore.NewRedis(cfg.Redis.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	return store
}
