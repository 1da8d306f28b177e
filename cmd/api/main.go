package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"github.com/hometrove/marketplace-api/internal/controller"
	"github.com/hometrove/marketplace-api/internal/middleware"
	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/internal/wizard"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/config"
	appcron "github.com/hometrove/marketplace-api/pkg/cron"
	"github.com/hometrove/marketplace-api/pkg/currency"
	"github.com/hometrove/marketplace-api/pkg/database"
	"github.com/hometrove/marketplace-api/pkg/email"
	"github.com/hometrove/marketplace-api/pkg/jwtutil"
	"github.com/hometrove/marketplace-api/pkg/seed"
	"github.com/hometrove/marketplace-api/pkg/storage"
	"github.com/hometrove/marketplace-api/pkg/validate"
)

const maxImagesPerListing = 16

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

func setupRoutes(app *fiber.App, mw *middleware.Middleware,
	auth *controller.AuthController,
	props *controller.PropertyController,
	images *controller.ImageController,
	drafts *controller.DraftController,
	admin *controller.AdminController,
	stats *controller.StatsController,
	leads *controller.LeadController,
	promos *controller.PromotionController,
	rates *controller.RatesController,
) {
	api := app.Group("/api")

	// Auth / onboarding
	authGroup := api.Group("/auth")
	authGroup.Post("/register", auth.Register)
	authGroup.Post("/login", auth.Login)

	// Public marketplace. The stack matches in registration order, so these
	// must all be registered before any group that mounts the auth guard.
	api.Get("/properties", props.List)
	api.Get("/properties/my", mw.Auth(), props.ListMine)
	api.Get("/properties/:id", props.Get)
	api.Post("/properties/:id/view", stats.RecordView)
	api.Post("/properties/:id/leads", leads.Create)
	api.Get("/rates", rates.Get)
	api.Get("/promotions/tiers", promos.ListTiers)

	// Stripe webhook: authenticated by signature, never by bearer token.
	api.Post("/webhooks/stripe", promos.Webhook)

	// Account
	me := api.Group("/me", mw.Auth())
	me.Get("/", auth.Me)
	me.Put("/", auth.UpdateProfile)
	me.Post("/avatar", auth.UploadAvatar)

	// Listing management
	properties := api.Group("/properties", mw.Auth())
	properties.Post("/", mw.RequireVerified(), props.Create)
	properties.Put("/:id", mw.PropertyOwnership(), props.Update)
	properties.Delete("/:id", mw.PropertyOwnership(), props.Archive)

	properties.Post("/:id/images", mw.PropertyOwnership(), mw.ImageLimit(maxImagesPerListing), images.Upload)
	properties.Post("/:id/images/claim", mw.PropertyOwnership(), images.Claim)
	properties.Put("/:id/images/:imageID/primary", mw.PropertyOwnership(), images.SetPrimary)
	properties.Delete("/:id/images/:imageID", mw.PropertyOwnership(), images.Delete)

	properties.Post("/:id/promote", mw.PropertyOwnership(), promos.Promote)

	// Listing wizard drafts
	draftGroup := api.Group("/drafts", mw.Auth(), mw.RequireVerified())
	draftGroup.Post("/", drafts.Create)
	draftGroup.Get("/:id", drafts.Get)
	draftGroup.Put("/:id", drafts.Save)
	draftGroup.Post("/:id/back", drafts.Back)
	draftGroup.Post("/:id/submit", drafts.Submit)
	draftGroup.Delete("/:id", drafts.Discard)
	draftGroup.Post("/:draftID/images", images.UploadForDraft)

	// Agent dashboard
	api.Get("/dashboard/stats", mw.Auth(), stats.Dashboard)

	// Leads
	leadGroup := api.Group("/leads", mw.Auth())
	leadGroup.Get("/", leads.ListMine)
	leadGroup.Put("/:id/status", leads.UpdateStatus)

	// Admin
	adminGroup := api.Group("/admin", mw.Auth(), mw.RequireRole(model.RoleAdmin))
	adminGroup.Get("/properties", admin.ListProperties)
	adminGroup.Put("/properties/:id/approve", admin.Approve)
	adminGroup.Put("/properties/:id/reject", admin.Reject)
	adminGroup.Delete("/properties/:id", admin.Remove)
	adminGroup.Put("/users/:id/verify", admin.VerifyUser)
	adminGroup.Get("/stats", admin.Stats)
}

func main() {
	cfg := config.Load()
	log := newLogger(cfg.Server.LogLevel)

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		log.WithError(err).Fatal("could not connect to database")
	}

	err = database.Migrate(db,
		&model.User{},
		&model.Property{},
		&model.PropertyImage{},
		&model.PropertyView{},
		&model.PropertyStats{},
		&model.Promotion{},
		&model.TierPlan{},
		&model.Lead{},
	)
	if err != nil {
		log.WithError(err).Warn("migration warning")
	}

	if err := seed.Run(db); err != nil {
		log.WithError(err).Warn("seed warning")
	}

	store, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("could not initialize object storage")
	}

	var mailer *email.Service
	if cfg.Email.APIKey != "" {
		mailer, err = email.NewService(cfg.Email.APIKey, cfg.Email.From, log)
		if err != nil {
			log.WithError(err).Fatal("could not initialize email service")
		}
	} else {
		log.Warn("RESEND_API_KEY not set, email notifications disabled")
	}

	tokens := jwtutil.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTLHours)*time.Hour)
	validator := validate.New()
	errs := apperr.NewClassifier(log)
	rateTable := currency.NewTable(cfg.Rates.SourceURL, log)
	draftStore := wizard.NewStore(24 * time.Hour)

	mw := middleware.New(db, tokens, errs)

	auth := controller.NewAuthController(db, validator, errs, tokens, mailer, store, log)
	props := controller.NewPropertyController(db, validator, errs, tokens, store, log)
	images := controller.NewImageController(db, errs, store, log)
	drafts := controller.NewDraftController(db, draftStore, validator, errs, log)
	admin := controller.NewAdminController(db, validator, errs, mailer, log)
	stats := controller.NewStatsController(db, errs, tokens)
	leads := controller.NewLeadController(db, validator, errs, mailer, log)
	promos := controller.NewPromotionController(db, validator, errs, mailer, cfg.Stripe, log)
	rates := controller.NewRatesController(rateTable)

	runner := appcron.NewRunner(db, draftStore, rateTable, mailer, log)
	runner.Start()
	defer runner.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit: 12 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return errs.Respond(c, err)
		},
	})

	app.Use(fiberlogger.New())
	app.Use(cors.New())

	setupRoutes(app, mw, auth, props, images, drafts, admin, stats, leads, promos, rates)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		_ = app.Shutdown()
	}()

	log.WithField("port", cfg.Server.Port).Info("server starting")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
