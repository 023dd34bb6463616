package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"go-stylize/imagegen"
	"go-stylize/payment"
	"go-stylize/upload"
	"go-stylize/utils"
	"go-stylize/web/controllers"
	"go-stylize/web/db"
	"go-stylize/web/middleware"
)

func main() {
	utils.LoadEnv()

	cfg, err := controllers.LoadConfig()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().
		Timestamp().Str("service", "webservice").Logger()

	gdb, err := db.Connect(cfg.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}

	uploads, err := upload.NewStore(cfg.UploadDir, cfg.UploadTTL, cfg.UploadMaxBytes, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("upload store init failed")
	}

	gateway := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentKeyID, cfg.PaymentKeySecret, logger)
	generator := imagegen.NewClient(cfg.ImageAPIURL, cfg.ImageAPIKey, logger)

	app := controllers.NewApp(cfg, gdb, gateway, generator, uploads, logger)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Admin-Key"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	limiter := middleware.NewRateLimiter(60)
	limiter.StartCleanup(10 * time.Minute)

	// static uploads bypass the identity seeder
	r.Static("/uploads", uploads.Dir())
	r.GET("/health", app.Health)

	// page-facing routes: seed the trial identity on first contact
	page := r.Group("/", middleware.IdentitySeeder(gdb, logger))
	page.GET("/trial/status", limiter.Middleware(), app.TrialStatus)

	api := r.Group("/api", limiter.Middleware())
	api.POST("/trial", app.RegisterTrial)
	api.GET("/trial/:id", app.GetTrial)
	api.DELETE("/trial/:id", app.DeleteTrial)
	api.POST("/generate", app.Generate)
	api.POST("/payment/order", app.CreateOrder)
	api.POST("/payment/verify", app.VerifyPayment)
	api.POST("/upload", app.Upload)
	api.DELETE("/upload/:name", app.DeleteUpload)

	admin := r.Group("/admin", middleware.AdminAuth)
	admin.POST("/credits", app.AdminGrantCredits)
	admin.GET("/trial/:id", app.AdminGetTrial)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
	}
}
