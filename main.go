// File: rentflow/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentflow/config"
	"rentflow/cron"
	"rentflow/handlers"
	"rentflow/middleware"
	"rentflow/routes"
	"rentflow/services/booking"
	"rentflow/services/scheduling"
	"rentflow/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	utils.InitRedis()
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	corsCfg := cors.DefaultConfig()
	if config.AppConfig.WidgetOrigin == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{config.AppConfig.WidgetOrigin}
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE"}
	router.Use(cors.New(corsCfg))

	// Remote scheduling backend client.
	schedulerClient := scheduling.NewHTTPClient(
		config.AppConfig.SchedulingBaseURL,
		config.AppConfig.NetworkTimeout(),
		logger,
	)

	// Payment tokenization widget.
	widget := &booking.StripeWidget{
		SecretKey: config.AppConfig.StripeKey,
		PublicKey: config.AppConfig.StripePublicKey,
		Logger:    logger,
	}

	// Refund compensation queue + worker.
	refundQueue := cron.NewRefundQueue()
	cron.InitRefundWorker()

	wizardService := booking.NewWizardService(
		utils.GetSessionCacheClient(),
		utils.GetRateLimitCacheClient(),
		schedulerClient,
		widget,
		refundQueue,
		booking.Options{
			MinRentalDays:        config.AppConfig.MinRentalDays,
			MaxAdvanceDays:       config.AppConfig.MaxAdvanceDays,
			SlotCapacity:         config.AppConfig.SlotCapacity,
			PricePerDay:          config.AppConfig.BookingPricePerDay,
			Currency:             config.AppConfig.BookingCurrency,
			TimeSlots:            config.AppConfig.TimeSlots,
			DebounceDelay:        config.AppConfig.DebounceDelay(),
			NetworkTimeout:       config.AppConfig.NetworkTimeout(),
			RateLimitWindow:      config.AppConfig.RateLimitWindow(),
			RateLimitMaxAttempts: config.AppConfig.RateLimitMaxAttempts,
		},
		logger,
	)
	wizardService.Retry = booking.NewRetryExecutor(
		config.AppConfig.RetryMaxAttempts,
		config.AppConfig.RetryBaseDelay(),
		logger,
	)

	wizardHandler := handlers.NewWizardHandler(wizardService, logger)
	routes.RegisterRoutes(router, wizardHandler)

	utils.StartHealthMonitor([]*redis.Client{
		utils.GetSessionCacheClient(),
		utils.GetRateLimitCacheClient(),
	})

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
