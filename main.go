// File: rentwheels/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentwheels/config"
	"rentwheels/cron"
	"rentwheels/database"
	bookingRepo "rentwheels/database/repository/booking"
	directoryRepo "rentwheels/database/repository/directory"
	memoryRepo "rentwheels/database/repository/memory"
	notificationRepo "rentwheels/database/repository/notification"
	paymentRepo "rentwheels/database/repository/payment"
	"rentwheels/handlers"
	"rentwheels/models"
	"rentwheels/routes"
	"rentwheels/services/booking"
	"rentwheels/services/events"
	"rentwheels/services/identity"
	"rentwheels/services/notification"
	"rentwheels/services/payment"
	"rentwheels/services/payment/providers"
	"rentwheels/services/tasks"
	"rentwheels/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// stores groups the persistence backends selected by STORE_DRIVER.
type stores struct {
	bookings      bookingRepo.BookingRepository
	payments      paymentRepo.PaymentRepository
	notifications notificationRepo.NotificationRepository
	vehicles      directoryRepo.VehicleDirectory
	contacts      directoryRepo.ContactDirectory
	mongo         *mongo.Client
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger, err := utils.NewLogger(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to open store: %v", err)
	}
	pingers := map[string]utils.Pinger{}
	if st.mongo != nil {
		pingers["mongo"] = func(ctx context.Context) error { return st.mongo.Ping(ctx, nil) }
	}

	// Redis backs the notification lock and the task queue.
	var locker notification.Locker = notification.NewMemoryLocker()
	var asynqClient *asynq.Client
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisQueueDB}
	if cfg.RedisAddr != "" {
		lockClient, err := utils.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisLockDB)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		defer lockClient.Close()
		locker = notification.NewRedisLocker(lockClient)
		pingers["redis"] = func(ctx context.Context) error { return lockClient.Ping(ctx).Err() }

		asynqClient = asynq.NewClient(redisOpt)
		defer asynqClient.Close()
	}

	var fb *utils.FirebaseClients
	if cfg.AuthMode == "firebase" || !cfg.FirebaseMessagingDisabled {
		fb, err = utils.FirebaseInit(ctx, cfg.FirebaseCredentialsFile)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
	}

	var verifier identity.Verifier
	if cfg.AuthMode == "firebase" {
		verifier = identity.NewFirebaseVerifier(fb.Auth)
	} else {
		verifier = identity.NewJWTVerifier(cfg.JWTSecret)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, logger)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	// services.
	dispatcher := notification.NewDispatcher(
		st.notifications,
		st.contacts,
		buildChannels(cfg, fb),
		locker,
		nil,
		cfg.NotificationMaxAttempts,
		logger,
	)
	if asynqClient != nil {
		dispatcher.SetEnqueuer(tasks.NewAsynqEnqueuer(asynqClient))
	}

	bookingService := booking.NewBookingService(st.bookings, st.vehicles, dispatcher, publisher, logger, cfg.Currency)

	card, mobileMoney, redirect := buildRails(cfg)
	orchestrator := payment.NewOrchestrator(
		st.bookings,
		bookingService,
		st.payments,
		card,
		mobileMoney,
		redirect,
		dispatcher,
		payment.Options{
			Currency:        cfg.Currency,
			ProviderTimeout: cfg.PaymentProviderTimeout,
			ReferenceTTL:    cfg.PaymentReferenceTTL,
			Locker:          locker,
		},
		logger,
	)

	if cfg.NotificationWorkerEnable && cfg.RedisAddr != "" {
		worker, err := cron.NewNotificationWorker(cron.WorkerOptions{
			Redis:      redisOpt,
			RetryCron:  cfg.NotificationRetryCron,
			RetryLimit: cfg.NotificationRetryLimit,
		}, dispatcher, logger)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		if err := worker.Start(); err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		defer worker.Shutdown()
	}

	monitor := utils.NewHealthMonitor(pingers)
	monitor.Check(ctx)
	monitor.Start(ctx, 10*time.Second)

	// Create the Gin router.
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler(logger))

	handlerBundle := &handlers.HandlerBundle{
		Verifier:     verifier,
		Logger:       logger,
		Booking:      handlers.NewBookingHandler(bookingService),
		Payment:      handlers.NewPaymentHandler(orchestrator),
		Notification: handlers.NewNotificationHandler(dispatcher),
		Health:       &handlers.HealthHandler{Monitor: monitor},
	}
	routes.RegisterRoutes(router, handlerBundle, cfg.AllowedOrigins, cfg.MaxRequestsPerMin)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	if st.mongo != nil {
		if err := st.mongo.Disconnect(shutdownCtx); err != nil {
			logger.Warn("main: mongo disconnect failed", zap.Error(err))
		}
	}
	logger.Info("main: server stopped gracefully")
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("main: using the in-memory store; data is lost on restart")
		dir := memoryRepo.NewDirectory()
		return &stores{
			bookings:      memoryRepo.NewBookingRepo(),
			payments:      memoryRepo.NewPaymentRepo(),
			notifications: memoryRepo.NewNotificationRepo(),
			vehicles:      dir,
			contacts:      dir,
		}, nil
	}

	client, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	bookings := bookingRepo.NewMongoBookingRepo(client, cfg.DatabaseName)
	payments := paymentRepo.NewMongoPaymentRepo(client, cfg.DatabaseName)
	notifications := notificationRepo.NewMongoNotificationRepo(client, cfg.DatabaseName)

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	for name, ensure := range map[string]func(context.Context) error{
		"bookings":      bookings.EnsureIndexes,
		"payments":      payments.EnsureIndexes,
		"notifications": notifications.EnsureIndexes,
	} {
		if err := ensure(indexCtx); err != nil {
			return nil, err
		}
		logger.Debug("main: indexes ensured", zap.String("collection", name))
	}

	dir := directoryRepo.NewMongoDirectory(client, cfg.DatabaseName)
	return &stores{
		bookings:      bookings,
		payments:      payments,
		notifications: notifications,
		vehicles:      dir,
		contacts:      dir,
		mongo:         client,
	}, nil
}

func buildChannels(cfg *config.Config, fb *utils.FirebaseClients) []notification.Channel {
	var channels []notification.Channel
	if cfg.SMTPHost != "" {
		channels = append(channels, notification.NewEmailChannel(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom))
	}
	if cfg.SMSGatewayURL != "" {
		channels = append(channels, notification.NewSMSChannel(cfg.SMSGatewayURL, cfg.SMSAPIKey, cfg.SMSSenderID))
	}
	if fb != nil && fb.Messaging != nil && !cfg.FirebaseMessagingDisabled {
		channels = append(channels, notification.NewPushChannel(fb.Messaging, cfg.FirebaseBroadcastTopic))
	}
	return channels
}

// buildRails returns nil for rails that are not configured; the orchestrator
// then rejects those methods.
func buildRails(cfg *config.Config) (card, mobileMoney providers.Provider, redirect providers.RedirectProvider) {
	if cfg.StripeKey != "" {
		card = providers.NewStripeCard(cfg.StripeKey)
	}
	carriers := map[string]providers.Carrier{}
	if cfg.MTNBaseURL != "" {
		carriers[models.CarrierMTN] = providers.Carrier{BaseURL: cfg.MTNBaseURL, APIKey: cfg.MTNAPIKey}
	}
	if cfg.AirtelBaseURL != "" {
		carriers[models.CarrierAirtel] = providers.Carrier{BaseURL: cfg.AirtelBaseURL, APIKey: cfg.AirtelAPIKey}
	}
	if len(carriers) > 0 {
		mobileMoney = providers.NewMobileMoney(carriers)
	}
	if cfg.AggregatorBaseURL != "" {
		redirect = providers.NewAggregator(cfg.AggregatorBaseURL, cfg.AggregatorSecretKey, cfg.AggregatorCallbackURL)
	}
	return card, mobileMoney, redirect
}
