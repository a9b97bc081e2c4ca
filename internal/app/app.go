package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"reviewflow/database"
	"reviewflow/internal/auth"
	"reviewflow/internal/cache"
	"reviewflow/internal/config"
	"reviewflow/internal/email"
	"reviewflow/internal/events"
	"reviewflow/internal/handlers"
	"reviewflow/internal/imageprocessor"
	"reviewflow/internal/logger"
	"reviewflow/internal/middleware"
	"reviewflow/internal/monitoring"
	"reviewflow/internal/repositories"
	"reviewflow/internal/routes"
	"reviewflow/internal/search"
	"reviewflow/internal/services"
	"reviewflow/internal/storage"
	"reviewflow/internal/validator"
	"reviewflow/internal/workers"
	"reviewflow/pkg/apperrors"
	"reviewflow/ws"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const version = "1.0.0"

// Application - собранное приложение: роутер, сервисы и фоновые процессы
type Application struct {
	Router   *gin.Engine
	Services *services.ServiceContainer
	Hub      *ws.WebSocketManager

	cfg     *config.Config
	db      *gorm.DB
	digest  *workers.DigestWorker
	closers []func() error
}

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	apperrors.SetDebug(cfg.IsDevelopment())
	monitoring.Init()
	if enabled, err := monitoring.InitSentry(cfg.Sentry.DSN, cfg.Server.Env, version, cfg.Sentry.SampleRate); err != nil {
		logger.Warn("Sentry disabled", "error", err)
	} else if enabled {
		defer monitoring.FlushSentry()
		logger.Info("Sentry initialized")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	gormDB, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.IsDevelopment())
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	logger.Info("Database connected")

	if cfg.Database.Migrate {
		if err := database.Migrate(gormDB, cfg.Database.Driver); err != nil {
			logger.Fatal("Failed to migrate database", "error", err)
		}
	}

	if err := seedFirstAdmin(gormDB, cfg); err != nil {
		logger.Fatal("Failed to seed first admin", "error", err)
	}
	if cfg.Seed.Demo {
		if err := seedDemoTenants(gormDB); err != nil {
			logger.Fatal("Failed to seed demo tenants", "error", err)
		}
	}

	application, err := New(ctx, cfg, gormDB)
	if err != nil {
		logger.Fatal("Failed to build application", "error", err)
	}
	defer application.Close()

	if err := application.Serve(ctx); err != nil {
		logger.Fatal("Server stopped with error", "error", err)
	}
	logger.Info("Server stopped")
}

// New wires storage, cache, side channels, services and routes.
func New(ctx context.Context, cfg *config.Config, gormDB *gorm.DB) (*Application, error) {
	application := &Application{cfg: cfg, db: gormDB}

	storageInstance, err := storage.NewStorage(storage.Config{
		Type:       cfg.Storage.Type,
		BasePath:   cfg.Storage.BasePath,
		BaseURL:    cfg.Storage.BaseURL,
		Bucket:     cfg.Storage.Bucket,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		Endpoint:   cfg.Storage.Endpoint,
		PublicRead: cfg.Storage.PublicRead,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	cacheInstance, err := cache.New(cache.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	application.closers = append(application.closers, cacheInstance.Close)

	publisher, err := events.NewPublisher(events.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
	if err != nil {
		application.Close()
		return nil, fmt.Errorf("events: %w", err)
	}
	application.closers = append(application.closers, publisher.Close)

	indexer, err := search.NewIndexer(ctx, search.Config{Addresses: cfg.Elasticsearch.Addresses, Index: cfg.Elasticsearch.Index})
	if err != nil {
		// поиск необязателен: без индекса работает SQL
		logger.Warn("Search index unavailable, falling back to SQL search", "error", err)
		indexer = search.NoopIndexer{}
	}

	provider, err := email.NewProvider(email.Config{
		Provider:       cfg.Email.Provider,
		SMTPHost:       cfg.Email.SMTPHost,
		SMTPPort:       cfg.Email.SMTPPort,
		Username:       cfg.Email.SMTPUsername,
		Password:       cfg.Email.SMTPPassword,
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		FromEmail:      cfg.Email.FromEmail,
		FromName:       cfg.Email.FromName,
		UseTLS:         cfg.Email.UseTLS,
		Timeout:        10 * time.Second,
	})
	if err != nil {
		application.Close()
		return nil, fmt.Errorf("email: %w", err)
	}
	application.closers = append(application.closers, provider.Close)

	application.Hub = ws.NewWebSocketManager()
	application.Services = initializeServices(cfg, gormDB, storageInstance, cacheInstance, publisher, indexer, provider, application.Hub)

	appHandlers := initializeHandlers(application.Services)
	wsHandler := ws.NewWebSocketHandler(application.Hub, application.Services.AuthService, application.Services.FeedbackService)

	application.Router = initializeGinRouter(cfg, gormDB)
	uploadsDir := ""
	if local, ok := storageInstance.(*storage.LocalStorage); ok {
		uploadsDir = local.BasePath()
	}
	routes.RegisterRoutes(application.Router, appHandlers, wsHandler, gormDB, cfg.Storage.BaseURL, uploadsDir)

	if cfg.Digest.Enabled {
		application.digest = workers.NewDigestWorker(application.Services.NotificationService, cfg.Digest.Schedule, cfg.Routing.StoreThreshold)
	}
	return application, nil
}

// Serve runs the HTTP server, the websocket hub and the digest worker until ctx ends.
func (a *Application) Serve(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Hub.Run(gctx)
		return nil
	})

	if a.digest != nil {
		g.Go(func() error { return a.digest.Start(gctx) })
	}

	g.Go(func() error {
		logger.Info(fmt.Sprintf("Server starting on %s", address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.Info("Shutting down server...")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close waits for in-flight side-channel deliveries and releases clients.
func (a *Application) Close() {
	if a.Services != nil && a.Services.FanOut != nil {
		a.Services.FanOut.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

func initializeServices(
	cfg *config.Config,
	gormDB *gorm.DB,
	storageInstance storage.Storage,
	cacheInstance cache.Cache,
	publisher events.Publisher,
	indexer search.Indexer,
	provider email.Provider,
	hub services.LiveBroadcaster,
) *services.ServiceContainer {
	// --- Репозитории ---
	feedbackRepo := repositories.NewFeedbackRepository()
	clientRepo := repositories.NewClientRepository()
	sellerRepo := repositories.NewSellerRepository()
	adminRepo := repositories.NewAdminRepository()
	lookupRepo := repositories.NewLookupRepository()

	defaults := services.Policy{
		StoreThreshold:    cfg.Routing.StoreThreshold,
		RedirectThreshold: cfg.Routing.RedirectThreshold,
		RedirectDelay:     time.Duration(cfg.Routing.RedirectDelayMs) * time.Millisecond,
	}

	// --- Сервисы ---
	resolver := services.NewTenantResolver(clientRepo, sellerRepo, cacheInstance,
		time.Duration(cfg.Redis.CacheTTL)*time.Second, defaults, cfg.Server.PublicBaseURL)
	attachments := services.NewAttachmentService(storageInstance, imageprocessor.NewProcessor(85), services.UploadLimits{
		MaxSize:      cfg.Upload.MaxSize,
		MaxImages:    cfg.Upload.MaxImages,
		AllowedTypes: cfg.Upload.AllowedTypes,
		LogoSize:     cfg.Upload.LogoSize,
	})
	identity := services.NewGoogleIdentityVerifier(cfg.Identity.TokenInfoURL, cfg.Identity.Audience)

	platformRecipient := cfg.Email.FromEmail
	if cfg.FirstAdminEmail != "" {
		platformRecipient = cfg.FirstAdminEmail
	}
	notifications := services.NewNotificationService(gormDB, provider, email.NewTemplateManager(),
		feedbackRepo, clientRepo, sellerRepo, platformRecipient, cfg.Server.PublicBaseURL)

	fanOut := services.NewFeedbackFanOut(5 * time.Second).
		Add("websocket", services.NewLiveSink(hub)).
		Add("kafka", services.NewEventSink(publisher)).
		Add("search", services.NewSearchSink(indexer))
	if cfg.Email.Provider != "none" {
		fanOut.Add("email", notifications)
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)

	return &services.ServiceContainer{
		AuthService:         services.NewAuthService(lookupRepo, adminRepo, sellerRepo, clientRepo, tokens, cache.NewRevocationList(cacheInstance)),
		SellerService:       services.NewSellerService(sellerRepo, clientRepo, feedbackRepo, lookupRepo, resolver, attachments, fanOut),
		ClientService:       services.NewClientService(clientRepo, sellerRepo, feedbackRepo, lookupRepo, resolver, attachments, indexer, fanOut),
		FeedbackService:     services.NewFeedbackService(feedbackRepo, clientRepo, resolver, attachments, identity, indexer, fanOut, defaults),
		NotificationService: notifications,
		TenantResolver:      resolver,
		AttachmentService:   attachments,
		FanOut:              fanOut,
	}
}

func initializeHandlers(container *services.ServiceContainer) *handlers.AppHandlers {
	authMW := middleware.AuthMiddleware(container.AuthService)
	baseHandler := handlers.NewBaseHandler(validator.New(), authMW)
	inbox := handlers.NewFeedbackHandler(baseHandler, container.FeedbackService)

	return &handlers.AppHandlers{
		PublicHandler:   handlers.NewPublicHandler(baseHandler, container.TenantResolver, container.FeedbackService),
		AuthHandler:     handlers.NewAuthHandler(baseHandler, container.AuthService),
		AdminHandler:    handlers.NewAdminHandler(baseHandler, container.SellerService, container.AuthService, inbox),
		SellerHandler:   handlers.NewSellerHandler(baseHandler, container.SellerService, container.ClientService, container.AuthService, inbox),
		ClientHandler:   handlers.NewClientHandler(baseHandler, container.ClientService, inbox),
		FeedbackHandler: inbox,
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SentryMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigins))
	router.Use(middleware.DBMiddleware(db))
	return router
}
