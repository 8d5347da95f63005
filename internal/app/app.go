package app

import (
	"context"
	"errors"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/notifications"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
)

const cachePrefix = "storefront:"

// Server is the wired application: the Fiber app plus the connections it
// owns.
type Server struct {
	App   *fiber.App
	Store repositories.Store

	cfg     *config.Config
	log     zerolog.Logger
	closers []func() error
}

// New connects every backing service named in cfg and builds the HTTP app.
// Messaging and caching are optional; an empty URL disables them.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Server, error) {
	s := &Server{cfg: cfg, log: log}

	store, closeDB, err := database.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	s.Store = store
	s.closers = append(s.closers, closeDB)

	// --- Messaging ---
	mailer := notifications.NewLogMailer(log)
	var (
		publisher services.EventPublisher
		sender    services.VerificationSender = notifications.NewDirectSender(mailer)
	)
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, mqClient.Close)
		publisher = mqClient
		sender = notifications.NewQueueSender(mqClient)

		if err := mqClient.ConsumeQueue(rabbitmq.UserEventsQueue, notifications.UserEventHandler(mailer, log)); err != nil {
			s.Close()
			return nil, err
		}
		if err := mqClient.ConsumeQueue(rabbitmq.OrderEventsQueue, notifications.OrderEventHandler(log)); err != nil {
			s.Close()
			return nil, err
		}
	} else {
		log.Warn().Msg("RABBITMQ_URL not set, events are not published")
	}

	// --- Services ---
	analyticsService := services.NewAnalyticsService(store, cfg.Location())
	var (
		analytics   services.Analytics = analyticsService
		invalidator services.AnalyticsInvalidator
	)
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, cachePrefix)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, redisCache.Close)
		cachedAnalytics := services.NewCachedAnalytics(analyticsService, redisCache, cfg.AnalyticsCacheTTL, log)
		analytics = cachedAnalytics
		invalidator = cachedAnalytics
	}

	orderOpts := []services.OrderOption{services.WithLocation(cfg.Location())}
	if invalidator != nil {
		orderOpts = append(orderOpts, services.WithInvalidator(invalidator))
	}

	productService := services.NewProductService(store.Products(), log)
	productService.SetInvalidator(invalidator)
	cartService := services.NewCartService(store, log)
	orderService := services.NewOrderService(store, publisher, log, orderOpts...)
	authService := services.NewAuthService(store, sender, services.AuthConfig{
		JWTSecret:                cfg.JWTSecret,
		TokenTTL:                 cfg.JWTTTL,
		BaseURL:                  cfg.AppBaseURL,
		RequireEmailVerification: cfg.RequireEmailVerification,
	}, log)
	authService.SetInvalidator(invalidator)

	if err := bootstrap(ctx, cfg, log, productService, authService); err != nil {
		s.Close()
		return nil, err
	}

	// --- HTTP ---
	session := handlers.SessionConfig{Secure: cfg.IsProduction(), TTL: cfg.JWTTTL}
	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: handlers.ErrorHandler(log, cfg.IsProduction()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestLogger(log))

	requireUser := middleware.AuthRequired(authService, authService)
	requireAdmin := middleware.AdminRequired(authService)

	apiV1 := app.Group("/api/v1")
	apiV1.Get("/health", s.handleHealth)

	handlers.NewProductHandler(productService).RegisterRoutes(apiV1)
	handlers.NewAuthHandler(authService, session).RegisterRoutes(apiV1, requireUser, middleware.APIKeyRequired(cfg.OAuthAPIKey))

	orderHandler := handlers.NewOrderHandler(orderService)
	cartRoutes := apiV1.Group("/cart", requireUser)
	handlers.NewCartHandler(cartService).RegisterRoutes(cartRoutes)
	orderHandler.RegisterRoutes(cartRoutes)

	adminHandler := handlers.NewAdminHandler(authService, productService, analytics, session)
	adminRoutes := apiV1.Group("/admin")
	adminHandler.RegisterPublicRoutes(adminRoutes)
	guarded := adminRoutes.Group("", requireUser, requireAdmin)
	adminHandler.RegisterRoutes(guarded)
	orderHandler.RegisterAdminRoutes(guarded)

	s.App = app
	return s, nil
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"time":      time.Now().UTC().Format(time.RFC3339),
		"driver":    s.cfg.DBDriver,
		"messaging": s.cfg.RabbitMQURL != "",
		"cache":     s.cfg.RedisURL != "",
	})
}

// Listen serves HTTP on the configured port until Shutdown is called.
func (s *Server) Listen() error {
	s.log.Info().Str("addr", s.cfg.AppPort).Msg("starting server")
	return s.App.Listen(s.cfg.AppPort)
}

// Shutdown stops the HTTP server and releases every connection.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.App != nil {
		if err := s.App.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases the connections in reverse order of opening.
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
