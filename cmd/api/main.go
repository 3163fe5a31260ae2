package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"kairo-backend/internal/auth"
	"kairo-backend/internal/blog"
	"kairo-backend/internal/cache"
	"kairo-backend/internal/config"
	"kairo-backend/internal/contact"
	"kairo-backend/internal/db"
	"kairo-backend/internal/events"
	"kairo-backend/internal/middleware"
	"kairo-backend/internal/notifications"
	"kairo-backend/internal/portfolio"
	"kairo-backend/internal/reservations"
	"kairo-backend/internal/settings"
	"kairo-backend/internal/users"
	"kairo-backend/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected", slog.String("db", cfg.MongoDB))
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("postgres connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		logger.Error("postgres migration failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("postgres connected", slog.Int("migrations_applied", len(applied)))

	window := time.Duration(cfg.RateLimitWindowSec) * time.Second
	var cacheStore cache.Cache = cache.NewNoop()
	var reservationLimiter middleware.Limiter = middleware.NewRateLimiter(cfg.RateLimitReservations, window)
	var contactLimiter middleware.Limiter = middleware.NewRateLimiter(cfg.RateLimitContact, window)
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		var err error
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisCache.Close()
		if cfg.RedisURL != "" {
			logger.Info("redis connected (url)")
		} else {
			logger.Info("redis connected", slog.String("addr", cfg.RedisAddr))
		}
		cacheStore = redisCache
		var scripter redis.Scripter = redisCache.Client()
		reservationLimiter = middleware.NewRedisLimiter(scripter, "ratelimit:reservation:", cfg.RateLimitReservations, window)
		contactLimiter = middleware.NewRedisLimiter(scripter, "ratelimit:contact:", cfg.RateLimitContact, window)
	}

	var jwtManager *auth.Manager
	if cfg.JWTSecret != "" {
		jwtManager = &auth.Manager{
			Secret:     []byte(cfg.JWTSecret),
			AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
			RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
			Issuer:     "kairo-backend",
		}
	} else {
		logger.Warn("jwt secret missing, back office only reachable with the api key")
	}

	sender := notifications.NewSender(cfg.MailProvider, cfg.BrevoAPIKey, cfg.MailerSendAPIKey, cfg.MailFromEmail, cfg.MailFromName, cfg.BrevoSandbox, logger)
	dispatcher := notifications.NewDispatcher(sender, cfg.AdminEmail, cfg.SiteURL, cfg.MailFromName, cfg.Timezone, logger)
	logger.Info("mailer configured", slog.String("provider", cfg.MailProvider), slog.Bool("sandbox", cfg.BrevoSandbox))

	publisher, err := events.Open(cfg.EventsDriver, cfg.NATSURL, cfg.AMQPURL)
	if err != nil {
		logger.Error("events connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer publisher.Close()

	val := validation.New()

	reservationService := reservations.NewService(
		reservations.NewPostgresRepository(pool),
		reservations.NewPostgresExclusionRepository(pool),
		val,
		reservations.Options{
			Hours:     cfg.Hours(),
			Location:  cfg.Timezone,
			Notifier:  dispatcher,
			Publisher: publisher,
			Cache:     cacheStore,
			Log:       logger,
		},
	)
	reservationHandler := reservations.NewHandler(reservationService, cacheStore, cfg.CacheTTL(), logger)

	blogHandler := blog.NewHandler(blog.NewService(blog.NewRepository(cols.Posts), cfg.Timezone), val, cacheStore, cfg.CacheTTL(), logger)
	portfolioHandler := portfolio.NewHandler(portfolio.NewService(portfolio.NewRepository(cols.Projects), cfg.Timezone), val, logger)
	contactHandler := contact.NewHandler(contact.NewService(contact.NewRepository(cols.ContactMessages), cfg.Timezone, dispatcher), val, logger)
	settingsHandler := settings.NewHandler(settings.NewService(settings.NewRepository(cols.Settings), cfg.Timezone), cacheStore, cfg.CacheTTL(), logger)

	userService := users.NewService(users.NewRepository(cols.Users), cfg.Timezone)
	created, err := userService.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		logger.Error("admin bootstrap failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if created {
		logger.Info("admin user created", slog.String("username", cfg.AdminUser))
	}
	userHandler := users.NewHandler(userService, val, jwtManager, cfg.CookieSecure, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	registerRoutes := func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		api.Group(func(public chi.Router) {
			public.Use(middleware.OptionalAdmin(cfg.AdminAPIKey, jwtManager))
			reservationHandler.Routes(public, middleware.RateLimit(reservationLimiter, logger))
		})
		contactHandler.Routes(api, middleware.RateLimit(contactLimiter, logger))
		blogHandler.Routes(api)
		portfolioHandler.Routes(api)
		settingsHandler.Routes(api)

		api.Route("/admin", func(admin chi.Router) {
			userHandler.SessionRoutes(admin)

			// chi needs middlewares before routes, so protected endpoints live in a group.
			admin.Group(func(protected chi.Router) {
				protected.Use(middleware.AdminAuth(cfg.AdminAPIKey, jwtManager))
				userHandler.AdminRoutes(protected)
				blogHandler.AdminRoutes(protected)
				portfolioHandler.AdminRoutes(protected)
				contactHandler.AdminRoutes(protected)
				settingsHandler.AdminRoutes(protected)
				protected.Group(func(adminOnly chi.Router) {
					adminOnly.Use(middleware.RequireRole(auth.RoleAdmin))
					reservationHandler.AdminRoutes(adminOnly)
				})
			})
		})
	}

	r.Route("/api", registerRoutes)
	r.Route("/api/v1", registerRoutes)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
}
