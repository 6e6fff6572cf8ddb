package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"staycation/internal/config"
	"staycation/internal/database"
	"staycation/internal/mailer"
	"staycation/internal/metrics"
	"staycation/internal/middleware"
	"staycation/internal/modules/auth"
	"staycation/internal/modules/booking"
	"staycation/internal/modules/catalog"
	"staycation/internal/modules/realtime"
	"staycation/internal/modules/refunds"
	jwtsvc "staycation/internal/pkg/jwt"
	"staycation/internal/pkg/logger"
	"staycation/internal/repository"
)

func main() {
	configPath := flag.String("config", "config.toml", "optional TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logger.New(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("api stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	if err := repository.AutoMigrate(db); err != nil {
		return err
	}

	rdb, closeRedis, err := connectRedis(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New("staycation", prometheus.DefaultRegisterer)
	}

	sender, err := mailer.NewSender(cfg, log)
	if err != nil {
		return err
	}
	if c, ok := sender.(io.Closer); ok {
		defer c.Close()
	}

	a, err := newApp(cfg, log, db, rdb, sender, m)
	if err != nil {
		return err
	}
	defer a.hub.Close()

	go sweep(ctx, a.bookings, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.AppEnv).Msg("api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type app struct {
	router   *gin.Engine
	hub      *realtime.Hub
	bookings *booking.Service
}

// newApp wires repositories, services and routes on top of open stores.
func newApp(cfg *config.Config, log zerolog.Logger, db *gorm.DB, rdb *redis.Client, sender mailer.Sender, m *metrics.Metrics) (*app, error) {
	mail, err := mailer.New(sender, cfg.Mail.From, m, log)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	tokenStore := repository.NewTokenStore(rdb)

	j := jwtsvc.New(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)

	hub := realtime.NewHub(m, log)

	var google auth.OAuthProvider
	if p := auth.NewGoogleProvider(cfg.OAuth); p != nil {
		google = p
	}
	authService := auth.NewService(
		userRepo,
		repository.NewChallengeStore(rdb),
		tokenStore,
		j,
		mail,
		google,
		m,
		log,
		auth.Options{
			OTPPepper:      cfg.Auth.OTPPepper,
			OTPTTL:         cfg.Auth.OTPTTL,
			ResendCooldown: cfg.Auth.OTPResendCooldown,
			MaxAttempts:    cfg.Auth.OTPMaxAttempts,
		},
	)
	limiter := middleware.NewIPRateLimiter(time.Minute/10, 5)
	authHandler := auth.NewHandler(authService, limiter.Middleware())

	catalogService := catalog.NewService(roomRepo, repository.NewCache(rdb, "catalog:"), cfg.CatalogCacheTTL, log)
	catalogHandler := catalog.NewHandler(catalogService)

	bookingService := booking.NewService(bookingRepo, roomRepo, hub, mail, m, log, cfg.Location)
	bookingHandler := booking.NewHandler(bookingService)

	refundService := refunds.NewService(bookingRepo, roomRepo, hub, log)
	refundHandler := refunds.NewHandler(refundService)

	realtimeHandler := realtime.NewHandler(hub, cfg.CORSOrigins)

	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.Recovery(log),
		middleware.RequestLogger(log),
		middleware.CORS(cfg.CORSOrigins),
		middleware.Metrics(m),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	realtimeHandler.RegisterRoutes(r, middleware.QueryTokenAuth(j, tokenStore))

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)
		catalogHandler.RegisterRoutes(v1)
		bookingHandler.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(j, tokenStore))
		{
			authHandler.RegisterProtectedRoutes(protected)
			bookingHandler.RegisterProtectedRoutes(protected)
			refundHandler.RegisterProtectedRoutes(protected)
			refundHandler.RegisterAdminRoutes(protected)
		}
	}

	return &app{router: r, hub: hub, bookings: bookingService}, nil
}

const sweepInterval = 5 * time.Minute

// sweep completes finished stays so their slots and tabs stay current.
func sweep(ctx context.Context, svc *booking.Service, log zerolog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.CompleteFinished(ctx)
			if err != nil {
				log.Error().Err(err).Msg("complete finished bookings")
				continue
			}
			if n > 0 {
				log.Info().Int("completed", n).Msg("bookings completed")
			}
		}
	}
}

// connectRedis falls back to an in-process miniredis outside production so
// the service runs with nothing but SQLite.
func connectRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, func(), error) {
	if cfg.RedisURL != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return rdb, func() { _ = rdb.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	log.Warn().Str("addr", mr.Addr()).Msg("REDIS_URL not set, using embedded redis")
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}, nil
}
