package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	pkgdb "github.com/Skotchmaster/group_buy/pkg/db"
	"github.com/Skotchmaster/group_buy/pkg/logging"
	authmw "github.com/Skotchmaster/group_buy/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/group_buy/pkg/middleware/logging"

	"github.com/Skotchmaster/group_buy/internal/config"
	"github.com/Skotchmaster/group_buy/internal/events"
	"github.com/Skotchmaster/group_buy/internal/httpserver"
	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/Skotchmaster/group_buy/internal/querycache"
	"github.com/Skotchmaster/group_buy/internal/repo"
	"github.com/Skotchmaster/group_buy/internal/search"
	"github.com/Skotchmaster/group_buy/internal/service"
	"github.com/Skotchmaster/group_buy/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LogLevel).With("service", "group_buy")
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := pkgdb.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	producer := events.New(cfg.KafkaBrokers, logger)

	deps := &service.Deps{
		Repo:   &repo.GormRepo{DB: db},
		Cache:  querycache.New(cfg.CacheEnabled),
		Events: producer,
	}
	profiles := &service.ProfileService{Deps: deps}
	participations := &service.ParticipationService{Deps: deps}
	campaigns := &service.CampaignService{Deps: deps, Participations: participations}

	if cfg.ESURL != "" {
		if idx, err := openSearch(cfg); err != nil {
			logger.Warn("search_disabled", "error", err)
		} else {
			campaigns.Search = idx
		}
	}

	broker := session.NewBroker()
	tracker := session.NewTracker(broker, deps.Cache, profiles)
	auth := &service.AuthService{
		Deps:          deps,
		Profiles:      profiles,
		Broker:        broker,
		Tracker:       tracker,
		JWTSecret:     []byte(cfg.JWTSecret),
		RefreshSecret: []byte(cfg.RefreshSecret),
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))
	e.Use(echomw.CSRFWithConfig(echomw.CSRFConfig{
		TokenLookup:    "header:" + echo.HeaderXCSRFToken,
		CookiePath:     "/",
		CookieHTTPOnly: false,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
		// Header-authenticated requests carry no ambient credentials.
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get(echo.HeaderAuthorization) != ""
		},
	}))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:          &httpserver.AuthHTTP{Svc: auth, SecureCookie: cfg.CookieSecure},
		CampaignHandler:      &httpserver.CampaignHTTP{Svc: campaigns},
		ParticipationHandler: &httpserver.ParticipationHTTP{Svc: participations},
		ProfileHandler:       &httpserver.ProfileHTTP{Svc: profiles},
		MeHandler: &httpserver.MeHTTP{
			Profiles:       profiles,
			Campaigns:      campaigns,
			Participations: participations,
			Dashboard:      &service.DashboardService{Campaigns: campaigns, Participations: participations},
		},
		AuthMW: authmw.NewAutoRefreshMiddleware([]byte(cfg.JWTSecret), auth, cfg.CookieSecure),
		Ready: func(ctx context.Context) error {
			return pkgdb.Ping(ctx, db)
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	shutdown(logger, tracker, producer, db)
	logger.Info("shutdown complete")
}

func openSearch(cfg *config.Config) (*search.Index, error) {
	es, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
	if err != nil {
		return nil, err
	}
	idx := search.New(es, cfg.ESIndex)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := idx.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func shutdown(logger *slog.Logger, tracker *session.Tracker, producer events.Publisher, db *gorm.DB) {
	tracker.Close()
	if err := producer.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}
	if err := pkgdb.Close(db); err != nil {
		logger.Error("db_close_error", "error", err)
	}
}
