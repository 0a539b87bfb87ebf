package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"cleaning-duty/internal/config"
	"cleaning-duty/internal/handler"
	"cleaning-duty/internal/logger"
	"cleaning-duty/internal/realtime"
	"cleaning-duty/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

func main() {
	configFile := flag.String("config", "", "config file path (e.g. etc/config-dev.yaml)")
	flag.Parse()

	cfg := config.Load(*configFile)
	logger.Init(cfg.Log)

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("timezone", "err", err)
		os.Exit(1)
	}

	db, err := cfg.OpenGormDB()
	if err != nil {
		slog.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	if err := service.Migrate(db); err != nil {
		slog.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub(logger.For("realtime"))
	switch cfg.Realtime.Mode {
	case config.RealtimePostgres:
		if err := startPGListener(ctx, cfg, db, hub); err != nil {
			slog.Error("realtime listener failed", "err", err)
			os.Exit(1)
		}
	default:
		if err := realtime.RegisterCallbacks(db, hub); err != nil {
			slog.Error("realtime callbacks failed", "err", err)
			os.Exit(1)
		}
	}

	var catalogSync *service.CatalogSync
	if cfg.CatalogEnabled() {
		raw, err := cfg.NewRawClient()
		if err != nil {
			slog.Warn("sdk client init failed", "err", err)
		} else {
			catalogSync = service.NewCatalogSync(raw, cfg.MOI, logger.For("catalog"))
			slog.Info("catalog sync enabled")
		}
	}

	rotation := service.NewRotationService(db,
		service.WithAttempts(cfg.Rotation.AssignAttempts),
		service.WithRotationLogger(logger.For("rotation")))
	directory := service.NewDirectoryService(db, logger.For("directory"))
	bootstrap := service.NewBootstrapService(db, rotation, cfg.Rotation.DefaultDepartment, loc, logger.For("bootstrap"))
	calendarSvc := service.NewCalendarService(db, hub, loc, logger.For("calendar"))
	completion := service.NewCompletionService(db, catalogSync, logger.For("completion"))
	generate := service.NewGenerateService(db, catalogSync, loc, logger.For("generate"))
	schedules := service.NewScheduleService(db, loc)

	secret := []byte(cfg.Auth.Secret)
	h := handler.Handlers{
		Auth:     handler.NewAuthHandler(bootstrap, secret, []byte(cfg.Auth.IDPSecret), cfg.TokenTTL()),
		Me:       handler.NewMeHandler(directory, schedules),
		Calendar: handler.NewCalendarHandler(calendarSvc, completion),
		Admin:    handler.NewAdminHandler(directory, generate, rotation, loc),
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-New-Token"},
		AllowCredentials: true,
	}))
	handler.Register(r, h, secret, cfg.TokenTTL(), directory)

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", cfg.Addr(), "driver", cfg.Database.Driver, "realtime", cfg.Realtime.Mode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// startPGListener relays trigger notifications so writes made by other
// processes reach calendar watchers.
func startPGListener(ctx context.Context, cfg *config.Config, db *gorm.DB, hub *realtime.Hub) error {
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("realtime mode postgres needs the postgres driver, got %q", cfg.Database.Driver)
	}
	if err := realtime.InstallTriggers(db, cfg.Realtime.Channel, service.Tables()...); err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN())
	if err != nil {
		return fmt.Errorf("pgx pool: %w", err)
	}
	l := realtime.NewPGListener(pool, cfg.Realtime.Channel, hub, logger.For("realtime"))
	go func() {
		defer pool.Close()
		_ = l.Run(ctx)
	}()
	return nil
}
