package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/iliyamo/salon-booking/internal/config"
	"github.com/iliyamo/salon-booking/internal/database"
	"github.com/iliyamo/salon-booking/internal/handler"
	"github.com/iliyamo/salon-booking/internal/metrics"
	"github.com/iliyamo/salon-booking/internal/middleware"
	"github.com/iliyamo/salon-booking/internal/queue"
	"github.com/iliyamo/salon-booking/internal/repository"
	"github.com/iliyamo/salon-booking/internal/router"
	"github.com/iliyamo/salon-booking/internal/service"
	"github.com/iliyamo/salon-booking/internal/utils"
)

type stores struct {
	services interface {
		service.ServiceStore
		repository.ServiceSeeder
	}
	bookings service.BookingStore
}

// App owns every long-lived resource of the process.
type App struct {
	cfg       config.Config
	log       *zap.Logger
	db        *sql.DB
	mongo     *mongo.Client
	rdb       *redis.Client
	publisher *queue.Publisher
	echo      *echo.Echo
}

// New connects to the configured store, seeds the catalogue and builds the
// HTTP server.  Resources opened before a failure are released.
func New(ctx context.Context, cfg config.Config) (_ *App, err error) {
	log, err := utils.NewLogger(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &App{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	st, err := a.initStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	seeded, err := repository.SeedServices(ctx, st.services)
	if err != nil {
		return nil, err
	}
	if seeded > 0 {
		a.log.Info("seeded default services", zap.Int("count", seeded))
	}

	a.initRedis(ctx)
	a.publisher = queue.NewPublisher(cfg.RabbitMQURL, log)
	metrics.Register()

	var publisher service.EventPublisher
	if a.publisher != nil {
		publisher = a.publisher
	}
	bookingSvc := service.NewBookingService(st.services, st.bookings, publisher, log, cfg.Location)
	authSvc, err := service.NewAuthService(cfg.AdminEmail, cfg.AdminPass, cfg.BcryptCost, cfg.JWTSecret, cfg.JWTExpiresIn, log)
	if err != nil {
		return nil, err
	}

	a.echo = router.New(router.Options{
		Bookings:  handler.NewBookingHandler(bookingSvc, log),
		Auth:      handler.NewAuthHandler(authSvc, log),
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewRateLimiter(config.LoadRateLimitConfig(), a.rdb, log),
		Cache:     middleware.NewResponseCache(config.LoadCacheConfig(), a.rdb, log),
		Log:       log,
	})
	return a, nil
}

func (a *App) initStore(ctx context.Context) (stores, error) {
	switch a.cfg.StoreDriver {
	case config.StoreMySQL:
		db, err := database.Open(ctx, a.cfg.DBUser, a.cfg.DBPass, a.cfg.DBHost, a.cfg.DBPort, a.cfg.DBName)
		if err != nil {
			return stores{}, err
		}
		a.db = db
		if err := database.Migrate(ctx, db); err != nil {
			return stores{}, err
		}
		a.log.Info("mysql connected",
			zap.String("host", a.cfg.DBHost),
			zap.String("database", a.cfg.DBName),
		)
		return stores{services: repository.NewServiceRepo(db), bookings: repository.NewBookingRepo(db)}, nil

	case config.StoreMongo:
		client, err := database.OpenMongo(ctx, a.cfg.MongoURI)
		if err != nil {
			return stores{}, err
		}
		a.mongo = client
		mdb := client.Database(a.cfg.MongoDatabase)
		if err := database.EnsureMongoIndexes(ctx, mdb); err != nil {
			return stores{}, err
		}
		a.log.Info("mongodb connected", zap.String("database", a.cfg.MongoDatabase))
		return stores{services: repository.NewMongoServiceRepo(mdb), bookings: repository.NewMongoBookingRepo(mdb)}, nil

	default:
		a.log.Warn("using in-memory store; data is lost on restart")
		return stores{services: repository.NewMemoryServiceRepo(), bookings: repository.NewMemoryBookingRepo()}, nil
	}
}

// initRedis is best effort: without Redis the catalogue is not cached and
// rate limiting is per process.
func (a *App) initRedis(ctx context.Context) {
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		a.log.Warn("redis unavailable; cache disabled, local rate limiting", zap.Error(err))
		return
	}
	a.rdb = rdb
}

// Run serves HTTP until SIGINT/SIGTERM or a server error, then shuts down.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.BookingLogConsumer && a.cfg.RabbitMQURL != "" {
		consumer := queue.NewBookingLogConsumer(a.cfg.RabbitMQURL, a.cfg.BookingLogPath, a.log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	addr := ":" + a.cfg.Port
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("HTTP server starting", zap.String("addr", addr), zap.String("env", a.cfg.Env))
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return err
	}
	return a.shutdown()
}

func (a *App) shutdown() error {
	a.log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		a.close()
		return fmt.Errorf("http server shutdown: %w", err)
	}
	a.log.Info("HTTP server stopped")
	a.close()
	a.log.Info("app stopped")
	_ = a.log.Sync()
	return nil
}

// close releases store, cache and broker connections.
func (a *App) close() {
	if err := a.publisher.Close(); err != nil {
		a.log.Warn("close publisher", zap.Error(err))
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("close mysql", zap.Error(err))
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.log.Warn("close mongodb", zap.Error(err))
		}
	}
}
