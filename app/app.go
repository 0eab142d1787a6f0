// File: app/app.go
package app

import (
	"context"
	"errors"
	"go-user-api/config"
	"go-user-api/db"
	"go-user-api/handler"
	"go-user-api/logger"
	"go-user-api/media"
	"go-user-api/repository"
	"go-user-api/router"
	"go-user-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// App owns the external connections of a running server.
type App struct {
	Config  *config.Config
	Handler http.Handler

	mongo *mongo.Client
	redis *redis.Client
}

// New connects to MongoDB (and Redis when enabled), applies migrations,
// builds the media uploader and wires all layers into Handler.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Database.RunMigrations {
		if err := db.RunMigrations(cfg.Database.URI, cfg.Database.Name); err != nil {
			return nil, err
		}
	}

	mongoClient, err := db.ConnectMongo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, mongo: mongoClient}

	checks := map[string]handler.HealthCheckFunc{
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) },
	}

	var cacheClient service.ICacheClient
	if cfg.Redis.Enabled {
		rdb, err := db.ConnectRedis(ctx, cfg)
		if err != nil {
			a.Close(context.Background())
			return nil, err
		}
		a.redis = rdb
		cacheClient = rdb
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	uploader, err := media.New(ctx, cfg)
	if err != nil {
		a.Close(context.Background())
		return nil, err
	}

	users := repository.NewUserRepository(mongoClient.Database(cfg.Database.Name))
	a.Handler = NewHandler(cfg, users, cacheClient, uploader, checks)
	return a, nil
}

// NewHandler wires repositories, services and handlers into the HTTP
// router. cacheClient may be nil to disable profile caching.
func NewHandler(
	cfg *config.Config,
	users repository.IUserRepository,
	cacheClient service.ICacheClient,
	uploader media.Uploader,
	checks map[string]handler.HealthCheckFunc,
) http.Handler {
	hasher := service.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := service.NewTokenService(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	cache := service.NewUserCache(cacheClient, cfg.Redis.UserTTL)

	authService := service.NewAuthService(users, hasher, tokens, cache)
	userService := service.NewUserService(users, hasher, uploader, cache)

	userHandler := handler.NewUserHandler(
		userService,
		authService,
		handler.CookieOptionsFromConfig(cfg),
		handler.UploadOptionsFromConfig(cfg),
	)

	return router.NewRouter(userHandler, handler.NewAuthMiddleware(authService), handler.NewHealthHandler(checks))
}

// Close disconnects from MongoDB and Redis.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.mongo != nil {
		errs = append(errs, a.mongo.Disconnect(ctx))
	}
	return errors.Join(errs...)
}

func Run() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Error loading configuration: %v", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	logger.Log.Info("Configuration loaded successfully")

	a, err := New(context.Background(), cfg)
	if err != nil {
		logger.Log.Fatalf("Error initializing application: %v", err)
	}

	// --- Start the Server with Graceful Shutdown ---
	port := cfg.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: a.Handler,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	if err := a.Close(ctx); err != nil {
		logger.Log.WithError(err).Error("Failed to close connections")
	}

	logger.Log.Info("Server exited properly")
}
