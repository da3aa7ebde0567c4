package main

import (
	"fmt"
	"net/http"
	"time"

	"loanpilot/app/handler"
	"loanpilot/app/router"
	"loanpilot/internal/service"
	"loanpilot/pkg/config"
	"loanpilot/pkg/deploy/k8s"
	"loanpilot/pkg/logger"
	asynqqueue "loanpilot/pkg/queue/asynq"
	mysqlstore "loanpilot/pkg/store/mysql"
	redisstore "loanpilot/pkg/store/redis"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// initConfig initializes configuration
func (app *Application) initConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	app.config = config.GlobalConfig
	return nil
}

// initLogger initializes logging
func (app *Application) initLogger() error {
	if err := logger.Init(); err != nil {
		return err
	}
	app.registerCleanup(func() {
		logger.Sync()
		logger.InfoCtx(app.ctx, "Logging system has been closed")
	})
	return nil
}

// initMySQL initializes MySQL
func (app *Application) initMySQL() error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		app.config.MySQL.User,
		app.config.MySQL.Password,
		app.config.MySQL.Host,
		app.config.MySQL.Port,
		app.config.MySQL.Database,
	)

	repo, err := mysqlstore.NewRepository(dsn)
	if err != nil {
		return err
	}

	app.mysqlRepo = repo
	app.registerCleanup(func() {
		repo.Close()
		logger.InfoCtx(app.ctx, "MySQL connection has been closed")
	})

	return nil
}

// initRedis initializes Redis
func (app *Application) initRedis() error {
	client, err := redisstore.NewRedisClient(app.config)
	if err != nil {
		return err
	}

	app.redisClient = client
	app.registerCleanup(func() {
		client.Close()
		logger.InfoCtx(app.ctx, "Redis connection has been closed")
	})

	return nil
}

// initProviders initializes the deployment provider
func (app *Application) initProviders() error {
	if !app.config.K8s.Enabled {
		logger.InfoCtx(app.ctx, "K8s not enabled, release management endpoints will be unavailable")
		return nil
	}

	provider, err := k8s.NewProvider(app.config)
	if err != nil {
		return fmt.Errorf("failed to create k8s deployment provider: %w", err)
	}

	app.deploymentProvider = provider
	app.registerCleanup(func() {
		provider.Close()
		logger.InfoCtx(app.ctx, "K8s deployment provider has been closed")
	})

	return nil
}

// initQueue initializes the scoring task queue
func (app *Application) initQueue() error {
	manager, err := asynqqueue.NewManager(app.config)
	if err != nil {
		return err
	}

	app.queueManager = manager
	app.registerCleanup(func() {
		manager.Close()
		logger.InfoCtx(app.ctx, "Queue client has been closed")
	})

	return nil
}

// initServices initializes service layer
func (app *Application) initServices() error {
	// Initialize prediction service with Redis-backed score cache
	cacheTTL := time.Duration(app.config.Model.CacheTTL) * time.Second
	predictionCache := redisstore.NewPredictionCache(app.redisClient, cacheTTL)
	app.predictionService = service.NewPredictionService(predictionCache, app.mysqlRepo.Prediction)

	// Initialize application service
	app.applicationService = service.NewApplicationService(
		app.mysqlRepo.Application,
		app.queueManager,
		app.predictionService,
	)

	// Register the scoring task handler before the queue server starts
	app.queueManager.RegisterHandler(
		asynqqueue.TypeApplicationScore,
		asynq.HandlerFunc(app.applicationService.HandleScoreTask),
	)

	// Initialize release service (requires a deployment provider)
	if app.deploymentProvider != nil {
		app.releaseService = service.NewReleaseService(app.mysqlRepo.Release, app.deploymentProvider)
	}

	return nil
}

// initModel trains the scoring model from the configured dataset.
// The server does not start without a usable model.
func (app *Application) initModel() error {
	start := time.Now()
	if err := app.predictionService.Train(app.ctx); err != nil {
		return fmt.Errorf("failed to train scoring model: %w", err)
	}

	info := app.predictionService.Info()
	if info != nil {
		logger.InfoCtx(app.ctx, "Scoring model ready in %v, trees: %d, features: %d, mae: %.2f, r2: %.4f",
			time.Since(start).Round(time.Millisecond), info.Trees, len(info.Features), info.MAE, info.R2)
	}

	return nil
}

// initHandlers initializes handler layer
func (app *Application) initHandlers() error {
	app.applicationHandler = handler.NewApplicationHandler(app.applicationService)
	app.modelHandler = handler.NewModelHandler(app.predictionService, app.queueManager)

	// Release handler is only wired when a deployment provider exists
	if app.releaseService != nil {
		app.releaseHandler = handler.NewReleaseHandler(app.releaseService, app.deploymentProvider)
		logger.InfoCtx(app.ctx, "Release handler initialized for K8s")
	}

	return nil
}

// initHTTPServer initializes HTTP server
func (app *Application) initHTTPServer() error {
	// Initialize router
	r := router.NewRouter(app.applicationHandler, app.modelHandler, app.releaseHandler)

	// Set Gin mode
	gin.SetMode(app.config.Server.Mode)

	// Create Gin engine
	app.ginEngine = gin.New()

	// Setup routes
	r.Setup(app.ginEngine)

	// Create HTTP server
	app.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.ginEngine,
	}

	return nil
}
