package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"levelup_backend/internal/config"
	"levelup_backend/internal/controller"
	"levelup_backend/internal/job"
	"levelup_backend/internal/progression"
	"levelup_backend/internal/repository"
	"levelup_backend/internal/service"
	"levelup_backend/internal/util"
	"levelup_backend/pkg/configwatcher"
	"levelup_backend/pkg/database"
	"levelup_backend/pkg/logger"
	"levelup_backend/pkg/monitoring"
	"levelup_backend/pkg/security"
	"levelup_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	Services *Services

	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)

	// stops background work started by middlewares
	lifetime context.Context
	stop     context.CancelFunc
}

type repositories struct {
	user     *repository.UserRepository
	level    *repository.LevelRepository
	content  *repository.ContentRepository
	progress *repository.ProgressRepository
}

// Services is exported for the command line tools, which reuse them without the HTTP layer.
type Services struct {
	Auth      *service.AuthService
	Storage   *service.StorageService
	Progress  *service.ProgressService
	Placement *service.PlacementService
	Content   *service.ContentService
	Import    *service.ImportService
}

type controllers struct {
	auth      *controller.AuthController
	health    *controller.HealthController
	learning  *controller.LearningController
	placement *controller.PlacementController
	admin     *controller.AdminController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		level:    repository.NewLevelRepository(db),
		content:  repository.NewContentRepository(db),
		progress: repository.NewProgressRepository(db),
	}
}

// NewServices builds the service graph over db. rdb may be nil.
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Services {
	repos := initRepositories(db)
	return initServices(repos, cfg, db, rdb)
}

func initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Services {
	s := &Services{}

	s.Storage = service.NewStorageService(&cfg.Storage)
	s.Auth = service.NewAuthService(repos.user, cfg)
	s.Progress = service.NewProgressService(repos.progress, repos.level, repos.content, progression.PacingScope(cfg.Progression.PacingScope))
	s.Placement = service.NewPlacementService(repos.content, s.Progress, rdb, time.Duration(cfg.Redis.CacheTTL)*time.Second)
	s.Content = service.NewContentService(repos.content, repos.level, s.Placement)
	s.Import = service.NewImportService(db, s.Storage, s.Placement)

	return s
}

func initControllers(s *Services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.Auth),
		health:    controller.NewHealthController(db, rdb, s.Auth),
		learning:  controller.NewLearningController(s.Progress, s.Content),
		placement: controller.NewPlacementController(s.Placement),
		admin:     controller.NewAdminController(s.Content, s.Progress, s.Import),
	}
}

func rateWindow(cfg *config.Config) time.Duration {
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	return window
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	if cfg.RateLimit.MaxRequests > 0 {
		router.Use(security.RateLimiter(a.lifetime, cfg.RateLimit.MaxRequests, rateWindow(cfg)))
	}

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// credentialLimit guards login and register; it is a no-op when disabled.
func (a *App) credentialLimit(cfg *config.Config) gin.HandlerFunc {
	if cfg.RateLimit.AuthMaxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return security.RateLimiter(a.lifetime, cfg.RateLimit.AuthMaxRequests, rateWindow(cfg))
}

// New wires the HTTP application over an open database. rdb may be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	gin.SetMode(cfg.Server.Mode)
	monitoring.Init()

	lifetime, stop := context.WithCancel(context.Background())
	app := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		lifetime: lifetime,
		stop:     stop,
	}

	app.Services = NewServices(cfg, db, rdb)
	controllers := initControllers(app.Services, db, rdb)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}
	app.Router = router

	app.RegisterConfigCallback(logger.SetLevel)
	app.RegisterConfigCallback(func(c *config.Config) {
		app.Services.Progress.SetPacingScope(progression.PacingScope(c.Progression.PacingScope))
	})
	return app
}

// Bootstrap initializes logging, the database and redis from cfg, then builds the App.
func Bootstrap(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Error("Failed to initialize database", zap.Error(err))
		return nil, err
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Error("Failed to initialize redis", zap.Error(err))
		return nil, err
	}

	app := New(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("levelup-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
			return nil, err
		}
		app.tracer = tp
	}
	return app, nil
}

// Run serves HTTP until SIGINT or SIGTERM, alongside the scheduler and the config watcher.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := job.New(repository.NewContentRepository(a.DB), a.Config.Jobs.PoolStatsInterval)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	if a.Config.ConfigFile != "" {
		go func() {
			err := configwatcher.Watch(ctx, a.Config.ConfigFile, func(cfg *config.Config) {
				for _, cb := range a.configCallbacks {
					cb(cfg)
				}
			})
			if err != nil {
				logger.Log.Warn("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.Close()
	logger.Log.Info("Server exiting")
	return nil
}

// Close stops background work and releases the tracer, redis and database connections.
func (a *App) Close() {
	a.stop()
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
	_ = logger.Log.Sync()
}
