package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/deniz/labstock/internal/app/controllers"
	appMigrations "github.com/deniz/labstock/internal/app/migrations"
	appRepos "github.com/deniz/labstock/internal/app/repositories"
	appRoutes "github.com/deniz/labstock/internal/app/routes"
	appServices "github.com/deniz/labstock/internal/app/services"
	"github.com/deniz/labstock/internal/config"
	"github.com/deniz/labstock/internal/db"
	appMiddleware "github.com/deniz/labstock/internal/middleware"
	pkgAuth "github.com/deniz/labstock/internal/pkg/auth"
	"github.com/deniz/labstock/internal/pkg/changefeed"
	"github.com/deniz/labstock/internal/pkg/email"
	"github.com/deniz/labstock/internal/pkg/logger"
	"github.com/deniz/labstock/internal/seed"
)

// notifierWorkers is the number of goroutines draining the email queue
const notifierWorkers = 4

// Dependencies holds all the application dependencies
type Dependencies struct {
	AuthService         *appServices.AuthService
	ComponentService    *appServices.ComponentService
	RequestService      *appServices.RequestService
	ReportService       *appServices.ReportService
	Notifier            *appServices.Notifier
	AuthController      *appControllers.AuthController
	ComponentController *appControllers.ComponentController
	RequestController   *appControllers.RequestController
	ReportController    *appControllers.ReportController
	SystemController    *appControllers.SystemController
	AuthMiddleware      *appMiddleware.AuthMiddleware
	Repos               *appRepos.Repositories
	JWTService          *pkgAuth.JWTService
	EmailService        email.EmailService
	FeedHub             *changefeed.Hub
	FeedHandler         *changefeed.Handler
	Logger              zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")

	if err := seed.CreateDefaultData(context.Background(), dbPool, lgr); err != nil {
		// Seeding problems are not fatal for startup
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return dbPool, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  config.ParseDurationOr(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: config.ParseDurationOr(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	deps.EmailService = email.NewEmailService(email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
		UseTLS:    cfg.SMTP.UseTLS,
	}, lgr)

	deps.FeedHub = changefeed.NewHub(lgr)
	deps.FeedHandler = changefeed.NewHandler(deps.FeedHub, lgr)

	deps.Notifier = appServices.NewNotifier(deps.EmailService, notifierWorkers, lgr)

	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.TokenRepository,
		deps.JWTService,
		lgr,
	)
	deps.ComponentService = appServices.NewComponentService(
		deps.Repos.ComponentRepository,
		deps.FeedHub,
		lgr,
	)
	deps.RequestService = appServices.NewRequestService(
		deps.Repos.RequestRepository,
		deps.Repos.ComponentRepository,
		deps.Repos.UserRepository,
		deps.Notifier,
		deps.FeedHub,
		lgr,
	)
	deps.ReportService = appServices.NewReportService(deps.Repos.RequestRepository, lgr)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.ComponentController = appControllers.NewComponentController(deps.ComponentService, lgr)
	deps.RequestController = appControllers.NewRequestController(deps.RequestService, lgr)
	deps.ReportController = appControllers.NewReportController(deps.ReportService, lgr)
	deps.SystemController = appControllers.NewSystemController(deps.EmailService, deps.FeedHub, lgr)

	return deps, nil
}

// Start launches the background workers owned by the dependency graph
func (d *Dependencies) Start() {
	go d.FeedHub.Run()
	d.Notifier.Start()
}

// Stop winds down the background workers
func (d *Dependencies) Stop() {
	d.Notifier.Stop()
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(appMiddleware.RequestLogger(), gin.Recovery())

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.ComponentController,
		deps.RequestController,
		deps.ReportController,
		deps.SystemController,
		deps.FeedHandler,
		deps.AuthMiddleware,
	)

	return router
}
