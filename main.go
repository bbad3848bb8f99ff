package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"medicare-server/internal/apperrors"
	"medicare-server/internal/cache"
	"medicare-server/internal/config"
	"medicare-server/internal/handlers"
	"medicare-server/internal/logging"
	"medicare-server/internal/middleware"
	"medicare-server/internal/models"
	"medicare-server/internal/repository"
	"medicare-server/internal/repository/memory"
	"medicare-server/internal/routes"
	"medicare-server/internal/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medicare-server",
		Short: "Hospital appointment and bed booking API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type serveOptions struct {
	inMemory      bool
	adminEmail    string
	adminPassword string
}

func serveCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(opts)
		},
	}
	cmd.Flags().BoolVar(&opts.inMemory, "memory", false, "keep all data in process memory instead of MySQL")
	cmd.Flags().StringVar(&opts.adminEmail, "admin-email", os.Getenv("ADMIN_EMAIL"), "create this admin account on startup if missing")
	cmd.Flags().StringVar(&opts.adminPassword, "admin-password", os.Getenv("ADMIN_PASSWORD"), "password for --admin-email")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Environment, cfg.LogLevel)

			db, err := models.Connect(dbConfig(cfg))
			if err != nil {
				return err
			}
			if err := models.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func dbConfig(cfg *config.Config) models.DatabaseConfig {
	return models.DatabaseConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		Debug:        cfg.LogLevel == "debug",
	}
}

// stores groups one storage backend's repositories.
type stores struct {
	users        services.UserStore
	doctors      services.DoctorStore
	appointments services.AppointmentStore
	beds         services.BedStore
	reviews      services.ReviewStore
	records      services.RecordStore
}

func sqlStores(db *gorm.DB) stores {
	return stores{
		users:        repository.NewUserRepository(db),
		doctors:      repository.NewDoctorRepository(db),
		appointments: repository.NewAppointmentRepository(db),
		beds:         repository.NewBedRepository(db),
		reviews:      repository.NewReviewRepository(db),
		records:      repository.NewRecordRepository(db),
	}
}

func memoryStores(store *memory.Store) stores {
	return stores{
		users:        store.Users(),
		doctors:      store.Doctors(),
		appointments: store.Appointments(),
		beds:         store.Beds(),
		reviews:      store.Reviews(),
		records:      store.Records(),
	}
}

func runServer(opts serveOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(cfg.Environment, cfg.LogLevel)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	checks := map[string]handlers.HealthCheck{}

	// Storage
	var st stores
	if opts.inMemory {
		st = memoryStores(memory.NewStore())
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
	} else {
		db, err := models.InitDB(dbConfig(cfg))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		st = sqlStores(db)
		checks["database"] = func(ctx context.Context) error { return repository.Ping(ctx, db) }
		logger.Info().Msg("connected to database")
	}

	// Read cache
	var readCache cache.Cache = cache.Noop{}
	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rc.Close()
		readCache = rc
		checks["cache"] = rc.Ping
		logger.Info().Msg("connected to redis")
	} else if opts.inMemory {
		readCache = cache.NewMemory()
	}
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	doctorSvc := services.NewDoctorService(st.doctors, st.users, readCache, ttl, logger)
	appointmentSvc := services.NewAppointmentService(st.appointments, st.doctors, logger)
	svc := routes.Services{
		Accounts:     services.NewAccountService(st.users, cfg, logger),
		Doctors:      doctorSvc,
		Appointments: appointmentSvc,
		Beds:         services.NewBedService(st.beds, readCache, ttl, logger),
		Reviews:      services.NewReviewService(st.reviews, st.appointments, doctorSvc, logger),
		Records:      services.NewRecordService(st.records, st.users, st.appointments, logger),
		Health:       checks,
	}

	if opts.adminEmail != "" {
		if err := ensureAdmin(ctx, svc.Accounts, opts.adminEmail, opts.adminPassword, logger); err != nil {
			return err
		}
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeoutSeconds) * time.Second))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, svc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// ensureAdmin creates the bootstrap admin account. An existing account with
// the same email is left alone.
func ensureAdmin(ctx context.Context, accounts *services.AccountService, email, password string, logger zerolog.Logger) error {
	_, err := accounts.CreateUser(ctx, services.NewUserInput{
		FirstName: "Admin",
		Email:     email,
		Password:  password,
		Role:      models.RoleAdmin,
	})
	switch {
	case err == nil:
		logger.Info().Str("email", email).Msg("admin account created")
	case apperrors.CodeOf(err) == "duplicate-email":
	default:
		return fmt.Errorf("create admin account: %w", err)
	}
	return nil
}
