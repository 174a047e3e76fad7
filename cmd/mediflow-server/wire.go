package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MediFlow-EMR/mediflow-dev/internal/config"
	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/handover"
	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/nursing"
	"github.com/MediFlow-EMR/mediflow-dev/internal/domain/ward"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/auth"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/db"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/genai"
	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/middleware"
	"github.com/MediFlow-EMR/mediflow-dev/migrations"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.Location())
}

func newMigrator(pool *pgxpool.Pool, dir string) *db.Migrator {
	if dir == "" {
		return db.NewMigratorFS(pool, migrations.FS)
	}
	return db.NewMigrator(pool, dir)
}

// newRevoker returns the Redis-backed store when REDIS_URL is set and the
// in-process store otherwise. The returned func releases the client.
func newRevoker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (auth.Revoker, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set; token revocations are kept in memory")
		return auth.NewMemoryRevocationStore(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	return auth.NewRedisRevocationStore(client), func() { client.Close() }, nil
}

// services holds everything built on top of the pool.
type services struct {
	shifts   *ward.ShiftService
	nursing  *nursing.Service
	handover *handover.Service
	gemini   *genai.GeminiClient
}

func buildServices(pool *pgxpool.Pool, cfg *config.Config, logger zerolog.Logger) *services {
	loc := cfg.Location()
	tx := db.NewTxRunner(pool)

	shiftRepo := ward.NewShiftRepoPG(pool)
	patientRepo := ward.NewPatientRepoPG(pool)
	noteRepo := nursing.NewNoteRepoPG(pool)
	ioRepo := nursing.NewIntakeOutputRepoPG(pool)

	gemini := genai.NewGeminiClient(genai.Config{
		APIKey:     cfg.GeminiAPIKey,
		Model:      cfg.GeminiModel,
		BaseURL:    cfg.GeminiBaseURL,
		Timeout:    cfg.GeminiTimeout,
		MaxRetries: cfg.GeminiMaxRetries,
	}, logger)

	collector := handover.NewCollector(handover.Sources{
		Notes:        noteRepo,
		Vitals:       nursing.NewVitalRepoPG(pool),
		Medications:  nursing.NewMedicationRepoPG(pool),
		IntakeOutput: ioRepo,
		TestResults:  nursing.NewTestResultRepoPG(pool),
	}, loc)

	dir := handover.Directory{
		Shifts:      shiftRepo,
		Assignments: ward.NewAssignmentRepoPG(pool),
		Departments: ward.NewDepartmentRepoPG(pool),
		Users:       ward.NewUserRepoPG(pool),
	}

	return &services{
		shifts:   ward.NewShiftService(shiftRepo, tx, logger),
		nursing:  nursing.NewService(noteRepo, ioRepo, patientRepo, tx, logger),
		handover: handover.NewService(dir, collector, gemini, handover.NewRepoPG(pool), tx, loc, logger),
		gemini:   gemini,
	}
}

// newEcho builds the server with global middleware and authentication, and
// returns it with the rate- and size-limited /api/v1 group.
func newEcho(cfg *config.Config, logger zerolog.Logger, revoker auth.Revoker) (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
		ExposeHeaders:    []string{echo.HeaderContentDisposition, middleware.RequestIDHeader},
		AllowCredentials: true,
	}))

	jwtMW := auth.JWTMiddleware(auth.JWTConfig{
		Issuer:      cfg.AuthIssuer,
		Audience:    cfg.AuthAudience,
		SigningKey:  []byte(cfg.AuthSigningKey),
		Revocations: revoker,
		Skipper:     auth.AuthSkipper,
	})
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(cfg.DevUserID, jwtMW))
	} else {
		e.Use(jwtMW)
	}

	rl := middleware.RateLimitConfig{RequestsPerSecond: cfg.RateLimitRPS, BurstSize: cfg.RateLimitBurst}
	if rl.RequestsPerSecond <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}
	api := e.Group("/api/v1", middleware.RateLimit(rl), middleware.BodyLimit(cfg.BodyLimit))
	if cfg.RequestTimeout > 0 {
		api.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}
	return e, api
}

func registerRoutes(e *echo.Echo, api *echo.Group, pool *pgxpool.Pool, svc *services, revoker auth.Revoker, cfg *config.Config) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	auth.RegisterRevocationRoutes(api, revoker)
	nursing.NewHandler(svc.nursing).RegisterRoutes(api)
	handover.NewHandler(svc.handover, cfg.Location()).RegisterRoutes(api)
	genai.NewHandler(svc.gemini).RegisterRoutes(api)
}
