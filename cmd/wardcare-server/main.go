package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/futuremed/wardcare/internal/config"
	"github.com/futuremed/wardcare/internal/domain/admission"
	"github.com/futuremed/wardcare/internal/domain/authn"
	"github.com/futuremed/wardcare/internal/domain/device"
	"github.com/futuremed/wardcare/internal/domain/employee"
	"github.com/futuremed/wardcare/internal/domain/notify"
	"github.com/futuremed/wardcare/internal/domain/occupancy"
	"github.com/futuremed/wardcare/internal/domain/patient"
	"github.com/futuremed/wardcare/internal/domain/ward"
	"github.com/futuremed/wardcare/internal/platform/auth"
	"github.com/futuremed/wardcare/internal/platform/db"
	"github.com/futuremed/wardcare/internal/platform/mail"
	"github.com/futuremed/wardcare/internal/platform/middleware"
	"github.com/futuremed/wardcare/internal/platform/websocket"
	"github.com/futuremed/wardcare/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "wardcare-server",
		Short: "Ward, bed and admission API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// migrationSource returns the embedded scripts unless dir points at a
// directory on disk.
func migrationSource(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

// withMigrator loads config, connects and hands a migrator for the flags'
// schema and source to fn.
func withMigrator(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator, schema string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	schema, _ := cmd.Flags().GetString("schema")
	if schema == "" {
		schema = cfg.DBSchema
	}
	dir, _ := cmd.Flags().GetString("dir")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, migrationSource(dir), schema), schema)
}

func poolConfig(cfg *config.Config) db.PoolConfig {
	return db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
		Schema:   cfg.DBSchema,
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}
	cmd.PersistentFlags().String("schema", "", "Target schema for migrations (default DB_SCHEMA)")
	cmd.PersistentFlags().String("dir", "", "Read migrations from this directory instead of the embedded set")

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				fmt.Printf("Running migrations on schema: %s\n", schema)
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("Migration status for schema: %s\n", schema)
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	})

	// migrate down
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				count, err := m.Down(ctx, steps)
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				fmt.Printf("Reverted %d migration(s) on schema %s.\n", count, schema)
				return nil
			})
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to revert")
	cmd.AddCommand(downCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed bootstrap data",
	}

	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Create an active administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			firstName, _ := cmd.Flags().GetString("first-name")
			lastName, _ := cmd.Flags().GetString("last-name")
			if username == "" || email == "" || password == "" {
				return fmt.Errorf("--username, --email and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env)

			ctx := context.Background()
			pool, err := db.NewPool(ctx, poolConfig(cfg))
			if err != nil {
				return err
			}
			defer pool.Close()

			revocations := auth.NewMemoryRevocationStore()
			defer revocations.Close()
			svc := employee.NewService(employee.NewRepo(pool), db.NewTxRunner(pool),
				mail.NewMailer(mail.NewLogSender(logger), nil), revocations, cfg.PublicBaseURL, logger)

			e, err := svc.Seed(ctx, employee.CreateInput{
				Username:  username,
				Email:     email,
				FirstName: firstName,
				LastName:  lastName,
				Role:      employee.RoleAdministrator,
			}, password)
			if err != nil {
				return fmt.Errorf("seed administrator: %w", err)
			}
			fmt.Printf("Administrator %s created (id %s).\n", e.Username, e.ID)
			return nil
		},
	}
	adminCmd.Flags().String("username", "", "Login name")
	adminCmd.Flags().String("email", "", "Email address")
	adminCmd.Flags().String("password", "", "Initial password")
	adminCmd.Flags().String("first-name", "System", "First name")
	adminCmd.Flags().String("last-name", "Administrator", "Last name")

	cmd.AddCommand(adminCmd)
	return cmd
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// resolveSigningKey decodes the configured hex key. When none is set a
// random 32-byte key is generated and random is true.
func resolveSigningKey(envValue string) (key []byte, random bool, err error) {
	if envValue != "" {
		decoded, err := hex.DecodeString(envValue)
		if err != nil {
			return nil, false, fmt.Errorf("JWT_SIGNING_KEY must be hex-encoded: %w", err)
		}
		return decoded, false, nil
	}
	key = make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate signing key: %w", err)
	}
	return key, true, nil
}

// infra bundles the process-wide collaborators that differ between a
// Redis-backed deployment and a single-process development run.
type infra struct {
	signingKey  []byte
	store       authn.Store
	revocations auth.RevocationStore
	mailer      *mail.Mailer
	checks      []db.Check
}

func newMailer(cfg *config.Config, logger zerolog.Logger) *mail.Mailer {
	if cfg.SMTPHost == "" {
		return mail.NewMailer(mail.NewLogSender(logger), nil)
	}
	return mail.NewMailer(mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}), nil)
}

// ipExtractor reads the client address from the socket unless the request
// comes through one of the trusted proxy ranges.
func ipExtractor(proxies []*net.IPNet) echo.IPExtractor {
	if len(proxies) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, p := range proxies {
		opts = append(opts, echo.TrustIPRange(p))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// newServer builds the echo instance with every route mounted.
func newServer(cfg *config.Config, pool *pgxpool.Pool, deps infra, logger zerolog.Logger) (*echo.Echo, error) {
	tokens, err := auth.NewTokenIssuer(deps.signingKey, cfg.JWTIssuer)
	if err != nil {
		return nil, err
	}
	tx := db.NewTxRunner(pool)

	proxies, err := cfg.TrustedProxyNets()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)
	// Rate limit buckets and device fingerprints key on c.RealIP().
	e.IPExtractor = ipExtractor(proxies)

	// Global middleware
	e.Use(middleware.Recovery())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(auth.JWTMiddleware(auth.JWTConfig{
		Tokens:      tokens,
		Revocations: deps.revocations,
		Skipper:     auth.AuthSkipper,
	}))

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, deps.checks...))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))
	public := apiV1.Group("", middleware.RateLimit(
		middleware.LoginRateLimitConfig(cfg.LoginRateLimitRPS, cfg.LoginRateLimitBurst)))

	// Repositories
	employeeRepo := employee.NewRepo(pool)
	deviceRepo := device.NewRepo(pool)
	wardRepo := ward.NewWardRepo(pool)
	bedRepo := ward.NewBedRepo(pool)
	patientRepo := patient.NewRepo(pool)
	catalogRepo := patient.NewCatalogRepo(pool)
	admissionRepo := admission.NewRepo(pool)
	assignmentRepo := occupancy.NewRepo(pool)
	notificationRepo := notify.NewRepo(pool)

	// Push channel and post-commit notification delivery
	hub := websocket.NewHub(logger)
	dispatcher := notify.NewDispatcher(notificationRepo, hub, logger)

	// Services
	employeeSvc := employee.NewService(employeeRepo, tx, deps.mailer, deps.revocations, cfg.PublicBaseURL, logger)
	deviceSvc := device.NewService(deviceRepo)
	authnSvc := authn.NewService(
		employeeRepo, deviceSvc, tokens, deps.revocations, deps.store, cfg.ChallengeTTL,
		authn.NewAuditRepo(pool), deps.mailer, tx,
		authn.Options{TOTPIssuer: cfg.TOTPIssuer, BaseURL: cfg.PublicBaseURL, SupportEmail: cfg.SupportEmail},
		logger,
	)
	wardSvc := ward.NewService(wardRepo, bedRepo, tx)
	patientSvc := patient.NewService(patientRepo, catalogRepo, tx)
	admissionSvc := admission.NewService(admissionRepo, patientRepo, patientSvc, employeeRepo, dispatcher, tx)
	occupancySvc := occupancy.NewService(assignmentRepo, bedRepo, patientRepo, admissionRepo, employeeRepo, dispatcher, tx)

	// Routes
	authn.NewHandler(authnSvc).RegisterRoutes(apiV1, public)
	employee.NewHandler(employeeSvc).RegisterRoutes(apiV1, public)
	device.NewHandler(deviceSvc).RegisterRoutes(apiV1)
	ward.NewHandler(wardSvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	admission.NewHandler(admissionSvc).RegisterRoutes(apiV1)
	occupancy.NewHandler(occupancySvc).RegisterRoutes(apiV1)
	notify.NewHandler(notify.NewInbox(notificationRepo, dispatcher)).RegisterRoutes(apiV1)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	return e, nil
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	key, random, err := resolveSigningKey(cfg.JWTSigningKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve signing key")
	}
	if random {
		logger.Warn().Msg("JWT_SIGNING_KEY not set; sessions are signed with a per-process random key")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	deps := infra{signingKey: key, mailer: newMailer(cfg, logger)}

	// Challenges and revocations live in Redis when configured so that every
	// replica sees them.
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		logger.Info().Msg("connected to redis")
		deps.store = authn.NewRedisStore(rdb)
		deps.revocations = auth.NewRedisRevocationStore(rdb)
		deps.checks = append(deps.checks, db.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	} else {
		logger.Warn().Msg("REDIS_URL not set; 2FA challenges and revocations are kept in memory")
		revocations := auth.NewMemoryRevocationStore()
		defer revocations.Close()
		deps.store = authn.NewMemoryStore()
		deps.revocations = revocations
	}

	e, err := newServer(cfg, pool, deps, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
