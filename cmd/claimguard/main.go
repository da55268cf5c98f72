package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/claimguard/claimguard/internal/config"
	"github.com/claimguard/claimguard/internal/domain/refdata"
	"github.com/claimguard/claimguard/internal/domain/scrub"
	"github.com/claimguard/claimguard/internal/platform/auth"
	"github.com/claimguard/claimguard/internal/platform/db"
	"github.com/claimguard/claimguard/internal/platform/middleware"
	"github.com/claimguard/claimguard/internal/progress"
	"github.com/claimguard/claimguard/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "claimguard",
		Short:        "Claim scrubbing and denial-risk scoring",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(refdataCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).Level(level).With().Timestamp().Logger()
	}
	return logger
}

func connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return db.NewPool(ctx, db.PoolConfig{
		DatabaseURL:  cfg.DatabaseURL,
		MaxConns:     cfg.DBMaxConns,
		MinConns:     cfg.DBMinConns,
		SlowQueryLog: cfg.DBSlowQueryLog,
	}, logger)
}

// buildProfile starts from the scoring profile file, if any, and applies
// the environment's lookup settings on top.
func buildProfile(cfg *config.Config, path string) (scrub.Profile, error) {
	p := scrub.DefaultProfile()
	if path != "" {
		var err error
		if p, err = scrub.LoadProfile(path); err != nil {
			return scrub.Profile{}, err
		}
	}
	if cfg.LookupConcurrency > 0 {
		p.Rules.LookupConcurrency = cfg.LookupConcurrency
	}
	if cfg.HistoryWindow > 0 {
		p.Rules.HistoryWindow = cfg.HistoryWindow
	}
	return p, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the claim validation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	profile, err := buildProfile(cfg, cfg.ScoringProfile)
	if err != nil {
		return err
	}
	store := refdata.NewStorePG(pool)
	svc := scrub.NewService(store, store, logger)
	if err := svc.SetProfile(profile); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, "X-Tenant-ID"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.BatchBodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	switch {
	case cfg.AuthSigningKey != "":
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	case cfg.IsDev() && cfg.AuthJWKSURL == "":
		logger.Warn().Msg("development auth enabled; every request runs as admin")
		e.Use(auth.DevAuthMiddleware())
	default:
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
			Skipper:  auth.AuthSkipper,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	api := e.Group("/api/v1", db.TenantMiddleware(cfg.DefaultTenant), middleware.RateLimit(rl))

	refdata.NewHandler(refdata.NewService(store)).RegisterRoutes(api)
	scrub.NewHandler(svc, profile.Rules.LookupConcurrency).RegisterRoutes(api)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// withPool loads config and opens a pool for one-shot commands.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := connect(ctx, cfg, newLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	migrator := func(pool *pgxpool.Pool, dir string) *db.Migrator {
		if dir != "" {
			return db.NewMigrator(pool, dir)
		}
		return db.NewMigratorFS(pool, migrations.FS)
	}
	schemaFor := func(cmd *cobra.Command, cfg *config.Config) string {
		tenant, _ := cmd.Flags().GetString("tenant")
		if tenant == "" {
			tenant = cfg.DefaultTenant
		}
		return db.SchemaFor(tenant)
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				schema := schemaFor(cmd, cfg)
				fmt.Printf("Running migrations on schema: %s\n", schema)
				count, err := migrator(pool, dir).Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("tenant", "", "Tenant whose schema to migrate (default DEFAULT_TENANT)")
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				schema := schemaFor(cmd, cfg)
				statuses, err := migrator(pool, dir).Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(os.Stdout, schema, statuses)
				return nil
			})
		},
	}
	statusCmd.Flags().String("tenant", "", "Tenant whose schema to inspect (default DEFAULT_TENANT)")
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatus(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status, appliedAt := "pending", ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format(time.DateTime)
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant schema and apply migrations to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				fmt.Printf("Creating tenant schema: %s\n", db.SchemaFor(name))
				count, err := db.CreateTenantSchema(ctx, pool, name, migrations.FS)
				if err != nil {
					return err
				}
				fmt.Printf("Tenant created with %d migration(s). Seed it with: claimguard refdata seed --tenant %s --file <dataset.yaml>\n", count, name)
				return nil
			})
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (letters, digits, underscore)")

	cmd.AddCommand(createCmd)
	return cmd
}

func newProgress(enabled bool) progress.Manager {
	if enabled {
		return progress.NewMPBManager(os.Stderr)
	}
	return &progress.NoopManager{}
}

func refdataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refdata",
		Short: "Manage reference data",
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML reference-data bundle into a tenant schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			tenant, _ := cmd.Flags().GetString("tenant")
			showProgress, _ := cmd.Flags().GetBool("progress")
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			ds, err := refdata.LoadDataset(file)
			if err != nil {
				return err
			}
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				if tenant == "" {
					tenant = cfg.DefaultTenant
				}
				if !db.ValidTenantID(tenant) {
					return fmt.Errorf("invalid tenant identifier: %s", tenant)
				}
				ctx = db.WithTenant(ctx, tenant)

				mgr := newProgress(showProgress)
				tr := mgr.NewTracker("reference data", int64(ds.Size()))
				err := refdata.Seed(ctx, refdata.NewStorePG(pool), ds, func(_ string, rows int) {
					tr.Increment(rows)
				})
				tr.Done()
				mgr.Wait()
				if err != nil {
					return err
				}
				fmt.Printf("Seeded %d record(s) into %s.\n", ds.Size(), db.SchemaFor(tenant))
				return nil
			})
		},
	}
	seedCmd.Flags().String("file", "", "Reference-data YAML bundle")
	seedCmd.Flags().String("tenant", "", "Target tenant (default DEFAULT_TENANT)")
	seedCmd.Flags().Bool("progress", true, "Show a progress bar on stderr")

	cmd.AddCommand(seedCmd)
	return cmd
}

// decodeClaims accepts a list of claims or a single claim, in YAML or JSON.
func decodeClaims(data []byte) ([]scrub.Claim, error) {
	var list []scrub.Claim
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var one scrub.Claim
	if err := yaml.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	return []scrub.Claim{one}, nil
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate claims offline against a reference-data bundle",
		RunE: func(cmd *cobra.Command, args []string) error {
			claimsPath, _ := cmd.Flags().GetString("claims")
			refPath, _ := cmd.Flags().GetString("refdata")
			profilePath, _ := cmd.Flags().GetString("profile")
			workers, _ := cmd.Flags().GetInt("workers")
			showProgress, _ := cmd.Flags().GetBool("progress")
			if claimsPath == "" || refPath == "" {
				return fmt.Errorf("--claims and --refdata are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, os.Stderr)

			data, err := os.ReadFile(claimsPath)
			if err != nil {
				return err
			}
			claims, err := decodeClaims(data)
			if err != nil {
				return err
			}
			ds, err := refdata.LoadDataset(refPath)
			if err != nil {
				return err
			}
			if profilePath == "" {
				profilePath = cfg.ScoringProfile
			}
			profile, err := buildProfile(cfg, profilePath)
			if err != nil {
				return err
			}

			ctx := context.Background()
			store, err := refdata.NewMemoryStoreFromDataset(ctx, ds)
			if err != nil {
				return err
			}
			svc := scrub.NewService(store, store, logger)
			if err := svc.SetProfile(profile); err != nil {
				return err
			}

			return runValidate(ctx, svc, claims, workers, newProgress(showProgress), cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("claims", "", "YAML or JSON file holding one claim or a list of claims")
	cmd.Flags().String("refdata", "", "Reference-data YAML bundle")
	cmd.Flags().String("profile", "", "Scoring profile YAML (default SCORING_PROFILE or built-in)")
	cmd.Flags().Int("workers", 4, "Claims validated concurrently")
	cmd.Flags().Bool("progress", true, "Show a progress bar on stderr")
	return cmd
}

func runValidate(ctx context.Context, svc *scrub.Service, claims []scrub.Claim, workers int, mgr progress.Manager, out io.Writer) error {
	tr := mgr.NewTracker("claims", int64(len(claims)))
	items, err := svc.ValidateBatch(ctx, claims, workers, func() { tr.Increment(1) })
	tr.Done()
	mgr.Wait()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}
