package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/claimsure/claimsure/internal/config"
	"github.com/claimsure/claimsure/internal/domain/directory"
	"github.com/claimsure/claimsure/internal/domain/fraud"
	"github.com/claimsure/claimsure/internal/domain/registry"
	"github.com/claimsure/claimsure/internal/domain/reimburse"
	"github.com/claimsure/claimsure/internal/platform/auth"
	"github.com/claimsure/claimsure/internal/platform/db"
	"github.com/claimsure/claimsure/internal/platform/middleware"
	"github.com/claimsure/claimsure/internal/platform/notification"
	"github.com/claimsure/claimsure/internal/platform/sigcheck"
)

// DirectoryResolverAdapter adapts the directory service to the resolver
// interface the claim registry consumes: an unregistered hospital resolves to
// the zero address instead of an error, so the registry can treat "unknown"
// and "address mismatch" uniformly as unauthorized.
type DirectoryResolverAdapter struct {
	svc *directory.Service
}

func (a *DirectoryResolverAdapter) Resolve(ctx context.Context, name string) (common.Address, error) {
	addr, err := a.svc.Resolve(ctx, name)
	if errors.Is(err, directory.ErrNotFound) {
		return common.Address{}, nil
	}
	return addr, err
}

// FraudReviewerAdapter bridges the registry's claim shape to the fraud
// service's review input, avoiding an import cycle between the two domains.
type FraudReviewerAdapter struct {
	svc *fraud.Service
}

func (a *FraudReviewerAdapter) Review(ctx context.Context, c *registry.Claim) error {
	in := fraud.ReviewInput{
		ClaimID:           c.ID,
		Patient:           c.Patient,
		PharmacyConfirmed: c.PharmacyConfirmed,
	}
	if c.Hospital != nil {
		in.Illness = c.Hospital.Illness
		in.TreatmentDays = c.Hospital.TreatmentDays
	}
	if c.PharmacyConfirmedAt != nil {
		in.PharmacyConfirmedAt = *c.PharmacyConfirmedAt
	}
	return a.svc.Review(ctx, in)
}

// PayoutEngineAdapter bridges the registry's claim shape to the
// reimbursement engine's payout input.
type PayoutEngineAdapter struct {
	svc *reimburse.Service
}

func (a *PayoutEngineAdapter) Payout(ctx context.Context, c *registry.Claim) (int64, error) {
	in := reimburse.PayoutInput{
		ClaimID:  c.ID,
		Patient:  c.Patient,
		Province: c.Province,
	}
	if c.Hospital != nil {
		in.Medicines = c.Hospital.Medicines
		in.Amounts = c.Hospital.MedicineAmounts
	}
	return a.svc.Payout(ctx, in)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "claims-server",
		Short: "Medical insurance claim settlement API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(hospitalCmd())
	rootCmd.AddCommand(priceCmd())
	rootCmd.AddCommand(rateCmd())
	rootCmd.AddCommand(fundCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the claims API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			_, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(context.Background())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			_, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
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
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// hospitalCmd registers a hospital address from the command line, acting as
// the configured authority. Useful for bootstrapping before any client holds
// a token.
func hospitalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hospital",
		Short: "Manage the hospital directory",
	}

	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register or update a hospital's signing address",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			address, _ := cmd.Flags().GetString("address")
			if name == "" || address == "" {
				return fmt.Errorf("--name and --address are required")
			}
			if !common.IsHexAddress(address) {
				return fmt.Errorf("%q is not a valid address", address)
			}

			cfg, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := directory.NewService(directory.NewHospitalRepoPG(pool), cfg.Authority(), nil)
			h, err := svc.Register(context.Background(), cfg.Authority(), name, common.HexToAddress(address))
			if err != nil {
				return err
			}
			fmt.Printf("Registered %q -> %s\n", h.Name, h.Address.Hex())
			return nil
		},
	}
	registerCmd.Flags().String("name", "", "Hospital name")
	registerCmd.Flags().String("address", "", "Hospital signing address (0x...)")
	cmd.AddCommand(registerCmd)

	return cmd
}

func priceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Manage drug prices",
	}

	setCmd := &cobra.Command{
		Use:   "set <drug> <price>",
		Short: "Set the unit price for a drug",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid price %q", args[1])
			}

			_, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := newReimburseService(pool)
			if err := svc.SetPrice(context.Background(), args[0], price); err != nil {
				return err
			}
			fmt.Printf("Price of %q set to %d\n", args[0], price)
			return nil
		},
	}
	cmd.AddCommand(setCmd)

	return cmd
}

func rateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Manage provincial reimbursement rates",
	}

	setCmd := &cobra.Command{
		Use:   "set <province> <drug> <percent>",
		Short: "Set the reimbursement percentage for a drug in a province",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid percent %q", args[2])
			}

			_, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := newReimburseService(pool)
			if err := svc.SetRate(context.Background(), args[0], args[1], percent); err != nil {
				return err
			}
			fmt.Printf("Rate for %q in %q set to %d%%\n", args[1], args[0], percent)
			return nil
		},
	}
	cmd.AddCommand(setCmd)

	return cmd
}

func fundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fund <amount>",
		Short: "Deposit into the reimbursement pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}

			_, pool, err := connect()
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := newReimburseService(pool)
			balance, err := svc.Deposit(context.Background(), amount)
			if err != nil {
				return err
			}
			fmt.Printf("Deposited %d; pool balance is now %d\n", amount, balance)
			return nil
		},
	}
}

func connect() (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func newReimburseService(pool *pgxpool.Pool) *reimburse.Service {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	return reimburse.NewService(
		reimburse.NewPriceRepoPG(pool),
		reimburse.NewRateRepoPG(pool),
		reimburse.NewFundsRepoPG(pool),
		logger,
	)
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Event hub
	hub := notification.NewHub(cfg.EventCapacity)

	// Domain services
	directorySvc := directory.NewService(directory.NewHospitalRepoPG(pool), cfg.Authority(), hub)
	fraudSvc := fraud.NewService(fraud.NewHistoryRepoPG(pool))
	reimburseSvc := reimburse.NewService(
		reimburse.NewPriceRepoPG(pool),
		reimburse.NewRateRepoPG(pool),
		reimburse.NewFundsRepoPG(pool),
		logger,
	)
	registrySvc := registry.NewService(
		registry.NewClaimRepoPG(pool),
		registry.NewUsedSignatureRepoPG(pool),
		&DirectoryResolverAdapter{svc: directorySvc},
		sigcheck.New(),
		&FraudReviewerAdapter{svc: fraudSvc},
		&PayoutEngineAdapter{svc: reimburseSvc},
		db.NewRunner(pool),
		hub,
		cfg.Authority(),
		logger,
	)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.Timeout(time.Duration(cfg.RequestTimeout) * time.Second))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(cfg.Authority()))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
		}))
	}

	// API group
	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Routes
	registry.NewHandler(registrySvc).RegisterRoutes(apiV1)
	directory.NewHandler(directorySvc).RegisterRoutes(apiV1)
	fraud.NewHandler(fraudSvc).RegisterRoutes(apiV1)
	reimburse.NewHandler(reimburseSvc).RegisterRoutes(apiV1)
	notification.NewHandler(hub).RegisterRoutes(apiV1)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
