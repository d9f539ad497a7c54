package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"care-portal-server/internal/config"
	"care-portal-server/internal/database"
	"care-portal-server/internal/goals"
	"care-portal-server/internal/jobs"
	"care-portal-server/internal/logger"
	"care-portal-server/internal/mailer"
	"care-portal-server/internal/middleware"
	"care-portal-server/internal/models"
	"care-portal-server/internal/progress"
	"care-portal-server/internal/routes"
	"care-portal-server/internal/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "care-portal-server",
		Short:         "Care portal API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())
	rootCmd.AddCommand(jobsCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", slog.Any("err", err))
		logger.Flush()
		os.Exit(1)
	}
}

// setup loads .env when present, then config, logging and the database.
func setup() (*config.Config, *gorm.DB, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(!cfg.IsProduction(), cfg.SentryDSN)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

// newGoalNotificationJob builds the sweep with configured thresholds, a
// durable lease and, when Resend is configured, e-mail delivery.
func newGoalNotificationJob(cfg *config.Config, db *gorm.DB) *jobs.GoalNotificationJob {
	gn := cfg.GoalNotifications
	opts := []jobs.Option{
		jobs.WithThresholds(progress.Thresholds{OnTrack: gn.OnTrackThreshold, Overdue: gn.OverdueThreshold}),
		jobs.WithLease(jobs.NewLease(db, jobs.GoalNotificationJobName, gn.LeaseTTL)),
	}
	if cfg.Mailer.ResendAPIKey != "" {
		m := mailer.New(cfg.Mailer.ResendAPIKey, cfg.Mailer.DefaultFrom, cfg.Mailer.AppName, !cfg.IsProduction())
		opts = append(opts, jobs.WithNotifier(m))
	}
	return jobs.NewGoalNotificationJob(db, opts...)
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

func runServer() error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer logger.Flush()
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	goalJob := newGoalNotificationJob(cfg, db)
	limiter := middleware.NewRateLimiter(cfg.AuthRateLimitPerMinute, 10*time.Minute)
	go limiter.RunCleanup(ctx, time.Minute)

	routes.SetupRoutes(router, db, cfg, routes.Deps{
		Goals:             goals.NewService(db),
		GoalNotifications: goalJob,
		AuthLimiter:       limiter,
	})

	var scheduler *jobs.Scheduler
	if cfg.GoalNotifications.Enabled {
		scheduler, err = jobs.NewScheduler(goalJob, cfg.GoalNotifications.Schedule, time.Local)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			slog.Error("scheduler shutdown failed", slog.Any("err", err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := setup()
			if err != nil {
				return err
			}
			defer logger.Flush()
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func seedAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			name, _ := cmd.Flags().GetString("name")
			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			if !utils.IsStrongPassword(password) {
				return fmt.Errorf("password must be at least 8 characters with an upper case letter, a lower case letter and a digit")
			}

			_, db, err := setup()
			if err != nil {
				return err
			}
			defer logger.Flush()
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return err
			}

			first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
			admin := models.User{
				Email:     email,
				FirstName: first,
				LastName:  strings.TrimSpace(last),
				Role:      models.RoleAdmin,
				Status:    models.UserStatusActive,
			}
			if err := admin.SetPassword(password); err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			if err := db.WithContext(cmd.Context()).Create(&admin).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("a user with email %s already exists", email)
				}
				return fmt.Errorf("create admin: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created (id %s)\n", admin.Email, admin.ID)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Admin e-mail address")
	cmd.Flags().String("password", "", "Admin password")
	cmd.Flags().String("name", "Admin", "Admin display name")
	return cmd
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Run background jobs once",
	}

	goalCmd := &cobra.Command{
		Use:   "goal-notifications",
		Short: "Run the goal reminder sweep and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			defer logger.Flush()
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return err
			}

			summary, err := newGoalNotificationJob(cfg, db).Run(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.AddCommand(goalCmd)
	return cmd
}
