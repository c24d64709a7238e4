package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	postgresRepo "github.com/iho/gojournal/internal/adapter/repository/postgres"
	"github.com/iho/gojournal/internal/domain"
	"github.com/iho/gojournal/internal/infrastructure/auth"
	"github.com/iho/gojournal/internal/infrastructure/config"
	"github.com/iho/gojournal/internal/infrastructure/eventpublisher"
	"github.com/iho/gojournal/internal/infrastructure/logger"
	"github.com/iho/gojournal/internal/infrastructure/postgres"
)

// loadConfig is swapped in tests.
var loadConfig = config.Load

func setupLogger(cfg *config.Config) zerolog.Logger {
	l := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.ServiceName + "-cli",
	})
	log.Logger = l
	return l
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	run := func(down bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			m := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, setupLogger(cfg))
			if down {
				return m.Down()
			}
			return m.Up()
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", RunE: run(false)},
		&cobra.Command{Use: "down", Short: "Roll back the last migration", RunE: run(true)},
	)
	return cmd
}

func outboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Relay journal events from the outbox",
	}

	relayCmd := &cobra.Command{
		Use:   "relay",
		Short: "Continuously relay unpublished events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withPublisher(ctx, func(p *eventpublisher.EventPublisher) error {
				err := p.Start(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}

	drainCmd := &cobra.Command{
		Use:   "drain",
		Short: "Relay every pending event once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			return withPublisher(ctx, func(p *eventpublisher.EventPublisher) error {
				n, err := p.Drain(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Relayed %d events\n", n)
				return p.Cleanup(ctx)
			})
		},
	}

	cmd.AddCommand(relayCmd, drainCmd)
	return cmd
}

func withPublisher(ctx context.Context, fn func(*eventpublisher.EventPublisher) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	l := setupLogger(cfg)

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       2,
		MinConns:       0,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: postgresRepo.NewOutboxRepository(pool),
		Publisher:  eventpublisher.NewLogPublisher(l),
		Logger:     l,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})
	return fn(publisher)
}

func tokenCmd() *cobra.Command {
	var (
		role     string
		branches []string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <actor-id>",
		Short: "Issue a bearer token signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}

			r := domain.Role(role)
			if !r.IsValid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if ttl <= 0 {
				ttl = cfg.JWTExpiration
			}

			signed, err := auth.NewJWTManager(cfg.JWTSecret, ttl).Generate(domain.Actor{
				ID:       args[0],
				Role:     r,
				Branches: branches,
			})
			if err != nil {
				return err
			}
			fmt.Println(signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(domain.RoleViewer), "Actor role (admin, accountant, clerk, viewer)")
	cmd.Flags().StringSliceVar(&branches, "branch", nil, "Branches the actor may touch (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to JWT_EXPIRATION)")
	return cmd
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
