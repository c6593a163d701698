// Command billingctl — служебные команды биллинга: миграции, таблица тарифов,
// ручная синхронизация подписки и выпуск токенов для локальной разработки.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/saas-billing/internal/cache"
	"github.com/magabrotheeeer/saas-billing/internal/config"
	"github.com/magabrotheeeer/saas-billing/internal/lib/jwt"
	"github.com/magabrotheeeer/saas-billing/internal/migrations"
	"github.com/magabrotheeeer/saas-billing/internal/paymentprovider"
	customerservice "github.com/magabrotheeeer/saas-billing/internal/services/customer"
	subscriptionservice "github.com/magabrotheeeer/saas-billing/internal/services/subscription"
	webhookservice "github.com/magabrotheeeer/saas-billing/internal/services/webhook"
	"github.com/magabrotheeeer/saas-billing/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "billingctl",
		Short:         "Billing maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newMigrateCmd(),
		newPlansCmd(),
		newSyncSubscriptionCmd(),
		newTokenCmd(),
	)
	return root
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := storage.New(cmd.Context(), cfg.StorageConnectionString)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := migrations.RunPool(db.Pool, cfg.MigrationsPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "Show the plan table and billing configuration problems",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			plans := cfg.Stripe.Plans()
			keys := make([]string, 0, len(plans))
			for key := range plans {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(out, "%-12s %s\n", key, plans[key])
			}

			if err := cfg.Stripe.Validate(); err != nil {
				fmt.Fprintf(out, "\nnot configured: %s\n", err)
				return nil
			}
			fmt.Fprintln(out, "\nbilling is configured")
			return nil
		},
	}
}

func newSyncSubscriptionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-subscription <billing-subscription-id>",
		Short: "Re-read a subscription from Stripe and store its current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := newLogger()

			db, err := storage.New(ctx, cfg.StorageConnectionString)
			if err != nil {
				return err
			}
			defer db.Close()

			cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
			if err != nil {
				return err
			}
			defer cacheRedis.Close()

			provider := paymentprovider.New(cfg.Stripe.SecretKey)
			ledger := subscriptionservice.NewService(db, cacheRedis, cfg.CacheTTL, log)
			customers := customerservice.NewService(db, provider, cacheRedis, log)
			ingestor := webhookservice.NewService(customers, ledger, provider, nil, log)

			if err := ingestor.SyncSubscription(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "subscription %s synced\n", args[0])
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		name  string
		email string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an identity token for local development",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			token, err := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.Issuer, ttl).GenerateToken(args[0], name, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
