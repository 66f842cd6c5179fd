package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"checkops/internal/engine/accounts"
	"checkops/internal/engine/billing"
	"checkops/internal/pkg/logger"
	"checkops/internal/pkg/mailer"
	"checkops/internal/platform/audit"
	"checkops/internal/platform/auth"
	"checkops/internal/platform/config"
	"checkops/internal/platform/database"
	"checkops/internal/platform/repositories"
	"checkops/internal/workers"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	billingSvc := billing.NewService(db, billing.NewStripeProvider(cfg.Stripe), billing.Config{
		Currency:           cfg.Stripe.Currency,
		FreePlanName:       cfg.Billing.FreePlanName,
		SubscriptionPeriod: cfg.Billing.SubscriptionPeriod,
	})
	accountSvc := accounts.NewService(db, auth.NewTokenService(cfg.JWT),
		audit.NewLogger(repositories.NewLoginLogRepository(db)), mailer.New(cfg.Email), accounts.Config{
			FreePlanName:  cfg.Billing.FreePlanName,
			ResetTokenTTL: cfg.PasswordReset.TokenTTL,
		})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("Starting background workers")
	workers.Run(ctx, []workers.Job{
		{Name: "billing_event_retry", Interval: cfg.Workers.EventRetryInterval, Run: workers.RetryBillingEvents(billingSvc)},
		{Name: "subscription_expiry", Interval: cfg.Workers.SubscriptionSweepInterval, Run: workers.ExpireSubscriptions(billingSvc)},
		{Name: "reset_token_purge", Interval: cfg.Workers.ResetTokenSweepInterval, Run: workers.PurgeResetTokens(accountSvc)},
	})
	log.Info().Msg("Workers stopped")
}
