package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"checkops/internal/api"
	"checkops/internal/api/handlers"
	"checkops/internal/api/middleware"
	"checkops/internal/engine/accounts"
	"checkops/internal/engine/billing"
	"checkops/internal/engine/branches"
	"checkops/internal/engine/checklists"
	"checkops/internal/engine/dashboard"
	"checkops/internal/engine/departments"
	"checkops/internal/engine/environments"
	"checkops/internal/engine/wizard"
	"checkops/internal/pkg/logger"
	"checkops/internal/pkg/mailer"
	"checkops/internal/platform/audit"
	"checkops/internal/platform/auth"
	"checkops/internal/platform/config"
	"checkops/internal/platform/database"
	"checkops/internal/platform/repositories"
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

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	free, err := repositories.NewPlanRepository(db).GetByName(ctx, cfg.Billing.FreePlanName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to look up free plan")
	}
	if free == nil {
		log.Error().Str("plan", cfg.Billing.FreePlanName).Msg("Free plan missing, registration will fail until plans are seeded")
	}

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)
	auditLogger := audit.NewLogger(repositories.NewLoginLogRepository(db))
	defer auditLogger.Wait()

	accountSvc := accounts.NewService(db, tokenSvc, auditLogger, mailer.New(cfg.Email), accounts.Config{
		FreePlanName:  cfg.Billing.FreePlanName,
		ResetTokenTTL: cfg.PasswordReset.TokenTTL,
		ResetURL:      cfg.PasswordReset.ResetURL,
	})
	branchSvc := branches.NewService(db, tokenSvc)
	deptSvc := departments.NewService(db)
	envSvc := environments.NewService(db)
	wizardSvc := wizard.NewService(db, deptSvc, envSvc)
	checklistSvc := checklists.NewService(db)
	dashboardSvc := dashboard.NewService(dashboard.NewRepository(db))
	billingSvc := billing.NewService(db, billing.NewStripeProvider(cfg.Stripe), billing.Config{
		Currency:           cfg.Stripe.Currency,
		FreePlanName:       cfg.Billing.FreePlanName,
		SubscriptionPeriod: cfg.Billing.SubscriptionPeriod,
		PlanCacheTTL:       cfg.Billing.PlanCacheTTL,
	})

	// Handlers
	cookies := handlers.NewSessionCookies(cfg.Session, cfg.JWT)
	deps := &api.Dependencies{
		AuthHandler:        handlers.NewAuthHandler(accountSvc, cookies),
		UserHandler:        handlers.NewUserHandler(accountSvc, billingSvc),
		AuditHandler:       handlers.NewAuditHandler(auditLogger),
		WizardHandler:      handlers.NewWizardHandler(wizardSvc),
		BranchHandler:      handlers.NewBranchHandler(branchSvc, cookies),
		DepartmentHandler:  handlers.NewDepartmentHandler(deptSvc),
		EnvironmentHandler: handlers.NewEnvironmentHandler(envSvc),
		ChecklistHandler:   handlers.NewChecklistHandler(checklistSvc, cfg.Server.PublicURL),
		BillingHandler:     handlers.NewBillingHandler(billingSvc),
		WebhookHandler:     handlers.NewWebhookHandler(billingSvc),
		DashboardHandler:   handlers.NewDashboardHandler(dashboardSvc),
		HealthHandler:      handlers.NewHealthHandler(db),
		AuthMiddleware:     middleware.NewAuthMiddleware(tokenSvc, cfg.Session.CookieName),
		BranchMiddleware:   middleware.NewBranchMiddleware(branchSvc),
		AuthRateLimiter:    middleware.NewRateLimiter(cfg.RateLimit.AuthPerMinute),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
