package billing

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "checkops/internal/pkg/errors"
	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
	"checkops/internal/platform/repositories"
)

type Config struct {
	Currency           string
	FreePlanName       string
	SubscriptionPeriod time.Duration
	PlanCacheTTL       time.Duration
}

type Service struct {
	db       *sql.DB
	provider Provider
	cfg      Config
	cache    *PlanCache

	repo        *Repository
	plans       *repositories.PlanRepository
	subs        *repositories.SubscriptionRepository
	users       *repositories.UserRepository
	orgs        *repositories.OrganizationRepository
	memberships *repositories.MembershipRepository
	events      *repositories.BillingEventRepository
}

func NewService(db *sql.DB, provider Provider, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.FreePlanName == "" {
		cfg.FreePlanName = "Free"
	}
	if cfg.SubscriptionPeriod <= 0 {
		cfg.SubscriptionPeriod = 30 * 24 * time.Hour
	}
	return &Service{
		db:          db,
		provider:    provider,
		cfg:         cfg,
		cache:       NewPlanCache(cfg.PlanCacheTTL),
		repo:        NewRepository(db),
		plans:       repositories.NewPlanRepository(db),
		subs:        repositories.NewSubscriptionRepository(db),
		users:       repositories.NewUserRepository(db),
		orgs:        repositories.NewOrganizationRepository(db),
		memberships: repositories.NewMembershipRepository(db),
		events:      repositories.NewBillingEventRepository(db),
	}
}

func (s *Service) ListPlans(ctx context.Context) ([]*models.Plan, error) {
	if plans, ok := s.cache.Get(); ok {
		return plans, nil
	}
	plans, err := s.plans.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(plans)
	return plans, nil
}

func (s *Service) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	plan, err := s.findPlan(ctx, func(p *models.Plan) bool { return p.ID == id })
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, apperrors.NotFound("Plan")
	}
	return plan, nil
}

func (s *Service) findPlan(ctx context.Context, match func(*models.Plan) bool) (*models.Plan, error) {
	plans, err := s.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		if match(p) {
			return p, nil
		}
	}
	return nil, nil
}

type CurrentPlan struct {
	Plan         *models.Plan         `json:"plan"`
	Subscription *models.Subscription `json:"subscription,omitempty"`
}

// GetCurrentPlan returns the plan of the user's latest ACTIVE subscription,
// or the Free plan when there is none.
func (s *Service) GetCurrentPlan(ctx context.Context, userID string) (*CurrentPlan, error) {
	sub, err := s.subs.GetActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		plan, err := s.findPlan(ctx, func(p *models.Plan) bool { return p.ID == sub.PlanID })
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, apperrors.Newf(apperrors.KindDataIntegrity, "Plan %s of subscription %s is missing", sub.PlanID, sub.ID)
		}
		sub.Plan = plan
		return &CurrentPlan{Plan: plan, Subscription: sub}, nil
	}

	free, err := s.findPlan(ctx, func(p *models.Plan) bool { return p.Name == s.cfg.FreePlanName })
	if err != nil {
		return nil, err
	}
	if free == nil {
		return nil, apperrors.New(apperrors.KindDataIntegrity, s.cfg.FreePlanName+" plan is missing")
	}
	return &CurrentPlan{Plan: free}, nil
}

// CreateCustomer registers the user with the payment provider and stores
// the customer id.
func (s *Service) CreateCustomer(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", apperrors.NotFound("User")
	}
	if user.StripeCustomerID != nil {
		return "", apperrors.New(apperrors.KindConflict, "User already has a payment account")
	}

	customerID, err := s.provider.CreateCustomer(ctx, user.Email, user.Name)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindUpstream, "Payment provider error", err)
	}

	ok, err := s.users.SetStripeCustomerID(ctx, user.ID, customerID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.New(apperrors.KindConflict, "User already has a payment account")
	}

	log.Info().Str("user_id", user.ID).Str("customer_id", customerID).Msg("Payment customer created")
	return customerID, nil
}

type CheckoutResult struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// CreateCheckoutSession starts a one-time payment for the plan. A user
// without an organization gets a blank placeholder one, completed later by
// the wizard.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, planID string) (*CheckoutResult, error) {
	if strings.TrimSpace(planID) == "" {
		return nil, apperrors.Validation("", "planId")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}

	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.IsCustom || !plan.Price.IsPositive() {
		return nil, apperrors.New(apperrors.KindPreconditionFailed, "Plan cannot be purchased online")
	}

	orgID, err := s.ensureOrganization(ctx, user)
	if err != nil {
		return nil, err
	}

	if user.StripeCustomerID == nil {
		return nil, apperrors.New(apperrors.KindPreconditionFailed, "User has no payment account")
	}

	now := time.Now().Unix()
	cs := &models.CheckoutSession{
		ID:             "cs_" + uuid.NewString(),
		UserID:         user.ID,
		OrganizationID: orgID,
		PlanID:         plan.ID,
		Status:         models.CheckoutPending,
		Amount:         plan.Price,
		Currency:       s.cfg.Currency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	ps, err := s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		CustomerID:  *user.StripeCustomerID,
		ProductName: plan.Name,
		Amount:      plan.Price,
		Currency:    s.cfg.Currency,
		Metadata: map[string]string{
			"planId":            plan.ID,
			"organizationId":    orgID,
			"userId":            user.ID,
			"checkoutSessionId": cs.ID,
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindUpstream, "Payment provider error", err)
	}

	cs.ProviderSessionID = &ps.ID
	if err := s.repo.CreateSession(ctx, cs); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", user.ID).
		Str("plan_id", plan.ID).
		Str("checkout_session_id", cs.ID).
		Msg("Checkout session created")
	return &CheckoutResult{SessionID: cs.ID, URL: ps.URL}, nil
}

func (s *Service) ensureOrganization(ctx context.Context, user *models.User) (string, error) {
	if user.OrganizationID != nil {
		return *user.OrganizationID, nil
	}

	now := time.Now().Unix()
	org := &models.Organization{ID: "org_" + uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.orgs.WithTx(tx).Create(ctx, org); err != nil {
			return err
		}
		if err := s.memberships.WithTx(tx).Create(ctx, &models.Membership{
			UserID:         user.ID,
			OrganizationID: org.ID,
			ProfileID:      user.ProfileID,
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		return s.users.WithTx(tx).SetOrganization(ctx, user.ID, org.ID)
	})
	if err != nil {
		return "", err
	}

	user.OrganizationID = &org.ID
	log.Info().Str("user_id", user.ID).Str("organization_id", org.ID).Msg("Placeholder organization created")
	return org.ID, nil
}

// ListPayments returns the user's payments, newest first, each with its
// subscription and plan.
func (s *Service) ListPayments(ctx context.Context, userID string) ([]*models.Payment, error) {
	payments, err := s.repo.ListPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if p.SubscriptionID == nil {
			continue
		}
		if p.Subscription, err = s.subscriptionWithPlan(ctx, *p.SubscriptionID); err != nil {
			return nil, err
		}
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return payments, nil
}

func (s *Service) ListCheckoutSessions(ctx context.Context, userID string) ([]*models.CheckoutSession, error) {
	sessions, err := s.repo.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, cs := range sessions {
		cs.Plan, err = s.findPlan(ctx, func(p *models.Plan) bool { return p.ID == cs.PlanID })
		if err != nil {
			return nil, err
		}
		if cs.SubscriptionID == nil {
			continue
		}
		if cs.Subscription, err = s.subscriptionWithPlan(ctx, *cs.SubscriptionID); err != nil {
			return nil, err
		}
	}
	if sessions == nil {
		sessions = []*models.CheckoutSession{}
	}
	return sessions, nil
}

func (s *Service) subscriptionWithPlan(ctx context.Context, id string) (*models.Subscription, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil || sub == nil {
		return nil, err
	}
	sub.Plan, err = s.findPlan(ctx, func(p *models.Plan) bool { return p.ID == sub.PlanID })
	return sub, err
}

// ExpireSubscriptions marks ACTIVE subscriptions whose end has passed as
// EXPIRED and returns how many were changed.
func (s *Service) ExpireSubscriptions(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.subs.ListExpired(ctx, now.Unix())
	if err != nil {
		return 0, err
	}
	for _, sub := range expired {
		if err := s.subs.SetStatus(ctx, sub.ID, models.SubscriptionExpired, now.Unix()); err != nil {
			return 0, err
		}
		log.Info().Str("subscription_id", sub.ID).Str("user_id", sub.UserID).Msg("Subscription expired")
	}
	return len(expired), nil
}
