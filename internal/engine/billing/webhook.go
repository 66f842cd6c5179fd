package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "checkops/internal/pkg/errors"
	"checkops/internal/platform/database"
	"checkops/internal/platform/models"
)

// HandleWebhook verifies and records a provider notification, then applies
// it. Events already processed are acknowledged without side effects.
// Processing failures are stored on the event for the retry worker and are
// not returned.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.VerifyEvent(payload, signature)
	if err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "Invalid webhook signature", err)
	}

	record := &models.BillingEvent{
		ID:              "bev_" + uuid.NewString(),
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		Status:          models.EventPending,
		Payload:         payload,
		CreatedAt:       time.Now().Unix(),
	}
	inserted, err := s.events.Record(ctx, record)
	if err != nil {
		return err
	}
	if !inserted {
		existing, err := s.events.GetByProviderID(ctx, ev.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("billing event %s vanished", ev.ID)
		}
		if existing.Status == models.EventProcessed {
			log.Debug().Str("event_id", ev.ID).Msg("Billing event already processed")
			return nil
		}
		record = existing
	}

	s.apply(ctx, record, ev)
	return nil
}

// RetryFailedEvents reprocesses failed events and pending events older than
// staleAfter, up to limit, and returns how many succeeded.
func (s *Service) RetryFailedEvents(ctx context.Context, staleAfter time.Duration, maxAttempts, limit int) (int, error) {
	events, err := s.events.ListRetryable(ctx, time.Now().Add(-staleAfter).Unix(), maxAttempts, limit)
	if err != nil {
		return 0, err
	}

	succeeded := 0
	for _, record := range events {
		ev, err := s.provider.DecodeEvent(record.Payload)
		if err != nil {
			s.markFailed(ctx, record, err)
			continue
		}
		if s.apply(ctx, record, ev) {
			succeeded++
		}
	}
	return succeeded, nil
}

func (s *Service) apply(ctx context.Context, record *models.BillingEvent, ev *Event) bool {
	if err := s.process(ctx, ev); err != nil {
		s.markFailed(ctx, record, err)
		return false
	}
	if err := s.events.MarkProcessed(ctx, record.ID); err != nil {
		log.Error().Err(err).Str("event_id", ev.ID).Msg("Failed to mark billing event processed")
		return false
	}
	log.Info().Str("event_id", ev.ID).Str("type", ev.Type).Msg("Billing event processed")
	return true
}

func (s *Service) markFailed(ctx context.Context, record *models.BillingEvent, cause error) {
	log.Warn().Err(cause).Str("event_id", record.ProviderEventID).Str("type", record.EventType).Msg("Billing event failed")
	if err := s.events.MarkFailed(ctx, record.ID, cause.Error()); err != nil {
		log.Error().Err(err).Str("event_id", record.ProviderEventID).Msg("Failed to mark billing event failed")
	}
}

func (s *Service) process(ctx context.Context, ev *Event) error {
	switch ev.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncSucceeded, EventCheckoutExpired, EventCheckoutAsyncFailed:
		if ev.Session == nil {
			return fmt.Errorf("event %s carries no checkout session", ev.ID)
		}
	}

	switch ev.Type {
	case EventCheckoutCompleted:
		// delayed payment methods settle through async_payment_succeeded
		if ev.Session.PaymentStatus != "paid" {
			return nil
		}
		return s.activate(ctx, ev.Session)
	case EventCheckoutAsyncSucceeded:
		return s.activate(ctx, ev.Session)
	case EventCheckoutExpired:
		return s.fail(ctx, ev.Session, false)
	case EventCheckoutAsyncFailed:
		return s.fail(ctx, ev.Session, true)
	}
	return nil
}

// activate completes a paid checkout. The user's other ACTIVE subscriptions
// are canceled, or the ACTIVE one on the same plan is extended by one
// period.
func (s *Service) activate(ctx context.Context, data *SessionData) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)
		subs := s.subs.WithTx(tx)

		cs, err := repo.GetSessionByProviderID(ctx, data.ID)
		if err != nil {
			return err
		}
		if cs == nil {
			return fmt.Errorf("checkout session %s not found", data.ID)
		}
		if cs.Status == models.CheckoutSucceeded {
			return nil
		}

		now := time.Now().Unix()
		period := int64(s.cfg.SubscriptionPeriod / time.Second)

		active, err := subs.GetActiveForUser(ctx, cs.UserID)
		if err != nil {
			return err
		}

		var subID string
		if active != nil && active.PlanID == cs.PlanID {
			base := now
			if active.EndsAt != nil && *active.EndsAt > now {
				base = *active.EndsAt
			}
			if err := subs.SetEndsAt(ctx, active.ID, base+period, now); err != nil {
				return err
			}
			subID = active.ID
		} else {
			if err := subs.CancelActive(ctx, cs.UserID, now); err != nil {
				return err
			}
			endsAt := now + period
			sub := &models.Subscription{
				ID:        "sub_" + uuid.NewString(),
				UserID:    cs.UserID,
				PlanID:    cs.PlanID,
				Status:    models.SubscriptionActive,
				StartsAt:  now,
				EndsAt:    &endsAt,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := subs.Create(ctx, sub); err != nil {
				return err
			}
			subID = sub.ID
		}

		if err := repo.UpdateSessionStatus(ctx, cs.ID, models.CheckoutSucceeded, &subID, now); err != nil {
			return err
		}
		if _, err := repo.CreatePayment(ctx, newPayment(cs, &subID, data, models.PaymentSucceeded, now)); err != nil {
			return err
		}

		log.Info().
			Str("user_id", cs.UserID).
			Str("plan_id", cs.PlanID).
			Str("subscription_id", subID).
			Msg("Subscription activated")
		return nil
	})
}

func (s *Service) fail(ctx context.Context, data *SessionData, recordPayment bool) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		repo := s.repo.WithTx(tx)

		cs, err := repo.GetSessionByProviderID(ctx, data.ID)
		if err != nil {
			return err
		}
		if cs == nil {
			return fmt.Errorf("checkout session %s not found", data.ID)
		}
		if cs.Status != models.CheckoutPending {
			return nil
		}

		now := time.Now().Unix()
		if err := repo.UpdateSessionStatus(ctx, cs.ID, models.CheckoutFailed, nil, now); err != nil {
			return err
		}
		if recordPayment {
			if _, err := repo.CreatePayment(ctx, newPayment(cs, nil, data, models.PaymentFailed, now)); err != nil {
				return err
			}
		}

		log.Info().Str("user_id", cs.UserID).Str("checkout_session_id", cs.ID).Msg("Checkout failed")
		return nil
	})
}

func newPayment(cs *models.CheckoutSession, subID *string, data *SessionData, status string, now int64) *models.Payment {
	p := &models.Payment{
		ID:                "pay_" + uuid.NewString(),
		UserID:            cs.UserID,
		SubscriptionID:    subID,
		CheckoutSessionID: &cs.ID,
		Status:            status,
		Amount:            cs.Amount,
		Currency:          cs.Currency,
		CreatedAt:         now,
	}
	if data.PaymentIntentID != "" {
		id := data.PaymentIntentID
		p.ProviderPaymentID = &id
	}
	return p
}
