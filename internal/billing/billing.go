// Package billing sells credit packs through Stripe Checkout.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/reelprompt/reelprompt/internal/events"
	"github.com/reelprompt/reelprompt/internal/model"
	"github.com/reelprompt/reelprompt/internal/repository"
)

const eventCheckoutCompleted = "checkout.session.completed"

// Common billing errors.
var (
	ErrUnknownPack      = errors.New("unknown credit pack")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)

// Store persists credit top-ups.
type Store interface {
	ApplyTopUp(ctx context.Context, eventID, eventType, userID string, amount model.Credits) (model.Credits, error)
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error
	GetUserByStripeCustomer(ctx context.Context, customerID string) (*model.User, error)
}

// Config holds Stripe settings.
type Config struct {
	SecretKey     string
	WebhookSecret string
	FrontendURL   string
	Packs         map[string]CreditPack
}

// Service creates checkout sessions and applies completed payments.
type Service struct {
	packs         map[string]CreditPack
	webhookSecret string
	frontendURL   string
	store         Store
	publisher     events.Publisher
	logger        *slog.Logger

	newSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// New creates a billing service and sets the Stripe API key.
func New(cfg Config, store Store, publisher events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	stripe.Key = cfg.SecretKey

	return &Service{
		packs:         cfg.Packs,
		webhookSecret: cfg.WebhookSecret,
		frontendURL:   strings.TrimRight(cfg.FrontendURL, "/"),
		store:         store,
		publisher:     publisher,
		logger:        logger.With("component", "billing"),
		newSession:    session.New,
	}
}

// Packs lists the configured packs, smallest first.
func (s *Service) Packs() []CreditPack {
	return sortedPacks(s.packs)
}

// Checkout starts a payment-mode Checkout Session for pack and returns its URL.
func (s *Service) Checkout(ctx context.Context, identity *model.Identity, pack string) (string, error) {
	p, ok := s.packs[pack]
	if !ok {
		return "", ErrUnknownPack
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(identity.UID),
		SuccessURL:        stripe.String(s.frontendURL + "/credits/success"),
		CancelURL:         stripe.String(s.frontendURL + "/credits"),
	}
	if identity.Email != "" {
		params.CustomerEmail = stripe.String(identity.Email)
	}
	params.Context = ctx
	params.AddMetadata("user_id", identity.UID)
	params.AddMetadata("pack", p.Name)

	sess, err := s.newSession(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.logger.Info("checkout_created", "user_id", identity.UID, "pack", p.Name, "session_id", sess.ID)
	return sess.URL, nil
}

// HandleWebhook verifies and applies a Stripe event. Replayed events are
// acknowledged without crediting again.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		s.logger.Warn("webhook_signature_failed", "error", err)
		return ErrInvalidSignature
	}

	if string(event.Type) != eventCheckoutCompleted {
		s.logger.Debug("webhook_ignored", "event_id", event.ID, "type", event.Type)
		return nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		s.logger.Info("webhook_unpaid_session", "event_id", event.ID, "session_id", sess.ID)
		return nil
	}

	userID, err := s.resolveUser(ctx, &sess)
	if err != nil {
		return err
	}
	pack, ok := s.packs[sess.Metadata["pack"]]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPack, sess.Metadata["pack"])
	}

	balance, err := s.store.ApplyTopUp(ctx, event.ID, string(event.Type), userID, pack.Credits)
	if err != nil {
		if errors.Is(err, repository.ErrEventProcessed) {
			s.logger.Info("webhook_duplicate", "event_id", event.ID)
			return nil
		}
		return fmt.Errorf("failed to apply top-up: %w", err)
	}

	if sess.Customer != nil && sess.Customer.ID != "" {
		if err := s.store.SetStripeCustomerID(ctx, userID, sess.Customer.ID); err != nil {
			s.logger.Warn("link_customer_failed", "user_id", userID, "error", err)
		}
	}

	s.logger.Info("top_up_applied",
		"user_id", userID,
		"pack", pack.Name,
		"credits", pack.Credits.String(),
		"balance", balance.String(),
	)
	if s.publisher != nil {
		s.publisher.Publish(ctx, events.BalanceEvent{UserID: userID, Credits: balance, Reason: events.ReasonTopUp})
	}
	return nil
}

// resolveUser finds the account a paid session belongs to: the client
// reference, then the metadata, then a customer linked by an earlier top-up.
func (s *Service) resolveUser(ctx context.Context, sess *stripe.CheckoutSession) (string, error) {
	if sess.ClientReferenceID != "" {
		return sess.ClientReferenceID, nil
	}
	if id := sess.Metadata["user_id"]; id != "" {
		return id, nil
	}
	if sess.Customer == nil || sess.Customer.ID == "" {
		return "", fmt.Errorf("%w: missing user id", ErrInvalidPayload)
	}

	user, err := s.store.GetUserByStripeCustomer(ctx, sess.Customer.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", fmt.Errorf("%w: unknown customer %s", ErrInvalidPayload, sess.Customer.ID)
		}
		return "", fmt.Errorf("failed to resolve customer: %w", err)
	}
	s.logger.Info("webhook_user_from_customer", "session_id", sess.ID, "user_id", user.ID)
	return user.ID, nil
}
