package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/changheecho2/banju/internal/apperr"
	"github.com/changheecho2/banju/internal/config"
	"github.com/changheecho2/banju/internal/metrics"
	"github.com/changheecho2/banju/internal/models"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	eventCheckoutCompleted = "checkout.session.completed"
	metadataRequestID      = "requestId"
	acceptFeeProductName   = "요청 수락 비용"
)

// CheckoutSessionCreator creates Stripe Checkout Sessions. Satisfied by the
// CheckoutSessions client of a stripe client.API.
type CheckoutSessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway charges the acceptance fee through Stripe Checkout.
type StripeGateway struct {
	cfg       *config.Config
	confirmer Confirmer
	sessions  CheckoutSessionCreator
	deduper   EventDeduper
}

// NewStripeGateway creates a Stripe gateway. A nil sessions creator builds one
// from cfg.StripeSecretKey. A nil deduper disables event de-duplication.
func NewStripeGateway(cfg *config.Config, c Confirmer, sessions CheckoutSessionCreator, deduper EventDeduper) *StripeGateway {
	if sessions == nil && cfg.StripeSecretKey != "" {
		sc := &client.API{}
		sc.Init(cfg.StripeSecretKey, nil)
		sessions = sc.CheckoutSessions
	}
	return &StripeGateway{cfg: cfg, confirmer: c, sessions: sessions, deduper: deduper}
}

func (g *StripeGateway) Mode() string { return ModeStripe }

// Initiate opens a Checkout Session for the acceptance fee. The request
// stays pending until the completed-session webhook arrives.
func (g *StripeGateway) Initiate(ctx context.Context, req *models.ServiceRequest) (*Outcome, error) {
	if g.cfg.StripeSecretKey == "" || g.sessions == nil {
		return nil, apperr.New(apperr.CodeFailedPrecondition, "Stripe 비밀키 설정이 필요합니다.")
	}
	if g.cfg.StripeSuccessURL == "" || g.cfg.StripeCancelURL == "" {
		return nil, apperr.New(apperr.CodeFailedPrecondition, "결제 URL 설정이 필요합니다.")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyKRW)),
				UnitAmount: stripe.Int64(g.cfg.AcceptFeeKRW),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(acceptFeeProductName),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(g.cfg.StripeSuccessURL),
		CancelURL:  stripe.String(g.cfg.StripeCancelURL),
	}
	params.Context = ctx
	params.AddMetadata(metadataRequestID, req.ID)

	session, err := g.sessions.New(params)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "결제 세션 생성에 실패했습니다.", err)
	}
	if err := g.confirmer.RecordSession(ctx, req.ID, session.ID); err != nil {
		return nil, err
	}
	log.Printf("DEBUG: checkout session %s created for request %s", session.ID, req.ID)
	return &Outcome{SessionID: session.ID, URL: session.URL}, nil
}

// HandleWebhook verifies a Stripe event and applies completed checkouts.
// Unknown or already processed requests are acknowledged so Stripe stops
// redelivering them.
func (g *StripeGateway) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if g.cfg.StripeWebhookSecret == "" {
		metrics.WebhookEvents.WithLabelValues(metrics.WebhookUnconfigured).Inc()
		return nil, ErrWebhookNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(metrics.WebhookBadSignature).Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	received := &WebhookResult{Received: true}
	if event.Type != eventCheckoutCompleted {
		metrics.WebhookEvents.WithLabelValues(metrics.WebhookIgnored).Inc()
		return received, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		log.Printf("WARN: undecodable checkout session in event %s: %v", event.ID, err)
		metrics.WebhookEvents.WithLabelValues(metrics.WebhookIgnored).Inc()
		return received, nil
	}
	requestID := session.Metadata[metadataRequestID]
	if requestID == "" {
		metrics.WebhookEvents.WithLabelValues(metrics.WebhookIgnored).Inc()
		return received, nil
	}

	if g.deduper != nil {
		first, err := g.deduper.MarkProcessing(ctx, event.ID)
		if err != nil {
			log.Printf("WARN: webhook dedupe unavailable for event %s: %v", event.ID, err)
		} else if !first {
			metrics.WebhookEvents.WithLabelValues(metrics.WebhookDuplicate).Inc()
			return received, nil
		}
	}

	sessionID := session.ID
	if _, err := g.confirmer.ConfirmPayment(ctx, requestID, &sessionID); err != nil {
		if apperr.Is(err, apperr.CodeNotFound) || apperr.Is(err, apperr.CodeFailedPrecondition) {
			log.Printf("DEBUG: webhook event %s for request %s ignored: %v", event.ID, requestID, err)
			metrics.WebhookEvents.WithLabelValues(metrics.WebhookIgnored).Inc()
			return received, nil
		}
		if g.deduper != nil {
			if ferr := g.deduper.Forget(ctx, event.ID); ferr != nil {
				log.Printf("WARN: failed to clear dedupe mark for event %s: %v", event.ID, ferr)
			}
		}
		metrics.WebhookEvents.WithLabelValues(metrics.WebhookFailed).Inc()
		return nil, fmt.Errorf("failed to confirm payment for request %s: %w", requestID, err)
	}

	metrics.WebhookEvents.WithLabelValues(metrics.WebhookApplied).Inc()
	return received, nil
}

// IsClientError reports whether a webhook error should be answered with 400.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidSignature)
}
