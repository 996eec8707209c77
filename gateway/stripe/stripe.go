// Package stripe implements the payment gateway on Stripe hosted
// checkout sessions.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	stripesdk "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/xraph/enroll"
	"github.com/xraph/enroll/gateway"
)

// Config holds the Stripe credentials.
type Config struct {
	// APIKey is the secret key used for API calls.
	APIKey string
	// WebhookSecret is the endpoint signing secret used to verify
	// notification signatures.
	WebhookSecret string
}

// Gateway is the Stripe-backed payment gateway.
type Gateway struct {
	api           *client.API
	webhookSecret string
	logger        *slog.Logger
}

var _ gateway.Gateway = (*Gateway)(nil)

// Option configures the gateway.
type Option func(*Gateway)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New creates a Stripe gateway from config.
func New(cfg Config, opts ...Option) (*Gateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("stripe: api key required: %w", enroll.ErrInvalidInput)
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("stripe: webhook secret required: %w", enroll.ErrInvalidInput)
	}
	api := &client.API{}
	api.Init(cfg.APIKey, nil)
	g := &Gateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// CreateCheckoutSession opens a hosted checkout session priced from the
// purchase's frozen amount. The purchase ID travels in session metadata
// so provider-side tooling can trace it back.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	params := &stripesdk.CheckoutSessionParams{
		Mode:       stripesdk.String(string(stripesdk.CheckoutSessionModePayment)),
		SuccessURL: stripesdk.String(req.SuccessURL),
		CancelURL:  stripesdk.String(req.CancelURL),
		LineItems: []*stripesdk.CheckoutSessionLineItemParams{{
			Quantity: stripesdk.Int64(1),
			PriceData: &stripesdk.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripesdk.String(strings.ToLower(req.Amount.Currency)),
				UnitAmount: stripesdk.Int64(req.Amount.Amount),
				ProductData: &stripesdk.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripesdk.String(req.CourseTitle),
				},
			},
		}},
	}
	params.Context = ctx
	params.AddMetadata("purchase_id", req.PurchaseID.String())
	params.AddMetadata("user_id", req.UserID.String())
	params.AddMetadata("course_id", req.CourseID.String())

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.logger.Error("stripe checkout session creation failed",
			slog.String("purchase_id", req.PurchaseID.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("stripe: create checkout session: %w", enroll.ErrGatewayUnavailable)
	}
	return &gateway.CheckoutSession{
		CorrelationID: sess.ID,
		URL:           sess.URL,
	}, nil
}

// VerifyAndParse checks the Stripe-Signature header against the raw
// payload and maps the event to a normalized notification. Event types
// the reconciler does not act on yield (nil, nil) after verification.
func (g *Gateway) VerifyAndParse(payload []byte, headers map[string]string) (*gateway.Notification, error) {
	sig := headers["Stripe-Signature"]
	if sig == "" {
		return nil, fmt.Errorf("stripe: missing signature header: %w", enroll.ErrUnauthenticatedNotification)
	}
	event, err := webhook.ConstructEvent(payload, sig, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripe: signature verification: %w", enroll.ErrUnauthenticatedNotification)
	}

	var outcome gateway.Outcome
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		outcome = gateway.OutcomeSucceeded
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		outcome = gateway.OutcomeFailed
	default:
		g.logger.Debug("stripe event ignored", slog.String("type", string(event.Type)))
		return nil, nil
	}

	var sess stripesdk.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("stripe: decode event payload: %w", err)
	}
	// A completed session that is not paid yet settles later through an
	// async_payment event.
	if event.Type == "checkout.session.completed" && sess.PaymentStatus == stripesdk.CheckoutSessionPaymentStatusUnpaid {
		g.logger.Debug("stripe session completed but unpaid, awaiting async payment",
			slog.String("session_id", sess.ID))
		return nil, nil
	}

	return &gateway.Notification{
		CorrelationID: sess.ID,
		Outcome:       outcome,
		EventID:       event.ID,
		Raw:           string(event.Type),
	}, nil
}

// LookupSession fetches the provider's current view of a session.
func (g *Gateway) LookupSession(ctx context.Context, correlationID string) (*gateway.SessionState, error) {
	params := &stripesdk.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.api.CheckoutSessions.Get(correlationID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: lookup session %s: %w", correlationID, enroll.ErrGatewayUnavailable)
	}
	state := &gateway.SessionState{CorrelationID: sess.ID}
	switch sess.Status {
	case stripesdk.CheckoutSessionStatusComplete:
		if sess.PaymentStatus == stripesdk.CheckoutSessionPaymentStatusUnpaid {
			return state, nil
		}
		state.Settled = true
		state.Outcome = gateway.OutcomeSucceeded
	case stripesdk.CheckoutSessionStatusExpired:
		state.Settled = true
		state.Outcome = gateway.OutcomeFailed
	}
	return state, nil
}
