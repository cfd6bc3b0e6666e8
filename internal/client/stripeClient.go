package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-api/internal/config"

	"github.com/stripe/stripe-go/v76"
	stripeclient "github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	EventCheckoutSessionCompleted = "checkout.session.completed"

	// MetadataOrderID carries our order id through the hosted checkout and
	// back in the webhook payload.
	MetadataOrderID = "order_id"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type PaymentClient interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error)
	// ConstructEvent verifies signature against payload before decoding anything.
	ConstructEvent(payload []byte, signature string) (*PaymentEvent, error)
}

type LineItem struct {
	Name       string
	UnitAmount int64 // minor currency units
	Quantity   int64
}

type CheckoutSessionRequest struct {
	LineItems  []LineItem
	Currency   string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type PaymentEvent struct {
	ID       string
	Type     string
	Metadata map[string]string
}

type stripeClientImpl struct {
	api           *stripeclient.API
	webhookSecret string
}

func NewStripeClient(stripeCfg *config.Stripe) PaymentClient {
	api := &stripeclient.API{}
	api.Init(stripeCfg.SecretKey, nil)

	return &stripeClientImpl{
		api:           api,
		webhookSecret: stripeCfg.WebhookSecret,
	}
}

func (c *stripeClientImpl) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error) {
	params := buildCheckoutSessionParams(req)
	params.Context = ctx

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}

	return &CheckoutSession{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}

func (c *stripeClientImpl) ConstructEvent(payload []byte, signature string) (*PaymentEvent, error) {
	// an empty secret verifies anything signed with an empty key
	if c.webhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret is not configured", ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}

	result := &PaymentEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if result.Type == EventCheckoutSessionCompleted {
		if event.Data == nil {
			return nil, fmt.Errorf("checkout session event %s has no data", event.ID)
		}
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		result.Metadata = session.Metadata
	}

	return result, nil
}

func buildCheckoutSessionParams(req *CheckoutSessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}

	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	return params
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld)
}
