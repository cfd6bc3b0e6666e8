package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-api/internal/client"
	"storefront-api/internal/dto"
	"storefront-api/internal/events"
	"storefront-api/internal/model"
	"storefront-api/internal/notifier"
	"storefront-api/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PaymentService interface {
	CreateCheckoutSession(ctx context.Context, orderID string, user *model.User) (*dto.CheckoutSessionResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type paymentServiceImpl struct {
	db               *gorm.DB
	paymentClient    client.PaymentClient
	frontendURL      string
	currency         string
	orderService     OrderService
	orderRepo        repository.OrderRepository
	webhookEventRepo repository.WebhookEventRepository
	publisher        events.Publisher
	notifier         notifier.OrderNotifier
	logger           *zap.Logger
}

func NewPaymentService(
	db *gorm.DB,
	paymentClient client.PaymentClient,
	frontendURL string,
	currency string,
	orderService OrderService,
	orderRepo repository.OrderRepository,
	webhookEventRepo repository.WebhookEventRepository,
	publisher events.Publisher,
	notifier notifier.OrderNotifier,
	logger *zap.Logger,
) PaymentService {
	return &paymentServiceImpl{
		db:               db,
		paymentClient:    paymentClient,
		frontendURL:      strings.TrimRight(frontendURL, "/"),
		currency:         currency,
		orderService:     orderService,
		orderRepo:        orderRepo,
		webhookEventRepo: webhookEventRepo,
		publisher:        publisher,
		notifier:         notifier,
		logger:           logger,
	}
}

func (s *paymentServiceImpl) CreateCheckoutSession(ctx context.Context, orderID string, user *model.User) (*dto.CheckoutSessionResponse, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: orderId is required", ErrInvalidInput)
	}

	order, err := s.orderService.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.OwnedBy(user) {
		return nil, fmt.Errorf("%w: order %s belongs to another user", ErrUnauthorized, orderID)
	}
	if order.Status != model.OrderStatusPending {
		return nil, fmt.Errorf("%w: order %s is already %s", ErrInvalidStatusTransition, orderID, order.Status)
	}

	lineItems := make([]client.LineItem, len(order.Items))
	for i, item := range order.Items {
		if item.Product == nil {
			return nil, fmt.Errorf("%w: product %s of order %s", ErrNotFound, item.ProductID, orderID)
		}
		// the snapshotted item price is what the buyer agreed to
		lineItems[i] = client.LineItem{
			Name:       item.Product.Name,
			UnitAmount: item.UnitAmount(),
			Quantity:   int64(item.Quantity),
		}
	}

	session, err := s.paymentClient.CreateCheckoutSession(ctx, &client.CheckoutSessionRequest{
		LineItems:  lineItems,
		Currency:   s.currency,
		SuccessURL: fmt.Sprintf("%s/order/%s", s.frontendURL, order.ID),
		CancelURL:  fmt.Sprintf("%s/cart", s.frontendURL),
		Metadata:   map[string]string{client.MetadataOrderID: order.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session for order %s: %w", orderID, err)
	}

	if err := s.orderRepo.SetPaymentSession(ctx, order.ID, session.ID); err != nil {
		return nil, storeError(err, "store payment session of order %s", orderID)
	}

	s.logger.Info("checkout session created",
		zap.String("order_id", order.ID),
		zap.String("session_id", session.ID))

	return &dto.CheckoutSessionResponse{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}

func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.paymentClient.ConstructEvent(payload, signature)
	if errors.Is(err, client.ErrInvalidSignature) {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if event.Type != client.EventCheckoutSessionCompleted {
		s.logger.Debug("ignoring webhook event", zap.String("event_id", event.ID), zap.String("type", event.Type))
		return nil
	}

	orderID := event.Metadata[client.MetadataOrderID]
	if orderID == "" {
		return fmt.Errorf("%w: event %s carries no order id", ErrInvalidInput, event.ID)
	}

	var paid bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		first, err := s.webhookEventRepo.MarkProcessed(ctx, tx, event.ID, event.Type)
		if err != nil {
			return fmt.Errorf("record webhook event %s: %w", event.ID, err)
		}
		if !first {
			s.logger.Info("webhook event already processed", zap.String("event_id", event.ID))
			return nil
		}

		paid, err = s.orderService.MarkPaid(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return err
	}

	if paid {
		s.afterPaid(ctx, orderID)
	}
	return nil
}

// afterPaid runs the side effects of a payment once it is committed. Failures
// are logged only; the order is already paid.
func (s *paymentServiceImpl) afterPaid(ctx context.Context, orderID string) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		s.logger.Error("reload paid order", zap.String("order_id", orderID), zap.Error(err))
		return
	}

	s.logger.Info("order paid", zap.String("order_id", orderID))

	if err := s.publisher.Publish(ctx, events.NewOrderEvent(events.TypeOrderPaid, order)); err != nil {
		s.logger.Error("publish order paid event", zap.String("order_id", orderID), zap.Error(err))
	}
	if err := s.notifier.OrderPaid(ctx, order); err != nil {
		s.logger.Error("send payment confirmation", zap.String("order_id", orderID), zap.Error(err))
	}
}
