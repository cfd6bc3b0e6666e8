package service

import (
	"errors"
	"fmt"
	"time"

	"storefront-api/internal/client"
	"storefront-api/internal/config"
	"storefront-api/internal/dto"
	"storefront-api/internal/events"
	"storefront-api/internal/model"

	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v76/webhook"
)

func (s *ServiceSuite) pendingOrder(user *model.User) *model.Order {
	mug := s.createProduct("Mug", "9.99", 5)
	order, err := s.orders.CreateOrder(s.ctx, user, orderRequest(&dto.OrderItemRequest{ProductID: mug.ID, Quantity: 3}))
	s.Require().NoError(err)
	return order
}

func (s *ServiceSuite) TestCreateCheckoutSession_Owner() {
	user := s.createUser("buyer@example.com", model.RoleCustomer)
	order := s.pendingOrder(user)

	paymentClient := &mockPaymentClient{}
	paymentClient.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req *client.CheckoutSessionRequest) bool {
		return len(req.LineItems) == 1 &&
			req.LineItems[0].Name == "Mug" &&
			req.LineItems[0].UnitAmount == 999 &&
			req.LineItems[0].Quantity == 3 &&
			req.Currency == "usd" &&
			req.SuccessURL == "http://shop.test/order/"+order.ID &&
			req.CancelURL == "http://shop.test/cart" &&
			req.Metadata[client.MetadataOrderID] == order.ID
	})).Return(&client.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil).Once()

	session, err := s.paymentService(paymentClient).CreateCheckoutSession(s.ctx, order.ID, user)
	s.Require().NoError(err)
	s.Equal("cs_test_1", session.ID)
	s.NotEmpty(session.URL)
	paymentClient.AssertExpectations(s.T())

	stored, err := s.orderRepo.FindByID(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Equal("cs_test_1", stored.PaymentSessionID)
	s.Equal(model.OrderStatusPending, stored.Status)
}

func (s *ServiceSuite) TestCreateCheckoutSession_NotOwner() {
	owner := s.createUser("owner@example.com", model.RoleCustomer)
	other := s.createUser("other@example.com", model.RoleCustomer)
	order := s.pendingOrder(owner)

	paymentClient := &mockPaymentClient{}
	_, err := s.paymentService(paymentClient).CreateCheckoutSession(s.ctx, order.ID, other)
	s.ErrorIs(err, ErrUnauthorized)
	paymentClient.AssertNotCalled(s.T(), "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestCreateCheckoutSession_NotFoundAndNotPending() {
	user := s.createUser("buyer@example.com", model.RoleCustomer)
	paymentClient := &mockPaymentClient{}
	payments := s.paymentService(paymentClient)

	_, err := payments.CreateCheckoutSession(s.ctx, "missing", user)
	s.ErrorIs(err, ErrNotFound)

	_, err = payments.CreateCheckoutSession(s.ctx, "", user)
	s.ErrorIs(err, ErrInvalidInput)

	order := s.pendingOrder(user)
	s.markPaid(order.ID)

	_, err = payments.CreateCheckoutSession(s.ctx, order.ID, user)
	s.ErrorIs(err, ErrInvalidStatusTransition)
	paymentClient.AssertNotCalled(s.T(), "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestCreateCheckoutSession_ProviderFailureKeepsPending() {
	user := s.createUser("buyer@example.com", model.RoleCustomer)
	order := s.pendingOrder(user)

	paymentClient := &mockPaymentClient{}
	paymentClient.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(nil, errors.New("stripe unavailable")).Once()

	_, err := s.paymentService(paymentClient).CreateCheckoutSession(s.ctx, order.ID, user)
	s.ErrorContains(err, "stripe unavailable")
	s.Equal(model.OrderStatusPending, s.statusOf(order.ID))
}

func checkoutCompletedEvent(eventID, orderID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_1", "object": "checkout.session", "metadata": {"order_id": %q}}}
	}`, eventID, orderID))
}

func sign(payload []byte, secret string) (string, []byte) {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header, signed.Payload
}

func (s *ServiceSuite) stripePayments() PaymentService {
	return s.paymentService(client.NewStripeClient(&config.Stripe{
		SecretKey:     "sk_test_unused",
		WebhookSecret: testWebhookSecret,
	}))
}

func (s *ServiceSuite) TestHandleWebhook_MarksOrderPaid() {
	user := s.createUser("buyer@example.com", model.RoleCustomer)
	order := s.pendingOrder(user)
	s.Equal(2, s.stockOf(order.Items[0].ProductID))

	header, body := sign(checkoutCompletedEvent("evt_1", order.ID), testWebhookSecret)
	s.Require().NoError(s.stripePayments().HandleWebhook(s.ctx, body, header))

	s.Equal(model.OrderStatusPaid, s.statusOf(order.ID))
	paid := s.publisher.ofType(events.TypeOrderPaid)
	s.Require().Len(paid, 1)
	s.Equal("paid", paid[0].Status)
	s.Equal([]string{order.ID}, s.notifier.orders)
}

func (s *ServiceSuite) TestHandleWebhook_DuplicateDeliveryIsNoop() {
	user := s.createUser("buyer@example.com", model.RoleCustomer)
	order := s.pendingOrder(user)
	payments := s.stripePayments()

	for i := 0; i < 2; i++ {
		header, body := sign(checkoutCompletedEvent("evt_1", order.ID), testWebhookSecret)
		s.Require().NoError(payments.HandleWebhook(s.ctx, body, header))
		s.Equal(model.OrderStatusPaid, s.statusOf(order.ID))
	}

	// a distinct event for an order that is already paid changes nothing either
	header, body := sign(checkoutCompletedEvent("evt_2", order.ID), testWebhookSecret)
	s.Require().NoError(payments.HandleWebhook(s.ctx, body, header))

	s.Len(s.publisher.ofType(events.TypeOrderPaid), 1)
	s.Len(s.notifier.orders, 1)
}

func (s *ServiceSuite) TestHandleWebhook_InvalidSignature() {
	user := s.createUser("buyer@example.com", model.RoleCustomer)
	order := s.pendingOrder(user)
	payments := s.stripePayments()

	header, body := sign(checkoutCompletedEvent("evt_1", order.ID), "whsec_attacker")
	err := payments.HandleWebhook(s.ctx, body, header)
	s.ErrorIs(err, ErrInvalidSignature)

	err = payments.HandleWebhook(s.ctx, checkoutCompletedEvent("evt_1", order.ID), "")
	s.ErrorIs(err, ErrInvalidSignature)

	s.Equal(model.OrderStatusPending, s.statusOf(order.ID))
	s.False(s.eventRecorded("evt_1"))
	s.Empty(s.publisher.ofType(events.TypeOrderPaid))
}

func (s *ServiceSuite) TestHandleWebhook_RejectsEverythingWithoutSecret() {
	user := s.createUser("buyer@example.com", model.RoleCustomer)
	order := s.pendingOrder(user)
	payments := s.paymentService(client.NewStripeClient(&config.Stripe{SecretKey: "sk_test_unused"}))

	header, body := sign(checkoutCompletedEvent("evt_1", order.ID), "")
	s.ErrorIs(payments.HandleWebhook(s.ctx, body, header), ErrInvalidSignature)

	s.Equal(model.OrderStatusPending, s.statusOf(order.ID))
	s.False(s.eventRecorded("evt_1"))
	s.Empty(s.publisher.ofType(events.TypeOrderPaid))
}

func (s *ServiceSuite) TestHandleWebhook_IgnoresOtherEvents() {
	user := s.createUser("buyer@example.com", model.RoleCustomer)
	order := s.pendingOrder(user)

	payload := []byte(`{"id": "evt_9", "object": "event", "type": "payment_intent.created", "data": {"object": {"id": "pi_1"}}}`)
	header, body := sign(payload, testWebhookSecret)
	s.NoError(s.stripePayments().HandleWebhook(s.ctx, body, header))
	s.Equal(model.OrderStatusPending, s.statusOf(order.ID))
}

func (s *ServiceSuite) TestHandleWebhook_UnknownOrderIsNotRecorded() {
	payments := s.stripePayments()

	header, body := sign(checkoutCompletedEvent("evt_1", "missing"), testWebhookSecret)
	s.ErrorIs(payments.HandleWebhook(s.ctx, body, header), ErrNotFound)

	// rolled back, so a redelivery is processed again
	s.False(s.eventRecorded("evt_1"))

	noOrder := []byte(`{"id": "evt_2", "object": "event", "type": "checkout.session.completed", "data": {"object": {"id": "cs_1", "object": "checkout.session", "metadata": {}}}}`)
	header, body = sign(noOrder, testWebhookSecret)
	s.ErrorIs(payments.HandleWebhook(s.ctx, body, header), ErrInvalidInput)
}
