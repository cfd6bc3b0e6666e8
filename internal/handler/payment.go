package handler

import (
	"fmt"
	"io"
	"net/http"

	"storefront-api/internal/dto"
	"storefront-api/internal/middleware"
	"storefront-api/internal/service"

	"github.com/labstack/echo/v4"
)

const stripeSignatureHeader = "Stripe-Signature"

type PaymentHandler struct {
	paymentService service.PaymentService
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

func (h *PaymentHandler) CreateCheckoutSession(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := middleware.CurrentUser(c)
	if err != nil {
		return err
	}

	var req dto.CheckoutSessionRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	session, err := h.paymentService.CreateCheckoutSession(ctx, req.OrderID, user)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, session)
}

// StripeWebhook needs the body byte for byte as sent; it must not be bound first.
func (h *PaymentHandler) StripeWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	err = h.paymentService.HandleWebhook(ctx, body, c.Request().Header.Get(stripeSignatureHeader))
	if err != nil {
		return fmt.Errorf("handle webhook: %w", err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
