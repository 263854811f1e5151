package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kurshub/kurshub/internal/pkg/payments"
	"github.com/kurshub/kurshub/internal/pkg/usercontext"
)

var paymentService *payments.Service

// InitializePaymentController injects the payment service. Must be called
// once during startup before routes are served.
func InitializePaymentController(svc *payments.Service) {
	paymentService = svc
}

type checkoutRequest struct {
	CourseID uint `json:"course_id"`
}

// HandleCheckout starts a one-off course purchase and returns the client
// secret the frontend needs to confirm the payment.
func HandleCheckout(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil || req.CourseID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	resp, err := paymentService.CreatePaymentIntent(ctx, userCtx.UserID, req.CourseID)
	if err != nil {
		return checkoutError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"transaction_id": resp.TransactionID,
		"client_secret":  resp.ClientSecret,
	})
}

// HandleSubscribe starts a recurring subscription checkout for a course plan.
func HandleSubscribe(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil || req.CourseID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	resp, err := paymentService.CreateSubscriptionIntent(ctx, userCtx.UserID, req.CourseID)
	if err != nil {
		return checkoutError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"transaction_id":  resp.TransactionID,
		"subscription_id": resp.SubscriptionID,
		"client_secret":   resp.ClientSecret,
	})
}

// HandlePaymentWebhook receives asynchronous gateway deliveries. Any non-2xx
// answer makes the gateway redeliver, so persistence failures return 500 and
// everything the ingestor handled, including duplicates, returns 200.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result, err := paymentService.Ingest(ctx, rawBody, signature)
	if err != nil {
		if errors.Is(err, payments.ErrBadSignature) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}

	switch result.Outcome {
	case payments.OutcomeDuplicate:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	case payments.OutcomeIgnored:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	default:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}
}

func checkoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payments.ErrValidation):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	case errors.Is(err, payments.ErrGatewayUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "gateway_unavailable", "message": "Payment provider is unavailable, please retry"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Checkout failed"})
	}
}
