package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-pricing/internal/model"
)

// CheckoutServiceInterface defines the interface for checkout business logic.
type CheckoutServiceInterface interface {
	Prepare(ctx context.Context, sessionID string, req *model.CheckoutRequest) (*model.PaymentIntentDraft, error)
}

// CheckoutHandler handles HTTP requests for checkout.
type CheckoutHandler struct {
	service   CheckoutServiceInterface
	validator *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler with the given service and validator.
func NewCheckoutHandler(svc CheckoutServiceInterface, v *validator.Validate) *CheckoutHandler {
	return &CheckoutHandler{service: svc, validator: v}
}

// Checkout handles POST /api/sessions/:session/checkout requests. It returns
// the payment-intent draft for the cart priced with the session's discount.
func (h *CheckoutHandler) Checkout(c *fiber.Ctx) error {
	var req model.CheckoutRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	sessionID := c.Params("session")
	draft, err := h.service.Prepare(c.Context(), sessionID, &req)
	if err != nil {
		status, message, ok := discountErrorResponse(err)
		if !ok {
			log.Error().
				Err(err).
				Str("request_id", c.GetRespHeader("X-Request-ID")).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("session_id", sessionID).
				Str("order_ref", req.OrderRef).
				Msg("failed to prepare checkout")
		}
		return c.Status(status).JSON(fiber.Map{"error": message})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("session_id", sessionID).
		Str("order_ref", draft.OrderRef).
		Str("discount_code", draft.Pricing.Code).
		Int64("amount_cents", draft.AmountCents).
		Msg("checkout prepared")

	return c.JSON(draft)
}
