package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/storefront-pricing/internal/model"
	"github.com/fairyhunter13/storefront-pricing/internal/service"
)

// SessionRegistryInterface resolves shopper sessions to their discount stores.
type SessionRegistryInterface interface {
	NewSession() string
	Store(ctx context.Context, sessionID string) (*service.DiscountStore, error)
}

// SessionHandler handles HTTP requests against a shopper's discount store.
type SessionHandler struct {
	sessions  SessionRegistryInterface
	validator *validator.Validate
}

// NewSessionHandler creates a new SessionHandler with the given registry and validator.
func NewSessionHandler(sessions SessionRegistryInterface, v *validator.Validate) *SessionHandler {
	return &SessionHandler{sessions: sessions, validator: v}
}

// CreateSession handles POST /api/sessions.
func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	return c.Status(fiber.StatusCreated).JSON(model.SessionResponse{SessionID: h.sessions.NewSession()})
}

// GetDiscount handles GET /api/sessions/:session/discount.
func (h *SessionHandler) GetDiscount(c *fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(store.State())
}

// ApplyDiscount handles POST /api/sessions/:session/discount.
func (h *SessionHandler) ApplyDiscount(c *fiber.Ctx) error {
	var req model.ApplyDiscountRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	store, err := h.store(c)
	if err != nil {
		return h.fail(c, err)
	}

	if err := store.Apply(c.Context(), req.Code); err != nil {
		return h.fail(c, err, "discount_code", req.Code)
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("session_id", c.Params("session")).
		Str("discount_code", model.NormalizeCode(req.Code)).
		Msg("discount applied")

	return c.JSON(store.State())
}

// RemoveDiscount handles DELETE /api/sessions/:session/discount.
// A storage failure is logged only; the discount is removed regardless.
func (h *SessionHandler) RemoveDiscount(c *fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return h.fail(c, err)
	}

	if err := store.Remove(c.Context()); err != nil {
		log.Warn().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("session_id", c.Params("session")).
			Msg("failed to delete persisted discount")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Price handles GET /api/sessions/:session/price?price=&product_id=&category=.
func (h *SessionHandler) Price(c *fiber.Ctx) error {
	price, err := decimal.NewFromString(c.Query("price"))
	if err != nil || price.IsNegative() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: price must be a non-negative number"})
	}

	store, err := h.store(c)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(model.PriceResponse{
		OriginalPrice:   price,
		DiscountedPrice: store.DiscountedPrice(price, c.Query("product_id"), c.Query("category")),
	})
}

// Quote handles POST /api/sessions/:session/quote.
func (h *SessionHandler) Quote(c *fiber.Ctx) error {
	var req model.QuoteRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	store, err := h.store(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(store.Quote(req.Lines))
}

func (h *SessionHandler) store(c *fiber.Ctx) (*service.DiscountStore, error) {
	return h.sessions.Store(c.Context(), c.Params("session"))
}

// fail writes the mapped error response. Unexpected errors are logged with
// the extra key/value string pairs in fields.
func (h *SessionHandler) fail(c *fiber.Ctx, err error, fields ...string) error {
	status, message, ok := discountErrorResponse(err)
	if !ok {
		ev := log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("session_id", c.Params("session"))
		for i := 0; i+1 < len(fields); i += 2 {
			ev = ev.Str(fields[i], fields[i+1])
		}
		ev.Msg("discount store request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}
