package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/storefront-pricing/internal/model"
)

// DiscountServiceInterface defines the interface for discount catalog administration.
type DiscountServiceInterface interface {
	Create(ctx context.Context, req *model.CreateDiscountRequest) error
	GetByCode(ctx context.Context, code string) (*model.DiscountResponse, error)
	List(ctx context.Context) ([]model.Discount, error)
}

// DiscountHandler handles HTTP requests for the discount catalog.
type DiscountHandler struct {
	service   DiscountServiceInterface
	validator *validator.Validate
}

// NewDiscountHandler creates a new DiscountHandler with the given service and validator.
func NewDiscountHandler(svc DiscountServiceInterface, v *validator.Validate) *DiscountHandler {
	return &DiscountHandler{service: svc, validator: v}
}

// CreateDiscount handles POST /api/discounts requests to add a discount.
func (h *DiscountHandler) CreateDiscount(c *fiber.Ctx) error {
	var req model.CreateDiscountRequest

	// Parse JSON body
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}

	if err := h.service.Create(c.Context(), &req); err != nil {
		status, message, ok := discountErrorResponse(err)
		if !ok {
			log.Error().Err(err).Str("discount_code", req.Code).Msg("failed to create discount")
		}
		return c.Status(status).JSON(fiber.Map{"error": message})
	}

	return c.Status(fiber.StatusCreated).Send(nil)
}

// GetDiscount handles GET /api/discounts/:code requests.
func (h *DiscountHandler) GetDiscount(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request: code is required",
		})
	}

	discount, err := h.service.GetByCode(c.Context(), code)
	if err != nil {
		status, message, ok := discountErrorResponse(err)
		if !ok {
			log.Error().Err(err).Str("discount_code", code).Msg("failed to get discount")
		}
		return c.Status(status).JSON(fiber.Map{"error": message})
	}

	log.Info().
		Str("discount_code", discount.Code).
		Int("used_count", discount.UsedCount).
		Int("redemptions_count", len(discount.RedeemedRefs)).
		Msg("discount retrieved")

	return c.JSON(discount)
}

// ListDiscounts handles GET /api/discounts requests.
func (h *DiscountHandler) ListDiscounts(c *fiber.Ctx) error {
	discounts, err := h.service.List(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list discounts")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.JSON(discounts)
}
