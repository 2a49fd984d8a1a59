package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/storefront-pricing/internal/service"
)

// formatValidationError converts validator errors to user-facing messages.
// Only the first failing field is reported.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := fe.Field()
			tag := fe.Tag()

			switch field {
			case "Code":
				if tag == "required" || tag == "notblank" {
					return "invalid request: code is required"
				}
				if tag == "max" {
					return "invalid request: code exceeds maximum length of 64"
				}
				return "invalid request: code is invalid"
			case "DiscountType":
				if tag == "required" {
					return "invalid request: discount_type is required"
				}
				return "invalid request: discount_type must be one of percentage, fixed, buy_one_get_one"
			case "Value":
				if tag == "required" {
					return "invalid request: value is required"
				}
				return "invalid request: value must not be negative"
			case "OrderRef":
				if tag == "required" || tag == "notblank" {
					return "invalid request: order_ref is required"
				}
				if tag == "max" {
					return "invalid request: order_ref exceeds maximum length of 255"
				}
				return "invalid request: order_ref is invalid"
			case "Lines":
				if tag == "required" || tag == "min" {
					return "invalid request: cart is empty"
				}
				if tag == "max" {
					return "invalid request: cart exceeds maximum of 500 lines"
				}
				return "invalid request: lines are invalid"
			case "ProductID":
				return "invalid request: every line needs a product_id"
			case "Price":
				return "invalid request: line price must not be negative"
			case "Quantity":
				if tag == "lte" {
					return "invalid request: line quantity exceeds maximum of 10000"
				}
				return "invalid request: line quantity must not be negative"
			default:
				if tag == "required" {
					return "invalid request: " + field + " is required"
				}
				if tag == "max" {
					return "invalid request: " + field + " exceeds maximum length"
				}
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// discountErrorResponse maps discount sentinels to status codes and the
// message shown to the shopper. ok is false for unexpected errors.
func discountErrorResponse(err error) (status int, message string, ok bool) {
	switch {
	case errors.Is(err, service.ErrInvalidSession):
		return fiber.StatusBadRequest, "invalid session id", true
	case errors.Is(err, service.ErrDiscountNotFound):
		return fiber.StatusNotFound, "discount code not found", true
	case errors.Is(err, service.ErrDiscountInvalid):
		return fiber.StatusUnprocessableEntity, "discount code is expired or no longer valid", true
	case errors.Is(err, service.ErrCatalogUnavailable):
		return fiber.StatusServiceUnavailable, "could not check discount code, please try again", true
	case errors.Is(err, service.ErrApplySuperseded):
		return fiber.StatusConflict, "discount was changed by a newer request", true
	case errors.Is(err, service.ErrAlreadyRedeemed):
		return fiber.StatusConflict, "order already redeemed a discount", true
	case errors.Is(err, service.ErrDiscountExists):
		return fiber.StatusConflict, "discount already exists", true
	case errors.Is(err, service.ErrInvalidRequest):
		return fiber.StatusBadRequest, "invalid request", true
	}
	return fiber.StatusInternalServerError, "internal server error", false
}
