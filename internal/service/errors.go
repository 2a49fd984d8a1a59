package service

import "errors"

var (
	// ErrDiscountNotFound is returned when no discount exists for a code
	ErrDiscountNotFound = errors.New("discount not found")

	// ErrDiscountInvalid is returned when a discount exists but is expired, inactive, not yet started or used up
	ErrDiscountInvalid = errors.New("discount is expired or no longer valid")

	// ErrCatalogUnavailable is returned when the discount catalog cannot be reached
	ErrCatalogUnavailable = errors.New("discount catalog unavailable")

	// ErrApplySuperseded is returned when a newer apply or remove committed while this apply was in flight
	ErrApplySuperseded = errors.New("discount apply superseded by a newer request")

	// ErrDiscountExists is returned when attempting to create a discount code that already exists
	ErrDiscountExists = errors.New("discount already exists")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAlreadyRedeemed is returned when an order reference has already redeemed a discount
	ErrAlreadyRedeemed = errors.New("order already redeemed a discount")

	// ErrInvalidSession is returned for malformed session identifiers
	ErrInvalidSession = errors.New("invalid session id")
)
