package service

import (
	"errors"
)

var (
	ErrInvalidCoupon      = errors.New("invalid coupon")
	ErrCouponCodeRequired = errors.New("coupon code required")
)

const (
	couponAppliedMessage = "Coupon applied!"
	couponInvalidMessage = "Invalid coupon"
)

// CouponState is the session-local discount. It is never persisted.
type CouponState struct {
	Code            string `json:"code,omitempty"`
	DiscountPercent int    `json:"discount_percent"`
	SuccessMessage  string `json:"success_message,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// ApplyCoupon matches code exactly against the coupon feed. An unknown code
// resets the discount to zero.
func (e *Engine) ApplyCoupon(code string) (CouponState, error) {
	cp, ok := e.catalog.Coupon(code)
	if !ok {
		return CouponState{ErrorMessage: couponInvalidMessage}, ErrInvalidCoupon
	}
	return CouponState{
		Code:            cp.Code,
		DiscountPercent: cp.Discount,
		SuccessMessage:  couponAppliedMessage,
	}, nil
}
