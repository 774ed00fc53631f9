package domain

type Coupon struct {
	Code     string `json:"code" validate:"required"`
	Discount int    `json:"discount" validate:"gte=0,lte=100"`
}
