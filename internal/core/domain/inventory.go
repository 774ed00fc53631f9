package domain

type Inventory struct {
	ProductID ID  `json:"product_id" validate:"required"`
	Quantity  int `json:"quantity" validate:"gte=0"`
	// LimitPerOrder of zero means the record carries no per-order cap.
	LimitPerOrder int `json:"limit_per_purchase" validate:"gte=0"`
}

func (i Inventory) HasLimit() bool {
	return i.LimitPerOrder > 0
}
