package domain

import "github.com/shopspring/decimal"

type Variant struct {
	ID    ID              `json:"id" validate:"required"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type Product struct {
	ID          ID              `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Available   bool            `json:"available"`
	Variants    []Variant       `json:"variants,omitempty" validate:"dive"`
}

// Variant returns the variant with the given id, if the product declares it.
func (p Product) Variant(id ID) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// HasVariant reports whether id names one of the product's variants.
func (p Product) HasVariant(id ID) bool {
	_, ok := p.Variant(id)
	return ok
}
