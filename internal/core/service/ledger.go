package service

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-cart/internal/core/domain"
)

// AddOrUpdate returns a new ledger with product added at qty. An existing
// line matches by product id, or by any variant id the product declares, so
// switching variants updates the line in place. qty is trusted.
func AddOrUpdate(ledger domain.Ledger, product domain.Product, qty int, variant *domain.Variant) domain.Ledger {
	out := ledger.Clone()
	for i, line := range out {
		if line.ID != product.ID && !product.HasVariant(line.ID) {
			continue
		}
		if variant != nil {
			if !variant.Price.IsZero() {
				line.Price = variant.Price
			}
			v := *variant
			line.Variant = &v
		}
		line.Quantity = qty
		out[i] = line
		return out
	}

	line := domain.CartLine{
		ID:          product.ID,
		ProductID:   product.ID,
		Name:        product.Name,
		Description: product.Description,
		Image:       product.Image,
		Price:       product.Price,
		Quantity:    qty,
	}
	if variant != nil {
		v := *variant
		line.ID = v.ID
		line.Variant = &v
		if !v.Price.IsZero() {
			line.Price = v.Price
		}
	}
	return append(out, line)
}

// SetLineQuantity overwrites the quantity of line id, removing the line when
// qty < 1. It reports whether the ledger changed.
func SetLineQuantity(ledger domain.Ledger, id domain.ID, qty int) (domain.Ledger, bool) {
	i := ledger.Index(id)
	if i < 0 {
		return ledger, false
	}
	out := ledger.Clone()
	if qty < 1 {
		return append(out[:i], out[i+1:]...), true
	}
	if out[i].Quantity == qty {
		return ledger, false
	}
	out[i].Quantity = qty
	return out, true
}

// Totals is the priced view of a ledger. Amounts are exact; rounding happens
// only in the display helpers.
type Totals struct {
	LineCount       int             `json:"line_count"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent int             `json:"discount_percent"`
	Total           decimal.Decimal `json:"total"`
}

func Total(ledger domain.Ledger, discountPercent int) Totals {
	subtotal := ledger.Subtotal()
	total := subtotal
	if discountPercent > 0 {
		total = subtotal.Sub(subtotal.Mul(decimal.NewFromInt(int64(discountPercent))).Div(decimal.NewFromInt(100)))
	}
	return Totals{
		LineCount:       len(ledger),
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		Total:           total,
	}
}

func (t Totals) DisplaySubtotal() string {
	return t.Subtotal.StringFixed(2)
}

func (t Totals) DisplayTotal() string {
	return t.Total.StringFixed(2)
}
