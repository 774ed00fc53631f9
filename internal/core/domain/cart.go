package domain

import "github.com/shopspring/decimal"

// CartLine is one entry of the cart. Its ID is the product id, or the id of
// the variant that was selected when the line was first added.
type CartLine struct {
	ID          ID              `json:"id"`
	ProductID   ID              `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Variant     *Variant        `json:"variant,omitempty"`
}

func (l CartLine) Amount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Ledger is the ordered list of cart lines. Line ids are unique.
type Ledger []CartLine

func (l Ledger) Index(id ID) int {
	for i, line := range l {
		if line.ID == id {
			return i
		}
	}
	return -1
}

func (l Ledger) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, line := range l {
		sum = sum.Add(line.Amount())
	}
	return sum
}

func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}
