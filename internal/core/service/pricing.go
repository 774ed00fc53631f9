package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-cart/internal/core/domain"
)

var (
	ErrOutOfStock      = errors.New("out of stock")
	ErrOverOrderLimit  = errors.New("over order limit")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

const invalidQuantityMessage = "Please enter a valid quantity."

// ValidationResult is the outcome of a quantity check. A failed result carries
// the warning text shown next to the item; a successful one clears it.
type ValidationResult struct {
	ID       domain.ID
	Quantity int
	Err      error
	Message  string
}

func (r ValidationResult) OK() bool {
	return r.Err == nil
}

// Engine validates requested quantities against the inventory snapshot and
// resolves variant prices.
type Engine struct {
	catalog *Catalog
}

func NewEngine(catalog *Catalog) *Engine {
	return &Engine{catalog: catalog}
}

func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// ValidateQuantity succeeds iff 1 <= requested <= min(available, limit).
// A missing record means nothing is available; a missing limit means no cap.
func (e *Engine) ValidateQuantity(id domain.ID, requested int) ValidationResult {
	res := ValidationResult{ID: id, Quantity: requested}
	if requested < 1 {
		res.Err = ErrInvalidQuantity
		res.Message = invalidQuantityMessage
		return res
	}

	inv, _ := e.catalog.Inventory(id)
	switch {
	case requested > inv.Quantity:
		res.Err = ErrOutOfStock
		res.Message = fmt.Sprintf("Only %d available for this product.", inv.Quantity)
	case inv.HasLimit() && requested > inv.LimitPerOrder:
		res.Err = ErrOverOrderLimit
		res.Message = fmt.Sprintf("Limited to %d per order.", inv.LimitPerOrder)
	}
	return res
}

// ValidateInput coerces caller input (text or number) before validating it.
func (e *Engine) ValidateInput(id domain.ID, raw any) ValidationResult {
	qty, err := ParseQuantity(raw)
	if err != nil {
		return ValidationResult{ID: id, Err: ErrInvalidQuantity, Message: invalidQuantityMessage}
	}
	return e.ValidateQuantity(id, qty)
}

// ResolveVariantPrice returns the price of variantID on productID. When either
// cannot be found the current price is returned unchanged and ok is false.
func (e *Engine) ResolveVariantPrice(productID, variantID domain.ID, current decimal.Decimal) (decimal.Decimal, domain.Variant, bool) {
	p, found := e.catalog.Product(productID)
	if !found {
		return current, domain.Variant{}, false
	}
	v, found := p.Variant(variantID)
	if !found {
		return current, domain.Variant{}, false
	}
	return v.Price, v, true
}

// ParseQuantity coerces text or numeric input into an integer quantity.
func ParseQuantity(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if math.IsNaN(v) || v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidQuantity, v)
		}
		return int(v), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return ParseQuantity(n)
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, v.String())
		}
		return ParseQuantity(f)
	case string:
		s := strings.TrimSpace(v)
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidQuantity, raw)
	}
}
