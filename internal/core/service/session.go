package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-cart/internal/core/domain"
	"github.com/rl1809/shop-cart/internal/port"
	"github.com/rl1809/shop-cart/pkg/logger"
	"github.com/rl1809/shop-cart/pkg/metrics"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrLineNotFound    = errors.New("cart line not found")
	ErrWarningActive   = errors.New("quantity warning active")
	ErrInvalidViewMode = errors.New("invalid view mode")
)

const (
	cartItemsKey   = "cart_items"
	productViewKey = "product_view"
)

// Session is one shopper's state. It is not safe for concurrent use; the
// SessionManager serialises access.
type Session struct {
	id      string
	engine  *Engine
	store   port.KeyValueStore
	log     *logger.Logger
	metrics *metrics.CartMetrics

	ledger domain.Ledger
	// Catalog cards and cart lines warn independently; a line id often
	// equals its product id.
	productWarnings map[domain.ID]string
	lineWarnings    map[domain.ID]string
	selections      map[domain.ID]domain.Variant
	pending         map[domain.ID]int
	coupon          CouponState
	sidebar         domain.SidebarState
	view            domain.ViewMode
}

type SessionOption func(*Session)

func WithLogger(log *logger.Logger) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *metrics.CartMetrics) SessionOption {
	return func(s *Session) {
		s.metrics = m
	}
}

func NewSession(id string, engine *Engine, store port.KeyValueStore, opts ...SessionOption) *Session {
	s := &Session{
		id:              id,
		engine:          engine,
		store:           store,
		log:             logger.Nop(),
		productWarnings: make(map[domain.ID]string),
		lineWarnings:    make(map[domain.ID]string),
		selections:      make(map[domain.ID]domain.Variant),
		pending:         make(map[domain.ID]int),
		sidebar:         domain.SidebarClosed,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog is the snapshot the session prices against.
func (s *Session) Catalog() *Catalog {
	return s.engine.Catalog()
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) key(name string) string {
	return s.id + ":" + name
}

func (s *Session) ctx(ctx context.Context) context.Context {
	return s.log.WithSessionID(ctx, s.id)
}

// Load rehydrates the cart lines and view preference. Absent or unreadable
// values leave the defaults in place.
func (s *Session) Load(ctx context.Context) {
	ctx = s.ctx(ctx)

	raw, ok, err := s.store.Get(ctx, s.key(cartItemsKey))
	switch {
	case err != nil:
		s.log.Warn(ctx, "load cart items", err)
	case ok:
		var ledger domain.Ledger
		if err := json.Unmarshal([]byte(raw), &ledger); err != nil {
			s.log.Warn(ctx, "decode cart items", err)
		} else {
			s.ledger = ledger
		}
	}

	view, ok, err := s.store.Get(ctx, s.key(productViewKey))
	switch {
	case err != nil:
		s.log.Warn(ctx, "load product view", err)
	case ok:
		s.view = domain.ViewMode(view)
	}
}

func (s *Session) persistLedger(ctx context.Context) {
	ctx = s.ctx(ctx)
	ledger := s.ledger
	if ledger == nil {
		ledger = domain.Ledger{}
	}
	data, err := json.Marshal(ledger)
	if err != nil {
		s.log.Warn(ctx, "encode cart items", err)
		s.metrics.IncPersistenceFailure()
		return
	}
	if err := s.store.Set(ctx, s.key(cartItemsKey), string(data)); err != nil {
		s.log.Warn(ctx, "persist cart items", err)
		s.metrics.IncPersistenceFailure()
	}
}

// View returns the stored preference, which may be empty or unknown.
func (s *Session) View() domain.ViewMode {
	return s.view
}

func (s *Session) SelectView(ctx context.Context, mode domain.ViewMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidViewMode, mode)
	}
	s.view = mode
	if err := s.store.Set(s.ctx(ctx), s.key(productViewKey), string(mode)); err != nil {
		s.log.Warn(s.ctx(ctx), "persist product view", err)
		s.metrics.IncPersistenceFailure()
	}
	return nil
}

func (s *Session) Sidebar() domain.SidebarState {
	return s.sidebar
}

func (s *Session) ToggleCart() domain.SidebarState {
	s.sidebar = s.sidebar.Toggle()
	return s.sidebar
}

func (s *Session) CloseCart() domain.SidebarState {
	s.sidebar = domain.SidebarClosed
	return s.sidebar
}

func (s *Session) record(warnings map[domain.ID]string, res ValidationResult) ValidationResult {
	if res.OK() {
		delete(warnings, res.ID)
		return res
	}
	warnings[res.ID] = res.Message
	s.metrics.IncValidationFailure(reasonLabel(res.Err))
	ctx := s.log.WithField(s.ctx(context.Background()), "item_id", string(res.ID))
	s.log.Debug(ctx, res.Message)
	return res
}

func reasonLabel(err error) string {
	switch {
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrOverOrderLimit):
		return "over_order_limit"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	default:
		return "unknown"
	}
}

// ProductWarning returns the active warning on a catalog card, or "".
func (s *Session) ProductWarning(productID domain.ID) string {
	return s.productWarnings[productID]
}

// LineWarning returns the active warning on a cart line, or "".
func (s *Session) LineWarning(lineID domain.ID) string {
	return s.lineWarnings[lineID]
}

func (s *Session) ProductWarnings() map[domain.ID]string {
	return copyWarnings(s.productWarnings)
}

func (s *Session) LineWarnings() map[domain.ID]string {
	return copyWarnings(s.lineWarnings)
}

func copyWarnings(in map[domain.ID]string) map[domain.ID]string {
	out := make(map[domain.ID]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// CanIncrement is false while a warning is active for the line. Decrements
// and direct edits are never blocked.
func (s *Session) CanIncrement(lineID domain.ID) bool {
	return s.lineWarnings[lineID] == ""
}

// SetQuantity validates the quantity typed on a catalog card and remembers it
// for the next add-to-cart when it passes.
func (s *Session) SetQuantity(productID domain.ID, raw any) ValidationResult {
	res := s.engine.ValidateInput(s.inventoryKey(productID), raw)
	res.ID = productID
	res = s.record(s.productWarnings, res)
	if res.OK() {
		s.pending[productID] = res.Quantity
	}
	return res
}

// inventoryKey is the record a new line for productID is checked against:
// the selected variant's when the feed has one, else the product's.
func (s *Session) inventoryKey(productID domain.ID) domain.ID {
	if v, ok := s.selections[productID]; ok {
		if _, ok := s.engine.Catalog().Inventory(v.ID); ok {
			return v.ID
		}
	}
	return productID
}

// PendingQuantity is the quantity add-to-cart will use for productID.
func (s *Session) PendingQuantity(productID domain.ID) int {
	if q, ok := s.pending[productID]; ok {
		return q
	}
	return 1
}

// SelectVariant makes variantID the active option of productID and returns
// the price to display. Unknown variants leave the selection unchanged.
func (s *Session) SelectVariant(productID, variantID domain.ID) (decimal.Decimal, error) {
	if _, ok := s.engine.Catalog().Product(productID); !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	price, variant, ok := s.engine.ResolveVariantPrice(productID, variantID, s.DisplayPrice(productID))
	if ok {
		s.selections[productID] = variant
	}
	return price, nil
}

// DisplayPrice is the unit price shown for a product given its selection.
func (s *Session) DisplayPrice(productID domain.ID) decimal.Decimal {
	if v, ok := s.selections[productID]; ok && !v.Price.IsZero() {
		return v.Price
	}
	p, _ := s.engine.Catalog().Product(productID)
	return p.Price
}

func (s *Session) SelectedVariant(productID domain.ID) (domain.Variant, bool) {
	v, ok := s.selections[productID]
	return v, ok
}

// AddToCart adds productID with its pending quantity and selected variant,
// persists the ledger and opens the sidebar.
func (s *Session) AddToCart(ctx context.Context, productID domain.ID) (domain.Ledger, error) {
	product, ok := s.engine.Catalog().Product(productID)
	if !ok {
		return s.Ledger(), fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	if msg := s.productWarnings[productID]; msg != "" {
		return s.Ledger(), fmt.Errorf("%w: %s", ErrWarningActive, msg)
	}

	qty := s.PendingQuantity(productID)
	// The variant may have been chosen after the quantity was checked.
	if key := s.inventoryKey(productID); key != productID {
		res := s.engine.ValidateQuantity(key, qty)
		res.ID = productID
		if !s.record(s.productWarnings, res).OK() {
			return s.Ledger(), fmt.Errorf("%w: %s", ErrWarningActive, res.Message)
		}
	}

	var variant *domain.Variant
	if v, ok := s.selections[productID]; ok {
		variant = &v
	}

	s.ledger = AddOrUpdate(s.ledger, product, qty, variant)
	s.metrics.IncMutation("add")
	s.persistLedger(ctx)
	s.sidebar = domain.SidebarOpen
	return s.Ledger(), nil
}

// ChangeQuantity edits a cart line. A failed validation leaves the ledger
// unchanged and is reported through the result, not the error.
func (s *Session) ChangeQuantity(ctx context.Context, lineID domain.ID, raw any) (ValidationResult, error) {
	if s.ledger.Index(lineID) < 0 {
		return ValidationResult{ID: lineID}, fmt.Errorf("%w: %s", ErrLineNotFound, lineID)
	}

	qty, err := ParseQuantity(raw)
	if err != nil {
		return s.record(s.lineWarnings, ValidationResult{ID: lineID, Err: ErrInvalidQuantity, Message: invalidQuantityMessage}), nil
	}

	var res ValidationResult
	if qty < 1 {
		res = s.record(s.lineWarnings, ValidationResult{ID: lineID, Quantity: qty})
	} else {
		res = s.record(s.lineWarnings, s.engine.ValidateQuantity(lineID, qty))
		if !res.OK() {
			return res, nil
		}
	}

	ledger, changed := SetLineQuantity(s.ledger, lineID, qty)
	if changed {
		s.ledger = ledger
		if qty < 1 {
			s.metrics.IncMutation("remove")
		} else {
			s.metrics.IncMutation("update")
		}
		s.persistLedger(ctx)
	}
	return res, nil
}

// ApplyCoupon replaces the session discount. The error is advisory; the
// returned state already carries the message to display.
func (s *Session) ApplyCoupon(code string) (CouponState, error) {
	if code == "" {
		return s.coupon, ErrCouponCodeRequired
	}
	state, err := s.engine.ApplyCoupon(code)
	s.coupon = state
	if err != nil {
		s.metrics.IncCoupon("invalid")
	} else {
		s.metrics.IncCoupon("applied")
	}
	return state, err
}

func (s *Session) Coupon() CouponState {
	return s.coupon
}

func (s *Session) Ledger() domain.Ledger {
	return s.ledger.Clone()
}

func (s *Session) Totals() Totals {
	return Total(s.ledger, s.coupon.DiscountPercent)
}

// Checkout hands the ledger to orders and empties the cart once accepted.
func (s *Session) Checkout(ctx context.Context, orders *OrderService, requestID string) (domain.Order, error) {
	order, err := orders.Checkout(s.ctx(ctx), requestID, s.id, s.ledger, s.coupon.DiscountPercent)
	if err != nil {
		return domain.Order{}, err
	}
	s.ledger = nil
	s.lineWarnings = make(map[domain.ID]string)
	s.metrics.IncMutation("clear")
	s.persistLedger(ctx)
	return order, nil
}
