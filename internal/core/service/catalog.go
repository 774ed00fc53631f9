package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/rl1809/shop-cart/internal/core/domain"
	"github.com/rl1809/shop-cart/internal/port"
)

var validate = validator.New()

// Catalog is an immutable snapshot of the product, inventory and coupon feeds.
type Catalog struct {
	products  []domain.Product
	byID      map[domain.ID]int
	inventory map[domain.ID]domain.Inventory
	coupons   map[string]domain.Coupon
}

func NewCatalog(products []domain.Product, inventory []domain.Inventory, coupons []domain.Coupon) (*Catalog, error) {
	c := &Catalog{
		products:  make([]domain.Product, 0, len(products)),
		byID:      make(map[domain.ID]int, len(products)),
		inventory: make(map[domain.ID]domain.Inventory, len(inventory)),
		coupons:   make(map[string]domain.Coupon, len(coupons)),
	}

	for _, p := range products {
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("product %q: %w", p.ID, err)
		}
		if p.Price.IsNegative() {
			return nil, fmt.Errorf("product %q: negative price", p.ID)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("product %q: duplicate id", p.ID)
		}
		seen := make(map[domain.ID]struct{}, len(p.Variants))
		for _, v := range p.Variants {
			if v.Price.IsNegative() {
				return nil, fmt.Errorf("product %q variant %q: negative price", p.ID, v.ID)
			}
			if _, dup := seen[v.ID]; dup {
				return nil, fmt.Errorf("product %q variant %q: duplicate id", p.ID, v.ID)
			}
			seen[v.ID] = struct{}{}
		}
		p.Variants = append([]domain.Variant(nil), p.Variants...)
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}

	for _, inv := range inventory {
		if err := validate.Struct(inv); err != nil {
			return nil, fmt.Errorf("inventory %q: %w", inv.ProductID, err)
		}
		c.inventory[inv.ProductID] = inv
	}

	for _, cp := range coupons {
		if err := validate.Struct(cp); err != nil {
			return nil, fmt.Errorf("coupon %q: %w", cp.Code, err)
		}
		if _, dup := c.coupons[cp.Code]; dup {
			return nil, fmt.Errorf("coupon %q: duplicate code", cp.Code)
		}
		c.coupons[cp.Code] = cp
	}

	return c, nil
}

// LoadCatalog reads every feed from repo once and builds the snapshot.
func LoadCatalog(ctx context.Context, repo port.CatalogRepository) (*Catalog, error) {
	products, err := repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	inventory, err := repo.ListInventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	coupons, err := repo.ListCoupons(ctx)
	if err != nil {
		return nil, fmt.Errorf("load coupons: %w", err)
	}
	return NewCatalog(products, inventory, coupons)
}

func (c *Catalog) Product(id domain.ID) (domain.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Product{}, false
	}
	return c.products[i], true
}

// Products returns every product in feed order.
func (c *Catalog) Products() []domain.Product {
	return append([]domain.Product(nil), c.products...)
}

// Available returns the products that may be shown in the catalog views.
func (c *Catalog) Available() []domain.Product {
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if p.Available {
			out = append(out, p)
		}
	}
	return out
}

func (c *Catalog) Inventory(productID domain.ID) (domain.Inventory, bool) {
	inv, ok := c.inventory[productID]
	return inv, ok
}

// InventoryRecords returns every inventory record, in no particular order.
func (c *Catalog) InventoryRecords() []domain.Inventory {
	out := make([]domain.Inventory, 0, len(c.inventory))
	for _, inv := range c.inventory {
		out = append(out, inv)
	}
	return out
}

// Coupon looks up a coupon by exact, case-sensitive code.
func (c *Catalog) Coupon(code string) (domain.Coupon, bool) {
	cp, ok := c.coupons[code]
	return cp, ok
}
