package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rl1809/shop-cart/internal/core/domain"
)

const (
	productsFile  = "products.json"
	inventoryFile = "inventory.json"
	couponsFile   = "coupons.json"
)

// JSONCatalog reads the catalog feeds from a directory of JSON arrays.
type JSONCatalog struct {
	dir string
}

func NewJSONCatalog(dir string) *JSONCatalog {
	return &JSONCatalog{dir: dir}
}

func (j *JSONCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	if err := j.read(productsFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *JSONCatalog) ListInventory(ctx context.Context) ([]domain.Inventory, error) {
	var out []domain.Inventory
	if err := j.read(inventoryFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *JSONCatalog) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	var out []domain.Coupon
	if err := j.read(couponsFile, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *JSONCatalog) read(name string, dest any) error {
	path := filepath.Join(j.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
