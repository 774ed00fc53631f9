package storage

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-cart/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/shopcart?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := NewMySQLAdapter(db).Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestListCatalog(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	// Setup
	db.ExecContext(ctx, `DELETE FROM product_variants WHERE product_id = 'cat-shirt'`)
	_, err := db.ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, image, available, position)
		VALUES ('cat-shirt', 'Shirt', 'Cotton', 20.00, '', TRUE, 1)
		ON DUPLICATE KEY UPDATE price = 20.00`)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO product_variants (id, product_id, name, price, position)
		VALUES ('cat-shirt-s', 'cat-shirt', 'Small', 18.00, 0), ('cat-shirt-l', 'cat-shirt', 'Large', 25.00, 1)`)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, quantity, limit_per_purchase) VALUES ('cat-shirt', 10, NULL)
		ON DUPLICATE KEY UPDATE quantity = 10, limit_per_purchase = NULL`)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	products, err := adapter.ListProducts(ctx)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	var shirt *domain.Product
	for i := range products {
		if products[i].ID == "cat-shirt" {
			shirt = &products[i]
		}
	}
	if shirt == nil {
		t.Fatal("expected cat-shirt in catalog")
	}
	if len(shirt.Variants) != 2 || shirt.Variants[0].ID != "cat-shirt-s" {
		t.Errorf("unexpected variants: %+v", shirt.Variants)
	}
	if !shirt.Price.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected price 20, got %s", shirt.Price)
	}

	inv, err := adapter.GetInventory(ctx, "cat-shirt")
	if err != nil {
		t.Fatalf("GetInventory failed: %v", err)
	}
	if inv == nil || inv.Quantity != 10 || inv.HasLimit() {
		t.Errorf("unexpected inventory: %+v", inv)
	}
}

func TestCreateOrder_Success(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	// Setup - ensure inventory exists
	_, err := db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, quantity, version) VALUES ('test-item', 100, 0)
		ON DUPLICATE KEY UPDATE quantity = 100, version = 0`)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	order := domain.Order{
		ID:        "test-order-" + uuid.NewString(),
		RequestID: uuid.NewString(),
		SessionID: "test-session",
		Lines: []domain.OrderLine{
			{LineID: "test-item", ProductID: "test-item", Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
		},
		Subtotal:  decimal.NewFromInt(10),
		Total:     decimal.NewFromInt(10),
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	err = adapter.CreateOrder(ctx, order)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	// Verify order exists
	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM order_lines WHERE order_id = ?`, order.ID).Scan(&count)
	if count != 1 {
		t.Error("order line not found in database")
	}

	// Verify inventory decremented
	inv, _ := adapter.GetInventory(ctx, "test-item")
	if inv == nil || inv.Quantity != 99 {
		t.Errorf("expected stock 99, got %+v", inv)
	}

	// Cleanup
	db.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = ?`, order.ID)
	db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, order.ID)
	db.ExecContext(ctx, `UPDATE inventory SET quantity = 100, version = 0 WHERE product_id = 'test-item'`)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	// Setup - inventory with 0 stock
	_, err := db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, quantity, version) VALUES ('empty-item', 0, 0)
		ON DUPLICATE KEY UPDATE quantity = 0, version = 0`)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	order := domain.Order{
		ID:        "test-order-fail-" + uuid.NewString(),
		RequestID: uuid.NewString(),
		SessionID: "test-session",
		Lines:     []domain.OrderLine{{LineID: "empty-item", ProductID: "empty-item", Quantity: 1}},
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	err = adapter.CreateOrder(ctx, order)
	if err != ErrOptimisticLock {
		t.Errorf("expected ErrOptimisticLock, got %v", err)
	}

	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE id = ?`, order.ID).Scan(&count)
	if count != 0 {
		t.Error("expected order insert to be rolled back")
	}
}

func TestGetInventory_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)

	inv, err := adapter.GetInventory(ctx, "nonexistent-item")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv != nil {
		t.Error("expected nil for nonexistent item")
	}
}
