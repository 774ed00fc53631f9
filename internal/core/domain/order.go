package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type OrderLine struct {
	LineID    ID
	ProductID ID
	Quantity  int
	UnitPrice decimal.Decimal
}

type Order struct {
	ID              string
	RequestID       string
	SessionID       string
	Lines           []OrderLine
	Subtotal        decimal.Decimal
	DiscountPercent int
	Total           decimal.Decimal
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
