package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockMovement records each stock change of a product.
// Created automatically by sales, reversals, and manual adjustments.
type StockMovement struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Type      string    `gorm:"type:varchar(20);not null"` // "in" | "out" | "adjustment" | "return"
	// QuantityDelta is signed: positive = stock in, negative = stock out.
	QuantityDelta  decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	QuantityBefore decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	QuantityAfter  decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Reference      string
	Notes          *string
	CreatedAt      time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}
