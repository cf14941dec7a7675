package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Valid units of measure. The unit governs display precision only;
// quantities are always stored as decimal(12,3).
var ValidUnits = map[string]bool{
	"pcs": true, "kg": true, "g": true, "l": true,
	"ml": true, "box": true, "pack": true, "set": true,
}

// Product is a catalog item with live stock.
// Quantity must never go negative: the DB carries a CHECK constraint and all
// decrements go through a conditional UPDATE (see ProductRepository).
// Every quantity mutation writes a matching StockMovement in the same
// transaction, so the ledger reconstructs the current quantity by summation.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU         *string   `gorm:"uniqueIndex"`
	Barcode     *string   `gorm:"uniqueIndex"`
	Name        string    `gorm:"index;not null"`
	Description *string
	Category    string          `gorm:"index;not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CostPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// LowStockThreshold and ReorderLevel are informational — nothing blocks a
	// sale that crosses them, they only drive alerts and report counts.
	LowStockThreshold decimal.Decimal `gorm:"type:decimal(12,3);not null;default:10"`
	ReorderLevel      decimal.Decimal `gorm:"type:decimal(12,3);not null;default:20"`
	Unit              string          `gorm:"type:varchar(10);not null;default:'pcs'"`

	SupplierName    *string
	SupplierContact *string
	SupplierEmail   *string

	IsActive  bool `gorm:"not null;default:true"`
	CreatedBy string
	UpdatedBy *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockStatus classifies the current quantity against the thresholds.
func (p *Product) StockStatus() string {
	switch {
	case p.Quantity.IsZero():
		return "out_of_stock"
	case p.Quantity.LessThanOrEqual(p.LowStockThreshold):
		return "low_stock"
	case p.Quantity.LessThanOrEqual(p.ReorderLevel):
		return "reorder_needed"
	default:
		return "in_stock"
	}
}
