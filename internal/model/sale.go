package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment status values derived from the paid/pending split.
const (
	PaymentPending = "pending"
	PaymentPartial = "partial"
	PaymentPaid    = "paid"
)

// Delivery status lifecycle.
var ValidDeliveryStatuses = map[string]bool{
	"pending": true, "processing": true, "shipped": true,
	"delivered": true, "cancelled": true,
}

// Sale is the audit record of a completed point-of-sale transaction.
// Line items are immutable once the sale is persisted — they capture what was
// actually sold at what price. Only payment and delivery state may change.
//
// Invariants maintained by SaleService:
//   - Subtotal == Σ Items.Total
//   - TotalAmount == Subtotal - TotalDiscount
//   - PaidAmount + PendingAmount == TotalAmount (pending floored at 0)
//   - Σ Payments.Amount == PaidAmount
type Sale struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InvoiceNumber string    `gorm:"uniqueIndex;not null"` // INV-YYYYMM-NNNNN

	CustomerName    string
	CustomerContact string

	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalDiscount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	PaymentMethod string          `gorm:"type:varchar(20);not null;default:'cash'"`
	PaymentStatus string          `gorm:"type:varchar(10);not null;index"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PendingAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	DeliveryStatus string     `gorm:"type:varchar(20);not null;default:'pending'"`
	DeliveryDate   *time.Time

	Notes     *string
	SaleDate  time.Time `gorm:"index;not null"`
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time

	Items    []SaleItem     `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Payments []PaymentEvent `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// SaleItem is one line of a sale. Name and SKU are snapshotted at sale time so
// the record survives later product edits or deletion.
type SaleItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"not null"`
	SKU       *string
	Quantity  decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null"` // Quantity * Price

	Product *Product `gorm:"foreignKey:ProductID"`
}

// PaymentEvent is an immutable entry in a sale's payment history.
// Events are only ever appended; Σ amounts always equals Sale.PaidAmount.
type PaymentEvent struct {
	ID     uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Date   time.Time       `gorm:"not null"`
	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Method string          `gorm:"type:varchar(20);not null;default:'cash'"`
	Notes  *string
}

// DerivePaymentStatus implements the pending/partial/paid rule.
func DerivePaymentStatus(paid, total decimal.Decimal) string {
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		return PaymentPending
	case paid.GreaterThanOrEqual(total):
		return PaymentPaid
	default:
		return PaymentPartial
	}
}
