package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is a simple outgoing-money record. It shares the period-scoped
// number allocator with sales (EXP-YYYYMM-NNNNN) but has no inventory
// interaction.
type Expense struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ExpenseNumber string    `gorm:"uniqueIndex;not null"`
	Title         string    `gorm:"not null"`
	Description   *string
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Category      string          `gorm:"index;not null"`
	PaymentMethod string          `gorm:"type:varchar(20);not null;default:'cash'"`
	Vendor        *string
	ExpenseDate   time.Time `gorm:"index;not null"`
	Notes         *string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
