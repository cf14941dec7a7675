package dto

import "github.com/shopspring/decimal"

type MovementFilter struct {
	ProductID string `form:"product_id" validate:"omitempty,uuid"`
	Type      string `form:"type"       validate:"omitempty,oneof=in out adjustment return"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type MovementResponse struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name,omitempty"`
	Type           string          `json:"type"`
	QuantityDelta  decimal.Decimal `json:"quantity_delta"`
	QuantityBefore decimal.Decimal `json:"quantity_before"`
	QuantityAfter  decimal.Decimal `json:"quantity_after"`
	Reference      *string         `json:"reference,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

// StockAuditResponse reports whether the movement ledger reconstructs the
// product's live quantity.
type StockAuditResponse struct {
	ProductID       string          `json:"product_id"`
	Name            string          `json:"name"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	MovementSum     decimal.Decimal `json:"movement_sum"`
	Drift           decimal.Decimal `json:"drift"`
	Consistent      bool            `json:"consistent"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
