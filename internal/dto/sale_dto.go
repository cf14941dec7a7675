package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SaleItemRequest is one requested line: product, quantity, unit price.
// Quantity is fractional (kg/l support) down to 0.001.
type SaleItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity"   validate:"required"`
	Price     decimal.Decimal `json:"price"      validate:"required"`
}

type CustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address"`
}

type CreateSaleRequest struct {
	Items         []SaleItemRequest `json:"items"          validate:"required,min=1,dive"`
	Customer      *CustomerRequest  `json:"customer"`
	PaymentMethod string            `json:"payment_method" validate:"omitempty,oneof=cash card bank_transfer credit check mobile_payment other"`
	Discount      decimal.Decimal   `json:"discount"`
	// PaidAmount nil means full payment (an explicit caller decision — pass 0
	// for a fully pending sale).
	PaidAmount *decimal.Decimal `json:"paid_amount"`
	Notes      *string          `json:"notes"`
	SaleDate   *string          `json:"sale_date" validate:"omitempty,datetime=2006-01-02"`
}

type AddPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Method string          `json:"method" validate:"omitempty,oneof=cash card bank_transfer credit check mobile_payment other"`
	Notes  *string         `json:"notes"`
}

type UpdateDeliveryRequest struct {
	DeliveryStatus string  `json:"delivery_status" validate:"required,oneof=pending processing shipped delivered cancelled"`
	DeliveryDate   *string `json:"delivery_date"   validate:"omitempty,datetime=2006-01-02"`
}

// ─── Filter / List ───────────────────────────────────────────────────────────

// SaleFilter is bound from the query string of GET /v1/sales.
type SaleFilter struct {
	StartDate      string           `form:"start_date"`
	EndDate        string           `form:"end_date"`
	PaymentStatus  string           `form:"payment_status"`
	DeliveryStatus string           `form:"delivery_status"`
	Search         string           `form:"search"`
	MinAmount      *decimal.Decimal `form:"min_amount"`
	MaxAmount      *decimal.Decimal `form:"max_amount"`
	SortBy         string           `form:"sort_by,default=sale_date"`
	SortOrder      string           `form:"sort_order,default=desc"`
	Page           int              `form:"page,default=1"   validate:"min=1"`
	Limit          int              `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleItemResponse struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SKU       *string         `json:"sku,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

type PaymentEventResponse struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	Notes  *string         `json:"notes,omitempty"`
}

type SaleResponse struct {
	ID              string                 `json:"id"`
	InvoiceNumber   string                 `json:"invoice_number"`
	Items           []SaleItemResponse     `json:"items"`
	CustomerName    string                 `json:"customer_name"`
	CustomerContact string                 `json:"customer_contact"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
	TotalDiscount   decimal.Decimal        `json:"total_discount"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	PaymentMethod   string                 `json:"payment_method"`
	PaymentStatus   string                 `json:"payment_status"`
	PaidAmount      decimal.Decimal        `json:"paid_amount"`
	PendingAmount   decimal.Decimal        `json:"pending_amount"`
	DeliveryStatus  string                 `json:"delivery_status"`
	PaymentHistory  []PaymentEventResponse `json:"payment_history"`
	Notes           *string                `json:"notes,omitempty"`
	SaleDate        string                 `json:"sale_date"`
	CreatedAt       string                 `json:"created_at"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// ─── Analytics ───────────────────────────────────────────────────────────────

type SalesSummary struct {
	TotalSales        int64           `json:"total_sales"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AvgOrderValue     decimal.Decimal `json:"avg_order_value"`
	PaidOrders        int64           `json:"paid_orders"`
	PendingPayments   decimal.Decimal `json:"pending_payments"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
}

type PaymentMethodBucket struct {
	PaymentMethod string          `json:"payment_method"`
	Count         int64           `json:"count"`
	Total         decimal.Decimal `json:"total"`
}

type TopProduct struct {
	ProductID     string          `json:"product_id"`
	Name          string          `json:"name"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	OrderCount    int64           `json:"order_count"`
}

type DailyBucket struct {
	Date    string          `json:"date"`
	Count   int64           `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type SalesAnalyticsResponse struct {
	Summary         SalesSummary          `json:"summary"`
	ByPaymentMethod []PaymentMethodBucket `json:"by_payment_method"`
	TopProducts     []TopProduct          `json:"top_products"`
	DailyTrend      []DailyBucket         `json:"daily_trend"`
}
