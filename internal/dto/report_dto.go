package dto

import "github.com/shopspring/decimal"

// DashboardResponse aggregates the period's sales, expenses and inventory
// health into one payload for the front page.
type DashboardResponse struct {
	Period    PeriodRange             `json:"period"`
	Sales     SalesSummary            `json:"sales"`
	Expenses  ExpenseSummary          `json:"expenses"`
	NetProfit decimal.Decimal         `json:"net_profit"`
	ByMethod  []PaymentMethodBucket   `json:"sales_by_payment_method"`
	TopSpend  []ExpenseCategoryBucket `json:"expenses_by_category"`
	Inventory InventoryHealth         `json:"inventory"`
}

type PeriodRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type InventoryHealth struct {
	TotalProducts   int64           `json:"total_products"`
	InventoryValue  decimal.Decimal `json:"inventory_value"`
	LowStockCount   int64           `json:"low_stock_count"`
	OutOfStockCount int64           `json:"out_of_stock_count"`
}

type ReportFilter struct {
	StartDate string `form:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date"   validate:"omitempty,datetime=2006-01-02"`
}
