package dto

import "github.com/shopspring/decimal"

type CreateExpenseRequest struct {
	Title         string          `json:"title"    validate:"required,min=2,max=120"`
	Description   *string         `json:"description"`
	Category      string          `json:"category" validate:"required"`
	Amount        decimal.Decimal `json:"amount"   validate:"required"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=cash card bank_transfer credit check mobile_payment other"`
	Vendor        *string         `json:"vendor"`
	ExpenseDate   *string         `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
	Notes         *string         `json:"notes"`
}

type UpdateExpenseRequest struct {
	Title         *string          `json:"title" validate:"omitempty,min=2,max=120"`
	Description   *string          `json:"description"`
	Category      *string          `json:"category"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod *string          `json:"payment_method" validate:"omitempty,oneof=cash card bank_transfer credit check mobile_payment other"`
	Vendor        *string          `json:"vendor"`
	ExpenseDate   *string          `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
	Notes         *string          `json:"notes"`
}

type ExpenseFilter struct {
	StartDate string           `form:"start_date"`
	EndDate   string           `form:"end_date"`
	Category  string           `form:"category"`
	MinAmount *decimal.Decimal `form:"min_amount"`
	MaxAmount *decimal.Decimal `form:"max_amount"`
	Search    string           `form:"search"`
	Page      int              `form:"page,default=1"   validate:"min=1"`
	Limit     int              `form:"limit,default=50" validate:"min=1,max=200"`
}

type ExpenseResponse struct {
	ID            string          `json:"id"`
	ExpenseNumber string          `json:"expense_number"`
	Title         string          `json:"title"`
	Description   *string         `json:"description,omitempty"`
	Category      string          `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Vendor        *string         `json:"vendor,omitempty"`
	ExpenseDate   string          `json:"expense_date"`
	Notes         *string         `json:"notes,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

type ExpenseListResponse struct {
	Data  []ExpenseResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type ExpenseCategoryBucket struct {
	Category string          `json:"category"`
	Count    int64           `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

type ExpenseSummary struct {
	TotalExpenses int64           `json:"total_expenses"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	AvgExpense    decimal.Decimal `json:"avg_expense"`
}
