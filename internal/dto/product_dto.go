package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	SKU               *string          `json:"sku"`
	Barcode           *string          `json:"barcode"`
	Name              string           `json:"name"     validate:"required,min=2,max=120"`
	Description       *string          `json:"description"`
	Category          string           `json:"category" validate:"required"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Price             decimal.Decimal  `json:"price"      validate:"required"`
	CostPrice         decimal.Decimal  `json:"cost_price"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
	ReorderLevel      *decimal.Decimal `json:"reorder_level"`
	Unit              string           `json:"unit" validate:"omitempty,oneof=pcs kg g l ml box pack set"`
	SupplierName      *string          `json:"supplier_name"`
	SupplierContact   *string          `json:"supplier_contact"`
	SupplierEmail     *string          `json:"supplier_email" validate:"omitempty,email"`
}

type UpdateProductRequest struct {
	SKU               *string          `json:"sku"`
	Barcode           *string          `json:"barcode"`
	Name              *string          `json:"name" validate:"omitempty,min=2,max=120"`
	Description       *string          `json:"description"`
	Category          *string          `json:"category"`
	Price             *decimal.Decimal `json:"price"`
	CostPrice         *decimal.Decimal `json:"cost_price"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
	ReorderLevel      *decimal.Decimal `json:"reorder_level"`
	Unit              *string          `json:"unit" validate:"omitempty,oneof=pcs kg g l ml box pack set"`
	SupplierName      *string          `json:"supplier_name"`
	SupplierContact   *string          `json:"supplier_contact"`
	SupplierEmail     *string          `json:"supplier_email" validate:"omitempty,email"`
}

// AdjustStockRequest applies a manual signed stock delta. Adjustments pass
// through the same conditional-update path as sales, so a decrement larger
// than the stored quantity is rejected instead of going negative.
type AdjustStockRequest struct {
	Delta decimal.Decimal `json:"delta" validate:"required"`
	Type  string          `json:"type"  validate:"required,oneof=adjustment return"`
	Notes *string         `json:"notes"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductFilter struct {
	Search      string           `form:"search"`
	Category    string           `form:"category"`
	StockStatus string           `form:"stock_status"` // low_stock | out_of_stock | in_stock | reorder
	Active      string           `form:"active"`       // "false" | "all" | default active
	MinPrice    *decimal.Decimal `form:"min_price"`
	MaxPrice    *decimal.Decimal `form:"max_price"`
	SortBy      string           `form:"sort_by,default=name"`
	SortOrder   string           `form:"sort_order,default=asc"`
	Page        int              `form:"page,default=1"   validate:"min=1"`
	Limit       int              `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	ID                string          `json:"id"`
	SKU               *string         `json:"sku,omitempty"`
	Barcode           *string         `json:"barcode,omitempty"`
	Name              string          `json:"name"`
	Description       *string         `json:"description,omitempty"`
	Category          string          `json:"category"`
	Quantity          decimal.Decimal `json:"quantity"`
	Price             decimal.Decimal `json:"price"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	ReorderLevel      decimal.Decimal `json:"reorder_level"`
	Unit              string          `json:"unit"`
	StockStatus       string          `json:"stock_status"`
	SupplierName      *string         `json:"supplier_name,omitempty"`
	SupplierContact   *string         `json:"supplier_contact,omitempty"`
	SupplierEmail     *string         `json:"supplier_email,omitempty"`
	IsActive          bool            `json:"is_active"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type CategoryBucket struct {
	Category       string          `json:"category"`
	Count          int64           `json:"count"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
}

type ProductStatistics struct {
	TotalProducts       int64            `json:"total_products"`
	TotalInventoryValue decimal.Decimal  `json:"total_inventory_value"`
	TotalRetailValue    decimal.Decimal  `json:"total_retail_value"`
	PotentialProfit     decimal.Decimal  `json:"potential_profit"`
	LowStockCount       int64            `json:"low_stock_count"`
	OutOfStockCount     int64            `json:"out_of_stock_count"`
	ByCategory          []CategoryBucket `json:"by_category" gorm:"-"`
}

// PriceLookupResponse is returned by the public barcode price endpoint.
type PriceLookupResponse struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
	Category string          `json:"category"`
}
