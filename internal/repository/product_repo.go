package repository

import (
	"context"
	"errors"

	"shopledger/internal/dto"
	"shopledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrNoStock is returned by DecrementStockTx when the conditional update
// matched no row: the product either does not exist, is inactive, or does not
// hold the requested quantity. The service layer re-fetches to tell the cases
// apart.
var ErrNoStock = errors.New("conditional stock decrement matched no row")

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via mocks.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, p *model.Product) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
	Statistics(ctx context.Context) (*dto.ProductStatistics, error)
	ListBelowThreshold(ctx context.Context, limit int) ([]model.Product, error)

	// Used inside transactions — callers must pass the tx instance.
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error)

	// DecrementStockTx atomically subtracts qty from the product's quantity,
	// but only when the stored quantity is sufficient. Returns the quantity
	// AFTER the decrement, or ErrNoStock when the guard rejected the update.
	// This conditional write is what keeps two concurrent sales of the same
	// product from driving the quantity negative.
	DecrementStockTx(tx *gorm.DB, id uuid.UUID, qty decimal.Decimal) (decimal.Decimal, error)

	// IncrementStockTx adds qty unconditionally (reversals, returns,
	// restocks) and returns the quantity after the increment. It does not
	// require the product to be active: reversals must restore stock of
	// soft-deleted products too.
	IncrementStockTx(tx *gorm.DB, id uuid.UUID, qty decimal.Decimal) (decimal.Decimal, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *productRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := tx.First(&p, id).Error
	return &p, err
}

func (r *productRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("barcode = ? AND is_active = true", barcode).First(&p).Error
	return &p, err
}

func (r *productRepo) List(ctx context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Product{})

	// Active filter: "false" = inactive only, "all" = everything, default = active
	switch filter.Active {
	case "false":
		q = q.Where("is_active = false")
	case "all":
	default:
		q = q.Where("is_active = true")
	}

	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("name ILIKE ? OR description ILIKE ? OR sku ILIKE ? OR barcode ILIKE ?",
			like, like, like, like)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}

	switch filter.StockStatus {
	case "out_of_stock":
		q = q.Where("quantity = 0")
	case "low_stock":
		q = q.Where("quantity > 0 AND quantity <= low_stock_threshold")
	case "reorder":
		q = q.Where("quantity <= reorder_level")
	case "in_stock":
		q = q.Where("quantity > low_stock_threshold")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "name ASC"
	if filter.SortBy != "" {
		dir := "ASC"
		if filter.SortOrder == "desc" {
			dir = "DESC"
		}
		switch filter.SortBy {
		case "name", "price", "quantity", "category", "created_at":
			order = filter.SortBy + " " + dir
		}
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order(order).Limit(filter.Limit).Offset(offset).Find(&products).Error
	return products, total, err
}

func (r *productRepo) Categories(ctx context.Context) ([]string, error) {
	var cats []string
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("is_active = true").
		Distinct("category").
		Order("category ASC").
		Pluck("category", &cats).Error
	return cats, err
}

func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *productRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Update("is_active", false).Error
}

func (r *productRepo) Reactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Update("is_active", true).Error
}

func (r *productRepo) DecrementStockTx(tx *gorm.DB, id uuid.UUID, qty decimal.Decimal) (decimal.Decimal, error) {
	var after decimal.Decimal
	row := tx.Raw(`
		UPDATE products
		   SET quantity = quantity - ?, updated_at = NOW()
		 WHERE id = ? AND is_active = true AND quantity >= ?
		RETURNING quantity`, qty, id, qty)
	res := row.Scan(&after)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, ErrNoStock
	}
	return after, nil
}

func (r *productRepo) IncrementStockTx(tx *gorm.DB, id uuid.UUID, qty decimal.Decimal) (decimal.Decimal, error) {
	var after decimal.Decimal
	res := tx.Raw(`
		UPDATE products
		   SET quantity = quantity + ?, updated_at = NOW()
		 WHERE id = ?
		RETURNING quantity`, qty, id).Scan(&after)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	return after, nil
}

func (r *productRepo) Statistics(ctx context.Context) (*dto.ProductStatistics, error) {
	var stats dto.ProductStatistics
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)                                       AS total_products,
		       COALESCE(SUM(quantity * cost_price), 0)        AS total_inventory_value,
		       COALESCE(SUM(quantity * price), 0)             AS total_retail_value,
		       COALESCE(SUM(quantity * (price - cost_price)), 0) AS potential_profit,
		       COUNT(*) FILTER (WHERE quantity <= low_stock_threshold) AS low_stock_count,
		       COUNT(*) FILTER (WHERE quantity = 0)           AS out_of_stock_count
		  FROM products
		 WHERE is_active = true`).Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Raw(`
		SELECT category,
		       COUNT(*)                                AS count,
		       COALESCE(SUM(quantity * cost_price), 0) AS inventory_value
		  FROM products
		 WHERE is_active = true
		 GROUP BY category
		 ORDER BY inventory_value DESC`).Scan(&stats.ByCategory).Error
	return &stats, err
}

func (r *productRepo) ListBelowThreshold(ctx context.Context, limit int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("is_active = true AND quantity <= low_stock_threshold").
		Order("quantity ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *productRepo) DB() *gorm.DB { return r.db }
