package repository

import (
	"context"

	"shopledger/internal/dto"
	"shopledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	SaveTx(tx *gorm.DB, s *model.Sale) error
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error)

	// Analytics — SQL aggregation over the sales tables.
	Summary(ctx context.Context, from, to *string) (*dto.SalesSummary, error)
	ByPaymentMethod(ctx context.Context, from, to *string) ([]dto.PaymentMethodBucket, error)
	TopProducts(ctx context.Context, from, to *string, limit int) ([]dto.TopProduct, error)
	DailyTrend(ctx context.Context, from, to *string) ([]dto.DailyBucket, error)

	DB() *gorm.DB // exposes the DB for transaction creation in the service layer
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items.Product").Preload("Payments").
		First(&s, id).Error
	return &s, err
}

// FindByIDForUpdateTx reads the sale under SELECT … FOR UPDATE. The row lock
// is held until the transaction ends, so concurrent read-modify-write updates
// (payments) serialize instead of overwriting each other's writes.
func (r *saleRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, id).Error
	if err != nil {
		return nil, err
	}
	// Children load without the lock; locking the parent row is what
	// serializes the writers.
	err = tx.Preload("Items").Preload("Payments").First(&s, id).Error
	return &s, err
}

func (r *saleRepo) SaveTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Save(s).Error
}

func (r *saleRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	// Items and payment events cascade via FK constraints.
	return tx.Delete(&model.Sale{}, id).Error
}

func (r *saleRepo) List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Sale{})

	if filter.StartDate != "" {
		q = q.Where("sale_date >= ?", filter.StartDate)
	}
	if filter.EndDate != "" {
		q = q.Where("sale_date <= ?::date + interval '1 day'", filter.EndDate)
	}
	if filter.PaymentStatus != "" {
		q = q.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.DeliveryStatus != "" {
		q = q.Where("delivery_status = ?", filter.DeliveryStatus)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("invoice_number ILIKE ? OR customer_name ILIKE ? OR customer_contact ILIKE ?",
			like, like, like)
	}
	if filter.MinAmount != nil {
		q = q.Where("total_amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		q = q.Where("total_amount <= ?", *filter.MaxAmount)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "sale_date DESC"
	if filter.SortBy != "" {
		dir := "DESC"
		if filter.SortOrder == "asc" {
			dir = "ASC"
		}
		switch filter.SortBy {
		case "sale_date", "total_amount", "invoice_number", "created_at":
			order = filter.SortBy + " " + dir
		}
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Items.Product").Preload("Payments").
		Order(order).
		Offset(offset).Limit(filter.Limit).
		Find(&sales).Error
	return sales, total, err
}

// dateRange appends sale_date bounds when from/to are set (YYYY-MM-DD).
func dateRange(q *gorm.DB, col string, from, to *string) *gorm.DB {
	if from != nil && *from != "" {
		q = q.Where(col+" >= ?", *from)
	}
	if to != nil && *to != "" {
		q = q.Where(col+" <= ?::date + interval '1 day'", *to)
	}
	return q
}

func (r *saleRepo) Summary(ctx context.Context, from, to *string) (*dto.SalesSummary, error) {
	var s dto.SalesSummary
	q := dateRange(r.db.WithContext(ctx).Model(&model.Sale{}), "sale_date", from, to)
	err := q.Select(`
		COUNT(*)                              AS total_sales,
		COALESCE(SUM(total_amount), 0)        AS total_revenue,
		COALESCE(AVG(total_amount), 0)        AS avg_order_value,
		COUNT(*) FILTER (WHERE payment_status = 'paid')    AS paid_orders,
		COALESCE(SUM(total_amount) FILTER (WHERE payment_status = 'pending'), 0) AS pending_payments,
		COALESCE(SUM(pending_amount), 0)      AS outstanding_amount`).
		Scan(&s).Error
	return &s, err
}

func (r *saleRepo) ByPaymentMethod(ctx context.Context, from, to *string) ([]dto.PaymentMethodBucket, error) {
	var buckets []dto.PaymentMethodBucket
	q := dateRange(r.db.WithContext(ctx).Model(&model.Sale{}), "sale_date", from, to)
	err := q.Select("payment_method, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total").
		Group("payment_method").
		Order("total DESC").
		Scan(&buckets).Error
	return buckets, err
}

func (r *saleRepo) TopProducts(ctx context.Context, from, to *string, limit int) ([]dto.TopProduct, error) {
	if limit < 1 {
		limit = 10
	}
	var top []dto.TopProduct
	q := r.db.WithContext(ctx).Table("sale_items").
		Joins("JOIN sales ON sales.id = sale_items.sale_id")
	q = dateRange(q, "sales.sale_date", from, to)
	err := q.Select(`
		sale_items.product_id,
		MAX(sale_items.name)                 AS name,
		SUM(sale_items.quantity)             AS total_quantity,
		SUM(sale_items.total)                AS total_revenue,
		COUNT(DISTINCT sale_items.sale_id)   AS order_count`).
		Group("sale_items.product_id").
		Order("total_revenue DESC").
		Limit(limit).
		Scan(&top).Error
	return top, err
}

func (r *saleRepo) DailyTrend(ctx context.Context, from, to *string) ([]dto.DailyBucket, error) {
	var trend []dto.DailyBucket
	q := dateRange(r.db.WithContext(ctx).Model(&model.Sale{}), "sale_date", from, to)
	err := q.Select(`to_char(sale_date, 'YYYY-MM-DD') AS date,
		COUNT(*) AS count,
		COALESCE(SUM(total_amount), 0) AS revenue`).
		Group("to_char(sale_date, 'YYYY-MM-DD')").
		Order("date ASC").
		Scan(&trend).Error
	return trend, err
}
