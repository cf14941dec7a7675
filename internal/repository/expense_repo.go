package repository

import (
	"context"

	"shopledger/internal/dto"
	"shopledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExpenseRepository interface {
	CreateTx(tx *gorm.DB, e *model.Expense) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Expense, error)
	List(ctx context.Context, filter dto.ExpenseFilter) ([]model.Expense, int64, error)
	Update(ctx context.Context, e *model.Expense) error
	Delete(ctx context.Context, id uuid.UUID) error
	CategorySummary(ctx context.Context, from, to *string) ([]dto.ExpenseCategoryBucket, error)
	Total(ctx context.Context, from, to *string) (*dto.ExpenseSummary, error)
	DB() *gorm.DB
}

type expenseRepo struct{ db *gorm.DB }

func NewExpenseRepository(db *gorm.DB) ExpenseRepository { return &expenseRepo{db: db} }

func (r *expenseRepo) DB() *gorm.DB { return r.db }

func (r *expenseRepo) CreateTx(tx *gorm.DB, e *model.Expense) error {
	return tx.Create(e).Error
}

func (r *expenseRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Expense, error) {
	var e model.Expense
	err := r.db.WithContext(ctx).First(&e, id).Error
	return &e, err
}

func (r *expenseRepo) List(ctx context.Context, filter dto.ExpenseFilter) ([]model.Expense, int64, error) {
	var expenses []model.Expense
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Expense{})

	if filter.StartDate != "" {
		q = q.Where("expense_date >= ?", filter.StartDate)
	}
	if filter.EndDate != "" {
		q = q.Where("expense_date <= ?::date + interval '1 day'", filter.EndDate)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.MinAmount != nil {
		q = q.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		q = q.Where("amount <= ?", *filter.MaxAmount)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("expense_number ILIKE ? OR title ILIKE ? OR description ILIKE ?", like, like, like)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("expense_date DESC").Offset(offset).Limit(filter.Limit).Find(&expenses).Error
	return expenses, total, err
}

func (r *expenseRepo) Update(ctx context.Context, e *model.Expense) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *expenseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Expense{}, id).Error
}

func (r *expenseRepo) CategorySummary(ctx context.Context, from, to *string) ([]dto.ExpenseCategoryBucket, error) {
	var buckets []dto.ExpenseCategoryBucket
	q := dateRange(r.db.WithContext(ctx).Model(&model.Expense{}), "expense_date", from, to)
	err := q.Select("category, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Group("category").
		Order("total DESC").
		Scan(&buckets).Error
	return buckets, err
}

func (r *expenseRepo) Total(ctx context.Context, from, to *string) (*dto.ExpenseSummary, error) {
	var s dto.ExpenseSummary
	q := dateRange(r.db.WithContext(ctx).Model(&model.Expense{}), "expense_date", from, to)
	err := q.Select(`COUNT(*) AS total_expenses,
		COALESCE(SUM(amount), 0) AS total_amount,
		COALESCE(AVG(amount), 0) AS avg_expense`).
		Scan(&s).Error
	return &s, err
}
