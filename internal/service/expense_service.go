package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopledger/internal/dto"
	"shopledger/internal/model"
	"shopledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseService interface {
	Create(ctx context.Context, createdBy string, req dto.CreateExpenseRequest) (*dto.ExpenseResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ExpenseResponse, error)
	List(ctx context.Context, filter dto.ExpenseFilter) (*dto.ExpenseListResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateExpenseRequest) (*dto.ExpenseResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CategorySummary(ctx context.Context, from, to *string) ([]dto.ExpenseCategoryBucket, error)
}

type expenseService struct {
	repo      repository.ExpenseRepository
	sequences repository.SequenceRepository
}

func NewExpenseService(repo repository.ExpenseRepository, sequences repository.SequenceRepository) ExpenseService {
	return &expenseService{repo: repo, sequences: sequences}
}

// Create allocates the period's next expense number and persists the record
// in one transaction, same allocator discipline as invoices.
func (s *expenseService) Create(ctx context.Context, createdBy string, req dto.CreateExpenseRequest) (*dto.ExpenseResponse, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidQuantity)
	}

	expenseDate := time.Now().UTC()
	if req.ExpenseDate != nil && *req.ExpenseDate != "" {
		if d, err := time.Parse("2006-01-02", *req.ExpenseDate); err == nil {
			expenseDate = d
		}
	}
	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	var e model.Expense
	err := withStoreRetry(ctx, func(attempt int) error {
		return withTimeout(ctx, func(ctx context.Context) error {
			txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
				period := expenseDate.Format("200601")
				seq, err := s.sequences.NextTx(ctx, tx, "EXP-"+period)
				if err != nil {
					return err
				}
				e = model.Expense{
					ExpenseNumber: fmt.Sprintf("EXP-%s-%05d", period, seq),
					Title:         req.Title,
					Description:   req.Description,
					Amount:        req.Amount,
					Category:      req.Category,
					PaymentMethod: paymentMethod,
					Vendor:        req.Vendor,
					ExpenseDate:   expenseDate,
					Notes:         req.Notes,
					CreatedBy:     createdBy,
				}
				return s.repo.CreateTx(tx, &e)
			})
			return classifyTxError(txErr)
		})
	})
	if err != nil {
		return nil, err
	}
	return expenseToResponse(&e), nil
}

func (s *expenseService) Get(ctx context.Context, id uuid.UUID) (*dto.ExpenseResponse, error) {
	e, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrExpenseNotFound
	}
	if err != nil {
		return nil, err
	}
	return expenseToResponse(e), nil
}

func (s *expenseService) List(ctx context.Context, filter dto.ExpenseFilter) (*dto.ExpenseListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	expenses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ExpenseResponse, 0, len(expenses))
	for i := range expenses {
		data = append(data, *expenseToResponse(&expenses[i]))
	}
	return &dto.ExpenseListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *expenseService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateExpenseRequest) (*dto.ExpenseResponse, error) {
	e, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrExpenseNotFound
	}
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = req.Description
	}
	if req.Category != nil {
		e.Category = *req.Category
	}
	if req.Amount != nil {
		if req.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidQuantity)
		}
		e.Amount = *req.Amount
	}
	if req.PaymentMethod != nil {
		e.PaymentMethod = *req.PaymentMethod
	}
	if req.Vendor != nil {
		e.Vendor = req.Vendor
	}
	if req.ExpenseDate != nil && *req.ExpenseDate != "" {
		if d, err := time.Parse("2006-01-02", *req.ExpenseDate); err == nil {
			e.ExpenseDate = d
		}
	}
	if req.Notes != nil {
		e.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	return expenseToResponse(e), nil
}

func (s *expenseService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrExpenseNotFound
	} else if err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *expenseService) CategorySummary(ctx context.Context, from, to *string) ([]dto.ExpenseCategoryBucket, error) {
	return s.repo.CategorySummary(ctx, from, to)
}

func expenseToResponse(e *model.Expense) *dto.ExpenseResponse {
	return &dto.ExpenseResponse{
		ID:            e.ID.String(),
		ExpenseNumber: e.ExpenseNumber,
		Title:         e.Title,
		Description:   e.Description,
		Category:      e.Category,
		Amount:        e.Amount,
		PaymentMethod: e.PaymentMethod,
		Vendor:        e.Vendor,
		ExpenseDate:   e.ExpenseDate.Format("2006-01-02"),
		Notes:         e.Notes,
		CreatedAt:     e.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
