package service

import (
	"context"
	"errors"
	"fmt"

	"shopledger/internal/dto"
	"shopledger/internal/model"
	"shopledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InventoryService interface {
	// Adjust applies a manual signed stock delta and records the movement in
	// the same transaction. Negative deltas go through the conditional
	// decrement, so an adjustment can never drive stock below zero.
	Adjust(ctx context.Context, productID uuid.UUID, req dto.AdjustStockRequest) (*dto.ProductResponse, error)
	Movements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error)
	// Audit verifies that Σ movement deltas reconstructs the live quantity.
	Audit(ctx context.Context, productID uuid.UUID) (*dto.StockAuditResponse, error)
	LowStock(ctx context.Context, limit int) ([]dto.ProductResponse, error)
}

type inventoryService struct {
	productRepo repository.ProductRepository
	movements   repository.StockMovementRepository
}

func NewInventoryService(productRepo repository.ProductRepository, movements repository.StockMovementRepository) InventoryService {
	return &inventoryService{productRepo: productRepo, movements: movements}
}

func (s *inventoryService) Adjust(ctx context.Context, productID uuid.UUID, req dto.AdjustStockRequest) (*dto.ProductResponse, error) {
	if req.Delta.IsZero() {
		return nil, fmt.Errorf("%w: zero delta", ErrInvalidQuantity)
	}
	if !req.Delta.Mul(quantityStep).IsInteger() {
		return nil, fmt.Errorf("%w: finer than 0.001 resolution", ErrInvalidQuantity)
	}

	var p *model.Product
	err := withTimeout(ctx, func(ctx context.Context) error {
		return runTx(ctx, s.productRepo.DB(), func(tx *gorm.DB) error {
			var after decimal.Decimal
			var err error
			if req.Delta.IsNegative() {
				after, err = s.productRepo.DecrementStockTx(tx, productID, req.Delta.Neg())
				if errors.Is(err, repository.ErrNoStock) {
					p, ferr := s.productRepo.FindByIDTx(tx, productID)
					if errors.Is(ferr, gorm.ErrRecordNotFound) {
						return ErrProductNotFound
					}
					if ferr != nil {
						return ferr
					}
					if !p.IsActive {
						return fmt.Errorf("%w: %s", ErrProductInactive, p.Name)
					}
					return fmt.Errorf("%w: %s has %s, delta %s",
						ErrInsufficientStock, p.Name, p.Quantity, req.Delta)
				}
			} else {
				after, err = s.productRepo.IncrementStockTx(tx, productID, req.Delta)
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrProductNotFound
				}
			}
			if err != nil {
				return err
			}

			mov := &model.StockMovement{
				ProductID:      productID,
				Type:           req.Type,
				QuantityDelta:  req.Delta,
				QuantityBefore: after.Sub(req.Delta),
				QuantityAfter:  after,
				Reference:      "manual adjustment",
				Notes:          req.Notes,
			}
			if err := s.movements.CreateTx(tx, mov); err != nil {
				return err
			}

			p, err = s.productRepo.FindByIDTx(tx, productID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return productToResponse(p), nil
}

func (s *inventoryService) Movements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	repoFilter := repository.StockMovementFilter{
		Type:  filter.Type,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	if filter.ProductID != "" {
		pid, err := uuid.Parse(filter.ProductID)
		if err != nil {
			return nil, ErrProductNotFound
		}
		repoFilter.ProductID = &pid
	}

	movements, total, err := s.movements.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	data := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		resp := dto.MovementResponse{
			ID:             m.ID.String(),
			ProductID:      m.ProductID.String(),
			Type:           m.Type,
			QuantityDelta:  m.QuantityDelta,
			QuantityBefore: m.QuantityBefore,
			QuantityAfter:  m.QuantityAfter,
			Notes:          m.Notes,
			CreatedAt:      m.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if m.Reference != "" {
			ref := m.Reference
			resp.Reference = &ref
		}
		if m.Product != nil {
			resp.ProductName = m.Product.Name
		}
		data = append(data, resp)
	}
	return &dto.MovementListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *inventoryService) Audit(ctx context.Context, productID uuid.UUID) (*dto.StockAuditResponse, error) {
	p, err := s.productRepo.FindByID(ctx, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	sum, err := s.movements.SumDeltas(ctx, productID)
	if err != nil {
		return nil, err
	}

	// Product creation writes the opening "in" movement, so a consistent
	// ledger sums exactly to the live quantity.
	drift := p.Quantity.Sub(sum)
	return &dto.StockAuditResponse{
		ProductID:       p.ID.String(),
		Name:            p.Name,
		CurrentQuantity: p.Quantity,
		MovementSum:     sum,
		Drift:           drift,
		Consistent:      drift.IsZero(),
	}, nil
}

func (s *inventoryService) LowStock(ctx context.Context, limit int) ([]dto.ProductResponse, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}
	products, err := s.productRepo.ListBelowThreshold(ctx, limit)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		resp = append(resp, *productToResponse(&products[i]))
	}
	return resp, nil
}
