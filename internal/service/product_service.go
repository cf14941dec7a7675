package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shopledger/internal/dto"
	"shopledger/internal/model"
	"shopledger/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// priceCacheTTL bounds staleness of the public barcode lookup. Writes to a
// product invalidate its entry eagerly, the TTL only covers missed
// invalidations.
const priceCacheTTL = 5 * time.Minute

type ProductService interface {
	Create(ctx context.Context, createdBy string, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, updatedBy string, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
	Statistics(ctx context.Context) (*dto.ProductStatistics, error)
	// PriceLookup serves the unauthenticated price-check endpoint, backed by a
	// short-lived Redis cache.
	PriceLookup(ctx context.Context, barcode string) (*dto.PriceLookupResponse, error)
}

type productService struct {
	repo repository.ProductRepository
	rdb  *redis.Client
}

func NewProductService(repo repository.ProductRepository, rdb *redis.Client) ProductService {
	return &productService{repo: repo, rdb: rdb}
}

func (s *productService) Create(ctx context.Context, createdBy string, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if req.Quantity.IsNegative() {
		return nil, fmt.Errorf("%w: negative quantity", ErrInvalidQuantity)
	}
	if req.Price.IsNegative() || req.CostPrice.IsNegative() {
		return nil, fmt.Errorf("%w: negative price", ErrInvalidQuantity)
	}
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}
	if !model.ValidUnits[unit] {
		return nil, fmt.Errorf("%w: unit %q", ErrInvalidInput, unit)
	}

	p := &model.Product{
		SKU:             req.SKU,
		Barcode:         req.Barcode,
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		Quantity:        req.Quantity,
		Price:           req.Price,
		CostPrice:       req.CostPrice,
		Unit:            unit,
		SupplierName:    req.SupplierName,
		SupplierContact: req.SupplierContact,
		SupplierEmail:   req.SupplierEmail,
		IsActive:        true,
		CreatedBy:       createdBy,
	}
	if req.LowStockThreshold != nil {
		p.LowStockThreshold = *req.LowStockThreshold
	}
	if req.ReorderLevel != nil {
		p.ReorderLevel = *req.ReorderLevel
	}

	// Creation opens the movement ledger: the initial quantity lands as an
	// "in" movement in the same transaction, so Σ deltas always reconstructs
	// the live quantity.
	if err := withTimeout(ctx, func(ctx context.Context) error {
		return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			if tx == nil {
				return s.repo.Create(ctx, p)
			}
			if err := tx.Create(p).Error; err != nil {
				return err
			}
			if p.Quantity.GreaterThan(decimal.Zero) {
				mov := &model.StockMovement{
					ProductID:      p.ID,
					Type:           "in",
					QuantityDelta:  p.Quantity,
					QuantityBefore: decimal.Zero,
					QuantityAfter:  p.Quantity,
					Reference:      "initial stock",
				}
				return tx.Create(mov).Error
			}
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return productToResponse(p), nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return productToResponse(p), nil
}

func (s *productService) List(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		data = append(data, *productToResponse(&products[i]))
	}
	return &dto.ProductListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *productService) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

func (s *productService) Update(ctx context.Context, updatedBy string, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	oldBarcode := p.Barcode

	if req.SKU != nil {
		p.SKU = req.SKU
	}
	if req.Barcode != nil {
		p.Barcode = req.Barcode
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, fmt.Errorf("%w: negative price", ErrInvalidQuantity)
		}
		p.Price = *req.Price
	}
	if req.CostPrice != nil {
		p.CostPrice = *req.CostPrice
	}
	if req.LowStockThreshold != nil {
		p.LowStockThreshold = *req.LowStockThreshold
	}
	if req.ReorderLevel != nil {
		p.ReorderLevel = *req.ReorderLevel
	}
	if req.Unit != nil {
		if !model.ValidUnits[*req.Unit] {
			return nil, fmt.Errorf("%w: unit %q", ErrInvalidInput, *req.Unit)
		}
		p.Unit = *req.Unit
	}
	if req.SupplierName != nil {
		p.SupplierName = req.SupplierName
	}
	if req.SupplierContact != nil {
		p.SupplierContact = req.SupplierContact
	}
	if req.SupplierEmail != nil {
		p.SupplierEmail = req.SupplierEmail
	}
	p.UpdatedBy = &updatedBy

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.invalidatePriceCache(ctx, oldBarcode)
	s.invalidatePriceCache(ctx, p.Barcode)
	return productToResponse(p), nil
}

func (s *productService) Deactivate(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.invalidatePriceCache(ctx, p.Barcode)
	return nil
}

func (s *productService) Reactivate(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Reactivate(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrProductNotFound
	}
	return err
}

func (s *productService) Statistics(ctx context.Context) (*dto.ProductStatistics, error) {
	return s.repo.Statistics(ctx)
}

func (s *productService) PriceLookup(ctx context.Context, barcode string) (*dto.PriceLookupResponse, error) {
	key := priceCacheKey(barcode)

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
			var resp dto.PriceLookupResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	p, err := s.repo.FindByBarcode(ctx, barcode)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	resp := &dto.PriceLookupResponse{
		Name:     p.Name,
		Price:    p.Price,
		Quantity: p.Quantity,
		Unit:     p.Unit,
		Category: p.Category,
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, key, raw, priceCacheTTL).Err(); err != nil {
				log.Debug().Err(err).Str("barcode", barcode).Msg("price cache write failed")
			}
		}
	}
	return resp, nil
}

func (s *productService) invalidatePriceCache(ctx context.Context, barcode *string) {
	if s.rdb == nil || barcode == nil || *barcode == "" {
		return
	}
	if err := s.rdb.Del(ctx, priceCacheKey(*barcode)).Err(); err != nil {
		log.Debug().Err(err).Str("barcode", *barcode).Msg("price cache invalidation failed")
	}
}

func priceCacheKey(barcode string) string { return "price:" + barcode }

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		ID:                p.ID.String(),
		SKU:               p.SKU,
		Barcode:           p.Barcode,
		Name:              p.Name,
		Description:       p.Description,
		Category:          p.Category,
		Quantity:          p.Quantity,
		Price:             p.Price,
		CostPrice:         p.CostPrice,
		LowStockThreshold: p.LowStockThreshold,
		ReorderLevel:      p.ReorderLevel,
		Unit:              p.Unit,
		StockStatus:       p.StockStatus(),
		SupplierName:      p.SupplierName,
		SupplierContact:   p.SupplierContact,
		SupplierEmail:     p.SupplierEmail,
		IsActive:          p.IsActive,
	}
}
