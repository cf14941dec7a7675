package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopledger/internal/dto"
	"shopledger/internal/model"
	"shopledger/internal/repository"
	"shopledger/internal/worker"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleService interface {
	Create(ctx context.Context, createdBy string, req dto.CreateSaleRequest) (*dto.SaleResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
	List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error)
	AddPayment(ctx context.Context, id uuid.UUID, req dto.AddPaymentRequest) (*dto.SaleResponse, error)
	UpdateDelivery(ctx context.Context, id uuid.UUID, req dto.UpdateDeliveryRequest) (*dto.SaleResponse, error)
	Reverse(ctx context.Context, id uuid.UUID) error
	Analytics(ctx context.Context, from, to *string) (*dto.SalesAnalyticsResponse, error)
}

type saleService struct {
	repo        repository.SaleRepository
	productRepo repository.ProductRepository
	movements   repository.StockMovementRepository
	sequences   repository.SequenceRepository
	dispatcher  *worker.Dispatcher
}

func NewSaleService(
	repo repository.SaleRepository,
	productRepo repository.ProductRepository,
	movements repository.StockMovementRepository,
	sequences repository.SequenceRepository,
	dispatcher *worker.Dispatcher,
) SaleService {
	return &saleService{
		repo:        repo,
		productRepo: productRepo,
		movements:   movements,
		sequences:   sequences,
		dispatcher:  dispatcher,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// quantityStep is the finest sellable resolution (1 g / 1 ml).
var quantityStep = decimal.NewFromInt(1000)

// ── Create ───────────────────────────────────────────────────────────────────
// The whole write is one ACID transaction:
//  1. Resolve and validate every line outside the transaction (fast reject).
//  2. BEGIN TX: allocate the next invoice number for the sale's month,
//     create the sale with items and the opening payment event, then
//     conditionally decrement stock per line and record a movement.
//  3. COMMIT. Any line failing its decrement aborts the whole sale, so stock
//     is never partially consumed.
//
// A duplicate invoice number or a store timeout rolls back and re-runs the
// transaction from scratch with a fresh number, up to maxStoreAttempts.

func (s *saleService) Create(ctx context.Context, createdBy string, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	type resolvedItem struct {
		productID uuid.UUID
		name      string
		sku       *string
		quantity  decimal.Decimal
		price     decimal.Decimal
		total     decimal.Decimal
	}

	// 1. Pre-flight: validate lines and snapshot product details.
	resolved := make([]resolvedItem, 0, len(req.Items))
	subtotal := decimal.Zero
	for _, item := range req.Items {
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidQuantity)
		}
		if !item.Quantity.Mul(quantityStep).IsInteger() {
			return nil, fmt.Errorf("%w: finer than 0.001 resolution", ErrInvalidQuantity)
		}
		if item.Price.IsNegative() {
			return nil, fmt.Errorf("%w: negative price", ErrInvalidQuantity)
		}

		pid, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		var p *model.Product
		err = withTimeout(ctx, func(ctx context.Context) error {
			p, err = s.productRepo.FindByID(ctx, pid)
			return err
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if !p.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrProductInactive, p.Name)
		}
		if p.Quantity.LessThan(item.Quantity) {
			return nil, fmt.Errorf("%w: %s has %s, requested %s",
				ErrInsufficientStock, p.Name, p.Quantity, item.Quantity)
		}

		lineTotal := item.Price.Mul(item.Quantity)
		subtotal = subtotal.Add(lineTotal)
		resolved = append(resolved, resolvedItem{
			productID: pid,
			name:      p.Name,
			sku:       p.SKU,
			quantity:  item.Quantity,
			price:     item.Price,
			total:     lineTotal,
		})
	}

	// 2. Totals and payment split. The discount is clamped into
	// [0, subtotal]: an over-large discount makes the sale free, it does
	// not fail it.
	discount := req.Discount
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	total := subtotal.Sub(discount)

	// Omitted paid_amount means the sale was settled in full at the counter.
	paid := total
	if req.PaidAmount != nil {
		paid = *req.PaidAmount
	}
	if paid.IsNegative() {
		return nil, fmt.Errorf("%w: negative paid amount", ErrInvalidQuantity)
	}
	pending := total.Sub(paid)
	if pending.IsNegative() {
		pending = decimal.Zero // overpayment: nothing outstanding
	}

	saleDate := time.Now().UTC()
	if req.SaleDate != nil && *req.SaleDate != "" {
		if d, err := time.Parse("2006-01-02", *req.SaleDate); err == nil {
			saleDate = d
		}
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	// 3. Transactional commit, retried on transient store failures.
	var sale model.Sale
	err := withStoreRetry(ctx, func(attempt int) error {
		return withTimeout(ctx, func(ctx context.Context) error {
			txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
				period := saleDate.Format("200601")
				seq, err := s.sequences.NextTx(ctx, tx, "INV-"+period)
				if err != nil {
					return err
				}
				invoice := fmt.Sprintf("INV-%s-%05d", period, seq)

				sale = model.Sale{
					InvoiceNumber: invoice,
					Subtotal:      subtotal,
					TotalDiscount: discount,
					TotalAmount:   total,
					PaymentMethod: paymentMethod,
					PaymentStatus: model.DerivePaymentStatus(paid, total),
					PaidAmount:    paid,
					PendingAmount: pending,
					Notes:         req.Notes,
					SaleDate:      saleDate,
					CreatedBy:     createdBy,
				}
				if req.Customer != nil {
					sale.CustomerName = req.Customer.Name
					sale.CustomerContact = req.Customer.Phone
				}
				for _, r := range resolved {
					sale.Items = append(sale.Items, model.SaleItem{
						ProductID: r.productID,
						Name:      r.name,
						SKU:       r.sku,
						Quantity:  r.quantity,
						Price:     r.price,
						Total:     r.total,
					})
				}
				if paid.GreaterThan(decimal.Zero) {
					sale.Payments = append(sale.Payments, model.PaymentEvent{
						Date:   saleDate,
						Amount: paid,
						Method: paymentMethod,
					})
				}

				if err := s.repo.CreateTx(tx, &sale); err != nil {
					return err
				}

				// Decrement each line. The conditional update is the only
				// stock guard — the pre-flight check above can be stale the
				// moment it returns.
				for _, r := range resolved {
					after, err := s.productRepo.DecrementStockTx(tx, r.productID, r.quantity)
					if errors.Is(err, repository.ErrNoStock) {
						return s.classifyDecrementFailure(tx, r.productID, r.name, r.quantity)
					}
					if err != nil {
						return err
					}

					mov := &model.StockMovement{
						ProductID:      r.productID,
						Type:           "out",
						QuantityDelta:  r.quantity.Neg(),
						QuantityBefore: after.Add(r.quantity),
						QuantityAfter:  after,
						Reference:      invoice,
					}
					if err := s.movements.CreateTx(tx, mov); err != nil {
						return err
					}
				}
				return nil
			})
			return classifyTxError(txErr)
		})
	})
	if err != nil {
		return nil, err
	}

	// Best-effort: let the low-stock worker re-check the products we touched.
	if s.dispatcher != nil {
		ids := make([]string, 0, len(resolved))
		for _, r := range resolved {
			ids = append(ids, r.productID.String())
		}
		_ = s.dispatcher.EnqueueStockCheck(ctx, ids)
	}

	return saleToResponse(&sale), nil
}

// classifyDecrementFailure re-fetches the product inside the transaction to
// turn a rejected conditional decrement into the precise error kind.
func (s *saleService) classifyDecrementFailure(tx *gorm.DB, id uuid.UUID, name string, qty decimal.Decimal) error {
	p, err := s.productRepo.FindByIDTx(tx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	if err != nil {
		return err
	}
	if !p.IsActive {
		return fmt.Errorf("%w: %s", ErrProductInactive, name)
	}
	return fmt.Errorf("%w: %s has %s, requested %s", ErrInsufficientStock, name, p.Quantity, qty)
}

// classifyTxError maps driver-level failures onto the retryable sentinels.
func classifyTxError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrInvoiceNumberConflict, err)
	case errors.Is(err, context.DeadlineExceeded):
		return ErrStoreTimeout
	case isSerializationFailure(err):
		return fmt.Errorf("%w: %v", ErrStoreConflict, err)
	default:
		return err
	}
}

// isSerializationFailure matches Postgres serialization_failure (40001) and
// deadlock_detected (40P01) — both resolve by re-running the transaction.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// ── Reverse ──────────────────────────────────────────────────────────────────
// Deleting a sale restores stock line by line, writes compensating "in"
// movements, then removes the sale record — all in one transaction. Products
// deleted since the sale are restored too (soft delete keeps the row); only a
// hard-missing row is skipped, with a warning, so the rest of the reversal
// still lands.

func (s *saleService) Reverse(ctx context.Context, id uuid.UUID) error {
	sale, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSaleNotFound
	}
	if err != nil {
		return err
	}

	return withTimeout(ctx, func(ctx context.Context) error {
		return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			for _, item := range sale.Items {
				after, err := s.productRepo.IncrementStockTx(tx, item.ProductID, item.Quantity)
				if errors.Is(err, gorm.ErrRecordNotFound) {
					log.Warn().
						Str("sale_id", sale.ID.String()).
						Str("product_id", item.ProductID.String()).
						Str("invoice", sale.InvoiceNumber).
						Msg("reversal: product row missing, stock not restored")
					continue
				}
				if err != nil {
					return err
				}

				notes := "reversal of " + sale.InvoiceNumber
				mov := &model.StockMovement{
					ProductID:      item.ProductID,
					Type:           "in",
					QuantityDelta:  item.Quantity,
					QuantityBefore: after.Sub(item.Quantity),
					QuantityAfter:  after,
					Reference:      sale.InvoiceNumber,
					Notes:          &notes,
				}
				if err := s.movements.CreateTx(tx, mov); err != nil {
					return err
				}
			}
			return s.repo.DeleteTx(tx, sale.ID)
		})
	})
}

// ── Payments / delivery ──────────────────────────────────────────────────────

// AddPayment appends a payment event and re-derives the payment split.
// Payments are additive only; corrections go through Reverse.
func (s *saleService) AddPayment(ctx context.Context, id uuid.UUID, req dto.AddPaymentRequest) (*dto.SaleResponse, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrInvalidQuantity)
	}
	method := req.Method
	if method == "" {
		method = "cash"
	}

	var sale *model.Sale
	err := withTimeout(ctx, func(ctx context.Context) error {
		return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			// Locked read: the row stays locked until commit, so two
			// concurrent payments apply one after the other and neither
			// overwrites the other's paid_amount.
			var err error
			sale, err = s.repo.FindByIDForUpdateTx(tx, id)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSaleNotFound
			}
			if err != nil {
				return err
			}

			sale.Payments = append(sale.Payments, model.PaymentEvent{
				SaleID: sale.ID,
				Date:   time.Now().UTC(),
				Amount: req.Amount,
				Method: method,
				Notes:  req.Notes,
			})
			sale.PaidAmount = sale.PaidAmount.Add(req.Amount)
			sale.PendingAmount = sale.TotalAmount.Sub(sale.PaidAmount)
			if sale.PendingAmount.IsNegative() {
				sale.PendingAmount = decimal.Zero
			}
			sale.PaymentStatus = model.DerivePaymentStatus(sale.PaidAmount, sale.TotalAmount)
			return s.repo.SaveTx(tx, sale)
		})
	})
	if err != nil {
		return nil, err
	}
	return saleToResponse(sale), nil
}

func (s *saleService) UpdateDelivery(ctx context.Context, id uuid.UUID, req dto.UpdateDeliveryRequest) (*dto.SaleResponse, error) {
	if !model.ValidDeliveryStatuses[req.DeliveryStatus] {
		return nil, fmt.Errorf("%w: delivery status %q", ErrInvalidInput, req.DeliveryStatus)
	}

	sale, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}

	sale.DeliveryStatus = req.DeliveryStatus
	if req.DeliveryDate != nil && *req.DeliveryDate != "" {
		if d, err := time.Parse("2006-01-02", *req.DeliveryDate); err == nil {
			sale.DeliveryDate = &d
		}
	} else if req.DeliveryStatus == "delivered" && sale.DeliveryDate == nil {
		now := time.Now().UTC()
		sale.DeliveryDate = &now
	}

	if err := s.repo.SaveTx(s.repo.DB(), sale); err != nil {
		return nil, err
	}
	return saleToResponse(sale), nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *saleService) Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}
	return saleToResponse(sale), nil
}

func (s *saleService) List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	sales, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		data = append(data, *saleToResponse(&sales[i]))
	}
	return &dto.SaleListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *saleService) Analytics(ctx context.Context, from, to *string) (*dto.SalesAnalyticsResponse, error) {
	summary, err := s.repo.Summary(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byMethod, err := s.repo.ByPaymentMethod(ctx, from, to)
	if err != nil {
		return nil, err
	}
	top, err := s.repo.TopProducts(ctx, from, to, 10)
	if err != nil {
		return nil, err
	}
	trend, err := s.repo.DailyTrend(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &dto.SalesAnalyticsResponse{
		Summary:         *summary,
		ByPaymentMethod: byMethod,
		TopProducts:     top,
		DailyTrend:      trend,
	}, nil
}

// ── Mapping ──────────────────────────────────────────────────────────────────

func saleToResponse(v *model.Sale) *dto.SaleResponse {
	items := make([]dto.SaleItemResponse, 0, len(v.Items))
	for _, item := range v.Items {
		items = append(items, dto.SaleItemResponse{
			ProductID: item.ProductID.String(),
			Name:      item.Name,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Total:     item.Total,
		})
	}
	payments := make([]dto.PaymentEventResponse, 0, len(v.Payments))
	for _, p := range v.Payments {
		payments = append(payments, dto.PaymentEventResponse{
			Date:   p.Date.Format("2006-01-02T15:04:05Z"),
			Amount: p.Amount,
			Method: p.Method,
			Notes:  p.Notes,
		})
	}
	return &dto.SaleResponse{
		ID:              v.ID.String(),
		InvoiceNumber:   v.InvoiceNumber,
		Items:           items,
		CustomerName:    v.CustomerName,
		CustomerContact: v.CustomerContact,
		Subtotal:        v.Subtotal,
		TotalDiscount:   v.TotalDiscount,
		TotalAmount:     v.TotalAmount,
		PaymentMethod:   v.PaymentMethod,
		PaymentStatus:   v.PaymentStatus,
		PaidAmount:      v.PaidAmount,
		PendingAmount:   v.PendingAmount,
		DeliveryStatus:  v.DeliveryStatus,
		PaymentHistory:  payments,
		Notes:           v.Notes,
		SaleDate:        v.SaleDate.Format("2006-01-02"),
		CreatedAt:       v.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
