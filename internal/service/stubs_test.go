package service

import (
	"context"
	"sync"

	"shopledger/internal/dto"
	"shopledger/internal/model"
	"shopledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────
// In-memory repositories. Tx methods accept a nil *gorm.DB because runTx calls
// fn(nil) when no database is attached. The product stub guards its map with a
// mutex so the concurrency tests exercise the same conditional-decrement
// contract the SQL implementation provides.

type stubProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*model.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubProductRepo) FindByBarcode(_ context.Context, barcode string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.Barcode != nil && *p.Barcode == barcode && p.IsActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductRepo) List(_ context.Context, _ dto.ProductFilter) ([]model.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *stubProductRepo) Categories(_ context.Context) ([]string, error) { return nil, nil }

func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *stubProductRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		p.IsActive = false
	}
	return nil
}

func (r *stubProductRepo) Reactivate(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		p.IsActive = true
	}
	return nil
}

func (r *stubProductRepo) Statistics(_ context.Context) (*dto.ProductStatistics, error) {
	return &dto.ProductStatistics{}, nil
}

func (r *stubProductRepo) ListBelowThreshold(_ context.Context, limit int) ([]model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		if p.IsActive && p.Quantity.LessThanOrEqual(p.LowStockThreshold) {
			out = append(out, *p)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *stubProductRepo) DecrementStockTx(_ *gorm.DB, id uuid.UUID, qty decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || !p.IsActive || p.Quantity.LessThan(qty) {
		return decimal.Zero, repository.ErrNoStock
	}
	p.Quantity = p.Quantity.Sub(qty)
	return p.Quantity, nil
}

func (r *stubProductRepo) IncrementStockTx(_ *gorm.DB, id uuid.UUID, qty decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	p.Quantity = p.Quantity.Add(qty)
	return p.Quantity, nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

// quantity reads the live stored quantity for assertions.
func (r *stubProductRepo) quantity(id uuid.UUID) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id].Quantity
}

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// stubSaleRepo keeps sales in a map keyed by ID. FindByIDForUpdateTx emulates
// SELECT … FOR UPDATE: the lock taken there is held until the next SaveTx, so
// concurrent payment updates serialize like they do against Postgres.
type stubSaleRepo struct {
	mu        sync.Mutex
	sales     map[uuid.UUID]*model.Sale
	rowMu     sync.Mutex
	rowLocked bool
}

func newStubSaleRepo() *stubSaleRepo {
	return &stubSaleRepo{sales: make(map[uuid.UUID]*model.Sale)}
}

func (r *stubSaleRepo) CreateTx(_ *gorm.DB, s *model.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	for i := range s.Items {
		s.Items[i].SaleID = s.ID
	}
	for i := range s.Payments {
		s.Payments[i].SaleID = s.ID
	}
	cp := *s
	r.sales[s.ID] = &cp
	return nil
}

func (r *stubSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *stubSaleRepo) FindByIDForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	r.rowMu.Lock()
	s, err := r.FindByID(context.Background(), id)
	if err != nil {
		r.rowMu.Unlock()
		return nil, err
	}
	r.mu.Lock()
	r.rowLocked = true
	r.mu.Unlock()
	return s, nil
}

func (r *stubSaleRepo) SaveTx(_ *gorm.DB, s *model.Sale) error {
	r.mu.Lock()
	cp := *s
	r.sales[s.ID] = &cp
	locked := r.rowLocked
	r.rowLocked = false
	r.mu.Unlock()
	if locked {
		r.rowMu.Unlock()
	}
	return nil
}

func (r *stubSaleRepo) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sales, id)
	return nil
}

func (r *stubSaleRepo) List(_ context.Context, _ dto.SaleFilter) ([]model.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Sale
	for _, s := range r.sales {
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (r *stubSaleRepo) Summary(_ context.Context, _, _ *string) (*dto.SalesSummary, error) {
	return &dto.SalesSummary{}, nil
}

func (r *stubSaleRepo) ByPaymentMethod(_ context.Context, _, _ *string) ([]dto.PaymentMethodBucket, error) {
	return nil, nil
}

func (r *stubSaleRepo) TopProducts(_ context.Context, _, _ *string, _ int) ([]dto.TopProduct, error) {
	return nil, nil
}

func (r *stubSaleRepo) DailyTrend(_ context.Context, _, _ *string) ([]dto.DailyBucket, error) {
	return nil, nil
}

func (r *stubSaleRepo) DB() *gorm.DB { return nil }

var _ repository.SaleRepository = (*stubSaleRepo)(nil)

// stubMovementRepo appends movements to a slice for assertion.
type stubMovementRepo struct {
	mu        sync.Mutex
	movements []model.StockMovement
}

func (r *stubMovementRepo) Create(_ context.Context, m *model.StockMovement) error {
	return r.CreateTx(nil, m)
}

func (r *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubMovementRepo) List(_ context.Context, filter repository.StockMovementFilter) ([]model.StockMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockMovement
	for _, m := range r.movements {
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *stubMovementRepo) SumDeltas(_ context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := decimal.Zero
	for _, m := range r.movements {
		if m.ProductID == productID {
			sum = sum.Add(m.QuantityDelta)
		}
	}
	return sum, nil
}

// byProduct returns the recorded movements for one product.
func (r *stubMovementRepo) byProduct(id uuid.UUID) []model.StockMovement {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockMovement
	for _, m := range r.movements {
		if m.ProductID == id {
			out = append(out, m)
		}
	}
	return out
}

var _ repository.StockMovementRepository = (*stubMovementRepo)(nil)

// stubSequenceRepo hands out counters per key, like the SQL upsert does.
type stubSequenceRepo struct {
	mu   sync.Mutex
	seqs map[string]int64
}

func newStubSequenceRepo() *stubSequenceRepo {
	return &stubSequenceRepo{seqs: make(map[string]int64)}
}

func (r *stubSequenceRepo) NextTx(_ context.Context, _ *gorm.DB, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs[key]++
	return r.seqs[key], nil
}

var _ repository.SequenceRepository = (*stubSequenceRepo)(nil)

// stubExpenseRepo keeps expenses in a map keyed by ID.
type stubExpenseRepo struct {
	mu       sync.Mutex
	expenses map[uuid.UUID]*model.Expense
}

func newStubExpenseRepo() *stubExpenseRepo {
	return &stubExpenseRepo{expenses: make(map[uuid.UUID]*model.Expense)}
}

func (r *stubExpenseRepo) CreateTx(_ *gorm.DB, e *model.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	r.expenses[e.ID] = &cp
	return nil
}

func (r *stubExpenseRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *stubExpenseRepo) List(_ context.Context, _ dto.ExpenseFilter) ([]model.Expense, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Expense
	for _, e := range r.expenses {
		out = append(out, *e)
	}
	return out, int64(len(out)), nil
}

func (r *stubExpenseRepo) Update(_ context.Context, e *model.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.expenses[e.ID] = &cp
	return nil
}

func (r *stubExpenseRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.expenses, id)
	return nil
}

func (r *stubExpenseRepo) CategorySummary(_ context.Context, _, _ *string) ([]dto.ExpenseCategoryBucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byCat := make(map[string]*dto.ExpenseCategoryBucket)
	for _, e := range r.expenses {
		b, ok := byCat[e.Category]
		if !ok {
			b = &dto.ExpenseCategoryBucket{Category: e.Category}
			byCat[e.Category] = b
		}
		b.Count++
		b.Total = b.Total.Add(e.Amount)
	}
	var out []dto.ExpenseCategoryBucket
	for _, b := range byCat {
		out = append(out, *b)
	}
	return out, nil
}

func (r *stubExpenseRepo) Total(_ context.Context, _, _ *string) (*dto.ExpenseSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &dto.ExpenseSummary{}
	for _, e := range r.expenses {
		s.TotalExpenses++
		s.TotalAmount = s.TotalAmount.Add(e.Amount)
	}
	return s, nil
}

func (r *stubExpenseRepo) DB() *gorm.DB { return nil }

var _ repository.ExpenseRepository = (*stubExpenseRepo)(nil)

// ── Helpers ───────────────────────────────────────────────────────────────────

// seedProduct stores an active product with the given stock and price.
func seedProduct(repo *stubProductRepo, name string, qty, price float64) *model.Product {
	p := &model.Product{
		ID:                uuid.New(),
		Name:              name,
		Category:          "general",
		Quantity:          decimal.NewFromFloat(qty),
		Price:             decimal.NewFromFloat(price),
		CostPrice:         decimal.NewFromFloat(price / 2),
		LowStockThreshold: decimal.NewFromInt(5),
		ReorderLevel:      decimal.NewFromInt(10),
		Unit:              "pcs",
		IsActive:          true,
	}
	repo.mu.Lock()
	repo.products[p.ID] = p
	repo.mu.Unlock()
	return p
}

func buildSaleSvc() (SaleService, *stubSaleRepo, *stubProductRepo, *stubMovementRepo) {
	productRepo := newStubProductRepo()
	saleRepo := newStubSaleRepo()
	movements := &stubMovementRepo{}
	sequences := newStubSequenceRepo()
	svc := NewSaleService(saleRepo, productRepo, movements, sequences, nil)
	return svc, saleRepo, productRepo, movements
}
