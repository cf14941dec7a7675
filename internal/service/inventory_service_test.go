package service

import (
	"context"
	"testing"

	"shopledger/internal/dto"
	"shopledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildInventorySvc() (InventoryService, *stubProductRepo, *stubMovementRepo) {
	productRepo := newStubProductRepo()
	movements := &stubMovementRepo{}
	return NewInventoryService(productRepo, movements), productRepo, movements
}

func TestAdjust_PositiveDelta(t *testing.T) {
	svc, productRepo, movements := buildInventorySvc()
	p := seedProduct(productRepo, "Nails 1kg", 10, 15)

	resp, err := svc.Adjust(context.Background(), p.ID, dto.AdjustStockRequest{
		Delta: dec(5),
		Type:  "adjustment",
	})
	require.NoError(t, err)
	assertDec(t, "15", resp.Quantity)

	movs := movements.byProduct(p.ID)
	require.Len(t, movs, 1)
	assert.Equal(t, "adjustment", movs[0].Type)
	assertDec(t, "5", movs[0].QuantityDelta)
	assertDec(t, "10", movs[0].QuantityBefore)
	assertDec(t, "15", movs[0].QuantityAfter)
	assert.Equal(t, "manual adjustment", movs[0].Reference)
}

func TestAdjust_NegativeDelta(t *testing.T) {
	svc, productRepo, movements := buildInventorySvc()
	p := seedProduct(productRepo, "Screws 1kg", 10, 20)

	resp, err := svc.Adjust(context.Background(), p.ID, dto.AdjustStockRequest{
		Delta: dec(-4),
		Type:  "adjustment",
	})
	require.NoError(t, err)
	assertDec(t, "6", resp.Quantity)

	movs := movements.byProduct(p.ID)
	require.Len(t, movs, 1)
	assertDec(t, "-4", movs[0].QuantityDelta)
	assertDec(t, "10", movs[0].QuantityBefore)
	assertDec(t, "6", movs[0].QuantityAfter)
}

func TestAdjust_Rejections(t *testing.T) {
	svc, productRepo, _ := buildInventorySvc()
	p := seedProduct(productRepo, "Bolts 1kg", 3, 20)

	_, err := svc.Adjust(context.Background(), p.ID, dto.AdjustStockRequest{Delta: dec(0), Type: "adjustment"})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Adjust(context.Background(), p.ID, dto.AdjustStockRequest{
		Delta: decimal.RequireFromString("0.0001"), Type: "adjustment",
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	// Negative deltas go through the conditional decrement: never below zero.
	_, err = svc.Adjust(context.Background(), p.ID, dto.AdjustStockRequest{Delta: dec(-10), Type: "adjustment"})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assertDec(t, "3", productRepo.quantity(p.ID))

	_, err = svc.Adjust(context.Background(), uuid.New(), dto.AdjustStockRequest{Delta: dec(1), Type: "adjustment"})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAudit_ConsistentLedger(t *testing.T) {
	svc, productRepo, movements := buildInventorySvc()
	p := seedProduct(productRepo, "Paint 1l", 10, 300)

	// Opening movement mirrors what product creation writes.
	require.NoError(t, movements.CreateTx(nil, &model.StockMovement{
		ProductID:      p.ID,
		Type:           "in",
		QuantityDelta:  dec(10),
		QuantityAfter:  dec(10),
		Reference:      "initial stock",
	}))

	out, err := svc.Audit(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, out.Consistent)
	assertDec(t, "0", out.Drift)

	// A tracked adjustment keeps the ledger consistent.
	_, err = svc.Adjust(context.Background(), p.ID, dto.AdjustStockRequest{Delta: dec(-2), Type: "adjustment"})
	require.NoError(t, err)

	out, err = svc.Audit(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, out.Consistent)
	assertDec(t, "8", out.CurrentQuantity)
	assertDec(t, "8", out.MovementSum)
}

func TestAudit_DetectsDrift(t *testing.T) {
	svc, productRepo, _ := buildInventorySvc()
	// No opening movement: quantity 10 with an empty ledger is drift.
	p := seedProduct(productRepo, "Untracked", 10, 50)

	out, err := svc.Audit(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, out.Consistent)
	assertDec(t, "10", out.Drift)
}

func TestAudit_NotFound(t *testing.T) {
	svc, _, _ := buildInventorySvc()
	_, err := svc.Audit(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMovements_FilterByProduct(t *testing.T) {
	svc, productRepo, movements := buildInventorySvc()
	a := seedProduct(productRepo, "A", 10, 10)
	b := seedProduct(productRepo, "B", 10, 10)

	for _, id := range []uuid.UUID{a.ID, a.ID, b.ID} {
		require.NoError(t, movements.CreateTx(nil, &model.StockMovement{
			ProductID: id, Type: "in", QuantityDelta: dec(1),
		}))
	}

	out, err := svc.Movements(context.Background(), dto.MovementFilter{ProductID: a.ID.String()})
	require.NoError(t, err)
	assert.Len(t, out.Data, 2)

	out, err = svc.Movements(context.Background(), dto.MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, out.Data, 3)
}

func TestLowStock_ListsBelowThreshold(t *testing.T) {
	svc, productRepo, _ := buildInventorySvc()
	seedProduct(productRepo, "Plenty", 100, 10)
	low := seedProduct(productRepo, "Scarce", 2, 10) // threshold is 5

	out, err := svc.LowStock(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, low.ID.String(), out[0].ID)
}
