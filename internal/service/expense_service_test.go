package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shopledger/internal/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildExpenseSvc() (ExpenseService, *stubExpenseRepo) {
	repo := newStubExpenseRepo()
	return NewExpenseService(repo, newStubSequenceRepo()), repo
}

func strPtr(s string) *string { return &s }

func TestCreateExpense_NumbersThePeriod(t *testing.T) {
	svc, _ := buildExpenseSvc()

	first, err := svc.Create(context.Background(), "alice", dto.CreateExpenseRequest{
		Title:    "Shop rent",
		Category: "rent",
		Amount:   dec(5000),
	})
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), "alice", dto.CreateExpenseRequest{
		Title:    "Electricity",
		Category: "utilities",
		Amount:   dec(800),
	})
	require.NoError(t, err)

	period := time.Now().UTC().Format("200601")
	assert.Equal(t, fmt.Sprintf("EXP-%s-00001", period), first.ExpenseNumber)
	assert.Equal(t, fmt.Sprintf("EXP-%s-00002", period), second.ExpenseNumber)
	assert.Equal(t, "cash", first.PaymentMethod)
}

func TestCreateExpense_ExplicitDateDrivesPeriod(t *testing.T) {
	svc, _ := buildExpenseSvc()

	resp, err := svc.Create(context.Background(), "alice", dto.CreateExpenseRequest{
		Title:       "Backdated delivery",
		Category:    "logistics",
		Amount:      dec(1200),
		ExpenseDate: strPtr("2026-03-15"),
	})
	require.NoError(t, err)
	assert.Equal(t, "EXP-202603-00001", resp.ExpenseNumber)
	assert.Equal(t, "2026-03-15", resp.ExpenseDate)
}

func TestCreateExpense_RejectsNonPositiveAmount(t *testing.T) {
	svc, _ := buildExpenseSvc()

	_, err := svc.Create(context.Background(), "alice", dto.CreateExpenseRequest{
		Title: "Free lunch", Category: "misc", Amount: dec(0),
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Create(context.Background(), "alice", dto.CreateExpenseRequest{
		Title: "Refund", Category: "misc", Amount: dec(-100),
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestUpdateExpense(t *testing.T) {
	svc, _ := buildExpenseSvc()
	created, err := svc.Create(context.Background(), "alice", dto.CreateExpenseRequest{
		Title: "Internet", Category: "utilities", Amount: dec(600),
	})
	require.NoError(t, err)

	amount := dec(650)
	out, err := svc.Update(context.Background(), uuid.MustParse(created.ID), dto.UpdateExpenseRequest{
		Amount: &amount,
		Vendor: strPtr("City ISP"),
	})
	require.NoError(t, err)
	assertDec(t, "650", out.Amount)
	require.NotNil(t, out.Vendor)
	assert.Equal(t, "City ISP", *out.Vendor)
	// Number never changes on update.
	assert.Equal(t, created.ExpenseNumber, out.ExpenseNumber)
}

func TestDeleteExpense(t *testing.T) {
	svc, _ := buildExpenseSvc()
	created, err := svc.Create(context.Background(), "alice", dto.CreateExpenseRequest{
		Title: "One-off", Category: "misc", Amount: dec(50),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), uuid.MustParse(created.ID)))
	_, err = svc.Get(context.Background(), uuid.MustParse(created.ID))
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	err = svc.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrExpenseNotFound)
}

func TestExpenseCategorySummary(t *testing.T) {
	svc, _ := buildExpenseSvc()
	for _, amt := range []float64{100, 200} {
		_, err := svc.Create(context.Background(), "alice", dto.CreateExpenseRequest{
			Title: "Stock purchase", Category: "inventory", Amount: dec(amt),
		})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), "alice", dto.CreateExpenseRequest{
		Title: "Rent", Category: "rent", Amount: dec(5000),
	})
	require.NoError(t, err)

	buckets, err := svc.CategorySummary(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	byCat := make(map[string]int64)
	for _, b := range buckets {
		byCat[b.Category] = b.Count
	}
	assert.Equal(t, int64(2), byCat["inventory"])
	assert.Equal(t, int64(1), byCat["rent"])
}
