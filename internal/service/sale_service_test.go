package service

import (
	"context"
	"sync"
	"testing"

	"shopledger/internal/dto"
	"shopledger/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func decPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

// assertDec compares by numeric value — decimal.String keeps trailing zeros,
// so string equality would depend on exponents.
func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

func TestCreateSale_PartialPayment(t *testing.T) {
	svc, _, productRepo, movements := buildSaleSvc()
	p := seedProduct(productRepo, "Rice 1kg", 10, 50)

	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(3), Price: dec(50)},
		},
		Discount:   dec(20),
		PaidAmount: decPtr(100),
	})
	require.NoError(t, err)

	assertDec(t, "150", resp.Subtotal)
	assertDec(t, "130", resp.TotalAmount)
	assertDec(t, "100", resp.PaidAmount)
	assertDec(t, "30", resp.PendingAmount)
	assert.Equal(t, model.PaymentPartial, resp.PaymentStatus)
	assert.Regexp(t, `^INV-\d{6}-\d{5}$`, resp.InvoiceNumber)

	// Stock decremented and the movement recorded against the invoice.
	assertDec(t, "7", productRepo.quantity(p.ID))
	movs := movements.byProduct(p.ID)
	require.Len(t, movs, 1)
	assert.Equal(t, "out", movs[0].Type)
	assertDec(t, "-3", movs[0].QuantityDelta)
	assertDec(t, "10", movs[0].QuantityBefore)
	assertDec(t, "7", movs[0].QuantityAfter)
	assert.Equal(t, resp.InvoiceNumber, movs[0].Reference)

	// Opening payment event matches the paid amount.
	require.Len(t, resp.PaymentHistory, 1)
	assertDec(t, "100", resp.PaymentHistory[0].Amount)
}

func TestCreateSale_DefaultsToFullPayment(t *testing.T) {
	svc, _, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Sugar 1kg", 20, 30)

	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(2), Price: dec(30)},
		},
	})
	require.NoError(t, err)
	assertDec(t, "60", resp.PaidAmount)
	assertDec(t, "0", resp.PendingAmount)
	assert.Equal(t, model.PaymentPaid, resp.PaymentStatus)
}

func TestCreateSale_ZeroPaidIsPending(t *testing.T) {
	svc, _, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Flour 1kg", 20, 40)

	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(1), Price: dec(40)},
		},
		PaidAmount: decPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, resp.PaymentStatus)
	assertDec(t, "40", resp.PendingAmount)
	assert.Empty(t, resp.PaymentHistory) // no payment event for a zero payment
}

func TestCreateSale_OverpaymentFloorsPending(t *testing.T) {
	svc, _, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Oil 1l", 20, 80)

	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(1), Price: dec(80)},
		},
		PaidAmount: decPtr(100),
	})
	require.NoError(t, err)
	assertDec(t, "0", resp.PendingAmount)
	assert.Equal(t, model.PaymentPaid, resp.PaymentStatus)
}

func TestCreateSale_FractionalQuantity(t *testing.T) {
	svc, _, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Lentils bulk", 5, 120)

	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: decimal.RequireFromString("0.250"), Price: dec(120)},
		},
	})
	require.NoError(t, err)
	assertDec(t, "30", resp.TotalAmount)
	assertDec(t, "4.75", productRepo.quantity(p.ID))
}

func TestCreateSale_Validation(t *testing.T) {
	svc, _, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Salt 500g", 10, 10)

	cases := []struct {
		name string
		req  dto.CreateSaleRequest
		want error
	}{
		{
			name: "zero quantity",
			req: dto.CreateSaleRequest{Items: []dto.SaleItemRequest{
				{ProductID: p.ID.String(), Quantity: dec(0), Price: dec(10)},
			}},
			want: ErrInvalidQuantity,
		},
		{
			name: "negative quantity",
			req: dto.CreateSaleRequest{Items: []dto.SaleItemRequest{
				{ProductID: p.ID.String(), Quantity: dec(-1), Price: dec(10)},
			}},
			want: ErrInvalidQuantity,
		},
		{
			name: "finer than resolution",
			req: dto.CreateSaleRequest{Items: []dto.SaleItemRequest{
				{ProductID: p.ID.String(), Quantity: decimal.RequireFromString("0.0005"), Price: dec(10)},
			}},
			want: ErrInvalidQuantity,
		},
		{
			name: "negative price",
			req: dto.CreateSaleRequest{Items: []dto.SaleItemRequest{
				{ProductID: p.ID.String(), Quantity: dec(1), Price: dec(-5)},
			}},
			want: ErrInvalidQuantity,
		},
		{
			name: "unknown product",
			req: dto.CreateSaleRequest{Items: []dto.SaleItemRequest{
				{ProductID: uuid.NewString(), Quantity: dec(1), Price: dec(10)},
			}},
			want: ErrProductNotFound,
		},
		{
			name: "insufficient stock",
			req: dto.CreateSaleRequest{Items: []dto.SaleItemRequest{
				{ProductID: p.ID.String(), Quantity: dec(11), Price: dec(10)},
			}},
			want: ErrInsufficientStock,
		},
		{
			name: "negative paid amount",
			req: dto.CreateSaleRequest{
				Items: []dto.SaleItemRequest{
					{ProductID: p.ID.String(), Quantity: dec(1), Price: dec(10)},
				},
				PaidAmount: decPtr(-10),
			},
			want: ErrInvalidQuantity,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "alice", tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// No stock consumed by any rejected request.
	assertDec(t, "10", productRepo.quantity(p.ID))
}

func TestCreateSale_DiscountClamped(t *testing.T) {
	svc, _, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Eggs tray", 20, 10)

	// Discount larger than the subtotal makes the sale free.
	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(1), Price: dec(10)},
		},
		Discount: dec(50),
	})
	require.NoError(t, err)
	assertDec(t, "10", resp.TotalDiscount)
	assertDec(t, "0", resp.TotalAmount)
	assert.Equal(t, model.PaymentPending, resp.PaymentStatus)

	// Negative discount clamps to zero.
	resp, err = svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(1), Price: dec(10)},
		},
		Discount: dec(-5),
	})
	require.NoError(t, err)
	assertDec(t, "0", resp.TotalDiscount)
	assertDec(t, "10", resp.TotalAmount)
}

func TestCreateSale_FailedLineLeavesOtherLinesUntouched(t *testing.T) {
	svc, _, productRepo, movements := buildSaleSvc()
	a := seedProduct(productRepo, "Plenty", 10, 25)
	b := seedProduct(productRepo, "Scarce", 2, 40)

	// Second line references a missing product: nothing is consumed.
	_, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: a.ID.String(), Quantity: dec(2), Price: dec(25)},
			{ProductID: uuid.NewString(), Quantity: dec(1), Price: dec(40)},
		},
	})
	assert.ErrorIs(t, err, ErrProductNotFound)
	assertDec(t, "10", productRepo.quantity(a.ID))

	// Second line over stock: first line's product is still untouched.
	_, err = svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: a.ID.String(), Quantity: dec(2), Price: dec(25)},
			{ProductID: b.ID.String(), Quantity: dec(5), Price: dec(40)},
		},
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assertDec(t, "10", productRepo.quantity(a.ID))
	assertDec(t, "2", productRepo.quantity(b.ID))
	assert.Empty(t, movements.byProduct(a.ID))

	// A decrement that fails mid-transaction (stock raced away after the
	// pre-flight) rolls the earlier lines back too; that path needs a real
	// database and lives in the tests/e2e suite.
}

func TestCreateSale_InactiveProduct(t *testing.T) {
	svc, _, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Discontinued", 10, 10)
	require.NoError(t, productRepo.SoftDelete(context.Background(), p.ID))

	_, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(1), Price: dec(10)},
		},
	})
	assert.ErrorIs(t, err, ErrProductInactive)
}

func TestCreateSale_ConcurrentSalesNeverOversell(t *testing.T) {
	svc, _, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Limited stock", 5, 10)

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	invoices := make([]string, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
				Items: []dto.SaleItemRequest{
					{ProductID: p.ID.String(), Quantity: dec(1), Price: dec(10)},
				},
			})
			errs[i] = err
			if err == nil {
				invoices[i] = resp.InvoiceNumber
			}
		}(i)
	}
	wg.Wait()

	succeeded := 0
	seen := make(map[string]bool)
	for i := 0; i < attempts; i++ {
		if errs[i] == nil {
			succeeded++
			assert.False(t, seen[invoices[i]], "duplicate invoice number %s", invoices[i])
			seen[invoices[i]] = true
		} else {
			assert.ErrorIs(t, errs[i], ErrInsufficientStock)
		}
	}
	assert.Equal(t, 5, succeeded)
	assert.True(t, productRepo.quantity(p.ID).IsZero())
}

func TestReverseSale_RestoresStock(t *testing.T) {
	svc, saleRepo, productRepo, movements := buildSaleSvc()
	p := seedProduct(productRepo, "Beans 1kg", 10, 60)

	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(3), Price: dec(60)},
		},
	})
	require.NoError(t, err)
	assertDec(t, "7", productRepo.quantity(p.ID))

	require.NoError(t, svc.Reverse(context.Background(), uuid.MustParse(resp.ID)))

	// Stock restored, sale gone, compensating movement on record.
	assertDec(t, "10", productRepo.quantity(p.ID))
	_, err = saleRepo.FindByID(context.Background(), uuid.MustParse(resp.ID))
	assert.Error(t, err)

	movs := movements.byProduct(p.ID)
	require.Len(t, movs, 2)
	assert.Equal(t, "in", movs[1].Type)
	assertDec(t, "3", movs[1].QuantityDelta)
	assert.Equal(t, resp.InvoiceNumber, movs[1].Reference)

	// The ledger nets to zero against the starting quantity.
	sum, err := movements.SumDeltas(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, sum.IsZero())
}

func TestReverseSale_RestoresInactiveProduct(t *testing.T) {
	svc, _, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Seasonal item", 4, 25)

	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(2), Price: dec(25)},
		},
	})
	require.NoError(t, err)

	// Deactivation between sale and reversal must not block the restore.
	require.NoError(t, productRepo.SoftDelete(context.Background(), p.ID))
	require.NoError(t, svc.Reverse(context.Background(), uuid.MustParse(resp.ID)))
	assertDec(t, "4", productRepo.quantity(p.ID))
}

func TestReverseSale_NotFound(t *testing.T) {
	svc, _, _, _ := buildSaleSvc()
	err := svc.Reverse(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSaleNotFound)
}

func TestAddPayment_Transitions(t *testing.T) {
	svc, _, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Tea 250g", 10, 65)

	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(2), Price: dec(65)},
		},
		PaidAmount: decPtr(0),
	})
	require.NoError(t, err)
	require.Equal(t, model.PaymentPending, resp.PaymentStatus)
	saleID := uuid.MustParse(resp.ID)

	resp, err = svc.AddPayment(context.Background(), saleID, dto.AddPaymentRequest{Amount: dec(50)})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPartial, resp.PaymentStatus)
	assertDec(t, "80", resp.PendingAmount)

	resp, err = svc.AddPayment(context.Background(), saleID, dto.AddPaymentRequest{Amount: dec(80), Method: "card"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, resp.PaymentStatus)
	assertDec(t, "0", resp.PendingAmount)
	assert.Len(t, resp.PaymentHistory, 2)
}

func TestAddPayment_ConcurrentPaymentsAllLand(t *testing.T) {
	svc, saleRepo, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Stove", 5, 800)

	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(1), Price: dec(800)},
		},
		PaidAmount: decPtr(0),
	})
	require.NoError(t, err)
	saleID := uuid.MustParse(resp.ID)

	const payers = 16
	var wg sync.WaitGroup
	for i := 0; i < payers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddPayment(context.Background(), saleID, dto.AddPaymentRequest{Amount: dec(50)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every payment landed: no increment overwrote another, and the event
	// history still sums to the paid amount.
	stored, err := saleRepo.FindByID(context.Background(), saleID)
	require.NoError(t, err)
	assertDec(t, "800", stored.PaidAmount)
	assertDec(t, "0", stored.PendingAmount)
	assert.Equal(t, model.PaymentPaid, stored.PaymentStatus)
	require.Len(t, stored.Payments, payers)
	sum := decimal.Zero
	for _, ev := range stored.Payments {
		sum = sum.Add(ev.Amount)
	}
	assert.True(t, sum.Equal(stored.PaidAmount), "events sum %s, paid %s", sum, stored.PaidAmount)
}

func TestAddPayment_RejectsNonPositive(t *testing.T) {
	svc, _, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Coffee 500g", 10, 90)
	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(1), Price: dec(90)},
		},
		PaidAmount: decPtr(0),
	})
	require.NoError(t, err)

	_, err = svc.AddPayment(context.Background(), uuid.MustParse(resp.ID), dto.AddPaymentRequest{Amount: dec(0)})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.AddPayment(context.Background(), uuid.MustParse(resp.ID), dto.AddPaymentRequest{Amount: dec(-10)})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestUpdateDelivery_AutoDate(t *testing.T) {
	svc, saleRepo, productRepo, _ := buildSaleSvc()
	p := seedProduct(productRepo, "Cement bag", 30, 450)
	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Quantity: dec(5), Price: dec(450)},
		},
	})
	require.NoError(t, err)

	out, err := svc.UpdateDelivery(context.Background(), uuid.MustParse(resp.ID), dto.UpdateDeliveryRequest{
		DeliveryStatus: "delivered",
	})
	require.NoError(t, err)
	assert.Equal(t, "delivered", out.DeliveryStatus)

	stored, err := saleRepo.FindByID(context.Background(), uuid.MustParse(resp.ID))
	require.NoError(t, err)
	require.NotNil(t, stored.DeliveryDate)

	_, err = svc.UpdateDelivery(context.Background(), uuid.MustParse(resp.ID), dto.UpdateDeliveryRequest{
		DeliveryStatus: "teleported",
	})
	assert.Error(t, err)
}

func TestClassifyTxError_SerializationFailures(t *testing.T) {
	for _, code := range []string{"40001", "40P01"} {
		err := classifyTxError(&pgconn.PgError{Code: code})
		assert.ErrorIs(t, err, ErrStoreConflict, code)
		assert.True(t, IsRetryable(err), code)
	}
	// Other SQLSTATEs pass through unclassified.
	other := classifyTxError(&pgconn.PgError{Code: "23503"})
	assert.NotErrorIs(t, other, ErrStoreConflict)
	assert.False(t, IsRetryable(other))
}

func TestCreateSale_MultiLineTotals(t *testing.T) {
	svc, _, productRepo, movements := buildSaleSvc()
	a := seedProduct(productRepo, "Item A", 10, 25)
	b := seedProduct(productRepo, "Item B", 8, 40)

	resp, err := svc.Create(context.Background(), "alice", dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: a.ID.String(), Quantity: dec(2), Price: dec(25)},
			{ProductID: b.ID.String(), Quantity: dec(3), Price: dec(40)},
		},
	})
	require.NoError(t, err)
	assertDec(t, "170", resp.Subtotal)
	require.Len(t, resp.Items, 2)

	// One movement per line, both referencing the same invoice.
	assert.Len(t, movements.byProduct(a.ID), 1)
	assert.Len(t, movements.byProduct(b.ID), 1)
	assertDec(t, "8", productRepo.quantity(a.ID))
	assertDec(t, "5", productRepo.quantity(b.ID))
}
