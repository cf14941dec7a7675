package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDerivePaymentStatus(t *testing.T) {
	cases := []struct {
		paid, total string
		want        string
	}{
		{"0", "100", PaymentPending},
		{"-5", "100", PaymentPending},
		{"50", "100", PaymentPartial},
		{"99.99", "100", PaymentPartial},
		{"100", "100", PaymentPaid},
		{"120", "100", PaymentPaid}, // overpayment
		{"0", "0", PaymentPending},  // zero-total sale starts pending
	}
	for _, tc := range cases {
		got := DerivePaymentStatus(
			decimal.RequireFromString(tc.paid),
			decimal.RequireFromString(tc.total),
		)
		assert.Equal(t, tc.want, got, "paid=%s total=%s", tc.paid, tc.total)
	}
}

func TestProductStockStatus(t *testing.T) {
	p := Product{
		LowStockThreshold: decimal.NewFromInt(10),
		ReorderLevel:      decimal.NewFromInt(20),
	}

	p.Quantity = decimal.Zero
	assert.Equal(t, "out_of_stock", p.StockStatus())

	p.Quantity = decimal.NewFromInt(5)
	assert.Equal(t, "low_stock", p.StockStatus())

	p.Quantity = decimal.NewFromInt(15)
	assert.Equal(t, "reorder_needed", p.StockStatus())

	p.Quantity = decimal.NewFromInt(50)
	assert.Equal(t, "in_stock", p.StockStatus())
}
