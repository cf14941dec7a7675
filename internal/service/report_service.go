package service

import (
	"context"
	"time"

	"shopledger/internal/dto"
	"shopledger/internal/repository"
)

type ReportService interface {
	Dashboard(ctx context.Context, filter dto.ReportFilter) (*dto.DashboardResponse, error)
}

type reportService struct {
	sales    repository.SaleRepository
	expenses repository.ExpenseRepository
	products repository.ProductRepository
}

func NewReportService(
	sales repository.SaleRepository,
	expenses repository.ExpenseRepository,
	products repository.ProductRepository,
) ReportService {
	return &reportService{sales: sales, expenses: expenses, products: products}
}

// Dashboard joins the period's sales and expense aggregates with a snapshot
// of inventory health. Default period: the current month.
func (s *reportService) Dashboard(ctx context.Context, filter dto.ReportFilter) (*dto.DashboardResponse, error) {
	now := time.Now().UTC()
	from := filter.StartDate
	to := filter.EndDate
	if from == "" {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
	}
	if to == "" {
		to = now.Format("2006-01-02")
	}

	salesSummary, err := s.sales.Summary(ctx, &from, &to)
	if err != nil {
		return nil, err
	}
	byMethod, err := s.sales.ByPaymentMethod(ctx, &from, &to)
	if err != nil {
		return nil, err
	}
	expenseSummary, err := s.expenses.Total(ctx, &from, &to)
	if err != nil {
		return nil, err
	}
	topSpend, err := s.expenses.CategorySummary(ctx, &from, &to)
	if err != nil {
		return nil, err
	}
	stats, err := s.products.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.DashboardResponse{
		Period:    dto.PeriodRange{From: from, To: to},
		Sales:     *salesSummary,
		Expenses:  *expenseSummary,
		NetProfit: salesSummary.TotalRevenue.Sub(expenseSummary.TotalAmount),
		ByMethod:  byMethod,
		TopSpend:  topSpend,
		Inventory: dto.InventoryHealth{
			TotalProducts:   stats.TotalProducts,
			InventoryValue:  stats.TotalInventoryValue,
			LowStockCount:   stats.LowStockCount,
			OutOfStockCount: stats.OutOfStockCount,
		},
	}, nil
}
