package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/stockpilot/stockpilot-go/internal/model"
)

// ReportService builds catalog summaries, served from the cache when possible.
type ReportService struct {
	products          ProductStore
	cache             ReportCache
	lowStockThreshold int
	now               func() time.Time
}

// NewReportService creates a new ReportService. cache may be nil.
func NewReportService(products ProductStore, cache ReportCache, lowStockThreshold int) *ReportService {
	return &ReportService{
		products:          products,
		cache:             cache,
		lowStockThreshold: lowStockThreshold,
		now:               time.Now,
	}
}

// Summary returns the caller's catalog summary.
func (s *ReportService) Summary(ctx context.Context, userID int64) (*model.ReportSummary, error) {
	cacheable := s.cache != nil
	var generation int64
	if cacheable {
		cached, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			slog.Warn("report cache read failed", "user_id", userID, "error", err)
		} else if ok {
			return cached, nil
		}

		// The generation is read before the products so a write racing this
		// call keeps its result out of the cache.
		if generation, err = s.cache.Generation(ctx, userID); err != nil {
			slog.Warn("report cache generation read failed", "user_id", userID, "error", err)
			cacheable = false
		}
	}

	products, err := s.products.ListByUser(ctx, userID, model.ProductFilter{IncludeInactive: true})
	if err != nil {
		return nil, err
	}

	summary := BuildSummary(products, s.lowStockThreshold, s.now().UTC())
	if cacheable {
		if err := s.cache.Set(ctx, userID, generation, summary); err != nil {
			slog.Warn("report cache write failed", "user_id", userID, "error", err)
		}
	}
	return summary, nil
}

// BuildSummary aggregates products. Inactive products are counted but add
// nothing to value, cost, units or the low-stock list.
func BuildSummary(products []model.Product, threshold int, at time.Time) *model.ReportSummary {
	summary := &model.ReportSummary{
		ProductCount: len(products),
		LowStock:     []model.LowStockItem{},
		Threshold:    threshold,
		GeneratedAt:  at,
	}

	for _, p := range products {
		if p.Inactive {
			continue
		}
		qty := model.Cents(p.StockQuantity)
		summary.ActiveCount++
		summary.TotalUnits += p.StockQuantity
		summary.StockValue += p.Price * qty
		summary.StockCost += p.Cost * qty

		if p.StockQuantity < threshold {
			summary.LowStock = append(summary.LowStock, model.LowStockItem{
				ProductID:     p.ID,
				Name:          p.Name,
				InternalCode:  p.InternalCode,
				StockQuantity: p.StockQuantity,
			})
		}
	}
	summary.PotentialProfit = summary.StockValue - summary.StockCost

	sort.SliceStable(summary.LowStock, func(i, j int) bool {
		a, b := summary.LowStock[i], summary.LowStock[j]
		if a.StockQuantity != b.StockQuantity {
			return a.StockQuantity < b.StockQuantity
		}
		return a.Name < b.Name
	})
	return summary
}
