package model

import "time"

// LowStockItem is a product whose stock is below the alert threshold.
type LowStockItem struct {
	ProductID     int64  `json:"product_id"`
	Name          string `json:"name"`
	InternalCode  string `json:"internal_code"`
	StockQuantity int    `json:"stock_quantity"`
}

// ReportSummary aggregates a user's catalog. Value, cost and profit only
// count active products.
type ReportSummary struct {
	ProductCount    int            `json:"product_count"`
	ActiveCount     int            `json:"active_count"`
	TotalUnits      int            `json:"total_units"`
	StockValue      Cents          `json:"stock_value"`
	StockCost       Cents          `json:"stock_cost"`
	PotentialProfit Cents          `json:"potential_profit"`
	LowStock        []LowStockItem `json:"low_stock"`
	Threshold       int            `json:"low_stock_threshold"`
	GeneratedAt     time.Time      `json:"generated_at"`
}
