//go:build ignore
// +build ignore

// Renders a sample expense breakdown chart:
//
//	go run generate_graph.go -out chart.png
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/taxi-ledger/internal/export"
	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

func main() {
	out := flag.String("out", "", "output file (default chart_<period>.png)")
	flag.Parse()

	period := finance.ResolvePeriod(finance.PeriodMonthly, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	sample := []models.Expense{
		{Description: "Fuel", Amount: decimal.RequireFromString("310.40")},
		{Description: "Fuel", Amount: decimal.RequireFromString("95.10")},
		{Description: "Insurance", Amount: decimal.NewFromInt(80)},
		{Description: "Tyres (2/12)", Amount: decimal.NewFromInt(100)},
		{Description: "Car wash", Amount: decimal.NewFromInt(24)},
		{Description: "Taximeter service", Amount: decimal.NewFromInt(45)},
	}

	png, err := export.ExpenseChart(sample, "Expenses "+period.Label())
	if err != nil {
		log.Fatalf("render chart: %v", err)
	}

	path := *out
	if path == "" {
		path = export.Filename("chart", period, "png")
	}
	if err := os.WriteFile(path, png, 0o600); err != nil {
		log.Fatalf("write %s: %v", path, err)
	}
	log.Printf("wrote %s (%d slices)", path, len(export.GroupExpenses(sample)))
}
