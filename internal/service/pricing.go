package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/campusprint/printq-api/internal/models"
	"github.com/campusprint/printq-api/pkg/config"
)

// Quote is the priced outcome of one document submission.
type Quote struct {
	BilledPages int
	UnitPrice   decimal.Decimal
	TotalCost   decimal.Decimal
}

// PricingTable computes print costs per page and mode. Duplex rounds
// the page count up to the nearest even number: an odd document gets a
// trailing blank page so every physical sheet is used on both sides.
type PricingTable struct {
	simplex decimal.Decimal
	duplex  decimal.Decimal
	color   decimal.Decimal
}

// NewPricingTable parses the configured unit prices.
func NewPricingTable(cfg config.PricingConfig) (*PricingTable, error) {
	simplex, err := parsePrice(cfg.SimplexUnitPrice, "simplex")
	if err != nil {
		return nil, err
	}
	duplex, err := parsePrice(cfg.DuplexUnitPrice, "duplex")
	if err != nil {
		return nil, err
	}
	color, err := parsePrice(cfg.ColorUnitPrice, "color")
	if err != nil {
		return nil, err
	}
	return &PricingTable{simplex: simplex, duplex: duplex, color: color}, nil
}

// UnitPrice returns the per-page price for a mode.
func (t *PricingTable) UnitPrice(mode models.PrintMode) (decimal.Decimal, error) {
	switch mode {
	case models.PrintSimplex:
		return t.simplex, nil
	case models.PrintDuplex:
		return t.duplex, nil
	case models.PrintColor:
		return t.color, nil
	}
	return decimal.Zero, fmt.Errorf("unknown print mode %q", mode)
}

// Cost computes billed pages, unit price and total for a submission.
// The total is rounded half-up to two decimals once, at the end;
// intermediate factors stay exact.
func (t *PricingTable) Cost(pageCount, copyCount int, mode models.PrintMode) (Quote, error) {
	unitPrice, err := t.UnitPrice(mode)
	if err != nil {
		return Quote{}, err
	}
	billedPages := pageCount
	if mode == models.PrintDuplex && pageCount%2 != 0 {
		billedPages = pageCount + 1
	}
	total := unitPrice.
		Mul(decimal.NewFromInt(int64(billedPages))).
		Mul(decimal.NewFromInt(int64(copyCount))).
		Round(2)
	return Quote{BilledPages: billedPages, UnitPrice: unitPrice, TotalCost: total}, nil
}

func parsePrice(raw, label string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s unit price %q: %w", label, raw, err)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s unit price must be positive, got %s", label, raw)
	}
	return price, nil
}
