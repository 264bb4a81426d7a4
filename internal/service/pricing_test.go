package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusprint/printq-api/internal/models"
	"github.com/campusprint/printq-api/pkg/config"
)

func testPricing(t *testing.T) *PricingTable {
	t.Helper()
	table, err := NewPricingTable(config.PricingConfig{
		SimplexUnitPrice: "2.00",
		DuplexUnitPrice:  "1.00",
		ColorUnitPrice:   "7.00",
	})
	require.NoError(t, err)
	return table
}

func TestPricingTableCost(t *testing.T) {
	table := testPricing(t)

	tests := []struct {
		name        string
		pages       int
		copies      int
		mode        models.PrintMode
		billedPages int
		total       string
	}{
		{"simplex five pages", 5, 1, models.PrintSimplex, 5, "10"},
		{"simplex with copies", 3, 4, models.PrintSimplex, 3, "24"},
		{"duplex odd pads to even", 7, 2, models.PrintDuplex, 8, "16"},
		{"duplex even unchanged", 6, 1, models.PrintDuplex, 6, "6"},
		{"duplex single page", 1, 1, models.PrintDuplex, 2, "2"},
		{"color", 2, 3, models.PrintColor, 2, "42"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			quote, err := table.Cost(tc.pages, tc.copies, tc.mode)
			require.NoError(t, err)
			require.Equal(t, tc.billedPages, quote.BilledPages)
			require.True(t, quote.TotalCost.Equal(mustDecimal(t, tc.total)),
				"want %s got %s", tc.total, quote.TotalCost)
		})
	}
}

func TestPricingTableDuplexAlwaysEven(t *testing.T) {
	table := testPricing(t)

	for pages := 1; pages <= 25; pages++ {
		quote, err := table.Cost(pages, 1, models.PrintDuplex)
		require.NoError(t, err)
		require.Zero(t, quote.BilledPages%2, "pages=%d billed=%d", pages, quote.BilledPages)
		require.GreaterOrEqual(t, quote.BilledPages, pages)
	}
}

func TestPricingTableRejectsUnknownMode(t *testing.T) {
	table := testPricing(t)
	_, err := table.Cost(1, 1, models.PrintMode("GLOSSY"))
	require.Error(t, err)
}

func TestNewPricingTableValidation(t *testing.T) {
	_, err := NewPricingTable(config.PricingConfig{SimplexUnitPrice: "x", DuplexUnitPrice: "1", ColorUnitPrice: "7"})
	require.Error(t, err)

	_, err = NewPricingTable(config.PricingConfig{SimplexUnitPrice: "2", DuplexUnitPrice: "-1", ColorUnitPrice: "7"})
	require.Error(t, err)
}
