package menu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateItem(t *testing.T) {
	tests := []struct {
		name         string
		item         Item
		valid        bool
		wantError    string
		wantWarning  string
	}{
		{
			name:  "well formed item",
			item:  Item{Name: "Margherita Pizza", Price: 14.50, Category: "Pizza"},
			valid: true,
		},
		{
			name:      "missing name",
			item:      Item{Price: 9.99, Category: "Sides"},
			valid:     false,
			wantError: "name is required",
		},
		{
			name:      "whitespace name",
			item:      Item{Name: "   ", Price: 9.99},
			valid:     false,
			wantError: "name is required",
		},
		{
			name:      "name too long",
			item:      Item{Name: strings.Repeat("x", 101), Price: 5},
			valid:     false,
			wantError: "exceeds 100 characters",
		},
		{
			name:      "negative price",
			item:      Item{Name: "Soda", Price: -1},
			valid:     false,
			wantError: "cannot be negative",
		},
		{
			name:        "zero price warns but passes",
			item:        Item{Name: "Water", Price: 0, Category: "Drinks"},
			valid:       true,
			wantWarning: "price is zero",
		},
		{
			name:        "implausible price warns but passes",
			item:        Item{Name: "Tasting Menu", Price: 900, Category: "Specials"},
			valid:       true,
			wantWarning: "sanity cap",
		},
		{
			name:        "missing category warns",
			item:        Item{Name: "Fries", Price: 4.50},
			valid:       true,
			wantWarning: "no category",
		},
		{
			name:        "duplicate modifier warns",
			item:        Item{Name: "Burger", Price: 12, Category: "Mains", Modifiers: []string{"Cheese", "Bacon", "cheese"}},
			valid:       true,
			wantWarning: "duplicate modifier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateItem(tt.item)

			assert.Equal(t, tt.valid, res.IsValid)
			if tt.wantError != "" {
				require.NotEmpty(t, res.Errors)
				assert.Contains(t, strings.Join(res.Errors, "; "), tt.wantError)
			}
			if tt.wantWarning != "" {
				require.NotEmpty(t, res.Warnings)
				assert.Contains(t, strings.Join(res.Warnings, "; "), tt.wantWarning)
			}
		})
	}
}

func TestValidateItemCollectsEveryProblem(t *testing.T) {
	res := ValidateItem(Item{Name: "", Price: -5})

	assert.False(t, res.IsValid)
	assert.Len(t, res.Errors, 2)
}

func TestPriceQuoteBaseOnly(t *testing.T) {
	b := PriceQuote(QuoteParams{})

	assert.Equal(t, 150.0, b.Base)
	assert.Zero(t, b.ItemsSubtotal)
	assert.Zero(t, b.RushSurcharge)
	assert.Equal(t, 150.0, b.Total)
}

func TestPriceQuoteScalesWithLocations(t *testing.T) {
	one := PriceQuote(QuoteParams{ItemCount: 10, MenuCount: 2, Locations: 1})
	three := PriceQuote(QuoteParams{ItemCount: 10, MenuCount: 2, Locations: 3})

	assert.Equal(t, one.ItemsSubtotal*3, three.ItemsSubtotal)
	assert.Equal(t, one.MenusSubtotal*3, three.MenusSubtotal)
	assert.Equal(t, one.Base, three.Base, "base fee does not scale")
}

func TestPriceQuoteRushSurcharge(t *testing.T) {
	calm := PriceQuote(QuoteParams{ItemCount: 40, MenuCount: 1})
	rush := PriceQuote(QuoteParams{ItemCount: 40, MenuCount: 1, Rush: true})

	subtotal := calm.Base + calm.ItemsSubtotal + calm.MenusSubtotal
	assert.InDelta(t, subtotal*0.25, rush.RushSurcharge, 0.001)
	assert.InDelta(t, subtotal*1.25, rush.Total, 0.001)
}

func TestPriceQuoteVolumeDiscount(t *testing.T) {
	under := PriceQuote(QuoteParams{ItemCount: 199})
	at := PriceQuote(QuoteParams{ItemCount: 200})

	assert.Zero(t, under.VolumeDiscount)
	assert.InDelta(t, at.ItemsSubtotal*0.10, at.VolumeDiscount, 0.001)
	assert.InDelta(t, at.Base+at.ItemsSubtotal-at.VolumeDiscount, at.Total, 0.001)
}
