// Package menu holds the pure domain rules consulted before menu writes:
// item validation and quote pricing. Both are advisory. Validation warnings
// are logged by the caller and never block the write path.
package menu

import (
	"fmt"
	"strings"
)

// Item describes a menu item as it will be entered into the back office.
type Item struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Category    string   `json:"category,omitempty"`
	Modifiers   []string `json:"modifiers,omitempty"`
}

// ValidationResult separates hard failures from advisory warnings.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

const (
	maxNameLength = 100
	// priceSanityCap is well above any plausible single menu item; prices
	// beyond it are almost always data-entry mistakes.
	priceSanityCap = 500.0
)

// ValidateItem checks an item against the back office's field rules plus a
// few sanity heuristics. Errors mean the write would be rejected or
// mangled; warnings mean "look at this" and nothing more.
func ValidateItem(item Item) ValidationResult {
	res := ValidationResult{IsValid: true}

	if strings.TrimSpace(item.Name) == "" {
		res.Errors = append(res.Errors, "item name is required")
	}
	if len(item.Name) > maxNameLength {
		res.Errors = append(res.Errors, fmt.Sprintf("item name exceeds %d characters", maxNameLength))
	}
	if item.Price < 0 {
		res.Errors = append(res.Errors, "price cannot be negative")
	}

	if item.Price == 0 {
		res.Warnings = append(res.Warnings, "price is zero; the item will show as free")
	}
	if item.Price > priceSanityCap {
		res.Warnings = append(res.Warnings, fmt.Sprintf("price %.2f exceeds the %.0f sanity cap", item.Price, priceSanityCap))
	}
	if item.Category == "" {
		res.Warnings = append(res.Warnings, "no category set; the item lands in the default group")
	}
	if dup := firstDuplicate(item.Modifiers); dup != "" {
		res.Warnings = append(res.Warnings, fmt.Sprintf("duplicate modifier %q", dup))
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

func firstDuplicate(values []string) string {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if seen[key] {
			return v
		}
		seen[key] = true
	}
	return ""
}

// QuoteParams sizes an automation engagement for pricing.
type QuoteParams struct {
	ItemCount int  `json:"itemCount"`
	MenuCount int  `json:"menuCount"`
	Locations int  `json:"locations"`
	Rush      bool `json:"rush"`
}

// QuoteBreakdown itemizes the price of an engagement. Amounts are dollars.
type QuoteBreakdown struct {
	Base           float64 `json:"base"`
	ItemsSubtotal  float64 `json:"itemsSubtotal"`
	MenusSubtotal  float64 `json:"menusSubtotal"`
	RushSurcharge  float64 `json:"rushSurcharge"`
	VolumeDiscount float64 `json:"volumeDiscount"`
	Total          float64 `json:"total"`
}

const (
	baseFee     = 150.0
	perItemRate = 2.50
	perMenuRate = 25.0

	// rushMultiplier is applied to the pre-discount subtotal.
	rushMultiplier = 0.25

	// volumeThreshold items or more earns the volume discount rate.
	volumeThreshold = 200
	volumeRate      = 0.10
)

// PriceQuote computes a deterministic engagement price. Each location is a
// separate back-office tenant, so item and menu work scales linearly with
// location count.
func PriceQuote(params QuoteParams) QuoteBreakdown {
	locations := params.Locations
	if locations < 1 {
		locations = 1
	}

	b := QuoteBreakdown{
		Base:          baseFee,
		ItemsSubtotal: perItemRate * float64(params.ItemCount*locations),
		MenusSubtotal: perMenuRate * float64(params.MenuCount*locations),
	}

	subtotal := b.Base + b.ItemsSubtotal + b.MenusSubtotal
	if params.Rush {
		b.RushSurcharge = subtotal * rushMultiplier
	}
	if params.ItemCount >= volumeThreshold {
		b.VolumeDiscount = b.ItemsSubtotal * volumeRate
	}

	b.Total = subtotal + b.RushSurcharge - b.VolumeDiscount
	return b
}
