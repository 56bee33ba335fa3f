package enums

import (
	"fmt"
	"strings"
)

// CatalogMissPolicy decides what happens when a selected item is not in the catalog.
type CatalogMissPolicy string

const (
	// CatalogMissPolicyReject refuses the append and surfaces the miss.
	CatalogMissPolicyReject CatalogMissPolicy = "reject"
	// CatalogMissPolicyDefaultPrice appends at the catalog's default price and surfaces the miss as a warning.
	CatalogMissPolicyDefaultPrice CatalogMissPolicy = "default_price"
)

var validCatalogMissPolicies = []CatalogMissPolicy{
	CatalogMissPolicyReject,
	CatalogMissPolicyDefaultPrice,
}

// String implements fmt.Stringer.
func (p CatalogMissPolicy) String() string {
	return string(p)
}

// IsValid reports whether the value is a known CatalogMissPolicy.
func (p CatalogMissPolicy) IsValid() bool {
	for _, candidate := range validCatalogMissPolicies {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseCatalogMissPolicy converts raw input into a CatalogMissPolicy.
func ParseCatalogMissPolicy(value string) (CatalogMissPolicy, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validCatalogMissPolicies {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid catalog miss policy %q", value)
}
