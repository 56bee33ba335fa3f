package enums

import (
	"fmt"
	"strings"
)

// CatalogSourceKind selects the backing implementation of the price catalog.
type CatalogSourceKind string

const (
	CatalogSourceSheets CatalogSourceKind = "sheets"
	CatalogSourceStatic CatalogSourceKind = "static"
)

var validCatalogSourceKinds = []CatalogSourceKind{
	CatalogSourceSheets,
	CatalogSourceStatic,
}

// String implements fmt.Stringer.
func (k CatalogSourceKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known CatalogSourceKind.
func (k CatalogSourceKind) IsValid() bool {
	for _, candidate := range validCatalogSourceKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseCatalogSourceKind converts raw input into a CatalogSourceKind.
func ParseCatalogSourceKind(value string) (CatalogSourceKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validCatalogSourceKinds {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid catalog source %q", value)
}
