package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// StaticProduct is a product with priced variants held in memory.
type StaticProduct struct {
	Name     string
	Category string
	Variants []Item
}

// StaticSource serves a fixed catalog, ignoring catalog id and sheet name.
type StaticSource struct {
	products []StaticProduct
}

// NewStaticSource returns a source backed by the given products.
func NewStaticSource(products []StaticProduct) *StaticSource {
	return &StaticSource{products: append([]StaticProduct(nil), products...)}
}

// DemoProducts is the sample catalog used when no spreadsheet is configured.
func DemoProducts() []StaticProduct {
	return []StaticProduct{
		{
			Name:     "Puerta de madera",
			Category: "Carpintería",
			Variants: []Item{
				{Name: "Puerta 90x200", UnitPrice: decimal.NewFromInt(250)},
				{Name: "Puerta 80x200", UnitPrice: decimal.NewFromInt(230)},
			},
		},
		{
			Name:     "Ventana de aluminio",
			Category: "Carpintería",
			Variants: []Item{
				{Name: "Ventana 100x100", UnitPrice: decimal.NewFromInt(180)},
			},
		},
		{
			Name:     "Pintura acrílica",
			Category: "Pintura",
			Variants: []Item{
				{Name: "Lata 4L blanca", UnitPrice: decimal.NewFromInt(70)},
				{Name: "Lata 4L color", UnitPrice: decimal.NewFromInt(85)},
			},
		},
	}
}

// Fetch implements Source.
func (s *StaticSource) Fetch(ctx context.Context, _, _ string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	var items []Item
	groups := make([]Group, 0, len(s.products))
	for _, product := range s.products {
		group := Group{Product: product.Name, Category: product.Category}
		for _, variant := range product.Variants {
			items = append(items, variant)
			group.Variants = append(group.Variants, variant.Name)
		}
		groups = append(groups, group)
	}
	return NewSnapshot(items, groups...), nil
}
