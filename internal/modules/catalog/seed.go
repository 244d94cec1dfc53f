package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/georgemunganga/catalog-backend/internal/obs"
)

// SampleProducts are inserted by Seed into an empty catalog.
func SampleProducts() []CreateProductRequest {
	return []CreateProductRequest{
		{
			Name:     "T-Shirt",
			Price:    decimal.RequireFromString("19.99"),
			Category: "Apparel",
			Variants: []Variant{
				{Color: "Red", Size: "M", Stock: 10},
				{Color: "Blue", Size: "L", Stock: 5},
			},
		},
		{
			Name:     "Sneakers",
			Price:    decimal.RequireFromString("59.99"),
			Category: "Footwear",
			Variants: []Variant{
				{Color: "White", Size: "42", Stock: 7},
				{Color: "Black", Size: "43", Stock: 3},
			},
		},
	}
}

// Seed inserts SampleProducts when the store is empty and returns how many
// products it created. A non-empty store is left untouched.
func (s *service) Seed(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	created := 0
	for _, req := range SampleProducts() {
		if _, err := s.CreateProduct(ctx, req); err != nil {
			return created, err
		}
		created++
	}
	obs.Logger.Info("catalog_seeded", "products", created)
	return created, nil
}
