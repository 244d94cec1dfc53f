package catalog

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Variant is a color/size combination of a product with its own stock count.
// It is owned by its product and addressed by position within Variants.
type Variant struct {
	ID    string `json:"id"`
	Color string `json:"color"`
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

// Product is a catalog entry. ID is assigned by the repository on Create.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Variants []Variant       `json:"variants"`
}

// Clone returns a deep copy so callers never share the Variants backing array.
func (p *Product) Clone() *Product {
	c := *p
	c.Variants = make([]Variant, len(p.Variants))
	copy(c.Variants, p.Variants)
	return &c
}

// MarshalJSON writes Price as a JSON number so it round-trips with the
// numeric price clients send. Unmarshalling accepts a number or a string.
func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		Price json.Number `json:"price"`
	}{product: product(p), Price: json.Number(p.Price.String())})
}
