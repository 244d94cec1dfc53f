package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Prices keep at most maxPriceScale decimal places and maxPriceDigits digits
// before the point, which keeps every stored price inside Decimal128.
const (
	maxPriceScale  = 6
	maxPriceDigits = 15
)

type variantInput struct {
	Color *string `json:"color"`
	Size  *string `json:"size"`
	Stock *int    `json:"stock"`
}

// ParseVariants decodes the variants payload of a create request. Blank input
// and "null" mean no variants. Anything that is not an array of variant objects
// with color, size and an integer stock yields ErrMalformedVariants; range
// checks are left to ValidateProduct.
func ParseVariants(raw []byte) ([]Variant, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []Variant{}, nil
	}
	var in []variantInput
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := decodeOne(dec, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVariants, err)
	}
	variants := make([]Variant, 0, len(in))
	for i, v := range in {
		switch {
		case v.Color == nil:
			return nil, fmt.Errorf("%w: variant %d is missing color", ErrMalformedVariants, i)
		case v.Size == nil:
			return nil, fmt.Errorf("%w: variant %d is missing size", ErrMalformedVariants, i)
		case v.Stock == nil:
			return nil, fmt.Errorf("%w: variant %d is missing stock", ErrMalformedVariants, i)
		}
		variants = append(variants, Variant{Color: *v.Color, Size: *v.Size, Stock: *v.Stock})
	}
	return variants, nil
}

// decodeOne decodes exactly one JSON value; anything but whitespace after it
// is an error.
func decodeOne(dec *json.Decoder, v interface{}) error {
	if err := dec.Decode(v); err != nil {
		return err
	}
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("unexpected %v after JSON value", tok)
}

// ParsePrice accepts a decimal string such as "9.99".
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, invalid("price", "is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalid("price", "must be a number")
	}
	return d, nil
}

// ParseInt parses a form value that must hold an integer.
func ParseInt(field, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, invalid(field, "is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, invalid(field, "must be an integer")
	}
	return n, nil
}

// ValidateVariant checks a single variant.
func ValidateVariant(i int, v Variant) error {
	field := fmt.Sprintf("variants[%d]", i)
	if strings.TrimSpace(v.Color) == "" {
		return invalid(field+".color", "is required")
	}
	if strings.TrimSpace(v.Size) == "" {
		return invalid(field+".size", "is required")
	}
	return ValidateStock(field+".stock", v.Stock)
}

// ValidateStock rejects negative stock counts.
func ValidateStock(field string, stock int) error {
	if stock < 0 {
		return invalid(field, "must be >= 0")
	}
	return nil
}

// ValidatePrice rejects negative prices and prices outside the stored range.
// The exponent is checked first so no check ever expands a huge exponent.
func ValidatePrice(d decimal.Decimal) error {
	if d.IsNegative() {
		return invalid("price", "must be >= 0")
	}
	exp := int64(d.Exponent())
	if exp > maxPriceDigits || int64(d.NumDigits())+exp > maxPriceDigits {
		return invalid("price", fmt.Sprintf("must have at most %d digits before the decimal point", maxPriceDigits))
	}
	if exp < -2*maxPriceDigits || (exp < -maxPriceScale && !d.Equal(d.Truncate(maxPriceScale))) {
		return invalid("price", fmt.Sprintf("must have at most %d decimal places", maxPriceScale))
	}
	return nil
}

// ValidateProduct runs every write-time check before a product is persisted.
func ValidateProduct(p *Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name", "is required")
	}
	if err := ValidatePrice(p.Price); err != nil {
		return err
	}
	if strings.TrimSpace(p.Category) == "" {
		return invalid("category", "is required")
	}
	for i, v := range p.Variants {
		if err := ValidateVariant(i, v); err != nil {
			return err
		}
	}
	return nil
}
