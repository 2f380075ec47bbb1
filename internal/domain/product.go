package domain

import "fmt"

// Product is a catalog record as stored: free-form properties plus optional variants.
// Unit-bearing properties are either a raw legacy scalar or an object carrying
// value, unit and normalizedValue.
type Product map[string]interface{}

// ID returns the product identifier, accepting either "id" or "_id"
func (p Product) ID() string {
	for _, key := range []string{"id", "_id"} {
		if v, ok := p[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// Page bounds a product listing
type Page struct {
	Limit  int
	Offset int
}
