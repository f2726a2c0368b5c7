// Package catalog resolves product ids to current product data. Orders keep
// their own snapshot of these fields, so the catalog is read-only from the
// order lifecycle's point of view.
package catalog

type Product struct {
	ID       string
	Name     string
	SKU      string
	Price    float64
	ImageURL string
	Active   bool
}
