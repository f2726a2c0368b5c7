package application

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merchkit/orderflow/internal/catalog"
)

func TestPriceSingleProductStandardShipping(t *testing.T) {
	p := price([]pricedLine{
		{product: catalog.Product{ID: "p1", Name: "Mug", Price: 10.00}, quantity: 2},
	}, "standard", 0)

	require.Equal(t, 20.00, p.subtotal)
	require.Equal(t, 1.60, p.tax)
	require.Equal(t, 5.99, p.shipping)
	require.Equal(t, 27.59, p.total)

	require.Len(t, p.items, 1)
	require.Equal(t, 20.00, p.items[0].Subtotal)
	require.Equal(t, 1.60, p.items[0].TaxAmount)
	require.Equal(t, 21.60, p.items[0].Total)
}

func TestPriceApportionsTaxAcrossItems(t *testing.T) {
	p := price([]pricedLine{
		{product: catalog.Product{ID: "p1", Price: 3.33}, quantity: 1},
		{product: catalog.Product{ID: "p2", Price: 3.33}, quantity: 1},
		{product: catalog.Product{ID: "p3", Price: 3.33}, quantity: 1},
	}, "free", 0)

	require.Equal(t, 9.99, p.subtotal)

	// The item taxes must sum exactly to the order tax; the last item
	// absorbs the rounding remainder.
	var sum float64
	for _, it := range p.items {
		sum += it.TaxAmount
	}
	require.InDelta(t, p.tax, sum, 1e-9)
}

func TestPriceDiscountReducesTotal(t *testing.T) {
	p := price([]pricedLine{
		{product: catalog.Product{ID: "p1", Price: 50.00}, quantity: 1},
	}, "express", 10.00)

	require.Equal(t, 50.00, p.subtotal)
	require.Equal(t, 4.00, p.tax)
	require.Equal(t, 12.99, p.shipping)
	require.Equal(t, 10.00, p.discount)
	require.Equal(t, 56.99, p.total)
}

func TestShippingRate(t *testing.T) {
	require.Equal(t, 5.99, ShippingRate("standard"))
	require.Equal(t, 12.99, ShippingRate("express"))
	require.Equal(t, 0.0, ShippingRate("free"))
	require.Equal(t, 0.0, ShippingRate(""))
	require.Equal(t, 0.0, ShippingRate("carrier-pigeon"))
}
