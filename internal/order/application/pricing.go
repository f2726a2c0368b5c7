package application

import (
	"github.com/merchkit/orderflow/internal/catalog"
	"github.com/merchkit/orderflow/internal/order/domain"
)

// TaxRate is the flat order tax rate applied to the subtotal.
const TaxRate = 0.08

var shippingRates = map[string]float64{
	"standard": 5.99,
	"express":  12.99,
	"free":     0,
}

// ShippingRate returns the flat rate for a shipping method; unknown methods
// ship free.
func ShippingRate(method string) float64 {
	if rate, ok := shippingRates[method]; ok {
		return rate
	}
	return 0
}

type pricedLine struct {
	product  catalog.Product
	quantity int
}

type pricing struct {
	items    []domain.OrderItem
	subtotal float64
	tax      float64
	shipping float64
	discount float64
	total    float64
}

// price computes the immutable item snapshots and the order totals.
// Order-level tax is apportioned to items proportionally to their subtotal
// share; the last item absorbs the rounding remainder so the item taxes sum
// exactly to the order tax.
func price(lines []pricedLine, shippingMethod string, discount float64) pricing {
	var p pricing
	p.items = make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		sub := domain.Round2(l.product.Price * float64(l.quantity))
		p.items = append(p.items, domain.OrderItem{
			ProductID:   l.product.ID,
			ProductName: l.product.Name,
			SKU:         l.product.SKU,
			ImageURL:    l.product.ImageURL,
			UnitPrice:   l.product.Price,
			Quantity:    l.quantity,
			Subtotal:    sub,
		})
		p.subtotal += sub
	}
	p.subtotal = domain.Round2(p.subtotal)
	p.tax = domain.Round2(p.subtotal * TaxRate)
	p.shipping = ShippingRate(shippingMethod)
	p.discount = domain.Round2(discount)
	p.total = domain.Round2(p.subtotal + p.tax + p.shipping - p.discount)

	var allocated float64
	for i := range p.items {
		it := &p.items[i]
		if i == len(p.items)-1 {
			it.TaxAmount = domain.Round2(p.tax - allocated)
		} else if p.subtotal > 0 {
			it.TaxAmount = domain.Round2(p.tax * (it.Subtotal / p.subtotal))
		}
		allocated += it.TaxAmount
		it.Total = domain.Round2(it.Subtotal + it.TaxAmount - it.DiscountAmount)
	}
	return p
}
