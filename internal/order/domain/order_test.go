package domain

import (
	"regexp"
	"testing"
	"time"
)

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	re := regexp.MustCompile(`^ORD-\d{8}-\d{4}$`)
	for i := 0; i < 20; i++ {
		n := NewOrderNumber(now)
		if !re.MatchString(n) {
			t.Fatalf("order number %q does not match ORD-XXXXXXXX-XXXX", n)
		}
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1.004, 1.0},
		{19.999, 20.0},
		{12.3456, 12.35},
		{-1.004, -1.0},
		{5.99, 5.99},
	}
	for _, c := range cases {
		if got := Round2(c.in); got != c.want {
			t.Errorf("Round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestItemQuantities(t *testing.T) {
	items := []OrderItem{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 5},
	}
	got := ItemQuantities(items)
	if len(got) != 2 {
		t.Fatalf("got %d quantities, want 2", len(got))
	}
	if got[0] != (ItemQuantity{ProductID: "p1", Quantity: 2}) {
		t.Errorf("unexpected first quantity: %+v", got[0])
	}
	if got[1] != (ItemQuantity{ProductID: "p2", Quantity: 5}) {
		t.Errorf("unexpected second quantity: %+v", got[1])
	}
}
