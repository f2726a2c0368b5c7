package domain

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{StatusPending, StatusProcessing}:   true,
		{StatusPending, StatusOnHold}:       true,
		{StatusPending, StatusCancelled}:    true,
		{StatusProcessing, StatusOnHold}:    true,
		{StatusProcessing, StatusShipped}:   true,
		{StatusProcessing, StatusCancelled}: true,
		{StatusOnHold, StatusProcessing}:    true,
		{StatusOnHold, StatusCancelled}:     true,
		{StatusShipped, StatusDelivered}:    true,
		{StatusShipped, StatusReturned}:     true,
		{StatusShipped, StatusRefunded}:     true,
		{StatusDelivered, StatusReturned}:   true,
		{StatusDelivered, StatusCompleted}:  true,
		{StatusDelivered, StatusRefunded}:   true,
		{StatusReturned, StatusRefunded}:    true,
		{StatusCancelled, StatusProcessing}: true,
		{StatusCancelled, StatusRefunded}:   true,
		{StatusCompleted, StatusRefunded}:   true,
	}

	for _, from := range Statuses() {
		for _, to := range Statuses() {
			want := allowed[[2]OrderStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	if CanTransition("bogus", StatusProcessing) {
		t.Error("unknown source status must not transition anywhere")
	}
	if CanTransition(StatusPending, "bogus") {
		t.Error("unknown target status must not be reachable")
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[OrderStatus]bool{
		StatusRefunded:          true,
		StatusPartiallyRefunded: true,
	}
	for _, s := range Statuses() {
		if got := IsTerminal(s); got != terminal[s] {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, got, terminal[s])
		}
	}
}

func TestAllowedTransitionsIsACopy(t *testing.T) {
	first := AllowedTransitions(StatusPending)
	if len(first) == 0 {
		t.Fatal("pending should have allowed transitions")
	}
	first[0] = "mutated"
	if AllowedTransitions(StatusPending)[0] == "mutated" {
		t.Error("AllowedTransitions must not expose the internal table")
	}
}
