package domain

// transitions is the single authoritative transition table. Status is only
// ever changed through CanTransition checks; handlers never branch on status
// pairs themselves.
//
// cancelled -> processing is the administrative reactivation path and
// re-reserves inventory; refunded is reachable from every refund-eligible
// status so the refund processor routes through the same table.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:           {StatusProcessing, StatusOnHold, StatusCancelled},
	StatusProcessing:        {StatusOnHold, StatusShipped, StatusCancelled},
	StatusOnHold:            {StatusProcessing, StatusCancelled},
	StatusShipped:           {StatusDelivered, StatusReturned, StatusRefunded},
	StatusDelivered:         {StatusReturned, StatusCompleted, StatusRefunded},
	StatusReturned:          {StatusRefunded},
	StatusCancelled:         {StatusProcessing, StatusRefunded},
	StatusCompleted:         {StatusRefunded},
	StatusRefunded:          {},
	StatusPartiallyRefunded: {},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns a copy of the allowed targets for a status.
func AllowedTransitions(from OrderStatus) []OrderStatus {
	allowed := transitions[from]
	out := make([]OrderStatus, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal reports whether no further status change is possible.
func IsTerminal(s OrderStatus) bool {
	return len(transitions[s]) == 0
}

// Statuses lists every known order status.
func Statuses() []OrderStatus {
	return []OrderStatus{
		StatusPending, StatusProcessing, StatusOnHold, StatusShipped,
		StatusDelivered, StatusReturned, StatusCancelled, StatusRefunded,
		StatusPartiallyRefunded, StatusCompleted,
	}
}
