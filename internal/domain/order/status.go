package order

// Status enumerates the kitchen/payment workflow states of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusPreparing Status = "PREPARING"
	StatusReady     Status = "READY"
	StatusDelivered Status = "DELIVERED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// transitions is the single authoritative transition table. Cancellation is
// allowed from every non-terminal state up to and including READY; once an
// order is DELIVERED it can only be completed. READY may skip DELIVERED and
// go straight to COMPLETED for counter-service flows.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered, StatusCompleted, StatusCancelled},
	StatusDelivered: {StatusCompleted},
}

// ActiveStatuses are the states that keep a table occupied.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusDelivered, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the order lifecycle. Terminal
// orders are immutable.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsActive reports whether the status counts toward table occupancy.
func IsActive(s Status) bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// ReleasesTable reports whether entering the status requires the coordinator
// to re-evaluate the table occupancy rule.
func ReleasesTable(to Status) bool {
	return IsTerminal(to)
}
