package orders

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusOnHold     Status = "on-hold"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCompleted: true, StatusCancelled: true},
	StatusProcessing: {StatusCompleted: true, StatusOnHold: true, StatusCancelled: true},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusOnHold:     {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Polling reports whether the provider should still be asked about an order in this status.
func (s Status) Polling() bool {
	return s == StatusPending || s == StatusProcessing
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}
