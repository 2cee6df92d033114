package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Order placement only ever writes StatusPending; the remaining statuses
// belong to the downstream fulfillment workflow and are listed here so
// lookups and admin filters can validate them.
var allStatuses = map[Status]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusPreparing: true,
	StatusReady:     true,
	StatusCompleted: true,
	StatusCancelled: true,
}

func (s Status) Valid() bool { return allStatuses[s] }
