package domain

import "time"

type SagaState string

const (
	// SagaPending is written before the first reservation call. A saga
	// stuck here past the staleness window was orphaned by a crash and
	// is fair game for the reconciler.
	SagaPending     SagaState = "pending"
	SagaCompleted   SagaState = "completed"
	SagaCompensated SagaState = "compensated"
)

// SagaIntent records what an order-placement attempt is about to reserve,
// durably, so a crashed saga can be unwound later. The item list is the
// superset of reservations the attempt may hold; release is idempotent, so
// sweeping every item is safe even if only a prefix was reserved.
type SagaIntent struct {
	OrderID   string
	UserID    string
	Items     []OrderItem
	State     SagaState
	UpdatedAt time.Time
}
