package entities

import (
	"time"
)

const (
	// OrderStatusPending is the schema default; no code path produces it.
	OrderStatusPending         = "pending"
	OrderStatusCharged         = "charged"
	OrderStatusAwaitingPayment = "awaiting_payment"
	OrderStatusHolding         = "holding"
	OrderStatusProcessing      = "processing"
	OrderStatusPaying          = "paying"
	OrderStatusCompleted       = "completed"
	OrderStatusFailed          = "failed"
)

// Order is a single top-up request. Amounts are stored in euro cents.
type Order struct {
	ID         string    `db:"id"`
	CustomerID string    `db:"customer_id"`
	Phone      string    `db:"phone"`
	Operator   string    `db:"operator"`
	Amount     int       `db:"amount"`
	Bonus      int       `db:"bonus"`
	Total      int       `db:"total"`
	IsCredit   bool      `db:"is_credit"`
	Status     string    `db:"status"`
	Message    string    `db:"message"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// ShortID is the id prefix used in logs and notifications.
func (o Order) ShortID() string {
	if len(o.ID) <= 8 {
		return o.ID
	}
	return o.ID[:8]
}
