package entities

import (
	"time"
)

// MaxReminderLevel is the last rung of the payment escalation ladder.
const MaxReminderLevel = 4

// Reminder tracks payment-escalation progress for one awaiting_payment
// order. Rows exist only while the order is awaiting payment and are
// pruned by reconciliation afterwards.
type Reminder struct {
	OrderID  string    `db:"order_id"`
	Level    int       `db:"level"`
	LastSent time.Time `db:"last_sent"`
}
