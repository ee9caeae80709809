package entities

import (
	"time"
)

const (
	SiteMessageTypeInfo    = "info"
	SiteMessageTypeSuccess = "success"
	SiteMessageTypeError   = "error"
)

// SiteMessage is an in-app notification record for a customer.
type SiteMessage struct {
	ID         int64     `db:"id"`
	CustomerID string    `db:"customer_id"`
	Type       string    `db:"type"`
	Title      string    `db:"title"`
	Content    string    `db:"content"`
	OrderID    string    `db:"order_id"`
	IsRead     bool      `db:"is_read"`
	CreatedAt  time.Time `db:"created_at"`
}
