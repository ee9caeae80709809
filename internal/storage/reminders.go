package storage

import (
	"context"

	"github.com/velocevoce/topup/internal/entities"
)

// Reminder ledger. Owned exclusively by the reminder worker; safe to
// rebuild from scratch because escalation thresholds are recomputed
// from the order's created_at on every cycle.

func (s *PostgresStorage) Reminders(ctx context.Context) ([]entities.Reminder, error) {
	var reminders []entities.Reminder

	err := s.db.SelectContext(ctx, &reminders, "SELECT * FROM payment_reminders;")
	if err != nil {
		return nil, err
	}

	return reminders, nil
}

func (s *PostgresStorage) UpsertReminder(ctx context.Context, reminder entities.Reminder) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO payment_reminders (order_id, level, last_sent)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id) DO UPDATE SET level = $2, last_sent = $3;`,
		reminder.OrderID, reminder.Level, reminder.LastSent,
	)

	return err
}

func (s *PostgresStorage) DeleteReminder(ctx context.Context, orderID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM payment_reminders WHERE order_id = $1;", orderID)

	return err
}
