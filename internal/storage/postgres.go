package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/velocevoce/topup/internal/entities"
)

var (
	ErrConflict = errors.New("conflict")
	ErrNoRows   = errors.New("no rows")
)

// AwaitingOrder is an awaiting_payment order joined with the owning
// customer's contact phone for the SMS reminder channel.
type AwaitingOrder struct {
	entities.Order
	CustomerPhone string `db:"customer_phone"`
}

// DailyStats is the material of the reminder worker's daily report.
// Revenue is in euro cents.
type DailyStats struct {
	OrdersCreated   int `db:"orders_created"`
	OrdersCompleted int `db:"orders_completed"`
	AwaitingPayment int `db:"awaiting_payment"`
	Revenue         int `db:"revenue"`
}

// Stats is the operator dashboard summary.
type Stats struct {
	TotalCustomers  int `db:"total_customers"`
	TotalOrders     int `db:"total_orders"`
	CompletedOrders int `db:"completed_orders"`
	PendingOrders   int `db:"pending_orders"`
	Revenue         int `db:"revenue"`
	TodayOrders     int `db:"today_orders"`
}

type Storage interface {
	GetCustomerID(context.Context, string, string) (string, error)
	GetCustomer(context.Context, string) (entities.Customer, error)
	CreateCustomer(context.Context, string, string, string) (string, error)
	SetCustomerBlocked(context.Context, string, bool) error

	CreateOrder(context.Context, entities.Order) error
	GetOrder(context.Context, string) (entities.Order, error)
	GetCustomerOrders(context.Context, string) ([]entities.Order, error)
	OrdersByStatus(context.Context, string) ([]entities.Order, error)
	OldestProcessingOrder(context.Context) (entities.Order, error)
	UpdateOrderStatus(context.Context, string, string, string) error
	PromoteToProcessing(context.Context, string, string) (bool, error)
	TimedOutOrders(context.Context, string, time.Time) ([]entities.Order, error)
	HasUnsettledCreditOrder(context.Context, string) (bool, error)
	CompleteOrder(context.Context, entities.Order, string, entities.Customer) error
	ListOrders(context.Context, string, int, int) ([]entities.Order, int, error)

	CreateSiteMessage(context.Context, entities.SiteMessage) error
	GetCustomerMessages(context.Context, string) ([]entities.SiteMessage, error)

	AwaitingPaymentOrders(context.Context) ([]AwaitingOrder, error)
	DailyStats(context.Context, time.Time) (DailyStats, error)
	GetStats(context.Context) (Stats, error)

	Reminders(context.Context) ([]entities.Reminder, error)
	UpsertReminder(context.Context, entities.Reminder) error
	DeleteReminder(context.Context, string) error

	runMigrations(context.Context) error
}

type PostgresStorage struct {
	db *sqlx.DB
}

func NewPostgresStorage(db *sqlx.DB) (Storage, error) {
	storage := &PostgresStorage{db: db}

	err := storage.runMigrations(context.Background())
	if err != nil {
		return nil, err
	}

	return storage, nil
}

func (s *PostgresStorage) GetCustomerID(ctx context.Context, email string, passwordHash string) (string, error) {
	var customerID string

	row := s.db.QueryRowxContext(ctx, "SELECT id FROM customers WHERE email = $1 AND password = $2;", email, passwordHash)

	if err := row.Err(); err != nil {
		return "", err
	}

	err := row.Scan(&customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoRows
		}

		return "", err
	}

	return customerID, nil
}

func (s *PostgresStorage) GetCustomer(ctx context.Context, customerID string) (entities.Customer, error) {
	var customer entities.Customer

	err := s.db.GetContext(
		ctx,
		&customer,
		`SELECT id, email, COALESCE(phone, '') AS phone, credit_score, credit_level, credit_limit, total_spent,
			consecutive_success, milestone_100, milestone_300, is_blocked, created_at
		FROM customers WHERE id = $1;`,
		customerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customer, ErrNoRows
		}

		return customer, err
	}

	return customer, nil
}

func (s *PostgresStorage) CreateCustomer(ctx context.Context, email string, phone string, passwordHash string) (string, error) {
	var customerID string

	row := s.db.QueryRowxContext(
		ctx,
		`INSERT INTO customers (email, phone, password)
		VALUES ($1, NULLIF($2, ''), $3) RETURNING id;`,
		email, phone, passwordHash,
	)

	if err := row.Err(); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pgerrcode.IsIntegrityConstraintViolation(string(pqErr.Code)) {
			return "", ErrConflict
		}

		return "", err
	}

	if err := row.Scan(&customerID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pgerrcode.IsIntegrityConstraintViolation(string(pqErr.Code)) {
			return "", ErrConflict
		}

		return "", err
	}

	return customerID, nil
}

func (s *PostgresStorage) SetCustomerBlocked(ctx context.Context, customerID string, blocked bool) error {
	result, err := s.db.ExecContext(
		ctx,
		"UPDATE customers SET is_blocked = $1 WHERE id = $2;",
		blocked, customerID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return ErrNoRows
	}

	return nil
}

func (s *PostgresStorage) CreateOrder(ctx context.Context, order entities.Order) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO orders (id, customer_id, phone, operator, amount, bonus, total, is_credit, status, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`,
		order.ID, order.CustomerID, order.Phone, order.Operator,
		order.Amount, order.Bonus, order.Total, order.IsCredit, order.Status, order.Message,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pgerrcode.IsIntegrityConstraintViolation(string(pqErr.Code)) {
			return ErrConflict
		}

		return err
	}

	return nil
}

func (s *PostgresStorage) GetOrder(ctx context.Context, orderID string) (entities.Order, error) {
	var order entities.Order

	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1;", orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return order, ErrNoRows
		}

		return order, err
	}

	return order, nil
}

func (s *PostgresStorage) GetCustomerOrders(ctx context.Context, customerID string) ([]entities.Order, error) {
	var orders []entities.Order

	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM orders WHERE customer_id = $1 ORDER BY created_at DESC;", customerID)
	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (s *PostgresStorage) OrdersByStatus(ctx context.Context, status string) ([]entities.Order, error) {
	var orders []entities.Order

	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM orders WHERE status = $1 ORDER BY created_at ASC;", status)
	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (s *PostgresStorage) OldestProcessingOrder(ctx context.Context) (entities.Order, error) {
	var order entities.Order

	err := s.db.GetContext(
		ctx,
		&order,
		"SELECT * FROM orders WHERE status = $1 ORDER BY created_at ASC LIMIT 1;",
		entities.OrderStatusProcessing,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return order, ErrNoRows
		}

		return order, err
	}

	return order, nil
}

func (s *PostgresStorage) UpdateOrderStatus(ctx context.Context, orderID string, status string, message string) error {
	_, err := s.db.ExecContext(
		ctx,
		"UPDATE orders SET status = $1, message = $2, updated_at = now() WHERE id = $3;",
		status, message, orderID,
	)

	return err
}

// PromoteToProcessing moves an order into the execution slot of its
// customer. The check and the write run under a per-customer advisory
// lock so that no two workers can release two orders for the same
// customer at the same instant. When the slot is occupied the order is
// parked in holding instead and false is returned.
func (s *PostgresStorage) PromoteToProcessing(ctx context.Context, orderID string, customerID string) (bool, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return false, err
	}

	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1));", customerID); err != nil {
		return false, err
	}

	var inFlight int
	err = tx.GetContext(
		ctx,
		&inFlight,
		"SELECT COUNT(*) FROM orders WHERE customer_id = $1 AND status IN ($2, $3) AND id <> $4;",
		customerID, entities.OrderStatusProcessing, entities.OrderStatusPaying, orderID,
	)
	if err != nil {
		return false, err
	}

	if inFlight > 1 {
		zap.L().Error(
			"execution slot invariant violated: multiple in-flight orders for one customer",
			zap.String("customerID", customerID),
			zap.Int("inFlight", inFlight),
		)
	}

	if inFlight > 0 {
		if _, err := tx.ExecContext(
			ctx,
			"UPDATE orders SET status = $1, message = $2, updated_at = now() WHERE id = $3 AND status <> $1;",
			entities.OrderStatusHolding, "queued: waiting for execution slot", orderID,
		); err != nil {
			return false, err
		}

		return false, tx.Commit()
	}

	if _, err := tx.ExecContext(
		ctx,
		"UPDATE orders SET status = $1, message = '', updated_at = now() WHERE id = $2;",
		entities.OrderStatusProcessing, orderID,
	); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

func (s *PostgresStorage) TimedOutOrders(ctx context.Context, status string, before time.Time) ([]entities.Order, error) {
	var orders []entities.Order

	err := s.db.SelectContext(
		ctx,
		&orders,
		"SELECT * FROM orders WHERE status = $1 AND updated_at < $2 ORDER BY created_at ASC;",
		status, before,
	)
	if err != nil {
		return nil, err
	}

	return orders, nil
}

// HasUnsettledCreditOrder reports whether the customer still has a
// credit order waiting for payment; a new credit order is refused until
// the previous one clears.
func (s *PostgresStorage) HasUnsettledCreditOrder(ctx context.Context, customerID string) (bool, error) {
	var count int

	err := s.db.GetContext(
		ctx,
		&count,
		"SELECT COUNT(*) FROM orders WHERE customer_id = $1 AND is_credit = true AND status = $2;",
		customerID, entities.OrderStatusAwaitingPayment,
	)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// CompleteOrder commits the completed status together with the
// recomputed customer credit state in one transaction.
func (s *PostgresStorage) CompleteOrder(ctx context.Context, order entities.Order, message string, customer entities.Customer) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}

	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		"UPDATE orders SET status = $1, message = $2, updated_at = now() WHERE id = $3;",
		entities.OrderStatusCompleted, message, order.ID,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE customers SET credit_score = $1, credit_level = $2, credit_limit = $3, total_spent = $4,
			consecutive_success = $5, milestone_100 = $6, milestone_300 = $7
		WHERE id = $8;`,
		customer.CreditScore, customer.CreditLevel, customer.CreditLimit, customer.TotalSpent,
		customer.ConsecutiveSuccess, customer.Milestone100, customer.Milestone300, order.CustomerID,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStorage) ListOrders(ctx context.Context, status string, limit int, offset int) ([]entities.Order, int, error) {
	var (
		orders []entities.Order
		total  int
	)

	if status != "" {
		err := s.db.SelectContext(
			ctx,
			&orders,
			"SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3;",
			status, limit, offset,
		)
		if err != nil {
			return nil, 0, err
		}

		if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders WHERE status = $1;", status); err != nil {
			return nil, 0, err
		}

		return orders, total, nil
	}

	err := s.db.SelectContext(
		ctx,
		&orders,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2;",
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}

	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders;"); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (s *PostgresStorage) CreateSiteMessage(ctx context.Context, message entities.SiteMessage) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO site_messages (customer_id, type, title, content, order_id)
		VALUES ($1, $2, $3, $4, $5);`,
		message.CustomerID, message.Type, message.Title, message.Content, message.OrderID,
	)

	return err
}

func (s *PostgresStorage) GetCustomerMessages(ctx context.Context, customerID string) ([]entities.SiteMessage, error) {
	var messages []entities.SiteMessage

	err := s.db.SelectContext(
		ctx,
		&messages,
		"SELECT * FROM site_messages WHERE customer_id = $1 ORDER BY created_at DESC LIMIT 50;",
		customerID,
	)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (s *PostgresStorage) AwaitingPaymentOrders(ctx context.Context) ([]AwaitingOrder, error) {
	var orders []AwaitingOrder

	err := s.db.SelectContext(
		ctx,
		&orders,
		`SELECT o.*, COALESCE(c.phone, '') AS customer_phone
		FROM orders o
		LEFT JOIN customers c ON o.customer_id = c.id
		WHERE o.status = $1 ORDER BY o.created_at ASC;`,
		entities.OrderStatusAwaitingPayment,
	)
	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (s *PostgresStorage) DailyStats(ctx context.Context, day time.Time) (DailyStats, error) {
	var stats DailyStats

	err := s.db.GetContext(
		ctx,
		&stats,
		`SELECT
			(SELECT COUNT(*) FROM orders WHERE created_at::date = $1::date) AS orders_created,
			(SELECT COUNT(*) FROM orders WHERE status = $2 AND updated_at::date = $1::date) AS orders_completed,
			(SELECT COUNT(*) FROM orders WHERE status = $3) AS awaiting_payment,
			(SELECT COALESCE(SUM(amount), 0) FROM orders WHERE status = $2 AND updated_at::date = $1::date) AS revenue;`,
		day, entities.OrderStatusCompleted, entities.OrderStatusAwaitingPayment,
	)
	if err != nil {
		return DailyStats{}, err
	}

	return stats, nil
}

func (s *PostgresStorage) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats

	err := s.db.GetContext(
		ctx,
		&stats,
		`SELECT
			(SELECT COUNT(*) FROM customers) AS total_customers,
			(SELECT COUNT(*) FROM orders) AS total_orders,
			(SELECT COUNT(*) FROM orders WHERE status = $1) AS completed_orders,
			(SELECT COUNT(*) FROM orders WHERE status IN ($2, $3, $4)) AS pending_orders,
			(SELECT COALESCE(SUM(amount), 0) FROM orders WHERE status = $1) AS revenue,
			(SELECT COUNT(*) FROM orders WHERE created_at::date = now()::date) AS today_orders;`,
		entities.OrderStatusCompleted,
		entities.OrderStatusPending, entities.OrderStatusCharged, entities.OrderStatusProcessing,
	)
	if err != nil {
		return Stats{}, err
	}

	return stats, nil
}

func (s *PostgresStorage) runMigrations(ctx context.Context) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}

	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`
		CREATE TABLE IF NOT EXISTS customers(
			id uuid DEFAULT gen_random_uuid() PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			phone TEXT UNIQUE,
			password TEXT NOT NULL,
			credit_score INT NOT NULL DEFAULT 0,
			credit_level VARCHAR NOT NULL DEFAULT 'Novice',
			credit_limit INT NOT NULL DEFAULT 1000,
			total_spent INT NOT NULL DEFAULT 0,
			consecutive_success INT NOT NULL DEFAULT 0,
			milestone_100 BOOLEAN NOT NULL DEFAULT false,
			milestone_300 BOOLEAN NOT NULL DEFAULT false,
			is_blocked BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
	)

	if err != nil {
		return err
	}

	_, err = tx.ExecContext(
		ctx,
		`
		CREATE TABLE IF NOT EXISTS orders(
			id uuid PRIMARY KEY,
			customer_id uuid NOT NULL,
			phone VARCHAR NOT NULL,
			operator VARCHAR NOT NULL,
			amount INT NOT NULL,
			bonus INT NOT NULL DEFAULT 0,
			total INT NOT NULL DEFAULT 0,
			is_credit BOOLEAN NOT NULL DEFAULT false,
			status VARCHAR NOT NULL DEFAULT 'pending',
			message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_customer FOREIGN KEY(customer_id) REFERENCES customers(id) ON DELETE CASCADE
		);
		`,
	)

	if err != nil {
		return err
	}

	_, err = tx.ExecContext(
		ctx,
		`
		CREATE TABLE IF NOT EXISTS site_messages(
			id BIGSERIAL PRIMARY KEY,
			customer_id uuid NOT NULL,
			type VARCHAR NOT NULL DEFAULT 'info',
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			order_id TEXT NOT NULL DEFAULT '',
			is_read BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_customer FOREIGN KEY(customer_id) REFERENCES customers(id) ON DELETE CASCADE
		);
		`,
	)

	if err != nil {
		return err
	}

	_, err = tx.ExecContext(
		ctx,
		`
		CREATE TABLE IF NOT EXISTS payment_reminders(
			order_id uuid PRIMARY KEY,
			level INT NOT NULL DEFAULT 0,
			last_sent TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		`,
	)

	if err != nil {
		return err
	}

	return tx.Commit()
}
