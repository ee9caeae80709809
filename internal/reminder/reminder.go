// Package reminder escalates payment reminders for awaiting_payment
// orders along a cumulative hour ladder and emits the daily report.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/velocevoce/topup/internal/entities"
	"github.com/velocevoce/topup/internal/notifier"
	"github.com/velocevoce/topup/internal/services/converter"
	"github.com/velocevoce/topup/internal/storage"
)

type Storage interface {
	AwaitingPaymentOrders(ctx context.Context) ([]storage.AwaitingOrder, error)
	GetOrder(ctx context.Context, orderID string) (entities.Order, error)
	DailyStats(ctx context.Context, day time.Time) (storage.DailyStats, error)

	Reminders(ctx context.Context) ([]entities.Reminder, error)
	UpsertReminder(ctx context.Context, reminder entities.Reminder) error
	DeleteReminder(ctx context.Context, orderID string) error

	CreateSiteMessage(ctx context.Context, message entities.SiteMessage) error
}

type Reminder struct {
	storage      Storage
	notifier     notifier.Notifier
	sms          notifier.SMSSender
	ladderHours  []int
	reportHour   int
	pollInterval time.Duration
	now          func() time.Time

	// Last report date, held in memory only. Losing it across restarts
	// is accepted: at most one report is missed or duplicated.
	lastReportDate string
}

func NewReminder(
	storage Storage,
	notifier notifier.Notifier,
	sms notifier.SMSSender,
	ladderHours []int,
	reportHour int,
	pollInterval time.Duration,
) *Reminder {
	return &Reminder{
		storage:      storage,
		notifier:     notifier,
		sms:          sms,
		ladderHours:  ladderHours,
		reportHour:   reportHour,
		pollInterval: pollInterval,
		now:          time.Now,
	}
}

func (r *Reminder) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	zap.L().Info("reminder worker started", zap.Duration("pollInterval", r.pollInterval))

	r.RunCycle(ctx)

	for {
		select {
		case <-ticker.C:
			r.RunCycle(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Reminder) RunCycle(ctx context.Context) {
	if err := r.processReminders(ctx); err != nil {
		zap.L().Info("error process payment reminders", zap.Error(err))
	}

	if err := r.maybeDailyReport(ctx); err != nil {
		zap.L().Info("error emit daily report", zap.Error(err))
	}
}

// processReminders raises at most one escalation level per order per
// cycle. Level k fires once the hours since created_at reach the sum of
// the first k ladder steps.
func (r *Reminder) processReminders(ctx context.Context) error {
	orders, err := r.storage.AwaitingPaymentOrders(ctx)
	if err != nil {
		return err
	}

	reminders, err := r.storage.Reminders(ctx)
	if err != nil {
		return err
	}

	levels := make(map[string]int, len(reminders))
	for _, reminder := range reminders {
		levels[reminder.OrderID] = reminder.Level
	}

	awaiting := make(map[string]struct{}, len(orders))

	for _, order := range orders {
		awaiting[order.ID] = struct{}{}

		if err := r.escalate(ctx, order, levels[order.ID]); err != nil {
			zap.L().Info("error escalate reminder", zap.String("orderID", order.ID), zap.Error(err))
		}
	}

	return r.reconcile(ctx, reminders, awaiting)
}

func (r *Reminder) escalate(ctx context.Context, order storage.AwaitingOrder, currentLevel int) error {
	if currentLevel >= len(r.ladderHours) {
		return nil
	}

	elapsedHours := r.now().Sub(order.CreatedAt).Hours()

	var thresholdHours int
	for _, hours := range r.ladderHours[:currentLevel+1] {
		thresholdHours += hours
	}

	if elapsedHours < float64(thresholdHours) {
		return nil
	}

	level := currentLevel + 1

	zap.L().Info(
		"payment reminder",
		zap.String("orderID", order.ShortID()),
		zap.Int("level", level),
		zap.Float64("elapsedHours", elapsedHours),
	)

	subject := fmt.Sprintf("💳 Payment reminder (level %d)", level)
	body := fmt.Sprintf(
		"Order: %s\nAmount: €%.2f\nPhone: %s\nWaiting for: %.1f hours",
		order.ShortID(), converter.FormatEuro(order.Amount), order.Phone, elapsedHours,
	)

	r.notifier.Notify(ctx, subject, body)

	if order.CustomerPhone != "" {
		r.sms.SendReminder(ctx, order.CustomerPhone, order.ID, order.Amount, level)
	}

	siteMessage := entities.SiteMessage{
		CustomerID: order.CustomerID,
		Type:       entities.SiteMessageTypeInfo,
		Title:      fmt.Sprintf("Payment reminder for order %s", order.ShortID()),
		Content:    fmt.Sprintf("Your top-up of €%.2f is still waiting for payment.", converter.FormatEuro(order.Amount)),
		OrderID:    order.ID,
	}

	if err := r.storage.CreateSiteMessage(ctx, siteMessage); err != nil {
		zap.L().Info("error create reminder site message", zap.String("orderID", order.ID), zap.Error(err))
	}

	return r.storage.UpsertReminder(ctx, entities.Reminder{
		OrderID:  order.ID,
		Level:    level,
		LastSent: r.now(),
	})
}

// reconcile prunes ledger entries whose order left awaiting_payment.
func (r *Reminder) reconcile(ctx context.Context, reminders []entities.Reminder, awaiting map[string]struct{}) error {
	for _, reminder := range reminders {
		if _, ok := awaiting[reminder.OrderID]; ok {
			continue
		}

		order, err := r.storage.GetOrder(ctx, reminder.OrderID)
		if err != nil && !errors.Is(err, storage.ErrNoRows) {
			zap.L().Info("error reconcile reminder", zap.String("orderID", reminder.OrderID), zap.Error(err))

			continue
		}

		if err == nil && order.Status == entities.OrderStatusAwaitingPayment {
			continue
		}

		if err := r.storage.DeleteReminder(ctx, reminder.OrderID); err != nil {
			zap.L().Info("error delete reminder", zap.String("orderID", reminder.OrderID), zap.Error(err))

			continue
		}

		zap.L().Info("reminder pruned", zap.String("orderID", reminder.OrderID))
	}

	return nil
}

// maybeDailyReport emits the operations report once per calendar day,
// no earlier than the configured hour.
func (r *Reminder) maybeDailyReport(ctx context.Context) error {
	now := r.now()
	today := now.Format("2006-01-02")

	if today == r.lastReportDate || now.Hour() < r.reportHour {
		return nil
	}

	stats, err := r.storage.DailyStats(ctx, now)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Orders today: %d\nCompleted today: %d\nAwaiting payment: %d\nRevenue today: €%.2f",
		stats.OrdersCreated, stats.OrdersCompleted, stats.AwaitingPayment,
		converter.FormatEuro(stats.Revenue),
	)

	zap.L().Info("daily report", zap.String("date", today), zap.String("report", body))

	r.notifier.Notify(ctx, "📊 Daily report "+today, body)

	r.lastReportDate = today

	return nil
}
