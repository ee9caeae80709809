package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velocevoce/topup/internal/entities"
	"github.com/velocevoce/topup/internal/storage"
)

type fakeStorage struct {
	orders    map[string]*entities.Order
	phones    map[string]string
	reminders map[string]entities.Reminder
	messages  []entities.SiteMessage
	stats     storage.DailyStats
	statCalls int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		orders:    make(map[string]*entities.Order),
		phones:    make(map[string]string),
		reminders: make(map[string]entities.Reminder),
	}
}

func (s *fakeStorage) AwaitingPaymentOrders(_ context.Context) ([]storage.AwaitingOrder, error) {
	var result []storage.AwaitingOrder
	for _, order := range s.orders {
		if order.Status == entities.OrderStatusAwaitingPayment {
			result = append(result, storage.AwaitingOrder{
				Order:         *order,
				CustomerPhone: s.phones[order.CustomerID],
			})
		}
	}
	return result, nil
}

func (s *fakeStorage) GetOrder(_ context.Context, orderID string) (entities.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return entities.Order{}, storage.ErrNoRows
	}
	return *order, nil
}

func (s *fakeStorage) DailyStats(_ context.Context, _ time.Time) (storage.DailyStats, error) {
	s.statCalls++
	return s.stats, nil
}

func (s *fakeStorage) Reminders(_ context.Context) ([]entities.Reminder, error) {
	var result []entities.Reminder
	for _, reminder := range s.reminders {
		result = append(result, reminder)
	}
	return result, nil
}

func (s *fakeStorage) UpsertReminder(_ context.Context, reminder entities.Reminder) error {
	s.reminders[reminder.OrderID] = reminder
	return nil
}

func (s *fakeStorage) DeleteReminder(_ context.Context, orderID string) error {
	delete(s.reminders, orderID)
	return nil
}

func (s *fakeStorage) CreateSiteMessage(_ context.Context, message entities.SiteMessage) error {
	s.messages = append(s.messages, message)
	return nil
}

type fakeNotifier struct {
	subjects []string
}

func (n *fakeNotifier) Notify(_ context.Context, subject string, _ string) {
	n.subjects = append(n.subjects, subject)
}

type fakeSMS struct {
	levels []int
}

func (s *fakeSMS) SendReminder(_ context.Context, _ string, _ string, _ int, level int) {
	s.levels = append(s.levels, level)
}

var testLadder = []int{1, 6, 24, 72}

func newTestReminder(fake *fakeStorage, notifier *fakeNotifier, sms *fakeSMS, now time.Time) *Reminder {
	worker := NewReminder(fake, notifier, sms, testLadder, 9, time.Second)
	worker.now = func() time.Time { return now }
	return worker
}

func addAwaitingOrder(fake *fakeStorage, orderID string, createdAt time.Time) {
	fake.orders[orderID] = &entities.Order{
		ID:         orderID,
		CustomerID: "customer-1",
		Amount:     2000,
		Status:     entities.OrderStatusAwaitingPayment,
		CreatedAt:  createdAt,
	}
}

func TestReminderNoEscalationBeforeFirstThreshold(t *testing.T) {
	fake := newFakeStorage()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	addAwaitingOrder(fake, "order-1", now.Add(-30*time.Minute))

	notifier := &fakeNotifier{}
	newTestReminder(fake, notifier, &fakeSMS{}, now).processReminders(context.Background())

	require.Empty(t, fake.reminders)
	require.Empty(t, notifier.subjects)
	require.Empty(t, fake.messages)
}

func TestReminderEscalationWritesSiteMessage(t *testing.T) {
	fake := newFakeStorage()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	addAwaitingOrder(fake, "order-1", now.Add(-2*time.Hour))

	newTestReminder(fake, &fakeNotifier{}, &fakeSMS{}, now).processReminders(context.Background())

	require.Len(t, fake.messages, 1)
	require.Equal(t, entities.SiteMessageTypeInfo, fake.messages[0].Type)
	require.Equal(t, "order-1", fake.messages[0].OrderID)
	require.Equal(t, "customer-1", fake.messages[0].CustomerID)
}

func TestReminderEscalationLadder(t *testing.T) {
	tests := []struct {
		name         string
		currentLevel int
		elapsed      time.Duration
		wantLevel    int
	}{
		{name: "level 1 at 1h", currentLevel: 0, elapsed: time.Hour, wantLevel: 1},
		{name: "level 2 not before 7h", currentLevel: 1, elapsed: 6 * time.Hour, wantLevel: 1},
		{name: "level 2 at 7h", currentLevel: 1, elapsed: 7 * time.Hour, wantLevel: 2},
		{name: "level 3 at 31h", currentLevel: 2, elapsed: 31 * time.Hour, wantLevel: 3},
		{name: "level 4 not before 103h", currentLevel: 3, elapsed: 100 * time.Hour, wantLevel: 3},
		{name: "level 4 at 103h", currentLevel: 3, elapsed: 103 * time.Hour, wantLevel: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeStorage()
			now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
			addAwaitingOrder(fake, "order-1", now.Add(-tt.elapsed))

			if tt.currentLevel > 0 {
				fake.reminders["order-1"] = entities.Reminder{OrderID: "order-1", Level: tt.currentLevel}
			}

			newTestReminder(fake, &fakeNotifier{}, &fakeSMS{}, now).processReminders(context.Background())

			gotLevel := fake.reminders["order-1"].Level
			require.Equal(t, tt.wantLevel, gotLevel)
		})
	}
}

func TestReminderOneLevelPerCycle(t *testing.T) {
	fake := newFakeStorage()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	// old enough for every rung, but levels raise one cycle at a time
	addAwaitingOrder(fake, "order-1", now.Add(-200*time.Hour))

	worker := newTestReminder(fake, &fakeNotifier{}, &fakeSMS{}, now)

	for wantLevel := 1; wantLevel <= entities.MaxReminderLevel; wantLevel++ {
		worker.processReminders(context.Background())
		require.Equal(t, wantLevel, fake.reminders["order-1"].Level)
	}

	// level is capped at the ladder length
	worker.processReminders(context.Background())
	require.Equal(t, entities.MaxReminderLevel, fake.reminders["order-1"].Level)
}

func TestReminderSMSOnlyWithCustomerPhone(t *testing.T) {
	fake := newFakeStorage()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	addAwaitingOrder(fake, "order-1", now.Add(-2*time.Hour))

	sms := &fakeSMS{}
	newTestReminder(fake, &fakeNotifier{}, sms, now).processReminders(context.Background())
	require.Empty(t, sms.levels)

	addAwaitingOrder(fake, "order-2", now.Add(-2*time.Hour))
	fake.phones["customer-1"] = "3471234567"

	newTestReminder(fake, &fakeNotifier{}, sms, now).processReminders(context.Background())
	require.Equal(t, []int{1}, sms.levels)
}

func TestReminderReconciliationPrunesSettledOrders(t *testing.T) {
	fake := newFakeStorage()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	fake.orders["order-1"] = &entities.Order{
		ID:         "order-1",
		CustomerID: "customer-1",
		Status:     entities.OrderStatusCompleted,
		CreatedAt:  now.Add(-10 * time.Hour),
	}
	fake.reminders["order-1"] = entities.Reminder{OrderID: "order-1", Level: 2}

	newTestReminder(fake, &fakeNotifier{}, &fakeSMS{}, now).processReminders(context.Background())

	require.NotContains(t, fake.reminders, "order-1")
}

func TestReminderDailyReportGuard(t *testing.T) {
	fake := newFakeStorage()
	fake.stats = storage.DailyStats{OrdersCreated: 3, OrdersCompleted: 2, Revenue: 4500}

	now := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	notifier := &fakeNotifier{}
	worker := newTestReminder(fake, notifier, &fakeSMS{}, now)

	worker.maybeDailyReport(context.Background())
	require.Equal(t, 1, fake.statCalls)
	require.Len(t, notifier.subjects, 1)

	// same day: no second report
	worker.maybeDailyReport(context.Background())
	require.Equal(t, 1, fake.statCalls)

	// next day: a fresh report
	worker.now = func() time.Time { return now.Add(24 * time.Hour) }
	worker.maybeDailyReport(context.Background())
	require.Equal(t, 2, fake.statCalls)
}

func TestReminderDailyReportWaitsForConfiguredHour(t *testing.T) {
	fake := newFakeStorage()
	now := time.Date(2024, 5, 10, 8, 59, 0, 0, time.UTC)
	notifier := &fakeNotifier{}

	newTestReminder(fake, notifier, &fakeSMS{}, now).maybeDailyReport(context.Background())

	require.Zero(t, fake.statCalls)
	require.Empty(t, notifier.subjects)
}
