package fulfiller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velocevoce/topup/internal/config"
	"github.com/velocevoce/topup/internal/entities"
	"github.com/velocevoce/topup/internal/recharge"
	"github.com/velocevoce/topup/internal/storage"
)

type fakeStorage struct {
	orders    map[string]*entities.Order
	customers map[string]*entities.Customer
	messages  []entities.SiteMessage
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		orders:    make(map[string]*entities.Order),
		customers: make(map[string]*entities.Customer),
	}
}

func (s *fakeStorage) addOrder(order entities.Order) {
	s.orders[order.ID] = &order
}

func (s *fakeStorage) addCustomer(customer entities.Customer) {
	s.customers[customer.ID] = &customer
}

func (s *fakeStorage) OldestProcessingOrder(_ context.Context) (entities.Order, error) {
	var oldest *entities.Order
	for _, order := range s.orders {
		if order.Status != entities.OrderStatusProcessing {
			continue
		}
		if oldest == nil || order.CreatedAt.Before(oldest.CreatedAt) {
			oldest = order
		}
	}

	if oldest == nil {
		return entities.Order{}, storage.ErrNoRows
	}

	return *oldest, nil
}

func (s *fakeStorage) UpdateOrderStatus(_ context.Context, orderID string, status string, message string) error {
	order := s.orders[orderID]
	order.Status = status
	order.Message = message
	return nil
}

func (s *fakeStorage) GetCustomer(_ context.Context, customerID string) (entities.Customer, error) {
	customer, ok := s.customers[customerID]
	if !ok {
		return entities.Customer{}, storage.ErrNoRows
	}
	return *customer, nil
}

func (s *fakeStorage) CompleteOrder(_ context.Context, order entities.Order, message string, customer entities.Customer) error {
	stored := s.orders[order.ID]
	stored.Status = entities.OrderStatusCompleted
	stored.Message = message
	*s.customers[customer.ID] = customer
	return nil
}

func (s *fakeStorage) CreateSiteMessage(_ context.Context, message entities.SiteMessage) error {
	s.messages = append(s.messages, message)
	return nil
}

type fakeExecutor struct {
	result recharge.Result
	err    error
	calls  int
}

func (e *fakeExecutor) Execute(_ context.Context, _ entities.Order, _ config.Account) (recharge.Result, error) {
	e.calls++
	return e.result, e.err
}

type fakeNotifier struct {
	subjects []string
}

func (n *fakeNotifier) Notify(_ context.Context, subject string, _ string) {
	n.subjects = append(n.subjects, subject)
}

var testAccounts = []config.Account{{Username: "acc1"}, {Username: "acc2"}}

func TestFulfillerCompletesOrder(t *testing.T) {
	fake := newFakeStorage()
	fake.addOrder(entities.Order{
		ID:         "order-1",
		CustomerID: "customer-1",
		Phone:      "3331234567",
		Operator:   "TIM",
		Amount:     3500,
		IsCredit:   true,
		Status:     entities.OrderStatusProcessing,
	})
	fake.addCustomer(entities.Customer{ID: "customer-1", CreditLevel: entities.CreditLevelNovice})

	executor := &fakeExecutor{result: recharge.Result{Success: true, Detail: "recharge completed"}}
	notifier := &fakeNotifier{}

	worker := NewFulfiller(fake, executor, notifier, testAccounts, nil, time.Second)
	worker.RunCycle(context.Background())

	order := fake.orders["order-1"]
	require.Equal(t, entities.OrderStatusCompleted, order.Status)
	require.Equal(t, "recharge completed", order.Message)
	require.Equal(t, 1, executor.calls)

	customer := fake.customers["customer-1"]
	require.Equal(t, 35, customer.CreditScore)
	require.Equal(t, 1, customer.ConsecutiveSuccess)
	require.Equal(t, 3500, customer.TotalSpent)

	require.Len(t, fake.messages, 1)
	require.Equal(t, entities.SiteMessageTypeSuccess, fake.messages[0].Type)
	require.NotEmpty(t, notifier.subjects)
}

func TestFulfillerFailsOrderOnExecutorFailure(t *testing.T) {
	fake := newFakeStorage()
	fake.addOrder(entities.Order{
		ID:         "order-1",
		CustomerID: "customer-1",
		Status:     entities.OrderStatusProcessing,
	})
	fake.addCustomer(entities.Customer{ID: "customer-1"})

	executor := &fakeExecutor{result: recharge.Result{Success: false, Detail: "app unreachable"}}

	worker := NewFulfiller(fake, executor, &fakeNotifier{}, testAccounts, nil, time.Second)
	worker.RunCycle(context.Background())

	order := fake.orders["order-1"]
	require.Equal(t, entities.OrderStatusFailed, order.Status)
	require.Equal(t, "app unreachable", order.Message)

	// credit state untouched on failure
	require.Equal(t, 0, fake.customers["customer-1"].CreditScore)
	require.Empty(t, fake.messages)
}

func TestFulfillerManualOperatorSkipsExecutor(t *testing.T) {
	fake := newFakeStorage()
	fake.addOrder(entities.Order{
		ID:         "order-1",
		CustomerID: "customer-1",
		Operator:   "Lycamobile",
		Status:     entities.OrderStatusProcessing,
	})
	fake.addCustomer(entities.Customer{ID: "customer-1"})

	executor := &fakeExecutor{result: recharge.Result{Success: true}}

	worker := NewFulfiller(fake, executor, &fakeNotifier{}, testAccounts, []string{"Lycamobile"}, time.Second)
	worker.RunCycle(context.Background())

	order := fake.orders["order-1"]
	require.Equal(t, entities.OrderStatusFailed, order.Status)
	require.Contains(t, order.Message, "requires manual processing")
	require.Zero(t, executor.calls)
}

func TestFulfillerFailsWithoutAccounts(t *testing.T) {
	fake := newFakeStorage()
	fake.addOrder(entities.Order{
		ID:         "order-1",
		CustomerID: "customer-1",
		Operator:   "TIM",
		Status:     entities.OrderStatusProcessing,
	})
	fake.addCustomer(entities.Customer{ID: "customer-1"})

	executor := &fakeExecutor{result: recharge.Result{Success: true}}

	worker := NewFulfiller(fake, executor, &fakeNotifier{}, nil, nil, time.Second)
	worker.RunCycle(context.Background())

	require.Equal(t, entities.OrderStatusFailed, fake.orders["order-1"].Status)
	require.Zero(t, executor.calls)
}

func TestFulfillerClaimsOldestOrderOnly(t *testing.T) {
	fake := newFakeStorage()
	fake.addOrder(entities.Order{
		ID:         "order-new",
		CustomerID: "customer-1",
		Operator:   "TIM",
		Status:     entities.OrderStatusProcessing,
		CreatedAt:  time.Now(),
	})
	fake.addOrder(entities.Order{
		ID:         "order-old",
		CustomerID: "customer-2",
		Operator:   "TIM",
		Status:     entities.OrderStatusProcessing,
		CreatedAt:  time.Now().Add(-time.Hour),
	})
	fake.addCustomer(entities.Customer{ID: "customer-1"})
	fake.addCustomer(entities.Customer{ID: "customer-2"})

	executor := &fakeExecutor{result: recharge.Result{Success: true, Detail: "ok"}}

	worker := NewFulfiller(fake, executor, &fakeNotifier{}, testAccounts, nil, time.Second)
	worker.RunCycle(context.Background())

	// one order advanced per cycle, oldest first
	require.Equal(t, entities.OrderStatusCompleted, fake.orders["order-old"].Status)
	require.Equal(t, entities.OrderStatusProcessing, fake.orders["order-new"].Status)
	require.Equal(t, 1, executor.calls)
}

func TestFulfillerIdleCycleWithoutOrders(t *testing.T) {
	executor := &fakeExecutor{}

	worker := NewFulfiller(newFakeStorage(), executor, &fakeNotifier{}, testAccounts, nil, time.Second)
	worker.RunCycle(context.Background())

	require.Zero(t, executor.calls)
}
