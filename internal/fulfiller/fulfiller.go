// Package fulfiller claims the oldest processing order, runs the
// external recharge executor for it and records the outcome. One order
// per cycle: a deliberate throughput throttle, not a correctness rule.
package fulfiller

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/velocevoce/topup/internal/config"
	"github.com/velocevoce/topup/internal/credit"
	"github.com/velocevoce/topup/internal/entities"
	"github.com/velocevoce/topup/internal/notifier"
	"github.com/velocevoce/topup/internal/recharge"
	"github.com/velocevoce/topup/internal/services/converter"
	"github.com/velocevoce/topup/internal/storage"
)

type Storage interface {
	OldestProcessingOrder(ctx context.Context) (entities.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status string, message string) error
	GetCustomer(ctx context.Context, customerID string) (entities.Customer, error)
	CompleteOrder(ctx context.Context, order entities.Order, message string, customer entities.Customer) error
	CreateSiteMessage(ctx context.Context, message entities.SiteMessage) error
}

type Fulfiller struct {
	storage         Storage
	executor        recharge.Executor
	notifier        notifier.Notifier
	accounts        []config.Account
	manualOperators map[string]struct{}
	pollInterval    time.Duration
	pickAccount     func(n int) int
}

func NewFulfiller(
	storage Storage,
	executor recharge.Executor,
	notifier notifier.Notifier,
	accounts []config.Account,
	manualOperators []string,
	pollInterval time.Duration,
) *Fulfiller {
	manual := make(map[string]struct{}, len(manualOperators))
	for _, operator := range manualOperators {
		manual[operator] = struct{}{}
	}

	return &Fulfiller{
		storage:         storage,
		executor:        executor,
		notifier:        notifier,
		accounts:        accounts,
		manualOperators: manual,
		pollInterval:    pollInterval,
		pickAccount:     rand.Intn,
	}
}

func (f *Fulfiller) Start(ctx context.Context) error {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	zap.L().Info("fulfiller started", zap.Duration("pollInterval", f.pollInterval))

	f.RunCycle(ctx)

	for {
		select {
		case <-ticker.C:
			f.RunCycle(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunCycle advances at most one order. Transient failures are logged
// and the cycle is skipped; the next tick re-derives the right action
// from the persisted status.
func (f *Fulfiller) RunCycle(ctx context.Context) {
	order, err := f.storage.OldestProcessingOrder(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNoRows) {
			zap.L().Info("error select oldest processing order", zap.Error(err))
		}

		return
	}

	if err := f.storage.UpdateOrderStatus(ctx, order.ID, entities.OrderStatusPaying, "recharge in progress"); err != nil {
		zap.L().Info("error move order to paying", zap.String("orderID", order.ID), zap.Error(err))

		return
	}

	success, detail := f.performRecharge(ctx, order)

	if success {
		if err := f.completeOrder(ctx, order, detail); err != nil {
			zap.L().Info("error complete order", zap.String("orderID", order.ID), zap.Error(err))

			return
		}
	} else {
		if err := f.storage.UpdateOrderStatus(ctx, order.ID, entities.OrderStatusFailed, detail); err != nil {
			zap.L().Info("error fail order", zap.String("orderID", order.ID), zap.Error(err))

			return
		}
	}

	f.notifyResult(ctx, order, success, detail)
}

func (f *Fulfiller) performRecharge(ctx context.Context, order entities.Order) (bool, string) {
	if _, manual := f.manualOperators[order.Operator]; manual {
		zap.L().Info(
			"operator requires manual processing",
			zap.String("orderID", order.ShortID()),
			zap.String("operator", order.Operator),
		)

		return false, fmt.Sprintf("operator %s requires manual processing", order.Operator)
	}

	if len(f.accounts) == 0 {
		zap.L().Warn("no fulfillment accounts configured")

		return false, "no fulfillment accounts configured"
	}

	account := f.accounts[f.pickAccount(len(f.accounts))]

	zap.L().Info(
		"starting recharge",
		zap.String("orderID", order.ShortID()),
		zap.String("phone", order.Phone),
		zap.String("account", account.Username),
	)

	result, err := f.executor.Execute(ctx, order, account)
	if err != nil {
		zap.L().Info("error execute recharge", zap.String("orderID", order.ID), zap.Error(err))

		return false, err.Error()
	}

	return result.Success, result.Detail
}

func (f *Fulfiller) completeOrder(ctx context.Context, order entities.Order, detail string) error {
	customer, err := f.storage.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		return fmt.Errorf("error get customer for credit update: %w", err)
	}

	state, result := credit.Apply(credit.State{
		Score:              customer.CreditScore,
		TotalSpent:         customer.TotalSpent,
		ConsecutiveSuccess: customer.ConsecutiveSuccess,
		Milestone100:       customer.Milestone100,
		Milestone300:       customer.Milestone300,
	}, order.Amount, order.IsCredit)

	customer.CreditScore = state.Score
	customer.TotalSpent = state.TotalSpent
	customer.ConsecutiveSuccess = state.ConsecutiveSuccess
	customer.Milestone100 = state.Milestone100
	customer.Milestone300 = state.Milestone300
	customer.CreditLevel = result.NewLevel.Name
	customer.CreditLimit = result.NewLevel.Limit

	if err := f.storage.CompleteOrder(ctx, order, detail, customer); err != nil {
		return err
	}

	logCreditResult(customer.ID, result)

	message := entities.SiteMessage{
		CustomerID: order.CustomerID,
		Type:       entities.SiteMessageTypeSuccess,
		Title:      fmt.Sprintf("Top-up of €%.2f completed", converter.FormatEuro(order.Amount)),
		Content:    fmt.Sprintf("Number %s was recharged with €%.2f.", order.Phone, converter.FormatEuro(order.Amount)),
		OrderID:    order.ID,
	}

	if err := f.storage.CreateSiteMessage(ctx, message); err != nil {
		zap.L().Info("error create site message", zap.String("orderID", order.ID), zap.Error(err))
	}

	return nil
}

func (f *Fulfiller) notifyResult(ctx context.Context, order entities.Order, success bool, detail string) {
	if success {
		subject := fmt.Sprintf("✅ Top-up completed €%.2f", converter.FormatEuro(order.Amount))
		body := fmt.Sprintf(
			"Order: %s\nPhone: %s\nOperator: %s\nAmount: €%.2f",
			order.ShortID(), order.Phone, order.Operator, converter.FormatEuro(order.Amount),
		)

		f.notifier.Notify(ctx, subject, body)

		return
	}

	subject := fmt.Sprintf("❌ Top-up failed €%.2f", converter.FormatEuro(order.Amount))
	body := fmt.Sprintf(
		"Order: %s\nPhone: %s\nReason: %s",
		order.ShortID(), order.Phone, detail,
	)

	f.notifier.Notify(ctx, subject, body)
}

// logCreditResult records level changes. The entry bonus of the new
// level is logged but not credited anywhere; the customer balance is
// untouched on level-up.
func logCreditResult(customerID string, result credit.Result) {
	if result.LeveledUp && result.NewLevel.EntryBonus > 0 {
		zap.L().Info(
			"customer level up",
			zap.String("customerID", customerID),
			zap.String("from", result.OldLevel.Name),
			zap.String("to", result.NewLevel.Name),
			zap.Float64("entryBonus", converter.FormatEuro(result.NewLevel.EntryBonus)),
		)
	}

	zap.L().Info(
		"credit score updated",
		zap.String("customerID", customerID),
		zap.Int("points", result.Points),
		zap.String("level", result.NewLevel.Name),
	)
}
