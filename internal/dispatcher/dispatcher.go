// Package dispatcher promotes newly charged orders into the pipeline,
// releases queued orders into the per-customer execution slot and
// raises timeout alerts for stuck orders.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/velocevoce/topup/internal/entities"
	"github.com/velocevoce/topup/internal/notifier"
	"github.com/velocevoce/topup/internal/services/converter"
)

type Storage interface {
	OrdersByStatus(ctx context.Context, status string) ([]entities.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status string, message string) error
	PromoteToProcessing(ctx context.Context, orderID string, customerID string) (bool, error)
	TimedOutOrders(ctx context.Context, status string, before time.Time) ([]entities.Order, error)
}

type Dispatcher struct {
	storage           Storage
	notifier          notifier.Notifier
	pollInterval      time.Duration
	processingTimeout time.Duration
	payingTimeout     time.Duration
	now               func() time.Time
}

func NewDispatcher(storage Storage, notifier notifier.Notifier, pollInterval, processingTimeout, payingTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		storage:           storage,
		notifier:          notifier,
		pollInterval:      pollInterval,
		processingTimeout: processingTimeout,
		payingTimeout:     payingTimeout,
		now:               time.Now,
	}
}

func (d *Dispatcher) Start(ctx context.Context) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	zap.L().Info("dispatcher started", zap.Duration("pollInterval", d.pollInterval))

	d.RunCycle(ctx)

	for {
		select {
		case <-ticker.C:
			d.RunCycle(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunCycle executes one full dispatch pass. Every step is re-entrant:
// a failed pass is logged and simply retried on the next tick.
func (d *Dispatcher) RunCycle(ctx context.Context) {
	if err := d.promoteCharged(ctx); err != nil {
		zap.L().Info("error promote charged orders", zap.Error(err))
	}

	if err := d.releaseHolding(ctx); err != nil {
		zap.L().Info("error release holding orders", zap.Error(err))
	}

	if err := d.alertTimedOut(ctx, entities.OrderStatusProcessing, d.processingTimeout, "recharge timeout"); err != nil {
		zap.L().Info("error check processing timeouts", zap.Error(err))
	}

	if err := d.alertTimedOut(ctx, entities.OrderStatusPaying, d.payingTimeout, "payment timeout"); err != nil {
		zap.L().Info("error check paying timeouts", zap.Error(err))
	}
}

func (d *Dispatcher) promoteCharged(ctx context.Context) error {
	orders, err := d.storage.OrdersByStatus(ctx, entities.OrderStatusCharged)
	if err != nil {
		return err
	}

	for _, order := range orders {
		if order.IsCredit {
			err := d.storage.UpdateOrderStatus(ctx, order.ID, entities.OrderStatusAwaitingPayment, "waiting for payment")
			if err != nil {
				zap.L().Info("error move order to awaiting_payment", zap.String("orderID", order.ID), zap.Error(err))

				continue
			}

			zap.L().Info("order charged -> awaiting_payment", zap.String("orderID", order.ShortID()))

			continue
		}

		promoted, err := d.storage.PromoteToProcessing(ctx, order.ID, order.CustomerID)
		if err != nil {
			zap.L().Info("error promote charged order", zap.String("orderID", order.ID), zap.Error(err))

			continue
		}

		if promoted {
			zap.L().Info("order charged -> processing", zap.String("orderID", order.ShortID()))
		} else {
			zap.L().Info("order charged -> holding, slot occupied", zap.String("orderID", order.ShortID()))
		}
	}

	return nil
}

func (d *Dispatcher) releaseHolding(ctx context.Context) error {
	orders, err := d.storage.OrdersByStatus(ctx, entities.OrderStatusHolding)
	if err != nil {
		return err
	}

	for _, order := range orders {
		promoted, err := d.storage.PromoteToProcessing(ctx, order.ID, order.CustomerID)
		if err != nil {
			zap.L().Info("error release holding order", zap.String("orderID", order.ID), zap.Error(err))

			continue
		}

		if promoted {
			zap.L().Info("order holding -> processing, slot available", zap.String("orderID", order.ShortID()))
		}
	}

	return nil
}

// alertTimedOut raises a recurring operator alert for every order stuck
// in the given status. Monitoring only: the order keeps its status.
func (d *Dispatcher) alertTimedOut(ctx context.Context, status string, timeout time.Duration, subject string) error {
	orders, err := d.storage.TimedOutOrders(ctx, status, d.now().Add(-timeout))
	if err != nil {
		return err
	}

	for _, order := range orders {
		zap.L().Warn(
			"order timed out",
			zap.String("orderID", order.ShortID()),
			zap.String("status", status),
			zap.Duration("timeout", timeout),
		)

		body := fmt.Sprintf(
			"Order: %s\nPhone: %s\nOperator: %s\nAmount: €%.2f\nStuck in %s for over %d minutes",
			order.ShortID(), order.Phone, order.Operator,
			converter.FormatEuro(order.Amount), status, int(timeout.Minutes()),
		)

		d.notifier.Notify(ctx, subject, body)
	}

	return nil
}
