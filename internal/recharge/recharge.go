// Package recharge talks to the external device-automation agent that
// performs the actual top-up in the recharge app.
package recharge

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/velocevoce/topup/internal/config"
	"github.com/velocevoce/topup/internal/entities"
	"github.com/velocevoce/topup/internal/services/converter"
)

const executePath = "/api/recharge"

// Result is the executor's verdict on a single attempt.
type Result struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

// Executor performs one top-up attempt. A transport error means the
// attempt never reached the agent; the order still fails, with the
// error text as the outcome detail.
type Executor interface {
	Execute(ctx context.Context, order entities.Order, account config.Account) (Result, error)
}

type AgentClient struct {
	apiAddress string
	client     *resty.Client
}

func NewAgentClient(apiAddress string) *AgentClient {
	client := resty.New()

	client.
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second)

	return &AgentClient{
		apiAddress: apiAddress,
		client:     client,
	}
}

func (c *AgentClient) Execute(ctx context.Context, order entities.Order, account config.Account) (Result, error) {
	var result Result

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"order_id": order.ID,
			"phone":    order.Phone,
			"operator": order.Operator,
			"amount":   converter.FormatEuro(order.Amount),
			"account":  account.Username,
		}).
		SetResult(&result).
		Post(c.apiAddress + executePath)

	if err != nil {
		return Result{}, fmt.Errorf("error call recharge agent: %w", err)
	}

	if response.IsError() {
		return Result{}, fmt.Errorf("error call recharge agent, invalid status: %v", response.Status())
	}

	return result, nil
}
