// Package notifier delivers operator alerts and customer reminders over
// external channels. Delivery is best-effort: failures are logged and
// never reach the callers, so state transitions cannot block on a
// channel outage.
package notifier

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	telegramAPIAddress = "https://api.telegram.org"
	pushPlusAddress    = "http://www.pushplus.plus/send"
)

type Notifier interface {
	Notify(ctx context.Context, subject string, body string)
}

// Multi fans one notification out to every configured channel.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, subject string, body string) {
	for _, notifier := range m {
		notifier.Notify(ctx, subject, body)
	}
}

type Telegram struct {
	client *resty.Client
	token  string
	chatID string
}

func NewTelegram(token string, chatID string) *Telegram {
	return &Telegram{
		client: initClient(),
		token:  token,
		chatID: chatID,
	}
}

func (t *Telegram) Notify(ctx context.Context, subject string, body string) {
	if t.token == "" || t.chatID == "" {
		return
	}

	response, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"chat_id":    t.chatID,
			"text":       subject + "\n" + body,
			"parse_mode": "HTML",
		}).
		Post(telegramAPIAddress + "/bot" + t.token + "/sendMessage")

	if err != nil {
		zap.L().Info("error send telegram notification", zap.Error(err))
		return
	}

	if response.IsError() {
		zap.L().Info("error send telegram notification", zap.String("status", response.Status()))
	}
}

type PushPlus struct {
	client *resty.Client
	token  string
}

func NewPushPlus(token string) *PushPlus {
	return &PushPlus{
		client: initClient(),
		token:  token,
	}
}

func (p *PushPlus) Notify(ctx context.Context, subject string, body string) {
	if p.token == "" {
		return
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"token":    p.token,
			"title":    subject,
			"content":  body,
			"template": "html",
		}).
		Post(pushPlusAddress)

	if err != nil {
		zap.L().Info("error send pushplus notification", zap.Error(err))
		return
	}

	if response.IsError() {
		zap.L().Info("error send pushplus notification", zap.String("status", response.Status()))
	}
}

// SMSSender sends payment reminders over the SMS channel.
type SMSSender interface {
	SendReminder(ctx context.Context, phone string, orderID string, amount int, level int)
}

type SMS struct {
	secretID  string
	secretKey string
}

func NewSMS(secretID string, secretKey string) *SMS {
	return &SMS{
		secretID:  secretID,
		secretKey: secretKey,
	}
}

func (s *SMS) SendReminder(ctx context.Context, phone string, orderID string, amount int, level int) {
	if s.secretID == "" || s.secretKey == "" {
		zap.L().Info("sms credentials not configured, skipping reminder")
		return
	}

	zap.L().Info(
		"sms payment reminder",
		zap.String("phone", phone),
		zap.String("orderID", orderID),
		zap.Int("amount", amount),
		zap.Int("level", level),
	)
}

func initClient() *resty.Client {
	client := resty.New()

	client.
		SetTimeout(5 * time.Second).
		SetRetryCount(1).
		SetRetryWaitTime(2 * time.Second)

	return client
}
