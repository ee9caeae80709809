package config

import (
	"flag"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v8"
)

// Account is one fulfillment account in the recharge app.
type Account struct {
	Username string
	Password string
}

type Config struct {
	Address      string `env:"RUN_ADDRESS" envDefault:":8080"`
	DatabaseURI  string `env:"DATABASE_URI"`
	AgentAddress string `env:"RECHARGE_AGENT_ADDRESS"`
	AdminToken   string `env:"ADMIN_TOKEN"`

	DispatchInterval int `env:"DISPATCH_POLL_INTERVAL" envDefault:"10"`
	FulfillInterval  int `env:"FULFILL_POLL_INTERVAL" envDefault:"10"`
	ReminderInterval int `env:"REMINDER_POLL_INTERVAL" envDefault:"60"`

	ProcessingTimeoutMinutes int `env:"PROCESSING_TIMEOUT_MINUTES" envDefault:"30"`
	PayingTimeoutMinutes     int `env:"PAYING_TIMEOUT_MINUTES" envDefault:"60"`

	ReminderLadderHours []int `env:"REMINDER_LADDER_HOURS" envSeparator:"," envDefault:"1,6,24,72"`
	ReportHour          int   `env:"REPORT_HOUR" envDefault:"9"`

	ManualOperators []string `env:"MANUAL_OPERATORS" envSeparator:","`

	// Comma-separated username:password pairs.
	FulfillmentAccounts string `env:"FULFILLMENT_ACCOUNTS"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`
	PushPlusToken    string `env:"PUSHPLUS_TOKEN"`
	SMSSecretID      string `env:"SMS_SECRET_ID"`
	SMSSecretKey     string `env:"SMS_SECRET_KEY"`

	PromoActive bool `env:"PROMO_ACTIVE" envDefault:"true"`
}

func NewConfig() (Config, error) {
	config := Config{}

	config.parseFlags()

	if err := env.Parse(&config); err != nil {
		return Config{}, err
	}

	if err := config.validateConfig(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c *Config) parseFlags() {
	flag.StringVar(&c.Address, "a", c.Address, "Service address")
	flag.StringVar(&c.DatabaseURI, "d", c.DatabaseURI, "Database URI")
	flag.StringVar(&c.AgentAddress, "r", c.AgentAddress, "Recharge agent address")

	flag.Parse()
}

func (c *Config) validateConfig() error {
	if c.DatabaseURI == "" {
		return fmt.Errorf("database URI is required")
	}

	if c.ReportHour < 0 || c.ReportHour > 23 {
		return fmt.Errorf("report hour must be within 0..23, got %d", c.ReportHour)
	}

	if len(c.ReminderLadderHours) == 0 {
		return fmt.Errorf("reminder ladder must not be empty")
	}

	for _, hours := range c.ReminderLadderHours {
		if hours <= 0 {
			return fmt.Errorf("reminder ladder steps must be positive, got %d", hours)
		}
	}

	if _, err := c.AccountPool(); err != nil {
		return err
	}

	return nil
}

// AccountPool parses FULFILLMENT_ACCOUNTS into the account list used by
// the fulfillment worker.
func (c *Config) AccountPool() ([]Account, error) {
	if c.FulfillmentAccounts == "" {
		return nil, nil
	}

	pairs := strings.Split(c.FulfillmentAccounts, ",")
	accounts := make([]Account, 0, len(pairs))

	for _, pair := range pairs {
		username, password, found := strings.Cut(strings.TrimSpace(pair), ":")
		if !found || username == "" {
			return nil, fmt.Errorf("invalid fulfillment account entry: %q", pair)
		}

		accounts = append(accounts, Account{Username: username, Password: password})
	}

	return accounts, nil
}
