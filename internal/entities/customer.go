package entities

import (
	"time"
)

const (
	CreditLevelNovice  = "Novice"
	CreditLevelBronze  = "Bronze"
	CreditLevelSilver  = "Silver"
	CreditLevelGold    = "Gold"
	CreditLevelDiamond = "Diamond"
)

// Customer holds the account fields plus the cumulative credit state
// maintained by the credit engine. CreditLimit and TotalSpent are in
// euro cents.
type Customer struct {
	ID                 string    `db:"id"`
	Email              string    `db:"email"`
	Phone              string    `db:"phone"`
	CreditScore        int       `db:"credit_score"`
	CreditLevel        string    `db:"credit_level"`
	CreditLimit        int       `db:"credit_limit"`
	TotalSpent         int       `db:"total_spent"`
	ConsecutiveSuccess int       `db:"consecutive_success"`
	Milestone100       bool      `db:"milestone_100"`
	Milestone300       bool      `db:"milestone_300"`
	IsBlocked          bool      `db:"is_blocked"`
	CreatedAt          time.Time `db:"created_at"`
}
