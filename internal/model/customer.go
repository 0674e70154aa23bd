package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is keyed by email; emails are normalized to lowercase before
// any lookup or write.
type Customer struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	Email               string          `db:"email" json:"email"`
	Name                string          `db:"name" json:"name"`
	Phone               *string         `db:"phone" json:"phone,omitempty"`
	CreditBalance       decimal.Decimal `db:"credit_balance" json:"credit_balance"`
	DailyRewardStreak   int             `db:"daily_reward_streak" json:"daily_reward_streak"`
	LastDailyRewardDate *string         `db:"last_daily_reward_date" json:"last_daily_reward_date,omitempty"`
	ReferralCode        *string         `db:"referral_code" json:"referral_code,omitempty"`
	ReferredBy          *string         `db:"referred_by" json:"referred_by,omitempty"`
	ReferredByCode      *string         `db:"referred_by_code" json:"referred_by_code,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
