package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Referral records one successful code redemption. At most one exists per
// referee, enforced by the unique index on referee_email.
type Referral struct {
	ID                    uuid.UUID       `db:"id" json:"id"`
	ReferrerEmail         string          `db:"referrer_email" json:"referrer_email"`
	RefereeEmail          string          `db:"referee_email" json:"referee_email"`
	ReferralCode          string          `db:"referral_code" json:"referral_code"`
	RefereeReward         decimal.Decimal `db:"referee_reward" json:"referee_reward"`
	ReferrerReward        decimal.Decimal `db:"referrer_reward" json:"referrer_reward"`
	ReferrerPendingReward decimal.Decimal `db:"referrer_pending_reward" json:"referrer_pending_reward"`
	ReferrerCredited      bool            `db:"referrer_credited" json:"referrer_credited"`
	MultiplierApplied     decimal.Decimal `db:"multiplier_applied" json:"multiplier_applied"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
}

type ReferralSettings struct {
	IsEnabled           bool            `json:"is_enabled"`
	ReferrerReward      decimal.Decimal `json:"referrer_reward"`
	RefereeReward       decimal.Decimal `json:"referee_reward"`
	MinPurchaseRequired bool            `json:"min_purchase_required"`
	MinPurchaseAmount   decimal.Decimal `json:"min_purchase_amount"`
}

func DefaultReferralSettings() ReferralSettings {
	return ReferralSettings{
		IsEnabled:      true,
		ReferrerReward: decimal.NewFromInt(50),
		RefereeReward:  decimal.NewFromInt(25),
	}
}
