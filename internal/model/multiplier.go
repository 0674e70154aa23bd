package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RewardCategory string

const (
	RewardCategoryDailyReward RewardCategory = "daily_reward"
	RewardCategoryCashback    RewardCategory = "cashback"
	RewardCategoryReferral    RewardCategory = "referral"
)

func (c RewardCategory) Valid() bool {
	switch c {
	case RewardCategoryDailyReward, RewardCategoryCashback, RewardCategoryReferral:
		return true
	}
	return false
}

// MultiplierEvent is a time-boxed promotion that scales reward amounts.
// An empty AppliesTo means the event covers every category.
type MultiplierEvent struct {
	ID         uuid.UUID        `db:"id" json:"id"`
	Name       string           `db:"name" json:"name"`
	Multiplier decimal.Decimal  `db:"multiplier" json:"multiplier"`
	StartTime  time.Time        `db:"start_time" json:"start_time"`
	EndTime    time.Time        `db:"end_time" json:"end_time"`
	AppliesTo  []RewardCategory `db:"applies_to" json:"applies_to"`
	IsActive   bool             `db:"is_active" json:"is_active"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

func (e *MultiplierEvent) Covers(category RewardCategory) bool {
	if len(e.AppliesTo) == 0 {
		return true
	}
	for _, c := range e.AppliesTo {
		if c == category {
			return true
		}
	}
	return false
}
