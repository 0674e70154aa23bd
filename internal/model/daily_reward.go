package model

import "github.com/shopspring/decimal"

// DailyRewardSettings milestone keys are streak lengths in days, kept as
// strings to round-trip cleanly through the settings JSON document.
type DailyRewardSettings struct {
	IsEnabled          bool                       `json:"is_enabled"`
	RewardAmount       decimal.Decimal            `json:"reward_amount"`
	StreakBonusEnabled bool                       `json:"streak_bonus_enabled"`
	StreakMilestones   map[string]decimal.Decimal `json:"streak_milestones"`
}

func DefaultDailyRewardSettings() DailyRewardSettings {
	return DailyRewardSettings{
		IsEnabled:          true,
		RewardAmount:       decimal.NewFromInt(10),
		StreakBonusEnabled: true,
		StreakMilestones: map[string]decimal.Decimal{
			"7":  decimal.NewFromInt(50),
			"30": decimal.NewFromInt(200),
		},
	}
}
