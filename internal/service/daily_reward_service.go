package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gameshop-hub/internal/event"
	"gameshop-hub/internal/metrics"
	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

var (
	ErrDailyRewardDisabled = errors.New("daily rewards are disabled")
	ErrAlreadyClaimedToday = errors.New("daily reward already claimed today")
)

// rewardZone is UTC+5:45. Claim days roll over at local midnight, not
// UTC midnight.
var rewardZone = time.FixedZone("NPT", 5*3600+45*60)

const rewardDateLayout = "2006-01-02"

type DailyRewardStatus struct {
	CanClaim         bool                       `json:"can_claim"`
	Reason           string                     `json:"reason,omitempty"`
	Streak           int                        `json:"streak"`
	NextStreak       int                        `json:"next_streak,omitempty"`
	LastClaim        *string                    `json:"last_claim,omitempty"`
	RewardAmount     decimal.Decimal            `json:"reward_amount"`
	StreakMilestones map[string]decimal.Decimal `json:"streak_milestones,omitempty"`
}

type DailyRewardClaim struct {
	BaseReward       decimal.Decimal `json:"base_reward"`
	StreakBonus      decimal.Decimal `json:"streak_bonus"`
	TotalReward      decimal.Decimal `json:"total_reward"`
	NewBalance       decimal.Decimal `json:"new_balance"`
	Streak           int             `json:"streak"`
	MilestoneReached *int            `json:"streak_milestone_reached,omitempty"`
	Multiplier       decimal.Decimal `json:"multiplier"`
}

type DailyRewardService struct {
	customerRepo  repository.CustomerRepository
	pool          *pgxpool.Pool
	settingsSvc   *SettingsService
	multiplierSvc *MultiplierService
	bus           *event.Bus
	logger        *zap.Logger

	// test seams
	now func() time.Time
}

func NewDailyRewardService(
	customerRepo repository.CustomerRepository,
	pool *pgxpool.Pool,
	settingsSvc *SettingsService,
	multiplierSvc *MultiplierService,
	bus *event.Bus,
	logger *zap.Logger,
) *DailyRewardService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DailyRewardService{
		customerRepo:  customerRepo,
		pool:          pool,
		settingsSvc:   settingsSvc,
		multiplierSvc: multiplierSvc,
		bus:           bus,
		logger:        logger,
		now:           time.Now,
	}
}

// Status reports whether the customer can claim today and what the
// streak would become. It never mutates state.
func (s *DailyRewardService) Status(ctx context.Context, email string) (*DailyRewardStatus, error) {
	settings, err := s.settingsSvc.DailyRewardSettings(ctx)
	if err != nil {
		return nil, err
	}

	if !settings.IsEnabled {
		return &DailyRewardStatus{CanClaim: false, Reason: "Daily rewards are disabled"}, nil
	}

	customer, err := s.customerRepo.FindByEmail(ctx, model.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return &DailyRewardStatus{CanClaim: false, Reason: "Customer not found"}, nil
	}
	if err != nil {
		return nil, err
	}

	localNow := s.now().In(rewardZone)
	today := localNow.Format(rewardDateLayout)

	if customer.LastDailyRewardDate != nil && *customer.LastDailyRewardDate == today {
		return &DailyRewardStatus{
			CanClaim:     false,
			Reason:       "Already claimed today",
			Streak:       customer.DailyRewardStreak,
			LastClaim:    customer.LastDailyRewardDate,
			RewardAmount: settings.RewardAmount,
		}, nil
	}

	streak := customer.DailyRewardStreak
	if customer.LastDailyRewardDate != nil {
		yesterday := localNow.AddDate(0, 0, -1).Format(rewardDateLayout)
		if *customer.LastDailyRewardDate != yesterday {
			streak = 0
		}
	}

	status := &DailyRewardStatus{
		CanClaim:     true,
		Streak:       streak,
		NextStreak:   streak + 1,
		LastClaim:    customer.LastDailyRewardDate,
		RewardAmount: settings.RewardAmount,
	}
	if settings.StreakBonusEnabled {
		status.StreakMilestones = settings.StreakMilestones
	}
	return status, nil
}

// Claim awards the daily reward. One claim per local day; a claim on
// the day after the previous one extends the streak, any later day
// restarts it at 1.
func (s *DailyRewardService) Claim(ctx context.Context, email string) (*DailyRewardClaim, error) {
	if s.pool == nil {
		return nil, errors.New("database pool is nil")
	}

	settings, err := s.settingsSvc.DailyRewardSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.IsEnabled {
		return nil, ErrDailyRewardDisabled
	}

	now := s.now()
	multiplier, _, err := s.multiplierSvc.EffectiveMultiplier(ctx, model.RewardCategoryDailyReward, now.UTC())
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	normalized := model.NormalizeEmail(email)
	customer, err := lockCustomerTx(ctx, tx, normalized)
	if err != nil {
		return nil, err
	}

	localNow := now.In(rewardZone)
	today := localNow.Format(rewardDateLayout)

	if customer.LastDailyRewardDate != nil && *customer.LastDailyRewardDate == today {
		return nil, ErrAlreadyClaimedToday
	}

	streak := 1
	if customer.LastDailyRewardDate != nil {
		yesterday := localNow.AddDate(0, 0, -1).Format(rewardDateLayout)
		if *customer.LastDailyRewardDate == yesterday {
			streak = customer.DailyRewardStreak + 1
		}
	}

	baseReward := settings.RewardAmount
	streakBonus := decimal.Zero
	var milestoneReached *int
	if settings.StreakBonusEnabled {
		if bonus, ok := settings.StreakMilestones[strconv.Itoa(streak)]; ok {
			streakBonus = bonus
			milestone := streak
			milestoneReached = &milestone
		}
	}

	baseMultiplied := money(baseReward.Mul(multiplier))
	bonusMultiplied := money(streakBonus.Mul(multiplier))
	total := baseMultiplied.Add(bonusMultiplied)

	reason := fmt.Sprintf("Daily login reward (Day %d)", streak)
	if milestoneReached != nil {
		reason += fmt.Sprintf(" + %d-day streak bonus!", *milestoneReached)
	}
	if multiplier.GreaterThan(decimal.NewFromInt(1)) {
		reason += fmt.Sprintf(" (%sx multiplier!)", multiplier.String())
	}

	entry, err := applyCreditMutationTx(ctx, tx, customer, CreditMutation{
		Amount:     total,
		Reason:     reason,
		Kind:       model.CreditLogKindDailyReward,
		Multiplier: multiplier,
	})
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(
		ctx,
		`UPDATE customers
		    SET daily_reward_streak = $2,
		        last_daily_reward_date = $3
		  WHERE email = $1`,
		normalized,
		streak,
		today,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(event.EventCreditAwarded, event.CreditAwardedPayload{
			CustomerEmail: normalized,
			Amount:        entry.Amount,
			Kind:          string(entry.Kind),
			BalanceAfter:  entry.BalanceAfter,
			Timestamp:     entry.CreatedAt,
		})
	}

	metrics.IncDailyRewardClaim()
	metrics.AddCreditsMoved(string(entry.Kind), entry.Amount.InexactFloat64())
	s.logger.Info("daily reward claimed",
		zap.String("email", normalized),
		zap.Int("streak", streak),
		zap.String("total", total.String()),
	)

	return &DailyRewardClaim{
		BaseReward:       baseMultiplied,
		StreakBonus:      bonusMultiplied,
		TotalReward:      total,
		NewBalance:       entry.BalanceAfter,
		Streak:           streak,
		MilestoneReached: milestoneReached,
		Multiplier:       multiplier,
	}, nil
}
