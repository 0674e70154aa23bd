package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"gameshop-hub/internal/model"
)

func TestSettings_DefaultsWhenUnset(t *testing.T) {
	t.Parallel()

	svc := NewSettingsService(&fakeSettingsRepo{}, nil, nil)

	daily, err := svc.DailyRewardSettings(context.Background())
	if err != nil {
		t.Fatalf("DailyRewardSettings returned error: %v", err)
	}
	if !daily.IsEnabled {
		t.Fatal("expected daily rewards enabled by default")
	}
	if !daily.RewardAmount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected default reward 10, got %s", daily.RewardAmount)
	}

	referral, err := svc.ReferralSettings(context.Background())
	if err != nil {
		t.Fatalf("ReferralSettings returned error: %v", err)
	}
	if !referral.IsEnabled {
		t.Fatal("expected referrals enabled by default")
	}
}

func TestSettings_UpdateWritesThrough(t *testing.T) {
	t.Parallel()

	repo := &fakeSettingsRepo{}
	svc := NewSettingsService(repo, nil, nil)

	updated := model.DefaultDailyRewardSettings()
	updated.RewardAmount = decimal.NewFromInt(25)
	if err := svc.UpdateDailyRewardSettings(context.Background(), nil, updated); err != nil {
		t.Fatalf("UpdateDailyRewardSettings returned error: %v", err)
	}

	got, err := svc.DailyRewardSettings(context.Background())
	if err != nil {
		t.Fatalf("DailyRewardSettings returned error: %v", err)
	}
	if !got.RewardAmount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected updated reward 25, got %s", got.RewardAmount)
	}
}

func TestSettings_UpdateRejectsNegativeAmounts(t *testing.T) {
	t.Parallel()

	svc := NewSettingsService(&fakeSettingsRepo{}, nil, nil)

	daily := model.DefaultDailyRewardSettings()
	daily.RewardAmount = decimal.NewFromInt(-1)
	if err := svc.UpdateDailyRewardSettings(context.Background(), nil, daily); !errors.Is(err, ErrInvalidSettingsInput) {
		t.Fatalf("expected ErrInvalidSettingsInput for negative reward, got %v", err)
	}

	referral := model.DefaultReferralSettings()
	referral.ReferrerReward = decimal.NewFromInt(-5)
	if err := svc.UpdateReferralSettings(context.Background(), nil, referral); !errors.Is(err, ErrInvalidSettingsInput) {
		t.Fatalf("expected ErrInvalidSettingsInput for negative referrer reward, got %v", err)
	}

	credit := model.DefaultCreditSettings()
	credit.CashbackPercentage = decimal.NewFromInt(-3)
	if err := svc.UpdateCreditSettings(context.Background(), nil, credit); !errors.Is(err, ErrInvalidSettingsInput) {
		t.Fatalf("expected ErrInvalidSettingsInput for negative cashback, got %v", err)
	}
}
