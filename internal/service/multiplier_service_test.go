package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gameshop-hub/internal/model"
)

func activeEvent(name string, multiplier int64, categories ...model.RewardCategory) *model.MultiplierEvent {
	now := time.Now().UTC()
	return &model.MultiplierEvent{
		ID:         uuid.New(),
		Name:       name,
		Multiplier: decimal.NewFromInt(multiplier),
		StartTime:  now.Add(-time.Hour),
		EndTime:    now.Add(time.Hour),
		AppliesTo:  categories,
		IsActive:   true,
	}
}

func TestEffectiveMultiplier_PicksHighestWithoutStacking(t *testing.T) {
	t.Parallel()

	repo := &fakeMultiplierEventRepo{events: []*model.MultiplierEvent{
		activeEvent("weekend double", 2),
		activeEvent("festival triple", 3),
	}}
	svc := NewMultiplierService(repo, nil, nil)

	multiplier, event, err := svc.EffectiveMultiplier(context.Background(), model.RewardCategoryDailyReward, time.Now().UTC())
	if err != nil {
		t.Fatalf("EffectiveMultiplier returned error: %v", err)
	}
	if !multiplier.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected multiplier 3, got %s", multiplier)
	}
	if event == nil || event.Name != "festival triple" {
		t.Fatalf("expected the festival event to win, got %+v", event)
	}
}

func TestEffectiveMultiplier_FiltersByCategory(t *testing.T) {
	t.Parallel()

	repo := &fakeMultiplierEventRepo{events: []*model.MultiplierEvent{
		activeEvent("cashback only", 5, model.RewardCategoryCashback),
		activeEvent("everything", 2),
	}}
	svc := NewMultiplierService(repo, nil, nil)

	multiplier, _, err := svc.EffectiveMultiplier(context.Background(), model.RewardCategoryReferral, time.Now().UTC())
	if err != nil {
		t.Fatalf("EffectiveMultiplier returned error: %v", err)
	}
	if !multiplier.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected the category-agnostic event to apply, got %s", multiplier)
	}

	multiplier, _, err = svc.EffectiveMultiplier(context.Background(), model.RewardCategoryCashback, time.Now().UTC())
	if err != nil {
		t.Fatalf("EffectiveMultiplier returned error: %v", err)
	}
	if !multiplier.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected the cashback event to apply, got %s", multiplier)
	}
}

func TestEffectiveMultiplier_NoEventsReturnsOne(t *testing.T) {
	t.Parallel()

	svc := NewMultiplierService(&fakeMultiplierEventRepo{}, nil, nil)

	multiplier, event, err := svc.EffectiveMultiplier(context.Background(), model.RewardCategoryDailyReward, time.Now().UTC())
	if err != nil {
		t.Fatalf("EffectiveMultiplier returned error: %v", err)
	}
	if !multiplier.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected multiplier 1, got %s", multiplier)
	}
	if event != nil {
		t.Fatalf("expected no winning event, got %+v", event)
	}
}

func TestMultiplierCreate_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	svc := NewMultiplierService(&fakeMultiplierEventRepo{}, nil, nil)
	now := time.Now().UTC()

	cases := []MultiplierEventInput{
		{Name: "", Multiplier: decimal.NewFromInt(2), StartTime: now, EndTime: now.Add(time.Hour)},
		{Name: "bad factor", Multiplier: decimal.NewFromInt(0), StartTime: now, EndTime: now.Add(time.Hour)},
		{Name: "bad window", Multiplier: decimal.NewFromInt(2), StartTime: now.Add(time.Hour), EndTime: now},
		{Name: "bad category", Multiplier: decimal.NewFromInt(2), StartTime: now, EndTime: now.Add(time.Hour), AppliesTo: []model.RewardCategory{"jackpot"}},
	}
	for _, input := range cases {
		if _, err := svc.Create(context.Background(), nil, input); !errors.Is(err, ErrInvalidMultiplierInput) {
			t.Fatalf("expected ErrInvalidMultiplierInput for %q, got %v", input.Name, err)
		}
	}
}

func TestMultiplierDeactivateEnded(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	ended := activeEvent("over", 2)
	ended.StartTime = now.Add(-3 * time.Hour)
	ended.EndTime = now.Add(-time.Hour)
	running := activeEvent("still on", 2)

	repo := &fakeMultiplierEventRepo{events: []*model.MultiplierEvent{ended, running}}
	svc := NewMultiplierService(repo, nil, nil)

	n, err := svc.DeactivateEnded(context.Background(), now)
	if err != nil {
		t.Fatalf("DeactivateEnded returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deactivated event, got %d", n)
	}
	if ended.IsActive {
		t.Fatal("expected the ended event to be deactivated")
	}
	if !running.IsActive {
		t.Fatal("expected the running event to stay active")
	}
}
