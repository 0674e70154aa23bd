package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"gameshop-hub/internal/model"
)

func newUnitDailyRewardService(customers *fakeCustomerRepo, settings *fakeSettingsRepo) *DailyRewardService {
	return &DailyRewardService{
		customerRepo: customers,
		settingsSvc:  NewSettingsService(settings, nil, nil),
		now:          time.Now,
	}
}

func TestDailyRewardStatus_NewCustomer_CanClaim(t *testing.T) {
	t.Parallel()

	customers := newFakeCustomerRepo(testCustomer("fresh@example.com"))
	svc := newUnitDailyRewardService(customers, &fakeSettingsRepo{})

	status, err := svc.Status(context.Background(), "fresh@example.com")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if !status.CanClaim {
		t.Fatalf("expected fresh customer to be claimable, got %+v", status)
	}
	if status.NextStreak != 1 {
		t.Fatalf("expected next streak 1, got %d", status.NextStreak)
	}
}

func TestDailyRewardStatus_AlreadyClaimedToday(t *testing.T) {
	t.Parallel()

	fixedNow := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	today := fixedNow.In(rewardZone).Format(rewardDateLayout)

	customer := testCustomer("repeat@example.com")
	customer.DailyRewardStreak = 4
	customer.LastDailyRewardDate = &today

	svc := newUnitDailyRewardService(newFakeCustomerRepo(customer), &fakeSettingsRepo{})
	svc.now = func() time.Time { return fixedNow }

	status, err := svc.Status(context.Background(), "repeat@example.com")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CanClaim {
		t.Fatal("expected claim to be blocked for the same local day")
	}
	if status.Streak != 4 {
		t.Fatalf("expected streak 4, got %d", status.Streak)
	}
}

func TestDailyRewardStatus_StreakContinuesAfterYesterday(t *testing.T) {
	t.Parallel()

	fixedNow := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	yesterday := fixedNow.In(rewardZone).AddDate(0, 0, -1).Format(rewardDateLayout)

	customer := testCustomer("steady@example.com")
	customer.DailyRewardStreak = 6
	customer.LastDailyRewardDate = &yesterday

	svc := newUnitDailyRewardService(newFakeCustomerRepo(customer), &fakeSettingsRepo{})
	svc.now = func() time.Time { return fixedNow }

	status, err := svc.Status(context.Background(), "steady@example.com")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if !status.CanClaim {
		t.Fatal("expected claim to be available")
	}
	if status.NextStreak != 7 {
		t.Fatalf("expected next streak 7, got %d", status.NextStreak)
	}
}

func TestDailyRewardStatus_StreakResetsAfterGap(t *testing.T) {
	t.Parallel()

	fixedNow := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	threeDaysAgo := fixedNow.In(rewardZone).AddDate(0, 0, -3).Format(rewardDateLayout)

	customer := testCustomer("lapsed@example.com")
	customer.DailyRewardStreak = 12
	customer.LastDailyRewardDate = &threeDaysAgo

	svc := newUnitDailyRewardService(newFakeCustomerRepo(customer), &fakeSettingsRepo{})
	svc.now = func() time.Time { return fixedNow }

	status, err := svc.Status(context.Background(), "lapsed@example.com")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if !status.CanClaim {
		t.Fatal("expected claim to be available after a gap")
	}
	if status.NextStreak != 1 {
		t.Fatalf("expected streak to restart at 1, got next streak %d", status.NextStreak)
	}
}

// Claim days roll over at UTC+5:45 midnight. 18:20 UTC is already the
// next local day, so a claim made earlier the same UTC day does not
// block it.
func TestDailyRewardStatus_LocalDayRollover(t *testing.T) {
	t.Parallel()

	fixedNow := time.Date(2026, 3, 10, 18, 20, 0, 0, time.UTC)
	localToday := fixedNow.In(rewardZone).Format(rewardDateLayout)
	if localToday != "2026-03-11" {
		t.Fatalf("expected local date 2026-03-11, got %s", localToday)
	}

	lastClaim := "2026-03-10"
	customer := testCustomer("nightowl@example.com")
	customer.DailyRewardStreak = 2
	customer.LastDailyRewardDate = &lastClaim

	svc := newUnitDailyRewardService(newFakeCustomerRepo(customer), &fakeSettingsRepo{})
	svc.now = func() time.Time { return fixedNow }

	status, err := svc.Status(context.Background(), "nightowl@example.com")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if !status.CanClaim {
		t.Fatal("expected claim to be available after local midnight")
	}
	if status.NextStreak != 3 {
		t.Fatalf("expected streak to continue to 3, got %d", status.NextStreak)
	}
}

func TestDailyRewardStatus_Disabled(t *testing.T) {
	t.Parallel()

	settings := &fakeSettingsRepo{docs: map[string][]byte{
		settingsKindDailyReward: []byte(`{"is_enabled": false}`),
	}}
	svc := newUnitDailyRewardService(newFakeCustomerRepo(), settings)

	status, err := svc.Status(context.Background(), "anyone@example.com")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CanClaim {
		t.Fatal("expected claims to be blocked while disabled")
	}
}

func TestDailyRewardStatus_UnknownCustomer(t *testing.T) {
	t.Parallel()

	svc := newUnitDailyRewardService(newFakeCustomerRepo(), &fakeSettingsRepo{})

	status, err := svc.Status(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.CanClaim {
		t.Fatal("expected unknown customer to be unclaimable")
	}
}

func testCustomer(email string) *model.Customer {
	return &model.Customer{
		ID:    uuid.New(),
		Email: email,
		Name:  "Test Customer",
	}
}
