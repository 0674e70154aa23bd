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

func newUnitPromoService(promos *fakePromoRepo, orders *fakeOrderRepo) *PromoService {
	if orders == nil {
		orders = &fakeOrderRepo{}
	}
	return &PromoService{
		promoRepo: promos,
		orderRepo: orders,
	}
}

func percentPromo(code string, percent int64) *model.PromoCode {
	return &model.PromoCode{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  model.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(percent),
		IsActive:      true,
	}
}

func TestPromoValidate_PercentageDiscount(t *testing.T) {
	t.Parallel()

	svc := newUnitPromoService(newFakePromoRepo(percentPromo("SAVE20", 20)), nil)

	result, err := svc.Validate(context.Background(), "save20", decimal.NewFromInt(250), nil)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !result.DiscountAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected discount 50, got %s", result.DiscountAmount)
	}
	if !result.FinalAmount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected final amount 200, got %s", result.FinalAmount)
	}
}

func TestPromoValidate_FixedDiscountCappedAtSubtotal(t *testing.T) {
	t.Parallel()

	promo := &model.PromoCode{
		ID:            uuid.New(),
		Code:          "BIGCUT",
		DiscountType:  model.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(500),
		IsActive:      true,
	}
	svc := newUnitPromoService(newFakePromoRepo(promo), nil)

	result, err := svc.Validate(context.Background(), "BIGCUT", decimal.NewFromInt(120), nil)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if !result.DiscountAmount.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected discount capped at 120, got %s", result.DiscountAmount)
	}
	if !result.FinalAmount.IsZero() {
		t.Fatalf("expected final amount 0, got %s", result.FinalAmount)
	}
}

func TestPromoValidate_UnknownOrInactiveCode(t *testing.T) {
	t.Parallel()

	inactive := percentPromo("PAUSED", 10)
	inactive.IsActive = false
	svc := newUnitPromoService(newFakePromoRepo(inactive), nil)

	if _, err := svc.Validate(context.Background(), "MISSING", decimal.NewFromInt(100), nil); !errors.Is(err, ErrPromoNotFound) {
		t.Fatalf("expected ErrPromoNotFound for unknown code, got %v", err)
	}
	if _, err := svc.Validate(context.Background(), "PAUSED", decimal.NewFromInt(100), nil); !errors.Is(err, ErrPromoNotFound) {
		t.Fatalf("expected ErrPromoNotFound for inactive code, got %v", err)
	}
}

func TestPromoValidate_Expired(t *testing.T) {
	t.Parallel()

	past := time.Now().UTC().Add(-time.Hour)
	promo := percentPromo("GONE", 10)
	promo.ExpiryDate = &past
	svc := newUnitPromoService(newFakePromoRepo(promo), nil)

	if _, err := svc.Validate(context.Background(), "GONE", decimal.NewFromInt(100), nil); !errors.Is(err, ErrPromoExpired) {
		t.Fatalf("expected ErrPromoExpired, got %v", err)
	}
}

func TestPromoValidate_BelowMinimum(t *testing.T) {
	t.Parallel()

	promo := percentPromo("MIN100", 10)
	promo.MinOrderAmount = decimal.NewFromInt(100)
	svc := newUnitPromoService(newFakePromoRepo(promo), nil)

	if _, err := svc.Validate(context.Background(), "MIN100", decimal.NewFromInt(99), nil); !errors.Is(err, ErrPromoBelowMinimum) {
		t.Fatalf("expected ErrPromoBelowMinimum, got %v", err)
	}
}

func TestPromoValidate_UsageLimitExhausted(t *testing.T) {
	t.Parallel()

	limit := 3
	promo := percentPromo("LIMITED", 10)
	promo.MaxUses = &limit
	promo.UsedCount = 3
	svc := newUnitPromoService(newFakePromoRepo(promo), nil)

	if _, err := svc.Validate(context.Background(), "LIMITED", decimal.NewFromInt(100), nil); !errors.Is(err, ErrPromoUsageExceeded) {
		t.Fatalf("expected ErrPromoUsageExceeded, got %v", err)
	}
}

func TestPromoValidate_FirstTimeOnly(t *testing.T) {
	t.Parallel()

	promo := percentPromo("WELCOME", 15)
	promo.FirstTimeOnly = true
	orders := &fakeOrderRepo{ordersByCustomer: map[string]int64{
		"returning@example.com": 2,
	}}
	svc := newUnitPromoService(newFakePromoRepo(promo), orders)

	returning := "Returning@Example.com"
	if _, err := svc.Validate(context.Background(), "WELCOME", decimal.NewFromInt(100), &returning); !errors.Is(err, ErrPromoFirstTimeOnly) {
		t.Fatalf("expected ErrPromoFirstTimeOnly, got %v", err)
	}

	fresh := "first@example.com"
	if _, err := svc.Validate(context.Background(), "WELCOME", decimal.NewFromInt(100), &fresh); err != nil {
		t.Fatalf("expected first order to validate, got %v", err)
	}
}

func TestPromoValidate_RejectsEmptyInput(t *testing.T) {
	t.Parallel()

	svc := newUnitPromoService(newFakePromoRepo(), nil)

	if _, err := svc.Validate(context.Background(), "  ", decimal.NewFromInt(100), nil); !errors.Is(err, ErrInvalidPromoInput) {
		t.Fatalf("expected ErrInvalidPromoInput for blank code, got %v", err)
	}
	if _, err := svc.Validate(context.Background(), "SAVE", decimal.Zero, nil); !errors.Is(err, ErrInvalidPromoInput) {
		t.Fatalf("expected ErrInvalidPromoInput for zero subtotal, got %v", err)
	}
}
