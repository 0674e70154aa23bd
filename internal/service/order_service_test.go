package service

import (
	"testing"

	"gameshop-hub/internal/model"
)

func TestFormatPhone(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"9841234567":      "9779841234567",
		"09841234567":     "9779841234567",
		"977-984-1234567": "9779841234567",
		"+977 9841234567": "9779841234567",
		"12345":           "12345",
	}
	for input, want := range cases {
		if got := formatPhone(input); got != want {
			t.Errorf("formatPhone(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestBuildItemsText(t *testing.T) {
	t.Parallel()

	variation := "60 UC"
	items := []model.OrderItem{
		{Name: "PUBG Mobile", Quantity: 2, Variation: &variation},
		{Name: "Steam Wallet", Quantity: 1},
	}

	got := buildItemsText(items)
	want := "2x PUBG Mobile (60 UC), 1x Steam Wallet"
	if got != want {
		t.Fatalf("buildItemsText = %q, want %q", got, want)
	}
}

func TestNormalizePromoCodePtr(t *testing.T) {
	t.Parallel()

	if normalizePromoCodePtr(nil) != nil {
		t.Fatal("expected nil passthrough")
	}

	blank := "   "
	if normalizePromoCodePtr(&blank) != nil {
		t.Fatal("expected blank code to normalize to nil")
	}

	messy := " save20 "
	got := normalizePromoCodePtr(&messy)
	if got == nil || *got != "SAVE20" {
		t.Fatalf("expected SAVE20, got %v", got)
	}
}
