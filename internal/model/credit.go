package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreditLogKind string

const (
	CreditLogKindAdjustment  CreditLogKind = "adjustment"
	CreditLogKindOrderSpend  CreditLogKind = "order_spend"
	CreditLogKindCashback    CreditLogKind = "cashback"
	CreditLogKindDailyReward CreditLogKind = "daily_reward"
	CreditLogKindReferral    CreditLogKind = "referral"
)

// CreditLogEntry is one append-only ledger record. Rows are never updated
// or deleted; replaying amounts in created_at order reproduces the
// customer's credit_balance exactly.
type CreditLogEntry struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	CustomerEmail string          `db:"customer_email" json:"customer_email"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Reason        string          `db:"reason" json:"reason"`
	Kind          CreditLogKind   `db:"kind" json:"kind"`
	BalanceBefore decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	OrderID       *uuid.UUID      `db:"order_id" json:"order_id,omitempty"`
	Multiplier    decimal.Decimal `db:"multiplier" json:"multiplier"`
	CreatedBy     *uuid.UUID      `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// CreditSettings is the cashback configuration singleton.
type CreditSettings struct {
	IsEnabled          bool            `json:"is_enabled"`
	CashbackPercentage decimal.Decimal `json:"cashback_percentage"`
	MinOrderAmount     decimal.Decimal `json:"min_order_amount"`
	EligibleCategories []string        `json:"eligible_categories"`
	UsableCategories   []string        `json:"usable_categories"`
}

func DefaultCreditSettings() CreditSettings {
	return CreditSettings{
		IsEnabled:          true,
		CashbackPercentage: decimal.NewFromInt(5),
		MinOrderAmount:     decimal.Zero,
	}
}
