package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
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
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrInsufficientBalance = errors.New("insufficient credit balance")
	ErrInvalidCreditInput  = errors.New("invalid credit input")
)

const ledgerCustomerColumns = `
	id,
	email,
	name,
	phone,
	credit_balance,
	daily_reward_streak,
	last_daily_reward_date,
	referral_code,
	referred_by,
	referred_by_code,
	created_at,
	updated_at
`

// CreditMutation describes one signed change to a customer's balance.
// Every mutation path in the system funds through applyCreditMutationTx,
// which writes the customers row and the ledger row in the same
// transaction.
type CreditMutation struct {
	Amount     decimal.Decimal
	Reason     string
	Kind       model.CreditLogKind
	OrderID    *uuid.UUID
	Multiplier decimal.Decimal
	CreatedBy  *uuid.UUID

	// ClampToZero turns an overdraw into a drain to zero instead of an
	// ErrInsufficientBalance. Admin adjustments use it; order spends
	// never do.
	ClampToZero bool
}

type CreditSummary struct {
	Email    string          `json:"email"`
	Balance  decimal.Decimal `json:"balance"`
	NetTotal decimal.Decimal `json:"net_total"`
	LogCount int64           `json:"log_count"`
}

type CreditService struct {
	customerRepo  repository.CustomerRepository
	creditLogRepo repository.CreditLogRepository
	pool          *pgxpool.Pool
	bus           *event.Bus
	logger        *zap.Logger
}

func NewCreditService(
	customerRepo repository.CustomerRepository,
	creditLogRepo repository.CreditLogRepository,
	pool *pgxpool.Pool,
	bus *event.Bus,
	logger *zap.Logger,
) *CreditService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CreditService{
		customerRepo:  customerRepo,
		creditLogRepo: creditLogRepo,
		pool:          pool,
		bus:           bus,
		logger:        logger,
	}
}

// AdminAdjust applies a signed manual correction. A deduction larger
// than the balance drains it to zero rather than failing.
func (s *CreditService) AdminAdjust(
	ctx context.Context,
	email string,
	amount decimal.Decimal,
	reason string,
	adjustedBy *uuid.UUID,
) (*model.CreditLogEntry, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "Manual adjustment"
	}

	return s.Apply(ctx, email, CreditMutation{
		Amount:      amount,
		Reason:      reason,
		Kind:        model.CreditLogKindAdjustment,
		CreatedBy:   adjustedBy,
		ClampToZero: true,
	})
}

// Spend deducts credits for an order and fails with
// ErrInsufficientBalance when the balance cannot cover the amount.
func (s *CreditService) Spend(
	ctx context.Context,
	email string,
	amount decimal.Decimal,
	orderID uuid.UUID,
) (*model.CreditLogEntry, error) {
	if amount.Sign() <= 0 {
		return nil, ErrInvalidCreditInput
	}

	return s.Apply(ctx, email, CreditMutation{
		Amount:  amount.Neg(),
		Reason:  fmt.Sprintf("Used for order %s", orderID),
		Kind:    model.CreditLogKindOrderSpend,
		OrderID: uuidPtr(orderID),
	})
}

// Apply runs one mutation in its own transaction: lock the customer
// row, move the balance, append the ledger entry.
func (s *CreditService) Apply(ctx context.Context, email string, mut CreditMutation) (*model.CreditLogEntry, error) {
	if s.pool == nil {
		return nil, errors.New("database pool is nil")
	}

	normalized := model.NormalizeEmail(email)
	if normalized == "" {
		return nil, ErrInvalidCreditInput
	}
	if mut.Amount.IsZero() {
		return nil, ErrInvalidCreditInput
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	customer, err := lockCustomerTx(ctx, tx, normalized)
	if err != nil {
		return nil, err
	}

	entry, err := applyCreditMutationTx(ctx, tx, customer, mut)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publishAward(entry)
	metrics.AddCreditsMoved(string(entry.Kind), entry.Amount.InexactFloat64())
	s.logger.Debug("credit mutation applied",
		zap.String("email", normalized),
		zap.String("kind", string(entry.Kind)),
		zap.String("amount", entry.Amount.String()),
		zap.String("balance_after", entry.BalanceAfter.String()),
	)

	return entry, nil
}

// ApplyOrCreate behaves like Apply but creates the customer row first
// when no account exists yet. Cashback for guest-checkout emails lands
// here.
func (s *CreditService) ApplyOrCreate(
	ctx context.Context,
	email, name string,
	mut CreditMutation,
) (*model.CreditLogEntry, error) {
	if s.pool == nil {
		return nil, errors.New("database pool is nil")
	}

	normalized := model.NormalizeEmail(email)
	if normalized == "" {
		return nil, ErrInvalidCreditInput
	}
	if mut.Amount.IsZero() {
		return nil, ErrInvalidCreditInput
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	customer, err := lockCustomerTx(ctx, tx, normalized)
	if errors.Is(err, ErrCustomerNotFound) {
		customer, err = insertCustomerTx(ctx, tx, normalized, name)
	}
	if err != nil {
		return nil, err
	}

	entry, err := applyCreditMutationTx(ctx, tx, customer, mut)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publishAward(entry)
	metrics.AddCreditsMoved(string(entry.Kind), entry.Amount.InexactFloat64())
	return entry, nil
}

func (s *CreditService) Balance(ctx context.Context, email string) (decimal.Decimal, error) {
	if s.customerRepo == nil {
		return decimal.Zero, errors.New("customer repository is nil")
	}

	customer, err := s.customerRepo.FindByEmail(ctx, model.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		// An account that has never transacted holds zero, absence
		// is not an error for a balance read.
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	return customer.CreditBalance, nil
}

func (s *CreditService) Summary(ctx context.Context, email string) (*CreditSummary, error) {
	if s.customerRepo == nil || s.creditLogRepo == nil {
		return nil, errors.New("credit repositories are nil")
	}

	normalized := model.NormalizeEmail(email)
	customer, err := s.customerRepo.FindByEmail(ctx, normalized)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}

	netTotal, err := s.creditLogRepo.SumByCustomer(ctx, normalized)
	if err != nil {
		return nil, err
	}
	logCount, err := s.creditLogRepo.CountByCustomer(ctx, normalized)
	if err != nil {
		return nil, err
	}

	return &CreditSummary{
		Email:    customer.Email,
		Balance:  customer.CreditBalance,
		NetTotal: netTotal,
		LogCount: logCount,
	}, nil
}

func (s *CreditService) Logs(
	ctx context.Context,
	email string,
	page repository.Pagination,
) ([]*model.CreditLogEntry, int64, error) {
	if s.creditLogRepo == nil {
		return nil, 0, errors.New("credit log repository is nil")
	}

	normalized := model.NormalizeEmail(email)
	entries, err := s.creditLogRepo.ListByCustomer(ctx, normalized, page)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.creditLogRepo.CountByCustomer(ctx, normalized)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (s *CreditService) publishAward(entry *model.CreditLogEntry) {
	if s.bus == nil || entry == nil || entry.Amount.Sign() <= 0 {
		return
	}

	s.bus.Publish(event.EventCreditAwarded, event.CreditAwardedPayload{
		CustomerEmail: entry.CustomerEmail,
		Amount:        entry.Amount,
		Kind:          string(entry.Kind),
		BalanceAfter:  entry.BalanceAfter,
		Timestamp:     entry.CreatedAt,
	})
}

// lockCustomerTx loads the customer row FOR UPDATE. All balance paths
// go through this lock, which serializes concurrent mutations per
// customer.
func lockCustomerTx(ctx context.Context, tx pgx.Tx, email string) (*model.Customer, error) {
	customer, err := scanLedgerCustomer(tx.QueryRow(
		ctx,
		`SELECT `+ledgerCustomerColumns+` FROM customers WHERE email = $1 FOR UPDATE`,
		email,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func insertCustomerTx(ctx context.Context, tx pgx.Tx, email, name string) (*model.Customer, error) {
	now := time.Now().UTC()
	customer := &model.Customer{
		ID:            uuid.New(),
		Email:         email,
		Name:          name,
		CreditBalance: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := tx.Exec(
		ctx,
		`INSERT INTO customers (id, email, name, credit_balance, daily_reward_streak, created_at, updated_at)
		 VALUES ($1, $2, $3, 0, 0, $4, $5)`,
		customer.ID,
		customer.Email,
		customer.Name,
		customer.CreatedAt,
		customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return customer, nil
}

func applyCreditMutationTx(
	ctx context.Context,
	tx pgx.Tx,
	customer *model.Customer,
	mut CreditMutation,
) (*model.CreditLogEntry, error) {
	amount := money(mut.Amount)
	before := customer.CreditBalance
	after := money(before.Add(amount))

	if after.Sign() < 0 {
		if !mut.ClampToZero {
			return nil, ErrInsufficientBalance
		}
		after = decimal.Zero
		amount = before.Neg()
	}

	multiplier := mut.Multiplier
	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(1)
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(
		ctx,
		`UPDATE customers
		    SET credit_balance = $2,
		        updated_at = $3
		  WHERE email = $1`,
		customer.Email,
		after,
		now,
	); err != nil {
		return nil, err
	}

	entry := &model.CreditLogEntry{
		ID:            uuid.New(),
		CustomerEmail: customer.Email,
		Amount:        amount,
		Reason:        mut.Reason,
		Kind:          mut.Kind,
		BalanceBefore: before,
		BalanceAfter:  after,
		OrderID:       mut.OrderID,
		Multiplier:    multiplier,
		CreatedBy:     mut.CreatedBy,
		CreatedAt:     now,
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO credit_logs (id, customer_email, amount, reason, kind, balance_before, balance_after, order_id, multiplier, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID,
		entry.CustomerEmail,
		entry.Amount,
		entry.Reason,
		entry.Kind,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.OrderID,
		entry.Multiplier,
		entry.CreatedBy,
		entry.CreatedAt,
	); err != nil {
		return nil, err
	}

	customer.CreditBalance = after
	customer.UpdatedAt = now

	return entry, nil
}

func scanLedgerCustomer(src scanSource) (*model.Customer, error) {
	customer := &model.Customer{}
	if err := src.Scan(
		&customer.ID,
		&customer.Email,
		&customer.Name,
		&customer.Phone,
		&customer.CreditBalance,
		&customer.DailyRewardStreak,
		&customer.LastDailyRewardDate,
		&customer.ReferralCode,
		&customer.ReferredBy,
		&customer.ReferredByCode,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return customer, nil
}
