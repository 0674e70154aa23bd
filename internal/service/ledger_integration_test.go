package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
	"gameshop-hub/internal/repository/postgres"
)

// ledgerTestEnv wires the credit, reward, referral and order services
// against a real postgres so the transactional paths run end to end.
type ledgerTestEnv struct {
	pool       *pgxpool.Pool
	customers  repository.CustomerRepository
	creditLogs repository.CreditLogRepository
	orders     repository.OrderRepository
	referrals  repository.ReferralRepository

	credits  *CreditService
	daily    *DailyRewardService
	referral *ReferralService
	orderSvc *OrderService
}

func newLedgerTestEnv(t *testing.T) *ledgerTestEnv {
	t.Helper()

	pool := startPostgresForLedgerTest(t)

	customers := postgres.NewCustomerRepository(pool)
	creditLogs := postgres.NewCreditLogRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	referrals := postgres.NewReferralRepository(pool)
	promos := postgres.NewPromoRepository(pool)
	events := postgres.NewMultiplierEventRepository(pool)
	settingsRepo := postgres.NewSettingsRepository(pool)

	settingsSvc := NewSettingsService(settingsRepo, nil, nil)
	multiplierSvc := NewMultiplierService(events, nil, nil)

	return &ledgerTestEnv{
		pool:       pool,
		customers:  customers,
		creditLogs: creditLogs,
		orders:     orders,
		referrals:  referrals,
		credits:    NewCreditService(customers, creditLogs, pool, nil, nil),
		daily:      NewDailyRewardService(customers, pool, settingsSvc, multiplierSvc, nil, nil),
		referral:   NewReferralService(customers, referrals, orders, pool, settingsSvc, multiplierSvc, nil, nil),
		orderSvc:   NewOrderService(orders, customers, promos, pool, settingsSvc, multiplierSvc, nil, nil),
	}
}

func (env *ledgerTestEnv) seedCustomer(t *testing.T, email string, balance int64) *model.Customer {
	t.Helper()

	customer := &model.Customer{
		ID:            uuid.New(),
		Email:         email,
		Name:          "Ledger Customer",
		CreditBalance: decimal.NewFromInt(balance),
	}
	if err := env.customers.Create(context.Background(), customer); err != nil {
		t.Fatalf("seed customer %s: %v", email, err)
	}
	return customer
}

func (env *ledgerTestEnv) balance(t *testing.T, email string) decimal.Decimal {
	t.Helper()

	customer, err := env.customers.FindByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("FindByEmail %s: %v", email, err)
	}
	return customer.CreditBalance
}

func TestCreditApply_MovesBalanceAndAppendsLedger(t *testing.T) {
	env := newLedgerTestEnv(t)
	ctx := context.Background()
	env.seedCustomer(t, "ledger@example.com", 100)

	entry, err := env.credits.Apply(ctx, "ledger@example.com", CreditMutation{
		Amount: decimal.NewFromInt(40),
		Reason: "Promo credit",
		Kind:   model.CreditLogKindAdjustment,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !entry.BalanceBefore.Equal(decimal.NewFromInt(100)) || !entry.BalanceAfter.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("ledger row before/after = %s/%s, want 100/140", entry.BalanceBefore, entry.BalanceAfter)
	}

	if _, err := env.credits.Spend(ctx, "ledger@example.com", decimal.NewFromInt(90), uuid.New()); err != nil {
		t.Fatalf("Spend: %v", err)
	}

	balance := env.balance(t, "ledger@example.com")
	if !balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("balance = %s, want 50", balance)
	}

	// The ledger sums to the net movement applied on top of the seed.
	sum, err := env.creditLogs.SumByCustomer(ctx, "ledger@example.com")
	if err != nil {
		t.Fatalf("SumByCustomer: %v", err)
	}
	if !sum.Equal(decimal.NewFromInt(-50)) {
		t.Fatalf("ledger sum = %s, want -50", sum)
	}
}

func TestCreditSpend_InsufficientBalanceWritesNothing(t *testing.T) {
	env := newLedgerTestEnv(t)
	ctx := context.Background()
	env.seedCustomer(t, "broke@example.com", 30)

	_, err := env.credits.Spend(ctx, "broke@example.com", decimal.NewFromInt(50), uuid.New())
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	balance := env.balance(t, "broke@example.com")
	if !balance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("balance = %s, want untouched 30", balance)
	}

	count, err := env.creditLogs.CountByCustomer(ctx, "broke@example.com")
	if err != nil {
		t.Fatalf("CountByCustomer: %v", err)
	}
	if count != 0 {
		t.Fatalf("ledger rows = %d, want none after a failed spend", count)
	}
}

func TestCreditAdminAdjust_DrainsToZeroOnOverdraw(t *testing.T) {
	env := newLedgerTestEnv(t)
	ctx := context.Background()
	env.seedCustomer(t, "drain@example.com", 35)

	entry, err := env.credits.AdminAdjust(ctx, "drain@example.com", decimal.NewFromInt(-100), "Chargeback", nil)
	if err != nil {
		t.Fatalf("AdminAdjust: %v", err)
	}
	if !entry.BalanceAfter.IsZero() {
		t.Fatalf("balance after = %s, want 0", entry.BalanceAfter)
	}
	if !entry.Amount.Equal(decimal.NewFromInt(-35)) {
		t.Fatalf("ledger amount = %s, want clamped -35", entry.Amount)
	}
}

func TestDailyRewardClaim_StreaksAndIdempotence(t *testing.T) {
	env := newLedgerTestEnv(t)
	ctx := context.Background()
	env.seedCustomer(t, "daily@example.com", 0)

	current := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env.daily.now = func() time.Time { return current }

	claim, err := env.daily.Claim(ctx, "daily@example.com")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if claim.Streak != 1 || !claim.TotalReward.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("first claim streak/total = %d/%s, want 1/10", claim.Streak, claim.TotalReward)
	}

	// Same local day is rejected and moves nothing.
	if _, err := env.daily.Claim(ctx, "daily@example.com"); !errors.Is(err, ErrAlreadyClaimedToday) {
		t.Fatalf("expected ErrAlreadyClaimedToday, got %v", err)
	}
	if balance := env.balance(t, "daily@example.com"); !balance.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("balance = %s, want 10 after rejected repeat", balance)
	}

	current = current.AddDate(0, 0, 1)
	claim, err = env.daily.Claim(ctx, "daily@example.com")
	if err != nil {
		t.Fatalf("next-day claim: %v", err)
	}
	if claim.Streak != 2 {
		t.Fatalf("streak = %d, want 2 on consecutive day", claim.Streak)
	}

	current = current.AddDate(0, 0, 3)
	claim, err = env.daily.Claim(ctx, "daily@example.com")
	if err != nil {
		t.Fatalf("post-gap claim: %v", err)
	}
	if claim.Streak != 1 {
		t.Fatalf("streak = %d, want reset to 1 after gap", claim.Streak)
	}

	if balance := env.balance(t, "daily@example.com"); !balance.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("balance = %s, want 30 after three claims", balance)
	}
}

func TestReferralApply_CreditsBothSidesOnce(t *testing.T) {
	env := newLedgerTestEnv(t)
	ctx := context.Background()
	env.seedCustomer(t, "referrer@example.com", 0)
	env.seedCustomer(t, "referee@example.com", 0)

	if err := env.customers.SetReferralCode(ctx, "referrer@example.com", "FRIEND01"); err != nil {
		t.Fatalf("SetReferralCode: %v", err)
	}

	result, err := env.referral.Apply(ctx, "referee@example.com", "friend01")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !result.CreditsReceived.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("referee reward = %s, want 25", result.CreditsReceived)
	}
	if result.ReferrerPending {
		t.Fatal("referrer reward should credit immediately without a purchase gate")
	}

	if balance := env.balance(t, "referee@example.com"); !balance.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("referee balance = %s, want 25", balance)
	}
	if balance := env.balance(t, "referrer@example.com"); !balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("referrer balance = %s, want 50", balance)
	}

	count, err := env.referrals.CountByReferrer(ctx, "referrer@example.com")
	if err != nil {
		t.Fatalf("CountByReferrer: %v", err)
	}
	if count != 1 {
		t.Fatalf("referral rows = %d, want exactly 1", count)
	}

	// A second apply by the same referee changes nothing.
	if _, err := env.referral.Apply(ctx, "referee@example.com", "FRIEND01"); !errors.Is(err, ErrAlreadyReferred) {
		t.Fatalf("expected ErrAlreadyReferred, got %v", err)
	}
	if balance := env.balance(t, "referrer@example.com"); !balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("referrer balance = %s, want still 50", balance)
	}
}

func TestReferralApply_Rejections(t *testing.T) {
	env := newLedgerTestEnv(t)
	ctx := context.Background()
	env.seedCustomer(t, "owner@example.com", 0)
	env.seedCustomer(t, "buyer@example.com", 0)

	if err := env.customers.SetReferralCode(ctx, "owner@example.com", "OWNER001"); err != nil {
		t.Fatalf("SetReferralCode: %v", err)
	}

	if _, err := env.referral.Apply(ctx, "owner@example.com", "OWNER001"); !errors.Is(err, ErrSelfReferral) {
		t.Fatalf("expected ErrSelfReferral, got %v", err)
	}

	// A customer who already ordered is not new.
	order := &model.Order{
		ID:            uuid.New(),
		CustomerName:  "Buyer",
		CustomerPhone: "9779841234567",
		CustomerEmail: stringPtr("buyer@example.com"),
		Items:         []model.OrderItem{{Name: "Steam Wallet", Price: decimal.NewFromInt(100), Quantity: 1}},
		ItemsText:     "1x Steam Wallet",
		TotalAmount:   decimal.NewFromInt(100),
		Status:        model.OrderStatusPending,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := env.orders.Create(ctx, order); err != nil {
		t.Fatalf("seed order: %v", err)
	}
	if _, err := env.referral.Apply(ctx, "buyer@example.com", "OWNER001"); !errors.Is(err, ErrNotNewCustomer) {
		t.Fatalf("expected ErrNotNewCustomer, got %v", err)
	}

	if _, err := env.referral.Apply(ctx, "buyer@example.com", "NOSUCH99"); !errors.Is(err, ErrInvalidReferralCode) {
		t.Fatalf("expected ErrInvalidReferralCode, got %v", err)
	}
}

func TestOrderLifecycle_ReserveConfirmComplete(t *testing.T) {
	env := newLedgerTestEnv(t)
	ctx := context.Background()
	env.seedCustomer(t, "shopper@example.com", 100)

	order, err := env.orderSvc.Create(ctx, CreateOrderRequest{
		CustomerName:  "Shopper",
		CustomerPhone: "9841234567",
		CustomerEmail: stringPtr("shopper@example.com"),
		Items:         []model.OrderItem{{Name: "PUBG Mobile", Price: decimal.NewFromInt(200), Quantity: 1}},
		TotalAmount:   decimal.NewFromInt(200),
		CreditsUsed:   decimal.NewFromInt(40),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !order.CreditsPending {
		t.Fatal("credits should be reserved, not deducted, at create time")
	}
	if balance := env.balance(t, "shopper@example.com"); !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance = %s, want 100 while reservation pends", balance)
	}

	result, err := env.orderSvc.UpdateStatus(ctx, order.ID, model.OrderStatusConfirmed, nil, nil)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !result.CreditsDeducted.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("deducted = %s, want 40", result.CreditsDeducted)
	}
	if balance := env.balance(t, "shopper@example.com"); !balance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("balance = %s, want 60 after confirm", balance)
	}

	// Repeating the status is a no-op for credits.
	result, err = env.orderSvc.UpdateStatus(ctx, order.ID, model.OrderStatusConfirmed, nil, nil)
	if err != nil {
		t.Fatalf("repeat confirm: %v", err)
	}
	if !result.CreditsDeducted.IsZero() {
		t.Fatalf("repeat confirm deducted %s, want 0", result.CreditsDeducted)
	}

	// Completion grants the 5% cashback on the order total.
	result, err = env.orderSvc.UpdateStatus(ctx, order.ID, model.OrderStatusCompleted, nil, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !result.CreditsAwarded.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("cashback = %s, want 10", result.CreditsAwarded)
	}
	if balance := env.balance(t, "shopper@example.com"); !balance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("balance = %s, want 70 after cashback", balance)
	}
}

func TestOrderConfirm_FailsWhenReservationNotCovered(t *testing.T) {
	env := newLedgerTestEnv(t)
	ctx := context.Background()
	env.seedCustomer(t, "short@example.com", 50)

	order, err := env.orderSvc.Create(ctx, CreateOrderRequest{
		CustomerName:  "Short Payer",
		CustomerPhone: "9841234567",
		CustomerEmail: stringPtr("short@example.com"),
		Items:         []model.OrderItem{{Name: "Steam Wallet", Price: decimal.NewFromInt(100), Quantity: 1}},
		TotalAmount:   decimal.NewFromInt(100),
		CreditsUsed:   decimal.NewFromInt(40),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The balance drops below the reservation before the confirm.
	if _, err := env.credits.Apply(ctx, "short@example.com", CreditMutation{
		Amount: decimal.NewFromInt(-45),
		Reason: "Spent elsewhere",
		Kind:   model.CreditLogKindAdjustment,
	}); err != nil {
		t.Fatalf("drain balance: %v", err)
	}

	_, err = env.orderSvc.UpdateStatus(ctx, order.ID, model.OrderStatusConfirmed, nil, nil)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// The failed confirm rolls back completely.
	reloaded, err := env.orders.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if reloaded.Status != model.OrderStatusPending {
		t.Fatalf("status = %s, want still pending", reloaded.Status)
	}
	if !reloaded.CreditsPending || reloaded.CreditsDeducted {
		t.Fatalf("reservation flags = pending:%v deducted:%v, want pending:true deducted:false",
			reloaded.CreditsPending, reloaded.CreditsDeducted)
	}
	if balance := env.balance(t, "short@example.com"); !balance.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("balance = %s, want untouched 5", balance)
	}
}

func startPostgresForLedgerTest(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "gameshop_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping test because docker/testcontainers is unavailable: %v", err)
	}

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/gameshop_test?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	deadline := time.Now().Add(30 * time.Second)
	for {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("postgres did not become ready: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}

	applyMigrationsForLedgerTest(t, ctx, pool)
	return pool
}

func applyMigrationsForLedgerTest(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	migrationsDir := filepath.Join(findRepoRootForLedgerTest(t), "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		raw, err := os.ReadFile(filepath.Join(migrationsDir, file))
		if err != nil {
			t.Fatalf("read migration %s: %v", file, err)
		}
		if strings.TrimSpace(string(raw)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(raw)); err != nil {
			t.Fatalf("apply migration %s: %v", file, err)
		}
	}
}

func findRepoRootForLedgerTest(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("go.mod not found above working directory")
		}
		dir = parent
	}
}
