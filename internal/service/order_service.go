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
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidOrderInput = errors.New("invalid order input")
)

type CreateOrderRequest struct {
	CustomerName   string            `json:"customer_name"`
	CustomerPhone  string            `json:"customer_phone"`
	CustomerEmail  *string           `json:"customer_email"`
	Items          []model.OrderItem `json:"items"`
	TotalAmount    decimal.Decimal   `json:"total_amount"`
	Remark         *string           `json:"remark"`
	PromoCode      *string           `json:"promo_code"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	CreditsUsed    decimal.Decimal   `json:"credits_used"`
}

type OrderStatusResult struct {
	Order           *model.Order    `json:"order"`
	CreditsDeducted decimal.Decimal `json:"credits_deducted"`
	CreditsAwarded  decimal.Decimal `json:"credits_awarded"`
}

type OrderService struct {
	orderRepo     repository.OrderRepository
	customerRepo  repository.CustomerRepository
	promoRepo     repository.PromoRepository
	pool          *pgxpool.Pool
	settingsSvc   *SettingsService
	multiplierSvc *MultiplierService
	bus           *event.Bus
	logger        *zap.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	promoRepo repository.PromoRepository,
	pool *pgxpool.Pool,
	settingsSvc *SettingsService,
	multiplierSvc *MultiplierService,
	bus *event.Bus,
	logger *zap.Logger,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OrderService{
		orderRepo:     orderRepo,
		customerRepo:  customerRepo,
		promoRepo:     promoRepo,
		pool:          pool,
		settingsSvc:   settingsSvc,
		multiplierSvc: multiplierSvc,
		bus:           bus,
		logger:        logger,
	}
}

// Create records a pending order. Credits named in the request are
// reserved, not deducted; the deduction happens on the transition to
// confirmed.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*model.Order, error) {
	if s.orderRepo == nil {
		return nil, errors.New("order repository is nil")
	}

	if strings.TrimSpace(req.CustomerName) == "" || strings.TrimSpace(req.CustomerPhone) == "" {
		return nil, ErrInvalidOrderInput
	}
	if len(req.Items) == 0 || req.TotalAmount.Sign() <= 0 {
		return nil, ErrInvalidOrderInput
	}
	if req.CreditsUsed.Sign() < 0 || req.DiscountAmount.Sign() < 0 {
		return nil, ErrInvalidOrderInput
	}

	var email *string
	if req.CustomerEmail != nil {
		normalized := model.NormalizeEmail(*req.CustomerEmail)
		if normalized != "" {
			email = &normalized
		}
	}

	// A credit reservation needs an account to deduct from later.
	if req.CreditsUsed.Sign() > 0 {
		if email == nil {
			return nil, ErrInvalidOrderInput
		}
		customer, err := s.customerRepo.FindByEmail(ctx, *email)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		if err != nil {
			return nil, err
		}
		if customer.CreditBalance.LessThan(req.CreditsUsed) {
			return nil, ErrInsufficientBalance
		}
	}

	now := time.Now().UTC()
	order := &model.Order{
		ID:             uuid.New(),
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerPhone:  formatPhone(req.CustomerPhone),
		CustomerEmail:  email,
		Items:          req.Items,
		ItemsText:      buildItemsText(req.Items),
		TotalAmount:    money(req.TotalAmount),
		Remark:         req.Remark,
		Status:         model.OrderStatusPending,
		PromoCode:      normalizePromoCodePtr(req.PromoCode),
		DiscountAmount: money(req.DiscountAmount),
		CreditsUsed:    money(req.CreditsUsed),
		CreditsPending: req.CreditsUsed.Sign() > 0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	if order.PromoCode != nil && s.promoRepo != nil {
		if promo, err := s.promoRepo.FindByCode(ctx, *order.PromoCode); err == nil {
			if err := s.promoRepo.IncrementUsage(ctx, promo.ID); err != nil {
				s.logger.Warn("promo usage increment failed",
					zap.String("code", *order.PromoCode), zap.Error(err))
			}
		}
	}

	s.publishOrderEvent(event.EventOrderCreated, order)
	metrics.IncOrder("created")
	metrics.ObserveOrderAmount(order.TotalAmount.InexactFloat64())
	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("total", order.TotalAmount.String()),
		zap.String("credits_used", order.CreditsUsed.String()),
	)

	return order, nil
}

// UpdateStatus moves an order through its lifecycle. Credit effects
// fire only on the edge into a status: reserved credits are deducted
// on the first transition to confirmed, cashback is granted on the
// first transition to completed. Repeating a status is a no-op for
// credits.
func (s *OrderService) UpdateStatus(
	ctx context.Context,
	orderID uuid.UUID,
	newStatus model.OrderStatus,
	note *string,
	updatedBy *string,
) (*OrderStatusResult, error) {
	if s.pool == nil {
		return nil, errors.New("database pool is nil")
	}
	if !newStatus.Valid() {
		return nil, ErrInvalidOrderInput
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	order, err := lockOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	now := time.Now().UTC()

	result := &OrderStatusResult{
		CreditsDeducted: decimal.Zero,
		CreditsAwarded:  decimal.Zero,
	}

	if newStatus == model.OrderStatusConfirmed && oldStatus != model.OrderStatusConfirmed {
		deducted, err := s.deductReservedCreditsTx(ctx, tx, order)
		if err != nil {
			return nil, err
		}
		result.CreditsDeducted = deducted
	}

	if newStatus == model.OrderStatusCompleted && oldStatus != model.OrderStatusCompleted {
		awarded, err := s.awardCashbackTx(ctx, tx, order, now)
		if err != nil {
			return nil, err
		}
		result.CreditsAwarded = awarded
	}

	order.Status = newStatus
	order.UpdatedAt = now
	if _, err := tx.Exec(
		ctx,
		`UPDATE orders
		    SET status = $2,
		        credits_pending = $3,
		        credits_deducted = $4,
		        credits_awarded = $5,
		        updated_at = $6
		  WHERE id = $1`,
		order.ID,
		order.Status,
		order.CreditsPending,
		order.CreditsDeducted,
		order.CreditsAwarded,
		now,
	); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO order_status_history (id, order_id, old_status, new_status, note, updated_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New(),
		order.ID,
		oldStatus,
		newStatus,
		note,
		updatedBy,
		now,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	result.Order = order
	metrics.IncOrder(string(newStatus))
	switch newStatus {
	case model.OrderStatusConfirmed:
		s.publishOrderEvent(event.EventOrderConfirmed, order)
	case model.OrderStatusCompleted:
		s.publishOrderEvent(event.EventOrderCompleted, order)
	}

	s.logger.Info("order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("old_status", string(oldStatus)),
		zap.String("new_status", string(newStatus)),
	)

	return result, nil
}

// AttachPaymentScreenshot stores the proof of payment and confirms the
// order, which runs the same reserved-credit deduction as an explicit
// confirm.
func (s *OrderService) AttachPaymentScreenshot(
	ctx context.Context,
	orderID uuid.UUID,
	screenshotURL string,
	paymentMethod *string,
) (*OrderStatusResult, error) {
	if strings.TrimSpace(screenshotURL) == "" {
		return nil, ErrInvalidOrderInput
	}

	if s.pool == nil {
		return nil, errors.New("database pool is nil")
	}

	if _, err := s.pool.Exec(
		ctx,
		`UPDATE orders
		    SET payment_screenshot = $2,
		        payment_method = COALESCE($3, payment_method)
		  WHERE id = $1`,
		orderID,
		screenshotURL,
		paymentMethod,
	); err != nil {
		return nil, err
	}

	note := "payment screenshot uploaded"
	return s.UpdateStatus(ctx, orderID, model.OrderStatusConfirmed, &note, nil)
}

func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID) (*model.Order, []*model.OrderStatusHistory, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	history, err := s.orderRepo.History(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, history, nil
}

func (s *OrderService) List(
	ctx context.Context,
	filter repository.OrderListFilter,
) ([]*model.Order, int64, error) {
	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.orderRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// deductReservedCreditsTx spends the credits reserved at create time.
// Any failure fails the confirm and rolls the transaction back; an
// order never reaches confirmed with the reserved credits unspent.
func (s *OrderService) deductReservedCreditsTx(
	ctx context.Context,
	tx pgx.Tx,
	order *model.Order,
) (decimal.Decimal, error) {
	if !order.CreditsPending || order.CreditsUsed.Sign() <= 0 || order.CustomerEmail == nil {
		return decimal.Zero, nil
	}

	customer, err := lockCustomerTx(ctx, tx, *order.CustomerEmail)
	if err != nil {
		return decimal.Zero, fmt.Errorf("deduct reserved credits for order %s: %w", order.ID, err)
	}

	_, err = applyCreditMutationTx(ctx, tx, customer, CreditMutation{
		Amount:  order.CreditsUsed.Neg(),
		Reason:  fmt.Sprintf("Used for order %s", order.ID),
		Kind:    model.CreditLogKindOrderSpend,
		OrderID: uuidPtr(order.ID),
	})
	if errors.Is(err, ErrInsufficientBalance) {
		s.logger.Warn("order confirmation rejected, reserved credits not covered",
			zap.String("order_id", order.ID.String()),
			zap.String("email", *order.CustomerEmail),
			zap.String("credits_used", order.CreditsUsed.String()),
		)
		return decimal.Zero, err
	}
	if err != nil {
		return decimal.Zero, err
	}

	order.CreditsPending = false
	order.CreditsDeducted = true
	return order.CreditsUsed, nil
}

// awardCashbackTx grants the completion cashback, creating the
// customer account first when the order email has none yet.
func (s *OrderService) awardCashbackTx(
	ctx context.Context,
	tx pgx.Tx,
	order *model.Order,
	now time.Time,
) (decimal.Decimal, error) {
	if order.CustomerEmail == nil {
		return decimal.Zero, nil
	}

	settings, err := s.settingsSvc.CreditSettings(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if !settings.IsEnabled {
		return decimal.Zero, nil
	}
	if order.TotalAmount.LessThan(settings.MinOrderAmount) {
		return decimal.Zero, nil
	}

	multiplier, _, err := s.multiplierSvc.EffectiveMultiplier(ctx, model.RewardCategoryCashback, now)
	if err != nil {
		return decimal.Zero, err
	}

	hundred := decimal.NewFromInt(100)
	amount := money(order.TotalAmount.Mul(settings.CashbackPercentage).Div(hundred).Mul(multiplier))
	if amount.Sign() <= 0 {
		return decimal.Zero, nil
	}

	customer, err := lockCustomerTx(ctx, tx, *order.CustomerEmail)
	if errors.Is(err, ErrCustomerNotFound) {
		customer, err = insertCustomerTx(ctx, tx, *order.CustomerEmail, order.CustomerName)
	}
	if err != nil {
		return decimal.Zero, err
	}

	entry, err := applyCreditMutationTx(ctx, tx, customer, CreditMutation{
		Amount:     amount,
		Reason:     fmt.Sprintf("Cashback for order %s", order.ID),
		Kind:       model.CreditLogKindCashback,
		OrderID:    uuidPtr(order.ID),
		Multiplier: multiplier,
	})
	if err != nil {
		return decimal.Zero, err
	}

	order.CreditsAwarded = entry.Amount
	return entry.Amount, nil
}

func (s *OrderService) publishOrderEvent(name string, order *model.Order) {
	if s.bus == nil || order == nil {
		return
	}

	email := ""
	if order.CustomerEmail != nil {
		email = *order.CustomerEmail
	}

	s.bus.Publish(name, event.OrderPayload{
		OrderID:       order.ID.String(),
		CustomerEmail: email,
		TotalAmount:   order.TotalAmount,
		Status:        string(order.Status),
		Timestamp:     time.Now().UTC(),
	})
}

func lockOrderTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Order, error) {
	row := tx.QueryRow(
		ctx,
		`SELECT id, customer_name, customer_phone, customer_email, total_amount, status,
		        credits_used, credits_pending, credits_deducted, credits_awarded, created_at, updated_at
		   FROM orders
		  WHERE id = $1
		    FOR UPDATE`,
		orderID,
	)

	order := &model.Order{}
	err := row.Scan(
		&order.ID,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.CustomerEmail,
		&order.TotalAmount,
		&order.Status,
		&order.CreditsUsed,
		&order.CreditsPending,
		&order.CreditsDeducted,
		&order.CreditsAwarded,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// formatPhone normalizes local numbers to the 977 country prefix.
func formatPhone(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}

	out := string(digits)
	out = strings.TrimPrefix(out, "0")
	if !strings.HasPrefix(out, "977") && len(out) == 10 {
		out = "977" + out
	}
	return out
}

func buildItemsText(items []model.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		part := fmt.Sprintf("%dx %s", item.Quantity, item.Name)
		if item.Variation != nil && *item.Variation != "" {
			part += fmt.Sprintf(" (%s)", *item.Variation)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func normalizePromoCodePtr(code *string) *string {
	if code == nil {
		return nil
	}
	normalized := strings.ToUpper(strings.TrimSpace(*code))
	if normalized == "" {
		return nil
	}
	return &normalized
}
