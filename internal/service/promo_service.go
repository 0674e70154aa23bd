package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gameshop-hub/internal/metrics"
	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

var (
	ErrPromoNotFound      = errors.New("invalid or expired promo code")
	ErrPromoExpired       = errors.New("promo code has expired")
	ErrPromoBelowMinimum  = errors.New("order below promo minimum amount")
	ErrPromoUsageExceeded = errors.New("promo code usage limit reached")
	ErrPromoAlreadyUsed   = errors.New("promo code already used by customer")
	ErrPromoFirstTimeOnly = errors.New("promo code is for first-time buyers only")
	ErrInvalidPromoInput  = errors.New("invalid promo code input")
)

type PromoCodeInput struct {
	Code               string          `json:"code"`
	DiscountType       model.DiscountType `json:"discount_type"`
	DiscountValue      decimal.Decimal `json:"discount_value"`
	MinOrderAmount     decimal.Decimal `json:"min_order_amount"`
	MaxUses            *int            `json:"max_uses"`
	MaxUsesPerCustomer *int            `json:"max_uses_per_customer"`
	IsActive           *bool           `json:"is_active"`
	ExpiryDate         *time.Time      `json:"expiry_date"`
	FirstTimeOnly      bool            `json:"first_time_only"`
}

type PromoValidation struct {
	Code           string          `json:"code"`
	DiscountType   model.DiscountType `json:"discount_type"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
}

type PromoService struct {
	promoRepo repository.PromoRepository
	orderRepo repository.OrderRepository
	pool      *pgxpool.Pool
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

func NewPromoService(
	promoRepo repository.PromoRepository,
	orderRepo repository.OrderRepository,
	pool *pgxpool.Pool,
	auditRepo repository.AuditRepository,
	logger *zap.Logger,
) *PromoService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PromoService{
		promoRepo: promoRepo,
		orderRepo: orderRepo,
		pool:      pool,
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Validate checks every promo rule against the cart and returns the
// discount when the code applies.
func (s *PromoService) Validate(
	ctx context.Context,
	code string,
	subtotal decimal.Decimal,
	customerEmail *string,
) (*PromoValidation, error) {
	validation, err := s.validate(ctx, code, subtotal, customerEmail)
	if err != nil {
		metrics.IncPromoValidation("rejected")
		return nil, err
	}
	metrics.IncPromoValidation("accepted")
	return validation, nil
}

func (s *PromoService) validate(
	ctx context.Context,
	code string,
	subtotal decimal.Decimal,
	customerEmail *string,
) (*PromoValidation, error) {
	if s.promoRepo == nil {
		return nil, errors.New("promo repository is nil")
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" || subtotal.Sign() <= 0 {
		return nil, ErrInvalidPromoInput
	}

	promo, err := s.promoRepo.FindByCode(ctx, normalized)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPromoNotFound
	}
	if err != nil {
		return nil, err
	}
	if !promo.IsActive {
		return nil, ErrPromoNotFound
	}

	now := time.Now().UTC()
	if promo.ExpiryDate != nil && now.After(*promo.ExpiryDate) {
		return nil, ErrPromoExpired
	}
	if subtotal.LessThan(promo.MinOrderAmount) {
		return nil, ErrPromoBelowMinimum
	}
	if promo.MaxUses != nil && promo.UsedCount >= *promo.MaxUses {
		return nil, ErrPromoUsageExceeded
	}

	if customerEmail != nil {
		email := model.NormalizeEmail(*customerEmail)

		if promo.MaxUsesPerCustomer != nil {
			used, err := s.countCustomerUsage(ctx, normalized, email)
			if err != nil {
				return nil, err
			}
			if used >= int64(*promo.MaxUsesPerCustomer) {
				return nil, ErrPromoAlreadyUsed
			}
		}

		if promo.FirstTimeOnly {
			orderCount, err := s.orderRepo.CountByCustomer(ctx, email)
			if err != nil {
				return nil, err
			}
			if orderCount > 0 {
				return nil, ErrPromoFirstTimeOnly
			}
		}
	}

	discount := decimal.Zero
	if promo.DiscountType == model.DiscountTypePercentage {
		discount = subtotal.Mul(promo.DiscountValue).Div(decimal.NewFromInt(100))
	} else {
		discount = promo.DiscountValue
	}
	discount = money(discount)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	return &PromoValidation{
		Code:           promo.Code,
		DiscountType:   promo.DiscountType,
		DiscountAmount: discount,
		FinalAmount:    money(subtotal.Sub(discount)),
	}, nil
}

func (s *PromoService) Create(ctx context.Context, operatorID *uuid.UUID, input PromoCodeInput) (*model.PromoCode, error) {
	if err := validatePromoInput(input); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	promo := &model.PromoCode{
		ID:                 uuid.New(),
		Code:               strings.ToUpper(strings.TrimSpace(input.Code)),
		DiscountType:       input.DiscountType,
		DiscountValue:      input.DiscountValue,
		MinOrderAmount:     input.MinOrderAmount,
		MaxUses:            input.MaxUses,
		MaxUsesPerCustomer: input.MaxUsesPerCustomer,
		IsActive:           active,
		ExpiryDate:         input.ExpiryDate,
		FirstTimeOnly:      input.FirstTimeOnly,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.promoRepo.Create(ctx, promo); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, operatorID, "promo_code.create", promo)
	return promo, nil
}

func (s *PromoService) Update(
	ctx context.Context,
	operatorID *uuid.UUID,
	id uuid.UUID,
	input PromoCodeInput,
) (*model.PromoCode, error) {
	if err := validatePromoInput(input); err != nil {
		return nil, err
	}

	promo, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	promo.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	promo.DiscountType = input.DiscountType
	promo.DiscountValue = input.DiscountValue
	promo.MinOrderAmount = input.MinOrderAmount
	promo.MaxUses = input.MaxUses
	promo.MaxUsesPerCustomer = input.MaxUsesPerCustomer
	promo.ExpiryDate = input.ExpiryDate
	promo.FirstTimeOnly = input.FirstTimeOnly
	if input.IsActive != nil {
		promo.IsActive = *input.IsActive
	}

	if err := s.promoRepo.Update(ctx, promo); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPromoNotFound
		}
		return nil, err
	}

	s.writeAudit(ctx, operatorID, "promo_code.update", promo)
	return promo, nil
}

func (s *PromoService) Delete(ctx context.Context, operatorID *uuid.UUID, id uuid.UUID) error {
	err := s.promoRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPromoNotFound
	}
	if err != nil {
		return err
	}

	if s.auditRepo != nil {
		resourceID := id.String()
		_ = s.auditRepo.Create(ctx, &model.AuditLog{
			UserID:       operatorID,
			Action:       "promo_code.delete",
			ResourceType: stringPtr("promo_code"),
			ResourceID:   &resourceID,
			CreatedAt:    time.Now().UTC(),
		})
	}
	return nil
}

func (s *PromoService) List(ctx context.Context, page repository.Pagination) ([]*model.PromoCode, error) {
	return s.promoRepo.List(ctx, page)
}

func (s *PromoService) findByID(ctx context.Context, id uuid.UUID) (*model.PromoCode, error) {
	promo, err := s.promoRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPromoNotFound
	}
	if err != nil {
		return nil, err
	}
	return promo, nil
}

func (s *PromoService) countCustomerUsage(ctx context.Context, code, email string) (int64, error) {
	if s.pool == nil {
		return 0, errors.New("database pool is nil")
	}

	var count int64
	err := s.pool.QueryRow(
		ctx,
		`SELECT COUNT(*)
		   FROM orders
		  WHERE promo_code = $1
		    AND customer_email = $2
		    AND status <> 'cancelled'`,
		code,
		email,
	).Scan(&count)
	return count, err
}

func (s *PromoService) writeAudit(ctx context.Context, operatorID *uuid.UUID, action string, promo *model.PromoCode) {
	if s.auditRepo == nil || promo == nil {
		return
	}

	resourceID := promo.ID.String()
	_ = s.auditRepo.Create(ctx, &model.AuditLog{
		UserID:       operatorID,
		Action:       action,
		ResourceType: stringPtr("promo_code"),
		ResourceID:   &resourceID,
		NewValue: map[string]interface{}{
			"code":           promo.Code,
			"discount_type":  string(promo.DiscountType),
			"discount_value": promo.DiscountValue.String(),
			"is_active":      promo.IsActive,
		},
		CreatedAt: time.Now().UTC(),
	})
}

func validatePromoInput(input PromoCodeInput) error {
	if strings.TrimSpace(input.Code) == "" {
		return ErrInvalidPromoInput
	}
	if input.DiscountType != model.DiscountTypePercentage && input.DiscountType != model.DiscountTypeFixed {
		return ErrInvalidPromoInput
	}
	if input.DiscountValue.Sign() <= 0 || input.MinOrderAmount.Sign() < 0 {
		return ErrInvalidPromoInput
	}
	if input.DiscountType == model.DiscountTypePercentage && input.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidPromoInput
	}
	if input.MaxUses != nil && *input.MaxUses <= 0 {
		return ErrInvalidPromoInput
	}
	if input.MaxUsesPerCustomer != nil && *input.MaxUsesPerCustomer <= 0 {
		return ErrInvalidPromoInput
	}
	return nil
}
