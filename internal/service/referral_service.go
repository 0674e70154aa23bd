package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gameshop-hub/internal/event"
	"gameshop-hub/internal/metrics"
	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
	"gameshop-hub/pkg/crypto"
)

var (
	ErrReferralDisabled    = errors.New("referral program is disabled")
	ErrInvalidReferralCode = errors.New("invalid referral code")
	ErrSelfReferral        = errors.New("cannot use own referral code")
	ErrAlreadyReferred     = errors.New("referral code already used")
	ErrNotNewCustomer      = errors.New("referral codes are only for new customers")
)

const (
	referralCodeLength      = 8
	referralCodeMaxAttempts = 10
)

type ReferralCodeInfo struct {
	ReferralCode  string          `json:"referral_code"`
	ReferralCount int64           `json:"referral_count"`
	TotalEarned   decimal.Decimal `json:"total_earned"`
}

type ReferralApplyResult struct {
	CreditsReceived decimal.Decimal `json:"credits_received"`
	Multiplier      decimal.Decimal `json:"multiplier"`
	ReferrerPending bool            `json:"referrer_pending"`
}

type ReferralService struct {
	customerRepo  repository.CustomerRepository
	referralRepo  repository.ReferralRepository
	orderRepo     repository.OrderRepository
	pool          *pgxpool.Pool
	settingsSvc   *SettingsService
	multiplierSvc *MultiplierService
	bus           *event.Bus
	logger        *zap.Logger

	// test seam
	generateCode func() string
}

func NewReferralService(
	customerRepo repository.CustomerRepository,
	referralRepo repository.ReferralRepository,
	orderRepo repository.OrderRepository,
	pool *pgxpool.Pool,
	settingsSvc *SettingsService,
	multiplierSvc *MultiplierService,
	bus *event.Bus,
	logger *zap.Logger,
) *ReferralService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReferralService{
		customerRepo:  customerRepo,
		referralRepo:  referralRepo,
		orderRepo:     orderRepo,
		pool:          pool,
		settingsSvc:   settingsSvc,
		multiplierSvc: multiplierSvc,
		bus:           bus,
		logger:        logger,
		generateCode:  func() string { return crypto.RandomCode(referralCodeLength) },
	}
}

// Code returns the customer's referral code, generating and persisting
// one on first call. Generation retries on code collision.
func (s *ReferralService) Code(ctx context.Context, email string) (*ReferralCodeInfo, error) {
	normalized := model.NormalizeEmail(email)
	customer, err := s.customerRepo.FindByEmail(ctx, normalized)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}

	code := ""
	if customer.ReferralCode != nil {
		code = *customer.ReferralCode
	} else {
		code, err = s.assignCode(ctx, normalized)
		if err != nil {
			return nil, err
		}
	}

	count, err := s.referralRepo.CountByReferrer(ctx, normalized)
	if err != nil {
		return nil, err
	}
	totalEarned, err := s.referralRepo.TotalEarnedByReferrer(ctx, normalized)
	if err != nil {
		return nil, err
	}

	return &ReferralCodeInfo{
		ReferralCode:  code,
		ReferralCount: count,
		TotalEarned:   totalEarned,
	}, nil
}

func (s *ReferralService) assignCode(ctx context.Context, email string) (string, error) {
	for attempt := 0; attempt < referralCodeMaxAttempts; attempt++ {
		code := s.generateCode()
		err := s.customerRepo.SetReferralCode(ctx, email, code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return "", err
		}

		// Conflict is either a code collision or a concurrent assign.
		// When the customer already holds a code, return it.
		customer, findErr := s.customerRepo.FindByEmail(ctx, email)
		if findErr != nil {
			return "", findErr
		}
		if customer.ReferralCode != nil {
			return *customer.ReferralCode, nil
		}
	}

	return "", errors.New("could not generate a unique referral code")
}

// Apply redeems a referral code for a new customer. The referee is
// credited immediately; the referrer is credited in the same
// transaction unless the program requires a first purchase, in which
// case the reward is recorded as pending on the referral row.
func (s *ReferralService) Apply(ctx context.Context, refereeEmail, code string) (*ReferralApplyResult, error) {
	if s.pool == nil {
		return nil, errors.New("database pool is nil")
	}

	settings, err := s.settingsSvc.ReferralSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.IsEnabled {
		return nil, ErrReferralDisabled
	}

	normalizedCode := strings.ToUpper(strings.TrimSpace(code))
	if normalizedCode == "" {
		return nil, ErrInvalidReferralCode
	}

	referrer, err := s.customerRepo.FindByReferralCode(ctx, normalizedCode)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidReferralCode
	}
	if err != nil {
		return nil, err
	}

	normalizedReferee := model.NormalizeEmail(refereeEmail)
	if referrer.Email == normalizedReferee {
		return nil, ErrSelfReferral
	}

	now := time.Now().UTC()
	multiplier, _, err := s.multiplierSvc.EffectiveMultiplier(ctx, model.RewardCategoryReferral, now)
	if err != nil {
		return nil, err
	}

	refereeReward := money(settings.RefereeReward.Mul(multiplier))
	referrerReward := money(settings.ReferrerReward.Mul(multiplier))

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Both customer rows are locked in email order so two concurrent
	// applies touching the same pair cannot deadlock.
	referee, lockedReferrer, err := s.lockPairTx(ctx, tx, normalizedReferee, referrer.Email)
	if err != nil {
		return nil, err
	}

	if referee.ReferredBy != nil {
		return nil, ErrAlreadyReferred
	}

	orderCount, err := s.orderRepo.CountByCustomer(ctx, normalizedReferee)
	if err != nil {
		return nil, err
	}
	if orderCount > 0 {
		return nil, ErrNotNewCustomer
	}

	multiplierSuffix := ""
	if multiplier.GreaterThan(decimal.NewFromInt(1)) {
		multiplierSuffix = fmt.Sprintf(" (%sx multiplier)", multiplier.String())
	}

	refereeEntry, err := applyCreditMutationTx(ctx, tx, referee, CreditMutation{
		Amount:     refereeReward,
		Reason:     fmt.Sprintf("Welcome bonus - used referral code %s", normalizedCode) + multiplierSuffix,
		Kind:       model.CreditLogKindReferral,
		Multiplier: multiplier,
	})
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(
		ctx,
		`UPDATE customers
		    SET referred_by = $2,
		        referred_by_code = $3
		  WHERE email = $1`,
		normalizedReferee,
		lockedReferrer.Email,
		normalizedCode,
	); err != nil {
		return nil, err
	}

	referrerCredited := !settings.MinPurchaseRequired
	var referrerEntry *model.CreditLogEntry
	if referrerCredited {
		referrerEntry, err = applyCreditMutationTx(ctx, tx, lockedReferrer, CreditMutation{
			Amount:     referrerReward,
			Reason:     fmt.Sprintf("Referral bonus - %s joined", normalizedReferee) + multiplierSuffix,
			Kind:       model.CreditLogKindReferral,
			Multiplier: multiplier,
		})
		if err != nil {
			return nil, err
		}
	}

	referral := &model.Referral{
		ID:                uuid.New(),
		ReferrerEmail:     lockedReferrer.Email,
		RefereeEmail:      normalizedReferee,
		ReferralCode:      normalizedCode,
		RefereeReward:     refereeReward,
		ReferrerCredited:  referrerCredited,
		MultiplierApplied: multiplier,
		CreatedAt:         now,
	}
	if referrerCredited {
		referral.ReferrerReward = referrerReward
		referral.ReferrerPendingReward = decimal.Zero
	} else {
		referral.ReferrerReward = decimal.Zero
		referral.ReferrerPendingReward = referrerReward
	}

	if err := insertReferralTx(ctx, tx, referral); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyReferred
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publishAwards(refereeEntry, referrerEntry)
	metrics.IncReferralApplied()
	s.logger.Info("referral code applied",
		zap.String("referrer", lockedReferrer.Email),
		zap.String("referee", normalizedReferee),
		zap.Bool("referrer_credited", referrerCredited),
	)

	return &ReferralApplyResult{
		CreditsReceived: refereeReward,
		Multiplier:      multiplier,
		ReferrerPending: !referrerCredited,
	}, nil
}

func (s *ReferralService) History(
	ctx context.Context,
	email string,
	page repository.Pagination,
) ([]*model.Referral, int64, error) {
	normalized := model.NormalizeEmail(email)
	referrals, err := s.referralRepo.ListByReferrer(ctx, normalized, page)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.referralRepo.CountByReferrer(ctx, normalized)
	if err != nil {
		return nil, 0, err
	}

	return referrals, total, nil
}

// ReleasePendingRewards credits referrers whose reward was held back
// until their referee placed a qualifying order. The scheduler calls
// it periodically; each release runs in its own transaction so one
// failure does not block the rest of the batch.
func (s *ReferralService) ReleasePendingRewards(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, errors.New("database pool is nil")
	}

	settings, err := s.settingsSvc.ReferralSettings(ctx)
	if err != nil {
		return 0, err
	}

	rows, err := s.pool.Query(
		ctx,
		`SELECT r.id, r.referrer_email, r.referee_email, r.referrer_pending_reward
		   FROM referrals r
		  WHERE r.referrer_credited = FALSE
		    AND r.referrer_pending_reward > 0
		    AND EXISTS (
		        SELECT 1 FROM orders o
		         WHERE o.customer_email = r.referee_email
		           AND o.status <> 'cancelled'
		           AND o.total_amount >= $1
		    )
		  LIMIT 100`,
		settings.MinPurchaseAmount,
	)
	if err != nil {
		return 0, err
	}

	type pendingReferral struct {
		id            uuid.UUID
		referrerEmail string
		refereeEmail  string
		reward        decimal.Decimal
	}

	pending := make([]pendingReferral, 0, 16)
	for rows.Next() {
		var p pendingReferral
		if err := rows.Scan(&p.id, &p.referrerEmail, &p.refereeEmail, &p.reward); err != nil {
			rows.Close()
			return 0, err
		}
		pending = append(pending, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var released int64
	for _, p := range pending {
		if err := s.releasePendingTx(ctx, p.id, p.referrerEmail, p.refereeEmail, p.reward); err != nil {
			s.logger.Warn("release pending referral reward failed",
				zap.String("referral_id", p.id.String()),
				zap.String("referrer", p.referrerEmail),
				zap.Error(err),
			)
			continue
		}
		released++
	}

	return released, nil
}

func (s *ReferralService) releasePendingTx(
	ctx context.Context,
	referralID uuid.UUID,
	referrerEmail, refereeEmail string,
	reward decimal.Decimal,
) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// The credited flag guard makes a concurrent release a no-op.
	tag, err := tx.Exec(
		ctx,
		`UPDATE referrals
		    SET referrer_credited = TRUE,
		        referrer_reward = referrer_pending_reward,
		        referrer_pending_reward = 0
		  WHERE id = $1 AND referrer_credited = FALSE`,
		referralID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	referrer, err := lockCustomerTx(ctx, tx, referrerEmail)
	if err != nil {
		return err
	}

	entry, err := applyCreditMutationTx(ctx, tx, referrer, CreditMutation{
		Amount: reward,
		Reason: fmt.Sprintf("Referral bonus - %s joined", refereeEmail),
		Kind:   model.CreditLogKindReferral,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.publishAwards(entry)
	return nil
}

func (s *ReferralService) lockPairTx(
	ctx context.Context,
	tx pgx.Tx,
	refereeEmail, referrerEmail string,
) (referee, referrer *model.Customer, err error) {
	first, second := refereeEmail, referrerEmail
	if second < first {
		first, second = second, first
	}

	firstCustomer, err := lockCustomerTx(ctx, tx, first)
	if err != nil {
		if first == refereeEmail && errors.Is(err, ErrCustomerNotFound) {
			return nil, nil, ErrCustomerNotFound
		}
		return nil, nil, err
	}
	secondCustomer, err := lockCustomerTx(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}

	if first == refereeEmail {
		return firstCustomer, secondCustomer, nil
	}
	return secondCustomer, firstCustomer, nil
}

func (s *ReferralService) publishAwards(entries ...*model.CreditLogEntry) {
	if s.bus == nil {
		return
	}

	for _, entry := range entries {
		if entry == nil {
			continue
		}
		s.bus.Publish(event.EventCreditAwarded, event.CreditAwardedPayload{
			CustomerEmail: entry.CustomerEmail,
			Amount:        entry.Amount,
			Kind:          string(entry.Kind),
			BalanceAfter:  entry.BalanceAfter,
			Timestamp:     entry.CreatedAt,
		})
	}
}

func insertReferralTx(ctx context.Context, tx pgx.Tx, referral *model.Referral) error {
	_, err := tx.Exec(
		ctx,
		`INSERT INTO referrals (id, referrer_email, referee_email, referral_code, referee_reward, referrer_reward, referrer_pending_reward, referrer_credited, multiplier_applied, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		referral.ID,
		referral.ReferrerEmail,
		referral.RefereeEmail,
		referral.ReferralCode,
		referral.RefereeReward,
		referral.ReferrerReward,
		referral.ReferrerPendingReward,
		referral.ReferrerCredited,
		referral.MultiplierApplied,
		referral.CreatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505"
}
