package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

type referralRepository struct {
	pool *pgxpool.Pool
}

func NewReferralRepository(pool *pgxpool.Pool) repository.ReferralRepository {
	return &referralRepository{pool: pool}
}

var _ repository.ReferralRepository = (*referralRepository)(nil)

const referralColumns = `
	id,
	referrer_email,
	referee_email,
	referral_code,
	referee_reward,
	referrer_reward,
	referrer_pending_reward,
	referrer_credited,
	multiplier_applied,
	created_at
`

func (r *referralRepository) Create(ctx context.Context, referral *model.Referral) error {
	if referral.ID == uuid.Nil {
		referral.ID = uuid.New()
	}
	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO referrals (
			id, referrer_email, referee_email, referral_code, referee_reward,
			referrer_reward, referrer_pending_reward, referrer_credited,
			multiplier_applied, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		referral.ID,
		model.NormalizeEmail(referral.ReferrerEmail),
		model.NormalizeEmail(referral.RefereeEmail),
		referral.ReferralCode,
		referral.RefereeReward,
		referral.ReferrerReward,
		referral.ReferrerPendingReward,
		referral.ReferrerCredited,
		referral.MultiplierApplied,
		referral.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *referralRepository) ListByReferrer(
	ctx context.Context,
	email string,
	page repository.Pagination,
) ([]*model.Referral, error) {
	limit, offset := normalizePagination(page)

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+referralColumns+`
		   FROM referrals
		  WHERE referrer_email = $1
		  ORDER BY created_at DESC
		  LIMIT $2 OFFSET $3`,
		model.NormalizeEmail(email),
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	referrals := make([]*model.Referral, 0, limit)
	for rows.Next() {
		item := &model.Referral{}
		if err := rows.Scan(
			&item.ID,
			&item.ReferrerEmail,
			&item.RefereeEmail,
			&item.ReferralCode,
			&item.RefereeReward,
			&item.ReferrerReward,
			&item.ReferrerPendingReward,
			&item.ReferrerCredited,
			&item.MultiplierApplied,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		referrals = append(referrals, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return referrals, nil
}

func (r *referralRepository) CountByReferrer(ctx context.Context, email string) (int64, error) {
	var total int64
	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM referrals WHERE referrer_email = $1`,
		model.NormalizeEmail(email),
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *referralRepository) TotalEarnedByReferrer(ctx context.Context, email string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(
		ctx,
		`SELECT COALESCE(SUM(referrer_reward), 0) FROM referrals WHERE referrer_email = $1`,
		model.NormalizeEmail(email),
	).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
