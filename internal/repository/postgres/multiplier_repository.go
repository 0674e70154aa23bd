package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

type multiplierEventRepository struct {
	pool *pgxpool.Pool
}

func NewMultiplierEventRepository(pool *pgxpool.Pool) repository.MultiplierEventRepository {
	return &multiplierEventRepository{pool: pool}
}

var _ repository.MultiplierEventRepository = (*multiplierEventRepository)(nil)

const multiplierEventColumns = `
	id,
	name,
	multiplier,
	start_time,
	end_time,
	applies_to,
	is_active,
	created_at
`

func (r *multiplierEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.MultiplierEvent, error) {
	query := `SELECT ` + multiplierEventColumns + ` FROM multiplier_events WHERE id = $1`
	event, err := scanMultiplierEvent(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (r *multiplierEventRepository) Create(ctx context.Context, event *model.MultiplierEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO multiplier_events (
			id, name, multiplier, start_time, end_time, applies_to, is_active, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		event.ID,
		event.Name,
		event.Multiplier,
		event.StartTime,
		event.EndTime,
		categoriesToStrings(event.AppliesTo),
		event.IsActive,
		event.CreatedAt,
	)
	return err
}

func (r *multiplierEventRepository) Update(ctx context.Context, event *model.MultiplierEvent) error {
	query := `
		UPDATE multiplier_events
		SET name = $2,
			multiplier = $3,
			start_time = $4,
			end_time = $5,
			applies_to = $6,
			is_active = $7
		WHERE id = $1
	`

	tag, err := r.pool.Exec(
		ctx,
		query,
		event.ID,
		event.Name,
		event.Multiplier,
		event.StartTime,
		event.EndTime,
		categoriesToStrings(event.AppliesTo),
		event.IsActive,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *multiplierEventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM multiplier_events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *multiplierEventRepository) List(ctx context.Context, page repository.Pagination) ([]*model.MultiplierEvent, error) {
	limit, offset := normalizePagination(page)

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+multiplierEventColumns+`
		   FROM multiplier_events
		  ORDER BY start_time DESC
		  LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMultiplierEvents(rows, int(limit))
}

func (r *multiplierEventRepository) ActiveAt(ctx context.Context, now time.Time) ([]*model.MultiplierEvent, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+multiplierEventColumns+`
		   FROM multiplier_events
		  WHERE is_active
		    AND start_time <= $1
		    AND end_time >= $1`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMultiplierEvents(rows, 4)
}

func (r *multiplierEventRepository) DeactivateEnded(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE multiplier_events
		    SET is_active = FALSE
		  WHERE is_active
		    AND end_time < $1`,
		now,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectMultiplierEvents(rows pgx.Rows, sizeHint int) ([]*model.MultiplierEvent, error) {
	events := make([]*model.MultiplierEvent, 0, sizeHint)
	for rows.Next() {
		event, err := scanMultiplierEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func scanMultiplierEvent(src scanTarget) (*model.MultiplierEvent, error) {
	event := &model.MultiplierEvent{}
	var appliesTo []string
	err := src.Scan(
		&event.ID,
		&event.Name,
		&event.Multiplier,
		&event.StartTime,
		&event.EndTime,
		&appliesTo,
		&event.IsActive,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.AppliesTo = stringsToCategories(appliesTo)
	return event, nil
}

func categoriesToStrings(categories []model.RewardCategory) []string {
	if len(categories) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, string(c))
	}
	return out
}

func stringsToCategories(values []string) []model.RewardCategory {
	if len(values) == 0 {
		return nil
	}
	out := make([]model.RewardCategory, 0, len(values))
	for _, v := range values {
		out = append(out, model.RewardCategory(v))
	}
	return out
}
