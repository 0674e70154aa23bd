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

type adminUserRepository struct {
	pool *pgxpool.Pool
}

func NewAdminUserRepository(pool *pgxpool.Pool) repository.AdminUserRepository {
	return &adminUserRepository{pool: pool}
}

var _ repository.AdminUserRepository = (*adminUserRepository)(nil)

const adminUserColumns = `
	id,
	username,
	password_hash,
	email,
	role,
	created_at,
	updated_at
`

func (r *adminUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AdminUser, error) {
	query := `SELECT ` + adminUserColumns + ` FROM admin_users WHERE id = $1`
	user, err := scanAdminUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *adminUserRepository) FindByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	query := `SELECT ` + adminUserColumns + ` FROM admin_users WHERE username = $1`
	user, err := scanAdminUser(r.pool.QueryRow(ctx, query, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *adminUserRepository) Create(ctx context.Context, user *model.AdminUser) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO admin_users (id, username, password_hash, email, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Email,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func scanAdminUser(src scanTarget) (*model.AdminUser, error) {
	user := &model.AdminUser{}
	err := src.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}
