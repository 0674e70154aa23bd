package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

type catalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) repository.CatalogRepository {
	return &catalogRepository{pool: pool}
}

var _ repository.CatalogRepository = (*catalogRepository)(nil)

const productColumns = `
	id,
	name,
	description,
	category_id,
	price,
	image_url,
	is_active,
	sort_order,
	created_at,
	updated_at
`

func (r *catalogRepository) FindProductByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (r *catalogRepository) CreateProduct(ctx context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = product.CreatedAt
	}

	query := `
		INSERT INTO products (
			id, name, description, category_id, price, image_url,
			is_active, sort_order, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.CategoryID,
		product.Price,
		product.ImageURL,
		product.IsActive,
		product.SortOrder,
		product.CreatedAt,
		product.UpdatedAt,
	)
	return err
}

func (r *catalogRepository) UpdateProduct(ctx context.Context, product *model.Product) error {
	product.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE products
		SET name = $2,
			description = $3,
			category_id = $4,
			price = $5,
			image_url = $6,
			is_active = $7,
			sort_order = $8,
			updated_at = $9
		WHERE id = $1
	`

	tag, err := r.pool.Exec(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.CategoryID,
		product.Price,
		product.ImageURL,
		product.IsActive,
		product.SortOrder,
		product.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *catalogRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *catalogRepository) ListProducts(
	ctx context.Context,
	categoryID *uuid.UUID,
	activeOnly bool,
	page repository.Pagination,
) ([]*model.Product, error) {
	limit, offset := normalizePagination(page)

	args := make([]any, 0, 4)
	conditions := make([]string, 0, 2)

	if categoryID != nil {
		args = append(args, *categoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if activeOnly {
		conditions = append(conditions, "is_active")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY sort_order ASC, created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]*model.Product, 0, limit)
	for rows.Next() {
		item, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *catalogRepository) CreateCategory(ctx context.Context, category *model.Category) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO categories (id, name, slug, sort_order, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		category.ID,
		category.Name,
		category.Slug,
		category.SortOrder,
		category.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *catalogRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return ensureAffected(tag)
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]*model.Category, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, name, slug, sort_order, created_at
		   FROM categories
		  ORDER BY sort_order ASC, name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]*model.Category, 0, 16)
	for rows.Next() {
		item := &model.Category{}
		if err := rows.Scan(&item.ID, &item.Name, &item.Slug, &item.SortOrder, &item.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return categories, nil
}

func scanProduct(src scanTarget) (*model.Product, error) {
	product := &model.Product{}
	err := src.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.CategoryID,
		&product.Price,
		&product.ImageURL,
		&product.IsActive,
		&product.SortOrder,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return product, nil
}
