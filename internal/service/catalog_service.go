package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrInvalidCatalogInput = errors.New("invalid catalog input")
)

type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url"`
	IsActive    *bool           `json:"is_active"`
	SortOrder   int             `json:"sort_order"`
}

type CatalogService struct {
	catalogRepo repository.CatalogRepository
	auditRepo   repository.AuditRepository
	logger      *zap.Logger
}

func NewCatalogService(
	catalogRepo repository.CatalogRepository,
	auditRepo repository.AuditRepository,
	logger *zap.Logger,
) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CatalogService{
		catalogRepo: catalogRepo,
		auditRepo:   auditRepo,
		logger:      logger,
	}
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.catalogRepo.FindProductByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *CatalogService) ListProducts(
	ctx context.Context,
	categoryID *uuid.UUID,
	activeOnly bool,
	page repository.Pagination,
) ([]*model.Product, error) {
	return s.catalogRepo.ListProducts(ctx, categoryID, activeOnly, page)
}

func (s *CatalogService) CreateProduct(ctx context.Context, operatorID *uuid.UUID, input ProductInput) (*model.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	now := time.Now().UTC()
	product := &model.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		CategoryID:  input.CategoryID,
		Price:       money(input.Price),
		ImageURL:    input.ImageURL,
		IsActive:    active,
		SortOrder:   input.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.catalogRepo.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, operatorID, "product.create", "product", product.ID)
	return product, nil
}

func (s *CatalogService) UpdateProduct(
	ctx context.Context,
	operatorID *uuid.UUID,
	id uuid.UUID,
	input ProductInput,
) (*model.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.CategoryID = input.CategoryID
	product.Price = money(input.Price)
	product.ImageURL = input.ImageURL
	product.SortOrder = input.SortOrder
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	product.UpdatedAt = time.Now().UTC()

	if err := s.catalogRepo.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	s.writeAudit(ctx, operatorID, "product.update", "product", product.ID)
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, operatorID *uuid.UUID, id uuid.UUID) error {
	err := s.catalogRepo.DeleteProduct(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}

	s.writeAudit(ctx, operatorID, "product.delete", "product", id)
	return nil
}

func (s *CatalogService) CreateCategory(
	ctx context.Context,
	operatorID *uuid.UUID,
	name, slug string,
	sortOrder int,
) (*model.Category, error) {
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" || slug == "" {
		return nil, ErrInvalidCatalogInput
	}

	category := &model.Category{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		SortOrder: sortOrder,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.catalogRepo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, operatorID, "category.create", "category", category.ID)
	return category, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, operatorID *uuid.UUID, id uuid.UUID) error {
	err := s.catalogRepo.DeleteCategory(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return err
	}

	s.writeAudit(ctx, operatorID, "category.delete", "category", id)
	return nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	return s.catalogRepo.ListCategories(ctx)
}

func (s *CatalogService) writeAudit(
	ctx context.Context,
	operatorID *uuid.UUID,
	action, resourceType string,
	resourceID uuid.UUID,
) {
	if s.auditRepo == nil {
		return
	}

	rid := resourceID.String()
	_ = s.auditRepo.Create(ctx, &model.AuditLog{
		UserID:       operatorID,
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &rid,
		CreatedAt:    time.Now().UTC(),
	})
}

func validateProductInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return ErrInvalidCatalogInput
	}
	if input.Price.Sign() < 0 {
		return ErrInvalidCatalogInput
	}
	return nil
}
