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
	ErrCustomerExists       = errors.New("customer already exists")
	ErrInvalidCustomerInput = errors.New("invalid customer input")
)

type RegisterCustomerRequest struct {
	Email string  `json:"email"`
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
}

type CustomerService struct {
	customerRepo repository.CustomerRepository
	logger       *zap.Logger
}

func NewCustomerService(customerRepo repository.CustomerRepository, logger *zap.Logger) *CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{customerRepo: customerRepo, logger: logger}
}

func (s *CustomerService) Register(ctx context.Context, req RegisterCustomerRequest) (*model.Customer, error) {
	email := model.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidCustomerInput
	}

	now := time.Now().UTC()
	customer := &model.Customer{
		ID:            uuid.New(),
		Email:         email,
		Name:          strings.TrimSpace(req.Name),
		Phone:         req.Phone,
		CreditBalance: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.customerRepo.Create(ctx, customer)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrCustomerExists
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("customer registered", zap.String("email", email))
	return customer, nil
}

func (s *CustomerService) Get(ctx context.Context, email string) (*model.Customer, error) {
	customer, err := s.customerRepo.FindByEmail(ctx, model.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *CustomerService) List(
	ctx context.Context,
	filter repository.CustomerListFilter,
) ([]*model.Customer, int64, error) {
	customers, err := s.customerRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.customerRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

func (s *CustomerService) UpdateProfile(ctx context.Context, email string, name *string, phone *string) (*model.Customer, error) {
	customer, err := s.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, ErrInvalidCustomerInput
		}
		customer.Name = trimmed
	}
	if phone != nil {
		customer.Phone = phone
	}
	customer.UpdatedAt = time.Now().UTC()

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}
