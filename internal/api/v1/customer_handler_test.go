package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
	"gameshop-hub/internal/service"
)

type memCustomerRepo struct {
	byEmail map[string]*model.Customer
}

func newMemCustomerRepo() *memCustomerRepo {
	return &memCustomerRepo{byEmail: make(map[string]*model.Customer)}
}

func (r *memCustomerRepo) FindByEmail(_ context.Context, email string) (*model.Customer, error) {
	customer, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return customer, nil
}

func (r *memCustomerRepo) FindByReferralCode(_ context.Context, _ string) (*model.Customer, error) {
	return nil, repository.ErrNotFound
}

func (r *memCustomerRepo) Create(_ context.Context, customer *model.Customer) error {
	if _, ok := r.byEmail[customer.Email]; ok {
		return repository.ErrConflict
	}
	r.byEmail[customer.Email] = customer
	return nil
}

func (r *memCustomerRepo) Update(_ context.Context, customer *model.Customer) error {
	r.byEmail[customer.Email] = customer
	return nil
}

func (r *memCustomerRepo) SetReferralCode(_ context.Context, _, _ string) error {
	return nil
}

func (r *memCustomerRepo) List(_ context.Context, _ repository.CustomerListFilter) ([]*model.Customer, error) {
	return nil, nil
}

func (r *memCustomerRepo) Count(_ context.Context, _ repository.CustomerListFilter) (int64, error) {
	return 0, nil
}

func setupCustomerTestRouter(repo *memCustomerRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api/v1")
	RegisterCustomerRoutes(group, service.NewCustomerService(repo, nil))
	return router
}

func TestRegisterCustomer_SanitizesOptionalPhone(t *testing.T) {
	t.Parallel()

	repo := newMemCustomerRepo()
	router := setupCustomerTestRouter(repo)

	body, _ := json.Marshal(map[string]string{
		"email": "New.Player@Example.com",
		"name":  "  New Player  ",
		"phone": "  9841234567  ",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	customer, ok := repo.byEmail["new.player@example.com"]
	if !ok {
		t.Fatal("customer not stored under normalized email")
	}
	if customer.Phone == nil || *customer.Phone != "9841234567" {
		t.Fatalf("phone = %v, want trimmed 9841234567", customer.Phone)
	}
	if customer.Name != "New Player" {
		t.Fatalf("name = %q, want trimmed", customer.Name)
	}
}

func TestRegisterCustomer_PhoneIsOptional(t *testing.T) {
	t.Parallel()

	repo := newMemCustomerRepo()
	router := setupCustomerTestRouter(repo)

	body, _ := json.Marshal(map[string]string{
		"email": "nophone@example.com",
		"name":  "No Phone",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	customer, ok := repo.byEmail["nophone@example.com"]
	if !ok {
		t.Fatal("customer not stored")
	}
	if customer.Phone != nil {
		t.Fatalf("phone = %q, want nil", *customer.Phone)
	}
}
