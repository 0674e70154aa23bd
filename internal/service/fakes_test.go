package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

// fakeSettingsRepo serves a raw JSON document per kind, falling back
// to ErrNotFound so services see their compiled-in defaults.
type fakeSettingsRepo struct {
	docs map[string][]byte
}

func (r *fakeSettingsRepo) Get(_ context.Context, kind string) ([]byte, error) {
	if raw, ok := r.docs[kind]; ok {
		return raw, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeSettingsRepo) Upsert(_ context.Context, kind string, data []byte) error {
	if r.docs == nil {
		r.docs = make(map[string][]byte)
	}
	r.docs[kind] = data
	return nil
}

type fakeCustomerRepo struct {
	customers map[string]*model.Customer

	setReferralCodeFn func(ctx context.Context, email, code string) error
}

func newFakeCustomerRepo(customers ...*model.Customer) *fakeCustomerRepo {
	repo := &fakeCustomerRepo{customers: make(map[string]*model.Customer)}
	for _, c := range customers {
		repo.customers[c.Email] = c
	}
	return repo
}

func (r *fakeCustomerRepo) FindByEmail(_ context.Context, email string) (*model.Customer, error) {
	if c, ok := r.customers[email]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCustomerRepo) FindByReferralCode(_ context.Context, code string) (*model.Customer, error) {
	for _, c := range r.customers {
		if c.ReferralCode != nil && *c.ReferralCode == code {
			return c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeCustomerRepo) Create(_ context.Context, customer *model.Customer) error {
	if _, ok := r.customers[customer.Email]; ok {
		return repository.ErrConflict
	}
	r.customers[customer.Email] = customer
	return nil
}

func (r *fakeCustomerRepo) Update(_ context.Context, customer *model.Customer) error {
	if _, ok := r.customers[customer.Email]; !ok {
		return repository.ErrNotFound
	}
	r.customers[customer.Email] = customer
	return nil
}

func (r *fakeCustomerRepo) SetReferralCode(ctx context.Context, email, code string) error {
	if r.setReferralCodeFn != nil {
		return r.setReferralCodeFn(ctx, email, code)
	}
	customer, ok := r.customers[email]
	if !ok {
		return repository.ErrNotFound
	}
	for _, other := range r.customers {
		if other.ReferralCode != nil && *other.ReferralCode == code {
			return repository.ErrConflict
		}
	}
	customer.ReferralCode = &code
	return nil
}

func (r *fakeCustomerRepo) List(_ context.Context, _ repository.CustomerListFilter) ([]*model.Customer, error) {
	out := make([]*model.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCustomerRepo) Count(_ context.Context, _ repository.CustomerListFilter) (int64, error) {
	return int64(len(r.customers)), nil
}

type fakePromoRepo struct {
	promos map[string]*model.PromoCode
}

func newFakePromoRepo(promos ...*model.PromoCode) *fakePromoRepo {
	repo := &fakePromoRepo{promos: make(map[string]*model.PromoCode)}
	for _, p := range promos {
		repo.promos[p.Code] = p
	}
	return repo
}

func (r *fakePromoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PromoCode, error) {
	for _, p := range r.promos {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePromoRepo) FindByCode(_ context.Context, code string) (*model.PromoCode, error) {
	if p, ok := r.promos[code]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakePromoRepo) Create(_ context.Context, promo *model.PromoCode) error {
	if _, ok := r.promos[promo.Code]; ok {
		return repository.ErrConflict
	}
	r.promos[promo.Code] = promo
	return nil
}

func (r *fakePromoRepo) Update(_ context.Context, promo *model.PromoCode) error {
	r.promos[promo.Code] = promo
	return nil
}

func (r *fakePromoRepo) Delete(_ context.Context, id uuid.UUID) error {
	for code, p := range r.promos {
		if p.ID == id {
			delete(r.promos, code)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakePromoRepo) List(_ context.Context, _ repository.Pagination) ([]*model.PromoCode, error) {
	out := make([]*model.PromoCode, 0, len(r.promos))
	for _, p := range r.promos {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePromoRepo) IncrementUsage(_ context.Context, id uuid.UUID) error {
	for _, p := range r.promos {
		if p.ID == id {
			p.UsedCount++
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeOrderRepo struct {
	ordersByCustomer map[string]int64
}

func (r *fakeOrderRepo) FindByID(_ context.Context, _ uuid.UUID) (*model.Order, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeOrderRepo) Create(_ context.Context, _ *model.Order) error {
	return nil
}

func (r *fakeOrderRepo) CountByCustomer(_ context.Context, email string) (int64, error) {
	return r.ordersByCustomer[email], nil
}

func (r *fakeOrderRepo) List(_ context.Context, _ repository.OrderListFilter) ([]*model.Order, error) {
	return nil, nil
}

func (r *fakeOrderRepo) Count(_ context.Context, _ repository.OrderListFilter) (int64, error) {
	return 0, nil
}

func (r *fakeOrderRepo) History(_ context.Context, _ uuid.UUID) ([]*model.OrderStatusHistory, error) {
	return nil, nil
}

type fakeMultiplierEventRepo struct {
	events []*model.MultiplierEvent
}

func (r *fakeMultiplierEventRepo) FindByID(_ context.Context, id uuid.UUID) (*model.MultiplierEvent, error) {
	for _, e := range r.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeMultiplierEventRepo) Create(_ context.Context, event *model.MultiplierEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeMultiplierEventRepo) Update(_ context.Context, event *model.MultiplierEvent) error {
	for i, e := range r.events {
		if e.ID == event.ID {
			r.events[i] = event
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeMultiplierEventRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, e := range r.events {
		if e.ID == id {
			r.events = append(r.events[:i], r.events[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeMultiplierEventRepo) List(_ context.Context, _ repository.Pagination) ([]*model.MultiplierEvent, error) {
	return r.events, nil
}

func (r *fakeMultiplierEventRepo) ActiveAt(_ context.Context, now time.Time) ([]*model.MultiplierEvent, error) {
	active := make([]*model.MultiplierEvent, 0, len(r.events))
	for _, e := range r.events {
		if e.IsActive && !now.Before(e.StartTime) && now.Before(e.EndTime) {
			active = append(active, e)
		}
	}
	return active, nil
}

func (r *fakeMultiplierEventRepo) DeactivateEnded(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, e := range r.events {
		if e.IsActive && now.After(e.EndTime) {
			e.IsActive = false
			n++
		}
	}
	return n, nil
}

type fakeReferralRepo struct {
	referrals []*model.Referral
}

func (r *fakeReferralRepo) Create(_ context.Context, referral *model.Referral) error {
	r.referrals = append(r.referrals, referral)
	return nil
}

func (r *fakeReferralRepo) ListByReferrer(_ context.Context, email string, _ repository.Pagination) ([]*model.Referral, error) {
	out := make([]*model.Referral, 0)
	for _, ref := range r.referrals {
		if ref.ReferrerEmail == email {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (r *fakeReferralRepo) CountByReferrer(_ context.Context, email string) (int64, error) {
	var n int64
	for _, ref := range r.referrals {
		if ref.ReferrerEmail == email {
			n++
		}
	}
	return n, nil
}

func (r *fakeReferralRepo) TotalEarnedByReferrer(_ context.Context, email string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, ref := range r.referrals {
		if ref.ReferrerEmail == email {
			total = total.Add(ref.ReferrerReward)
		}
	}
	return total, nil
}
