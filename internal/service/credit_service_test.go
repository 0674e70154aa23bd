package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func newUnitCreditService(customers *fakeCustomerRepo) *CreditService {
	return NewCreditService(customers, nil, nil, nil, nil)
}

func TestCreditBalance_UnknownCustomerIsZero(t *testing.T) {
	t.Parallel()

	svc := newUnitCreditService(newFakeCustomerRepo())

	balance, err := svc.Balance(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("balance = %s, want 0", balance)
	}
}

func TestCreditBalance_ReturnsStoredBalance(t *testing.T) {
	t.Parallel()

	customer := testCustomer("holder@example.com")
	customer.CreditBalance = decimal.NewFromInt(150)
	svc := newUnitCreditService(newFakeCustomerRepo(customer))

	balance, err := svc.Balance(context.Background(), "Holder@Example.com")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("balance = %s, want 150", balance)
	}
}
