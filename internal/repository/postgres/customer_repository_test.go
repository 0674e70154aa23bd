package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	testcontainers "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"gameshop-hub/internal/model"
	"gameshop-hub/internal/repository"
)

func TestCustomerRepository_CreateAndFind(t *testing.T) {
	pool := startPostgresForTest(t)
	repo := NewCustomerRepository(pool)
	ctx := context.Background()

	customer := &model.Customer{
		ID:            uuid.New(),
		Email:         "find@example.com",
		Name:          "Find Me",
		CreditBalance: decimal.NewFromInt(120),
	}
	if err := repo.Create(ctx, customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}

	got, err := repo.FindByEmail(ctx, "find@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if got.Name != "Find Me" {
		t.Fatalf("expected name Find Me, got %q", got.Name)
	}
	if !got.CreditBalance.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("expected balance 120, got %s", got.CreditBalance)
	}
}

func TestCustomerRepository_FindByEmail_NotFound(t *testing.T) {
	pool := startPostgresForTest(t)
	repo := NewCustomerRepository(pool)

	customer, err := repo.FindByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if customer != nil {
		t.Fatalf("expected nil customer, got %+v", customer)
	}
}

func TestCustomerRepository_SetReferralCode_Conflict(t *testing.T) {
	pool := startPostgresForTest(t)
	repo := NewCustomerRepository(pool)
	ctx := context.Background()

	first := &model.Customer{ID: uuid.New(), Email: "first@example.com", Name: "First"}
	second := &model.Customer{ID: uuid.New(), Email: "second@example.com", Name: "Second"}
	for _, c := range []*model.Customer{first, second} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("create customer %s: %v", c.Email, err)
		}
	}

	if err := repo.SetReferralCode(ctx, "first@example.com", "SHARED01"); err != nil {
		t.Fatalf("first SetReferralCode: %v", err)
	}
	if err := repo.SetReferralCode(ctx, "second@example.com", "SHARED01"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate code, got %v", err)
	}

	got, err := repo.FindByReferralCode(ctx, "SHARED01")
	if err != nil {
		t.Fatalf("FindByReferralCode: %v", err)
	}
	if got.Email != "first@example.com" {
		t.Fatalf("expected code owner first@example.com, got %s", got.Email)
	}
}

func TestCustomerRepository_ListKeywordFilter(t *testing.T) {
	pool := startPostgresForTest(t)
	repo := NewCustomerRepository(pool)
	ctx := context.Background()

	seed := []*model.Customer{
		{ID: uuid.New(), Email: "alice@example.com", Name: "Alice"},
		{ID: uuid.New(), Email: "bob@example.com", Name: "Bob"},
		{ID: uuid.New(), Email: "alicia@example.com", Name: "Alicia"},
	}
	for _, c := range seed {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("create customer %s: %v", c.Email, err)
		}
	}

	keyword := "alic"
	filter := repository.CustomerListFilter{
		Keyword:    &keyword,
		Pagination: repository.Pagination{Limit: 10},
	}

	customers, err := repo.List(ctx, filter)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(customers) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(customers))
	}

	total, err := repo.Count(ctx, filter)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected count 2, got %d", total)
	}
}

func startPostgresForTest(t *testing.T) *pgxpool.Pool {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "gameshop_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("skipping test because docker/testcontainers is unavailable: %v", err)
	}

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/gameshop_test?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	deadline := time.Now().Add(30 * time.Second)
	for {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("postgres did not become ready: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}

	applyAllMigrations(t, ctx, pool)
	return pool
}

func applyAllMigrations(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	migrationsDir := filepath.Join(findRepoRoot(t), "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		raw, err := os.ReadFile(filepath.Join(migrationsDir, file))
		if err != nil {
			t.Fatalf("read migration %s: %v", file, err)
		}
		if strings.TrimSpace(string(raw)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(raw)); err != nil {
			t.Fatalf("apply migration %s: %v", file, err)
		}
	}
}

func findRepoRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	for {
		_, statErr := os.Stat(filepath.Join(dir, "go.mod"))
		if statErr == nil {
			return dir
		}
		if !errors.Is(statErr, os.ErrNotExist) {
			t.Fatalf("stat go.mod: %v", statErr)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not locate repository root")
		}
		dir = parent
	}
}
