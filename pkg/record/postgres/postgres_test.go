package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kweidner/pforte/pkg/record"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("pforte_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func testFields(i int, tenantID, status string) map[string]string {
	return map[string]string{
		"name":   fmt.Sprintf("User %d %s", i, tenantID),
		"email":  fmt.Sprintf("user%d@%s.com", i, tenantID),
		"status": status,
	}
}

func TestPostgres_InsertAndQuery(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, "t1", testFields(1, "t1", "active"))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if want := record.FormatID("t1", 1); id != want {
		t.Errorf("id = %q, want %q", id, want)
	}

	res, err := store.Query(ctx, "t1", record.Query{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("Total = %d, want 1", res.Total)
	}
	got := res.Items[0]
	if got.ID != id || got.TenantID != "t1" {
		t.Errorf("record = %+v, want id %q tenant t1", got, id)
	}
	if got.Fields["email"] != "user1@t1.com" {
		t.Errorf("email = %q, want %q", got.Fields["email"], "user1@t1.com")
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero")
	}
}

func TestPostgres_TenantIsolation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if _, err := store.Insert(ctx, "t1", testFields(i, "t1", "active")); err != nil {
			t.Fatalf("Insert t1: %v", err)
		}
	}
	if _, err := store.Insert(ctx, "t2", testFields(1, "t2", "active")); err != nil {
		t.Fatalf("Insert t2: %v", err)
	}

	res, err := store.Query(ctx, "t1", record.Query{Page: 1, Limit: 100})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("t1 Total = %d, want 3", res.Total)
	}
	for _, r := range res.Items {
		if r.TenantID != "t1" {
			t.Errorf("record %q leaked from tenant %q", r.ID, r.TenantID)
		}
	}
}

func TestPostgres_QueryPipeline(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	statuses := []string{"active", "inactive", "pending"}
	for i := 1; i <= 25; i++ {
		if _, err := store.Insert(ctx, "t1", testFields(i, "t1", statuses[i%3])); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	// 25 records, limit 10, page 3 -> 5 items.
	res, err := store.Query(ctx, "t1", record.Query{Page: 3, Limit: 10})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(res.Items) != 5 || res.PageCount != 3 || res.Total != 25 {
		t.Errorf("result = (%d items, total %d, pages %d), want (5, 25, 3)",
			len(res.Items), res.Total, res.PageCount)
	}

	// Search hits name and email case-insensitively.
	res, err = store.Query(ctx, "t1", record.Query{Search: "USER1@", Page: 1, Limit: 100})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if res.Total != 1 {
		t.Errorf("search Total = %d, want 1", res.Total)
	}

	// Deterministic repeat.
	q := record.Query{FilterField: "status", FilterValue: "active", SortField: "name", Page: 1, Limit: 7}
	first, err := store.Query(ctx, "t1", q)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	second, err := store.Query(ctx, "t1", q)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(first.Items) != len(second.Items) || first.Total != second.Total {
		t.Errorf("repeated query differs: %+v vs %+v", first, second)
	}
	for i := range first.Items {
		if first.Items[i].ID != second.Items[i].ID {
			t.Errorf("item %d differs: %q vs %q", i, first.Items[i].ID, second.Items[i].ID)
		}
	}
}

func TestPostgres_QueryRejectsBadParameters(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if _, err := store.Query(ctx, "t1", record.Query{Page: 0, Limit: 10}); !errors.Is(err, record.ErrInvalidQuery) {
		t.Errorf("page 0 error = %v, want ErrInvalidQuery", err)
	}
	if _, err := store.Query(ctx, "t1", record.Query{Page: 1, Limit: 0}); !errors.Is(err, record.ErrInvalidQuery) {
		t.Errorf("limit 0 error = %v, want ErrInvalidQuery", err)
	}
}

func TestPostgres_Delete(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	id, err := store.Insert(ctx, "t1", testFields(1, "t1", "active"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Cross-tenant delete must not find the record.
	if err := store.Delete(ctx, "t2", id); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("cross-tenant Delete error = %v, want ErrNotFound", err)
	}

	if err := store.Delete(ctx, "t1", id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "t1", id); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestPostgres_ConcurrentInserts(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Insert(ctx, "t1", testFields(i, "t1", "active")); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent Insert: %v", err)
	}

	res, err := store.Query(ctx, "t1", record.Query{Page: 1, Limit: n * 2})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if res.Total != n {
		t.Fatalf("Total = %d, want %d", res.Total, n)
	}

	seen := make(map[string]bool, n)
	for _, r := range res.Items {
		if seen[r.ID] {
			t.Errorf("duplicate id %q", r.ID)
		}
		seen[r.ID] = true
	}
}
