// Package record defines the tenant-scoped record store: append-only
// per-tenant collections with a compound filter/search/sort/paginate query.
//
// Store implementations (memory, postgres) take the tenant id as an
// explicit parameter. Callers must pass only a tenant id established by an
// admitted gate decision; the store itself never derives one from
// unauthenticated input.
package record

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when a record does not exist in the
	// tenant's collection.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidQuery is returned for out-of-domain query parameters
	// (limit <= 0, page < 1). Distinguishable from an empty result.
	ErrInvalidQuery = errors.New("invalid query parameter")

	// ErrUnavailable is returned when the backing storage cannot be
	// reached. The store does not retry; retry policy belongs to the
	// caller.
	ErrUnavailable = errors.New("record storage unavailable")
)

// Record is a generic row owned by exactly one tenant. Records are
// append-only: created by Insert, never mutated in place, removed only by
// explicit Delete.
type Record struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Query describes a compound query over a tenant's collection.
type Query struct {
	// Search retains records whose searchable fields (name, email by
	// default) contain the string, case-insensitively.
	Search string

	// FilterField/FilterValue retain records whose named field contains
	// FilterValue case-insensitively. An empty FilterValue means no
	// constraint.
	FilterField string
	FilterValue string

	// SortField orders results ascending by the case-insensitive string
	// value of the field. Empty preserves insertion order.
	SortField string

	// Page is 1-based. Limit is the page size; both are validated, not
	// coerced.
	Page  int
	Limit int
}

// Validate checks the pagination parameters.
func (q Query) Validate() error {
	if q.Limit <= 0 {
		return fmt.Errorf("%w: limit must be > 0, got %d", ErrInvalidQuery, q.Limit)
	}
	if q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidQuery, q.Page)
	}
	return nil
}

// Result is a page of records plus the totals for the whole filtered set.
type Result struct {
	Items []Record `json:"items"`
	// Total counts records after the filter and search stages, before
	// pagination.
	Total     int `json:"total"`
	PageCount int `json:"pageCount"`
}

// Store is the per-tenant record collection contract.
type Store interface {
	// Insert appends a record to the tenant's collection and returns its
	// assigned id, unique and monotonic within the tenant.
	Insert(ctx context.Context, tenantID string, fields map[string]string) (string, error)

	// Query runs the compound query pipeline against a snapshot of the
	// tenant's collection.
	Query(ctx context.Context, tenantID string, q Query) (*Result, error)

	// Delete removes a record from the tenant's collection.
	Delete(ctx context.Context, tenantID, id string) error
}

// DefaultSearchFields are the fields consulted by the search stage when a
// store is not configured otherwise.
var DefaultSearchFields = []string{"name", "email"}

// FormatID renders a tenant-scoped record id from its sequence number.
func FormatID(tenantID string, seq int64) string {
	return fmt.Sprintf("%s_%d", tenantID, seq)
}
