// Package memory provides an in-memory implementation of record.Store for
// testing and lightweight deployments. Collections are kept per tenant and
// lost when the process restarts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kweidner/pforte/pkg/record"
)

// collection holds one tenant's records plus its id sequence.
type collection struct {
	records []record.Record
	nextSeq int64
}

// Store is an in-memory record.Store. Inserts to a tenant's collection are
// serialized under the write lock, keeping id assignment unique and
// monotonic; queries run against a snapshot taken under the read lock.
type Store struct {
	mu           sync.RWMutex
	tenants      map[string]*collection
	searchFields []string
}

// Ensure Store implements record.Store at compile time.
var _ record.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithSearchFields overrides the fields consulted by the search stage.
func WithSearchFields(fields []string) Option {
	return func(s *Store) { s.searchFields = fields }
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		tenants:      make(map[string]*collection),
		searchFields: record.DefaultSearchFields,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert appends a record to the tenant's collection.
func (s *Store) Insert(_ context.Context, tenantID string, fields map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.tenants[tenantID]
	if !ok {
		c = &collection{nextSeq: 1}
		s.tenants[tenantID] = c
	}

	id := record.FormatID(tenantID, c.nextSeq)
	c.nextSeq++

	// Copy fields so later caller mutations cannot reach the collection.
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}

	c.records = append(c.records, record.Record{
		ID:        id,
		TenantID:  tenantID,
		Fields:    copied,
		CreatedAt: time.Now().UTC(),
	})

	return id, nil
}

// Query runs the pipeline against a snapshot of the tenant's collection.
// Writes that start after the snapshot is taken are not observed.
func (s *Store) Query(_ context.Context, tenantID string, q record.Query) (*record.Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var snapshot []record.Record
	if c, ok := s.tenants[tenantID]; ok {
		snapshot = c.records[:len(c.records):len(c.records)]
	}
	s.mu.RUnlock()

	return record.Apply(snapshot, q, s.searchFields), nil
}

// Delete removes a record from the tenant's collection.
func (s *Store) Delete(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.tenants[tenantID]
	if !ok {
		return record.ErrNotFound
	}

	for i, r := range c.records {
		if r.ID == id {
			c.records = append(c.records[:i:i], c.records[i+1:]...)
			return nil
		}
	}

	return record.ErrNotFound
}
