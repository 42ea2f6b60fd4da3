// Package tenant holds the directory of known tenants and their display
// metadata. The directory is seeded at startup and read on every request;
// settings updates replace a single entry atomically so readers never
// observe a partially-updated tenant.
package tenant

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when a tenant id is not in the directory.
var ErrNotFound = errors.New("tenant not found")

// Tenant is an isolated customer partition with its display metadata.
// Tenants are created at provisioning time and never deleted.
type Tenant struct {
	ID             string
	DisplayName    string
	PrimaryColor   string
	SecondaryColor string
	LogoRef        string
	Theme          string
}

// Directory maps tenant ids to tenants. Reads vastly outnumber writes;
// a single RWMutex with whole-value entry replacement keeps updates atomic
// without cross-entry coordination.
type Directory struct {
	mu      sync.RWMutex
	entries map[string]Tenant
}

// NewDirectory creates a directory seeded with the given tenants.
func NewDirectory(seed []Tenant) (*Directory, error) {
	d := &Directory{entries: make(map[string]Tenant, len(seed))}
	for _, t := range seed {
		if t.ID == "" {
			return nil, fmt.Errorf("tenant with empty id in seed")
		}
		if _, exists := d.entries[t.ID]; exists {
			return nil, fmt.Errorf("duplicate tenant id %q in seed", t.ID)
		}
		d.entries[t.ID] = t
	}
	return d, nil
}

// Exists reports whether the tenant id is known.
func (d *Directory) Exists(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entries[id]
	return ok
}

// Get returns the tenant for the given id, or ErrNotFound.
func (d *Directory) Get(id string) (Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.entries[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

// Update replaces a tenant's entry with new settings. The tenant must
// already exist; the directory never grows through settings updates.
func (d *Directory) Update(t Tenant) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[t.ID]; !ok {
		return ErrNotFound
	}
	d.entries[t.ID] = t
	return nil
}

// IDs returns all known tenant ids in sorted order.
func (d *Directory) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.entries))
	for id := range d.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
