// Package federation implements the federation orchestration engine: the
// site, tenant, network segment and federated network registries together
// with the authorization rules that bind them.
//
// Multi-step operations are not transactional. A tenant
// created with several site credentials keeps the mappings validated
// before a failing entry, and a link transition that fails on a later site
// kind does not undo the adapters already invoked.
package federation

import (
	"log/slog"

	"github.com/saintparish4/fedsdn/control-plane/adapter"
	"github.com/saintparish4/fedsdn/control-plane/database"
)

// Caller is the authenticated tenant on whose behalf an operation runs.
type Caller struct {
	Name  string
	Admin bool
}

// owns reports whether the caller may act on a record owned by owner.
func (c Caller) owns(owner string) bool {
	return c.Admin || c.Name == owner
}

// Service bundles the registries sharing one store and one adapter driver.
type Service struct {
	Sites    *Sites
	Tenants  *Tenants
	Segments *Segments
	FedNets  *FedNets
}

// NewService wires the registries on top of store and driver.
func NewService(store *database.Store, driver adapter.Driver, logger *slog.Logger) *Service {
	sites := NewSites(store, logger)
	tenants := NewTenants(store, sites, driver, logger)
	segments := NewSegments(store, sites, tenants, driver, logger)
	fednets := NewFedNets(store, sites, tenants, segments, driver, logger)
	return &Service{
		Sites:    sites,
		Tenants:  tenants,
		Segments: segments,
		FedNets:  fednets,
	}
}
