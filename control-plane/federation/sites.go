package federation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saintparish4/fedsdn/control-plane/database"
	"github.com/saintparish4/fedsdn/shared/models"
)

// Sites is the registry of federated sites. Site metadata is not tenant
// scoped; write access is restricted to administrators at the boundary.
type Sites struct {
	sites  *database.Table[models.Site]
	logger *slog.Logger
}

// NewSites creates the site registry.
func NewSites(store *database.Store, logger *slog.Logger) *Sites {
	return &Sites{
		sites:  database.NewTable[models.Site](store, database.SiteTable),
		logger: logger,
	}
}

// Create registers a site. Name and management endpoint are required and
// the name must be unique.
func (s *Sites) Create(ctx context.Context, site models.Site) (*models.Site, error) {
	if site.Name == "" || site.CMPEndpoint == "" {
		return nil, newError(KindValidation, "Malformed creation request for Site")
	}
	site.ID = 0
	site.Type = models.ParseSiteKind(string(site.Type))
	if !site.Type.Valid() {
		return nil, newError(KindValidation, "Invalid Site type %q", site.Type)
	}

	id, err := s.sites.Insert(ctx, site)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("Site %s", site.Name))
	}
	s.logger.Info("Site created", "site_id", id, "name", site.Name, "type", site.Type)
	return s.Get(ctx, id)
}

// Get returns the site with the given id.
func (s *Sites) Get(ctx context.Context, id uint64) (*models.Site, error) {
	site, err := s.sites.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("Site %d", id))
	}
	return site, nil
}

// List returns every site.
func (s *Sites) List(ctx context.Context) ([]models.Site, error) {
	sites, err := s.sites.Filter(ctx, nil)
	if err != nil {
		return nil, storeError(err, "Site")
	}
	return sites, nil
}

// Update patches a site.
func (s *Sites) Update(ctx context.Context, id uint64, patch models.SitePatch) (*models.Site, error) {
	if patch.Type != nil {
		kind := models.ParseSiteKind(*patch.Type)
		if !kind.Valid() {
			return nil, newError(KindValidation, "Invalid Site type %q", kind)
		}
		name := kind.String()
		patch.Type = &name
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, newError(KindValidation, "Site name cannot be empty")
	}
	if patch.CMPEndpoint != nil && *patch.CMPEndpoint == "" {
		return nil, newError(KindValidation, "Site cmp_endpoint cannot be empty")
	}
	changes, err := database.PatchOf(patch)
	if err != nil {
		return nil, newError(KindValidation, "Malformed update request for Site %d", id)
	}
	n, err := s.sites.UpdateWhere(ctx, database.ByID(id), changes)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("Site %d", id))
	}
	if n == 0 {
		return nil, newError(KindNotFound, "Site %d not found", id)
	}
	s.logger.Info("Site updated", "site_id", id)
	return s.Get(ctx, id)
}

// Delete removes a site. Mappings and segments referring to it are left in
// place.
func (s *Sites) Delete(ctx context.Context, id uint64) error {
	n, err := s.sites.DeleteWhere(ctx, database.ByID(id))
	if err != nil {
		return storeError(err, fmt.Sprintf("Site %d", id))
	}
	if n == 0 {
		return newError(KindNotFound, "Site %d not found", id)
	}
	s.logger.Info("Site deleted", "site_id", id)
	return nil
}
