package federation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/saintparish4/fedsdn/control-plane/adapter"
	"github.com/saintparish4/fedsdn/control-plane/database"
	"github.com/saintparish4/fedsdn/shared/models"
)

// Tenants is the tenant and credential registry. Besides tenant CRUD it
// holds, per tenant and site, the identity obtained from the site's
// validate_user adapter.
type Tenants struct {
	tenants  *database.Table[models.Tenant]
	mappings *database.Table[models.TenantSiteMapping]
	sites    *Sites
	driver   adapter.Driver
	logger   *slog.Logger
}

// NewTenants creates the tenant registry.
func NewTenants(store *database.Store, sites *Sites, driver adapter.Driver, logger *slog.Logger) *Tenants {
	return &Tenants{
		tenants:  database.NewTable[models.Tenant](store, database.TenantTable),
		mappings: database.NewTable[models.TenantSiteMapping](store, database.TenantSiteTable),
		sites:    sites,
		driver:   driver,
		logger:   logger,
	}
}

func parseTenantKind(kind models.TenantKind) (models.TenantKind, error) {
	switch kind {
	case "":
		return models.TenantKindUser, nil
	case models.TenantKindAdmin, models.TenantKindUser:
		return kind, nil
	default:
		return "", newError(KindValidation, "Unknown tenant type %q", kind)
	}
}

// Create stores a tenant and binds it to every site in req.ValidSites. The
// tenant row is written first; when a site rejects its credentials the
// operation fails but the tenant and the mappings stored so far remain.
func (t *Tenants) Create(ctx context.Context, req models.TenantCreate) (*models.Tenant, error) {
	if req.Name == "" || req.Password == "" {
		return nil, newError(KindValidation, "Malformed creation request for Tenant")
	}
	kind, err := parseTenantKind(req.Kind)
	if err != nil {
		return nil, err
	}

	id, err := t.tenants.Insert(ctx, models.Tenant{Name: req.Name, Password: req.Password, Kind: kind})
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("Tenant %s", req.Name))
	}
	t.logger.Info("Tenant created", "tenant_id", id, "name", req.Name, "type", kind)

	if err := t.bindSites(ctx, id, req.ValidSites); err != nil {
		return nil, err
	}
	return t.Get(ctx, id)
}

// bindSites validates each credential against its site and stores the
// resulting mapping. It stops at the first failure.
func (t *Tenants) bindSites(ctx context.Context, tenantID uint64, creds []models.SiteCredential) error {
	for _, cred := range creds {
		if cred.SiteID == 0 || cred.Credentials == "" {
			return newError(KindValidation, "Site description malformed, tenant creation failed")
		}
		site, err := t.sites.Get(ctx, cred.SiteID)
		if IsKind(err, KindNotFound) {
			return newError(KindValidation, "Cannot get site information. Does site with id %d exist?", cred.SiteID)
		}
		if err != nil {
			return err
		}

		username, password, _ := strings.Cut(cred.Credentials, ":")
		resp, res, err := adapter.ValidateUser(ctx, t.driver, site.Type, adapter.ValidateUserRequest{
			Username:    username,
			Password:    password,
			CMPEndpoint: site.CMPEndpoint,
		})
		switch {
		case err != nil:
			return &Error{Kind: KindAdapter, Message: fmt.Sprintf("Cannot validate tenant credentials for site %d", cred.SiteID), Err: err}
		case !res.Success():
			return &Error{Kind: KindAuth, Message: fmt.Sprintf("Invalid tenant credentials for site %d", cred.SiteID), Output: res.Output()}
		case resp.ReturnCode != 0:
			return &Error{Kind: KindAuth, Message: fmt.Sprintf("Invalid tenant credentials for site %d", cred.SiteID), Output: resp.ErrorMsg}
		}

		mapping := models.TenantSiteMapping{
			TenantID:     tenantID,
			SiteID:       cred.SiteID,
			RemoteUserID: string(resp.TenantID),
			Credentials:  cred.Credentials,
			Token:        resp.Token,
		}
		if _, err := t.mappings.Insert(ctx, mapping); err != nil {
			return storeError(err, "Tenant site mapping")
		}
		t.logger.Info("Tenant validated at site",
			"tenant_id", tenantID,
			"site_id", cred.SiteID,
			"remote_user_id", mapping.RemoteUserID)
	}
	return nil
}

// Get returns a tenant together with its site mappings.
func (t *Tenants) Get(ctx context.Context, id uint64) (*models.Tenant, error) {
	tenant, err := t.tenants.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("Tenant %d", id))
	}
	tenant.ValidSites, err = t.mappings.Filter(ctx, database.Where{"tenant_id": id})
	if err != nil {
		return nil, storeError(err, "Tenant site mapping")
	}
	return tenant, nil
}

// List returns every tenant without mappings.
func (t *Tenants) List(ctx context.Context) ([]models.Tenant, error) {
	tenants, err := t.tenants.Filter(ctx, nil)
	if err != nil {
		return nil, storeError(err, "Tenant")
	}
	return tenants, nil
}

// Update patches a tenant. A non-nil ValidSites first drops every mapping
// of the tenant and then validates the new entries as Create does.
func (t *Tenants) Update(ctx context.Context, id uint64, patch models.TenantPatch) (*models.Tenant, error) {
	if _, err := t.tenants.Get(ctx, id); err != nil {
		return nil, storeError(err, fmt.Sprintf("Tenant %d", id))
	}
	if patch.Kind != nil {
		kind, err := parseTenantKind(*patch.Kind)
		if err != nil {
			return nil, err
		}
		patch.Kind = &kind
	}
	if (patch.Name != nil && *patch.Name == "") || (patch.Password != nil && *patch.Password == "") {
		return nil, newError(KindValidation, "Tenant name and password cannot be empty")
	}

	if patch.ValidSites != nil {
		if _, err := t.mappings.DeleteWhere(ctx, database.Where{"tenant_id": id}); err != nil {
			return nil, storeError(err, "Tenant site mapping")
		}
		if err := t.bindSites(ctx, id, *patch.ValidSites); err != nil {
			return nil, err
		}
		patch.ValidSites = nil
	}

	changes, err := database.PatchOf(patch)
	if err != nil {
		return nil, newError(KindValidation, "Malformed update request for Tenant %d", id)
	}
	if len(changes) > 0 {
		if _, err := t.tenants.UpdateWhere(ctx, database.ByID(id), changes); err != nil {
			return nil, storeError(err, fmt.Sprintf("Tenant %d", id))
		}
	}
	t.logger.Info("Tenant updated", "tenant_id", id)
	return t.Get(ctx, id)
}

// Delete removes a tenant and all of its site mappings.
func (t *Tenants) Delete(ctx context.Context, id uint64) error {
	if _, err := t.tenants.Get(ctx, id); err != nil {
		return storeError(err, fmt.Sprintf("Tenant %d", id))
	}
	if _, err := t.mappings.DeleteWhere(ctx, database.Where{"tenant_id": id}); err != nil {
		return storeError(err, "Tenant site mapping")
	}
	if _, err := t.tenants.DeleteWhere(ctx, database.ByID(id)); err != nil {
		return storeError(err, fmt.Sprintf("Tenant %d", id))
	}
	t.logger.Info("Tenant deleted", "tenant_id", id)
	return nil
}

// ByName returns the tenant called name, without mappings.
func (t *Tenants) ByName(ctx context.Context, name string) (*models.Tenant, error) {
	tenant, err := t.tenants.First(ctx, database.Where{"name": name})
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("Tenant %s", name))
	}
	return tenant, nil
}

// IsAdmin reports whether name is an administrator. Unknown tenants are
// not.
func (t *Tenants) IsAdmin(ctx context.Context, name string) (bool, error) {
	tenant, err := t.ByName(ctx, name)
	if IsKind(err, KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return tenant.IsAdmin(), nil
}

// Mapping returns the identity of name at a site.
func (t *Tenants) Mapping(ctx context.Context, name string, siteID uint64) (*models.TenantSiteMapping, error) {
	tenant, err := t.ByName(ctx, name)
	if err != nil {
		return nil, err
	}
	mapping, err := t.mappings.First(ctx, database.Where{"tenant_id": tenant.ID, "site_id": siteID})
	if errors.Is(err, database.ErrNotFound) {
		return nil, newError(KindNotFound, "Tenant %s not valid in site %d", name, siteID)
	}
	if err != nil {
		return nil, storeError(err, "Tenant site mapping")
	}
	return mapping, nil
}

// IsSiteValid reports whether name has been validated at a site.
func (t *Tenants) IsSiteValid(ctx context.Context, name string, siteID uint64) (bool, error) {
	_, err := t.Mapping(ctx, name, siteID)
	if IsKind(err, KindNotFound) {
		return false, nil
	}
	return err == nil, err
}

// IdentityAtSite returns the remote user id of name at a site.
func (t *Tenants) IdentityAtSite(ctx context.Context, name string, siteID uint64) (string, error) {
	mapping, err := t.Mapping(ctx, name, siteID)
	if err != nil {
		return "", err
	}
	return mapping.RemoteUserID, nil
}

// Token returns the token name obtained from a site.
func (t *Tenants) Token(ctx context.Context, name string, siteID uint64) (string, error) {
	mapping, err := t.Mapping(ctx, name, siteID)
	if err != nil {
		return "", err
	}
	return mapping.Token, nil
}

// Password returns the stored password of name. It is consumed by the
// authentication boundary only.
func (t *Tenants) Password(ctx context.Context, name string) (string, error) {
	tenant, err := t.ByName(ctx, name)
	if err != nil {
		return "", err
	}
	return tenant.Password, nil
}
