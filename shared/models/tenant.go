package models

// TenantKind separates administrators from ordinary tenants.
type TenantKind string

const (
	TenantKindAdmin TenantKind = "admin"
	TenantKindUser  TenantKind = "user"
)

// Tenant is the authentication principal of every request.
type Tenant struct {
	ID       uint64     `json:"id"`
	Name     string     `json:"name"`
	Password string     `json:"password"`
	Kind     TenantKind `json:"type"`

	// Relationships, never stored on the tenant row itself
	ValidSites []TenantSiteMapping `json:"valid_sites,omitempty"`
}

// IsAdmin reports whether the tenant has full access.
func (t *Tenant) IsAdmin() bool {
	return t.Kind == TenantKindAdmin
}

// TenantSiteMapping is the standing identity of a tenant at one site. A row
// only exists after the site's adapter accepted the credentials.
type TenantSiteMapping struct {
	ID           uint64 `json:"id"`
	TenantID     uint64 `json:"tenant_id"`
	SiteID       uint64 `json:"site_id"`
	RemoteUserID string `json:"remote_user_id"`
	Credentials  string `json:"credentials"`
	Token        string `json:"token"`
}

// SiteCredential is a request to map a tenant onto a site. Credentials use
// the "user:pass" form.
type SiteCredential struct {
	SiteID      uint64 `json:"site_id"`
	Credentials string `json:"credentials"`
}

// TenantCreate is a request to create a tenant. Every entry of ValidSites
// is validated against its site before the mapping is stored.
type TenantCreate struct {
	Name       string           `json:"name"`
	Password   string           `json:"password"`
	Kind       TenantKind       `json:"type,omitempty"`
	ValidSites []SiteCredential `json:"valid_sites,omitempty"`
}

// TenantPatch holds the mutable fields of a tenant. A non-nil ValidSites
// replaces every mapping of the tenant.
type TenantPatch struct {
	Name       *string           `json:"name,omitempty"`
	Password   *string           `json:"password,omitempty"`
	Kind       *TenantKind       `json:"type,omitempty"`
	ValidSites *[]SiteCredential `json:"valid_sites,omitempty"`
}
