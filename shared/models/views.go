package models

import "time"

// TenantView is the public form of a tenant. Passwords, site credentials
// and site tokens never leave the server.
type TenantView struct {
	ID         uint64            `json:"id"`
	Name       string            `json:"name"`
	Kind       TenantKind        `json:"type"`
	ValidSites []SiteMappingView `json:"valid_sites,omitempty"`
}

// SiteMappingView is the public form of a tenant's identity at a site.
type SiteMappingView struct {
	SiteID       uint64 `json:"site_id"`
	RemoteUserID string `json:"remote_user_id"`
}

// View strips the secrets from t.
func (t *Tenant) View() TenantView {
	view := TenantView{ID: t.ID, Name: t.Name, Kind: t.Kind}
	for _, m := range t.ValidSites {
		view.ValidSites = append(view.ValidSites, SiteMappingView{
			SiteID:       m.SiteID,
			RemoteUserID: m.RemoteUserID,
		})
	}
	return view
}

// Token is a signed bearer token.
type Token struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Message answers requests that have no record to return.
type Message struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorBody is the body of every failed request.
type ErrorBody struct {
	Error   string `json:"error"`
	Success bool   `json:"success"`
	Details string `json:"details,omitempty"`
}
