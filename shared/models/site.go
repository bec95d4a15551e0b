package models

import "strings"

// SiteKind identifies the cloud management platform running at a site.
// The kind decides which adapter directory is used and which secret the
// tenant presents to it.
type SiteKind string

const (
	SiteKindOpenNebula SiteKind = "opennebula"
	SiteKindOpenStack  SiteKind = "openstack"
)

// ParseSiteKind normalizes a site type tag as sent by clients.
func ParseSiteKind(s string) SiteKind {
	return SiteKind(strings.ToLower(strings.TrimSpace(s)))
}

// Valid reports whether the kind can name an adapter directory: it must be
// non-empty and a single path element.
func (k SiteKind) Valid() bool {
	s := string(k)
	return s != "" && !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "..")
}

// AdapterDir is the directory name of the adapters serving this kind.
func (k SiteKind) AdapterDir() string {
	return strings.ToLower(string(k))
}

// Secret returns the identity a tenant presents to adapters of this kind.
// OpenNebula drivers authenticate with the raw "user:pass" credentials,
// every other kind with the token obtained during validate_user.
func (k SiteKind) Secret(m TenantSiteMapping) string {
	switch k {
	case SiteKindOpenNebula:
		return m.Credentials
	default:
		return m.Token
	}
}

func (k SiteKind) String() string {
	return string(k)
}

// Site is an independently administered cloud installation taking part
// in the federation.
type Site struct {
	ID          uint64   `json:"id"`
	Name        string   `json:"name"`
	Type        SiteKind `json:"type"`
	CMPEndpoint string   `json:"cmp_endpoint"`
}

// SitePatch holds the mutable fields of a site. Nil fields are left alone.
type SitePatch struct {
	Name        *string `json:"name,omitempty"`
	Type        *string `json:"type,omitempty"`
	CMPEndpoint *string `json:"cmp_endpoint,omitempty"`
}
