package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSiteKind(t *testing.T) {
	tests := []struct {
		in   string
		want SiteKind
	}{
		{"OpenNebula", SiteKindOpenNebula},
		{" openstack ", SiteKindOpenStack},
		{"vSphere", SiteKind("vsphere")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSiteKind(tt.in))
		})
	}
}

func TestSiteKindValid(t *testing.T) {
	assert.True(t, SiteKindOpenNebula.Valid())
	assert.True(t, SiteKind("vsphere").Valid())
	for _, bad := range []string{"", "  ", "a/b", `a\b`, "..", "../../usr/bin"} {
		assert.False(t, ParseSiteKind(bad).Valid(), bad)
	}
}

func TestSiteKindSecret(t *testing.T) {
	m := TenantSiteMapping{Credentials: "oneadmin:secret", Token: "tok-123"}

	assert.Equal(t, "oneadmin:secret", SiteKindOpenNebula.Secret(m))
	assert.Equal(t, "tok-123", SiteKindOpenStack.Secret(m))
	assert.Equal(t, "tok-123", SiteKind("other").Secret(m))
}
