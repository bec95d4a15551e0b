package api

import (
	"github.com/saintparish4/fedsdn/shared/models"
)

func tenantViews(tenants []models.Tenant) []models.TenantView {
	views := make([]models.TenantView, 0, len(tenants))
	for i := range tenants {
		views = append(views, tenants[i].View())
	}
	return views
}

// orEmpty keeps empty lists encoded as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
