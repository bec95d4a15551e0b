package api

import (
	"net/http"

	"github.com/saintparish4/fedsdn/shared/models"
)

const tenantAdminOnly = "User not authorized to access the tenant pool"

func (api *FedSDNAPI) handleListTenants(w http.ResponseWriter, r *http.Request) {
	if !api.requireAdmin(w, r, tenantAdminOnly) {
		return
	}
	tenants, err := api.service.Tenants.List(r.Context())
	if err != nil {
		api.writeFailure(w, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, tenantViews(tenants))
}

func (api *FedSDNAPI) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	if !api.requireAdmin(w, r, tenantAdminOnly) {
		return
	}
	var req models.TenantCreate
	if !api.decode(w, r, &req) {
		return
	}
	tenant, err := api.service.Tenants.Create(r.Context(), req)
	if err != nil {
		api.writeFailure(w, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, tenant.View())
}

func (api *FedSDNAPI) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	if !api.requireAdmin(w, r, tenantAdminOnly) {
		return
	}
	id, ok := api.pathID(w, r, "id")
	if !ok {
		return
	}
	tenant, err := api.service.Tenants.Get(r.Context(), id)
	if err != nil {
		api.writeFailure(w, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, tenant.View())
}

func (api *FedSDNAPI) handleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	if !api.requireAdmin(w, r, tenantAdminOnly) {
		return
	}
	id, ok := api.pathID(w, r, "id")
	if !ok {
		return
	}
	var patch models.TenantPatch
	if !api.decode(w, r, &patch) {
		return
	}
	tenant, err := api.service.Tenants.Update(r.Context(), id, patch)
	if err != nil {
		api.writeFailure(w, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, tenant.View())
}

func (api *FedSDNAPI) handleDeleteTenant(w http.ResponseWriter, r *http.Request) {
	if !api.requireAdmin(w, r, tenantAdminOnly) {
		return
	}
	id, ok := api.pathID(w, r, "id")
	if !ok {
		return
	}
	api.writeDeleted(w, "Tenant", id, api.service.Tenants.Delete(r.Context(), id))
}
