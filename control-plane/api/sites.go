package api

import (
	"net/http"

	"github.com/saintparish4/fedsdn/shared/models"
)

const siteAdminOnly = "User not authorized to modify the site pool"

func (api *FedSDNAPI) handleListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := api.service.Sites.List(r.Context())
	api.writeResult(w, orEmpty(sites), err)
}

func (api *FedSDNAPI) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	if !api.requireAdmin(w, r, siteAdminOnly) {
		return
	}
	var site models.Site
	if !api.decode(w, r, &site) {
		return
	}
	created, err := api.service.Sites.Create(r.Context(), site)
	api.writeResult(w, created, err)
}

func (api *FedSDNAPI) handleGetSite(w http.ResponseWriter, r *http.Request) {
	id, ok := api.pathID(w, r, "id")
	if !ok {
		return
	}
	site, err := api.service.Sites.Get(r.Context(), id)
	api.writeResult(w, site, err)
}

func (api *FedSDNAPI) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	if !api.requireAdmin(w, r, siteAdminOnly) {
		return
	}
	id, ok := api.pathID(w, r, "id")
	if !ok {
		return
	}
	var patch models.SitePatch
	if !api.decode(w, r, &patch) {
		return
	}
	site, err := api.service.Sites.Update(r.Context(), id, patch)
	api.writeResult(w, site, err)
}

func (api *FedSDNAPI) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	if !api.requireAdmin(w, r, siteAdminOnly) {
		return
	}
	id, ok := api.pathID(w, r, "id")
	if !ok {
		return
	}
	api.writeDeleted(w, "Site", id, api.service.Sites.Delete(r.Context(), id))
}
