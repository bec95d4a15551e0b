package api

import (
	"net/http"

	"github.com/saintparish4/fedsdn/shared/models"
)

func (api *FedSDNAPI) handleListFedNets(w http.ResponseWriter, r *http.Request) {
	fednets, err := api.service.FedNets.List(r.Context(), callerFrom(r.Context()))
	api.writeResult(w, orEmpty(fednets), err)
}

func (api *FedSDNAPI) handleCreateFedNet(w http.ResponseWriter, r *http.Request) {
	var fednet models.FedNet
	if !api.decode(w, r, &fednet) {
		return
	}
	created, err := api.service.FedNets.Create(r.Context(), callerFrom(r.Context()), fednet)
	api.writeResult(w, created, err)
}

func (api *FedSDNAPI) handleGetFedNet(w http.ResponseWriter, r *http.Request) {
	id, ok := api.pathID(w, r, "id")
	if !ok {
		return
	}
	fednet, err := api.service.FedNets.Get(r.Context(), callerFrom(r.Context()), id)
	api.writeResult(w, fednet, err)
}

// handleUpdateFedNet patches a federated network. A status of "link" runs
// the link transition across every site hosting one of its segments.
func (api *FedSDNAPI) handleUpdateFedNet(w http.ResponseWriter, r *http.Request) {
	id, ok := api.pathID(w, r, "id")
	if !ok {
		return
	}
	var patch models.FedNetPatch
	if !api.decode(w, r, &patch) {
		return
	}
	fednet, err := api.service.FedNets.Update(r.Context(), callerFrom(r.Context()), id, patch)
	api.writeResult(w, fednet, err)
}

func (api *FedSDNAPI) handleDeleteFedNet(w http.ResponseWriter, r *http.Request) {
	id, ok := api.pathID(w, r, "id")
	if !ok {
		return
	}
	err := api.service.FedNets.Delete(r.Context(), callerFrom(r.Context()), id)
	api.writeDeleted(w, "FedNet", id, err)
}
