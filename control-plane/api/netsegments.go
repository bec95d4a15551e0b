package api

import (
	"net/http"

	"github.com/saintparish4/fedsdn/shared/models"
)

// segmentScope parses the fednet and site ids every segment route carries.
func (api *FedSDNAPI) segmentScope(w http.ResponseWriter, r *http.Request) (fednetID, siteID uint64, ok bool) {
	if fednetID, ok = api.pathID(w, r, "fednet_id"); !ok {
		return 0, 0, false
	}
	if siteID, ok = api.pathID(w, r, "site_id"); !ok {
		return 0, 0, false
	}
	return fednetID, siteID, true
}

func (api *FedSDNAPI) handleListSegments(w http.ResponseWriter, r *http.Request) {
	fednetID, siteID, ok := api.segmentScope(w, r)
	if !ok {
		return
	}
	segments, err := api.service.Segments.List(r.Context(), callerFrom(r.Context()), fednetID, siteID)
	api.writeResult(w, orEmpty(segments), err)
}

func (api *FedSDNAPI) handleCreateSegment(w http.ResponseWriter, r *http.Request) {
	fednetID, siteID, ok := api.segmentScope(w, r)
	if !ok {
		return
	}
	var segment models.NetSegment
	if !api.decode(w, r, &segment) {
		return
	}
	created, err := api.service.Segments.Create(r.Context(), callerFrom(r.Context()), fednetID, siteID, segment)
	api.writeResult(w, created, err)
}

func (api *FedSDNAPI) handleGetSegment(w http.ResponseWriter, r *http.Request) {
	fednetID, siteID, ok := api.segmentScope(w, r)
	if !ok {
		return
	}
	id, ok := api.pathID(w, r, "id")
	if !ok {
		return
	}
	segment, err := api.service.Segments.Get(r.Context(), callerFrom(r.Context()), fednetID, siteID, id)
	api.writeResult(w, segment, err)
}

func (api *FedSDNAPI) handleUpdateSegment(w http.ResponseWriter, r *http.Request) {
	fednetID, siteID, ok := api.segmentScope(w, r)
	if !ok {
		return
	}
	id, ok := api.pathID(w, r, "id")
	if !ok {
		return
	}
	var patch models.NetSegmentPatch
	if !api.decode(w, r, &patch) {
		return
	}
	segment, err := api.service.Segments.Update(r.Context(), callerFrom(r.Context()), fednetID, siteID, id, patch)
	api.writeResult(w, segment, err)
}

func (api *FedSDNAPI) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	fednetID, siteID, ok := api.segmentScope(w, r)
	if !ok {
		return
	}
	id, ok := api.pathID(w, r, "id")
	if !ok {
		return
	}
	err := api.service.Segments.Delete(r.Context(), callerFrom(r.Context()), fednetID, siteID, id)
	api.writeDeleted(w, "NetSegment", id, err)
}
