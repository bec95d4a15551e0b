package federation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/saintparish4/fedsdn/control-plane/adapter"
	"github.com/saintparish4/fedsdn/control-plane/database"
	"github.com/saintparish4/fedsdn/shared/models"
)

// Segments orchestrates network segments inside a (fednet, site) scope.
type Segments struct {
	segments *database.Table[models.NetSegment]
	fednets  *database.Table[models.FedNet]
	sites    *Sites
	tenants  *Tenants
	driver   adapter.Driver
	logger   *slog.Logger
}

// NewSegments creates the segment orchestrator.
func NewSegments(store *database.Store, sites *Sites, tenants *Tenants, driver adapter.Driver, logger *slog.Logger) *Segments {
	return &Segments{
		segments: database.NewTable[models.NetSegment](store, database.NetSegmentTable),
		fednets:  database.NewTable[models.FedNet](store, database.FedNetTable),
		sites:    sites,
		tenants:  tenants,
		driver:   driver,
		logger:   logger,
	}
}

func scope(fednetID, siteID uint64) database.Where {
	return database.Where{"fednet_id": fednetID, "site_id": siteID}
}

// Create provisions a segment at a site and attaches it to a fednet.
// Ordinary tenants must be validated at the site and own the fednet. The
// site's add_networksegment adapter supplies the descriptor kept in
// cmp_blob.
func (s *Segments) Create(ctx context.Context, caller Caller, fednetID, siteID uint64, seg models.NetSegment) (*models.NetSegment, error) {
	fednet, err := s.fednets.Get(ctx, fednetID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, storeError(err, "Federated Network")
	}
	if !caller.Admin {
		valid, err := s.tenants.IsSiteValid(ctx, caller.Name, siteID)
		if err != nil {
			return nil, err
		}
		if !valid {
			return nil, newError(KindForbidden, "Access to Site %d is not allowed", siteID)
		}
		if fednet == nil || fednet.Owner != caller.Name {
			return nil, newError(KindForbidden, "Access to Federated Network %d is not allowed", fednetID)
		}
	}
	if fednet == nil {
		return nil, newError(KindNotFound, "Federated Network %d not found", fednetID)
	}
	if seg.FAEndpoint == "" || seg.Name == "" {
		return nil, newError(KindValidation, "Malformed creation request for Network Segment")
	}

	site, err := s.sites.Get(ctx, siteID)
	if err != nil {
		return nil, err
	}
	mapping, err := s.tenants.Mapping(ctx, caller.Name, siteID)
	if err != nil {
		return nil, err
	}

	resp, res, err := adapter.AddNetworkSegment(ctx, s.driver, site.Type, adapter.AddNetworkSegmentRequest{
		NetworkSegmentID: seg.CMPNetID,
		CMPEndpoint:      site.CMPEndpoint,
		Token:            site.Type.Secret(*mapping),
	})
	msg := fmt.Sprintf("Cannot get network information for network %s on site %d", seg.CMPNetID, siteID)
	switch {
	case err != nil:
		return nil, &Error{Kind: KindAdapter, Message: msg, Err: err}
	case !res.Success():
		return nil, &Error{Kind: KindAdapter, Message: msg, Output: res.Output()}
	case resp.ReturnCode != 0:
		return nil, &Error{Kind: KindAdapter, Message: msg, Output: resp.ErrorMsg}
	}

	seg.ID = 0
	seg.Owner = caller.Name
	seg.FedNetID = fednetID
	seg.SiteID = siteID
	seg.CMPBlob = adapter.BlobText(resp.NetworkInfo)
	id, err := s.segments.Insert(ctx, seg)
	if err != nil {
		return nil, storeError(err, "Network Segment")
	}
	s.logger.Info("Network segment created",
		"netsegment_id", id,
		"fednet_id", fednetID,
		"site_id", siteID,
		"owner", caller.Name)
	return s.get(ctx, fednetID, siteID, id)
}

// List returns the segments of a (fednet, site) scope. Ordinary tenants
// only see their own.
func (s *Segments) List(ctx context.Context, caller Caller, fednetID, siteID uint64) ([]models.NetSegment, error) {
	where := scope(fednetID, siteID)
	if !caller.Admin {
		where["owner"] = caller.Name
	}
	segs, err := s.segments.Filter(ctx, where)
	if err != nil {
		return nil, storeError(err, "Network Segment")
	}
	return segs, nil
}

// Get returns one segment of a scope. Ordinary tenants must own it.
func (s *Segments) Get(ctx context.Context, caller Caller, fednetID, siteID, id uint64) (*models.NetSegment, error) {
	seg, err := s.get(ctx, fednetID, siteID, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(seg.Owner) {
		return nil, newError(KindForbidden, "Access to Network Segment %d is not allowed", id)
	}
	return seg, nil
}

func (s *Segments) get(ctx context.Context, fednetID, siteID, id uint64) (*models.NetSegment, error) {
	where := scope(fednetID, siteID)
	where[database.IDField] = id
	seg, err := s.segments.First(ctx, where)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("Network Segment %d", id))
	}
	return seg, nil
}

// Update patches a segment. The descriptor and scope stay as created.
func (s *Segments) Update(ctx context.Context, caller Caller, fednetID, siteID, id uint64, patch models.NetSegmentPatch) (*models.NetSegment, error) {
	seg, err := s.get(ctx, fednetID, siteID, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(seg.Owner) {
		return nil, newError(KindForbidden, "Updating Network Segment %d is not allowed", id)
	}
	if (patch.Name != nil && *patch.Name == "") || (patch.FAEndpoint != nil && *patch.FAEndpoint == "") {
		return nil, newError(KindValidation, "Network Segment name and fa_endpoint cannot be empty")
	}
	changes, err := database.PatchOf(patch)
	if err != nil {
		return nil, newError(KindValidation, "Malformed update request for Network Segment %d", id)
	}
	if _, err := s.segments.UpdateWhere(ctx, database.ByID(id), changes); err != nil {
		return nil, storeError(err, fmt.Sprintf("Network Segment %d", id))
	}
	s.logger.Info("Network segment updated", "netsegment_id", id)
	return s.get(ctx, fednetID, siteID, id)
}

// Delete removes a segment from its scope.
func (s *Segments) Delete(ctx context.Context, caller Caller, fednetID, siteID, id uint64) error {
	seg, err := s.get(ctx, fednetID, siteID, id)
	if err != nil {
		return err
	}
	if !caller.owns(seg.Owner) {
		return newError(KindForbidden, "Deleting Network Segment %d is not allowed", id)
	}
	if _, err := s.segments.DeleteWhere(ctx, database.ByID(id)); err != nil {
		return storeError(err, fmt.Sprintf("Network Segment %d", id))
	}
	s.logger.Info("Network segment deleted", "netsegment_id", id)
	return nil
}

// ListForFedNet returns every segment of a fednet owned by owner, across
// all sites, in id order.
func (s *Segments) ListForFedNet(ctx context.Context, fednetID uint64, owner string) ([]models.NetSegment, error) {
	segs, err := s.segments.Filter(ctx, database.Where{"fednet_id": fednetID, "owner": owner})
	if err != nil {
		return nil, storeError(err, "Network Segment")
	}
	return segs, nil
}
