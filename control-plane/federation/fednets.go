package federation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/saintparish4/fedsdn/control-plane/adapter"
	"github.com/saintparish4/fedsdn/control-plane/database"
	"github.com/saintparish4/fedsdn/shared/models"
)

// FedNets owns the lifecycle of federated networks.
type FedNets struct {
	fednets  *database.Table[models.FedNet]
	sites    *Sites
	tenants  *Tenants
	segments *Segments
	driver   adapter.Driver
	logger   *slog.Logger
}

// NewFedNets creates the federated network orchestrator.
func NewFedNets(store *database.Store, sites *Sites, tenants *Tenants, segments *Segments, driver adapter.Driver, logger *slog.Logger) *FedNets {
	return &FedNets{
		fednets:  database.NewTable[models.FedNet](store, database.FedNetTable),
		sites:    sites,
		tenants:  tenants,
		segments: segments,
		driver:   driver,
		logger:   logger,
	}
}

// Create stores a new unlinked fednet owned by the caller.
func (f *FedNets) Create(ctx context.Context, caller Caller, fednet models.FedNet) (*models.FedNet, error) {
	if fednet.Name == "" || fednet.Type == "" || fednet.LinkType == "" {
		return nil, newError(KindValidation, "Malformed creation request for Federated Network")
	}
	fednet.ID = 0
	fednet.Owner = caller.Name
	fednet.Status = models.FedNetUnlinked
	fednet.NetSegments = nil

	id, err := f.fednets.Insert(ctx, fednet)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("Federated Network %s", fednet.Name))
	}
	f.logger.Info("Federated network created", "fednet_id", id, "name", fednet.Name, "owner", caller.Name)
	return f.Get(ctx, caller, id)
}

// List returns every fednet for administrators and the owned ones for
// everybody else.
func (f *FedNets) List(ctx context.Context, caller Caller) ([]models.FedNet, error) {
	var where database.Where
	if !caller.Admin {
		where = database.Where{"owner": caller.Name}
	}
	fednets, err := f.fednets.Filter(ctx, where)
	if err != nil {
		return nil, storeError(err, "Federated Network")
	}
	return fednets, nil
}

func (f *FedNets) load(ctx context.Context, id uint64) (*models.FedNet, error) {
	fednet, err := f.fednets.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("Federated Network %d", id))
	}
	return fednet, nil
}

// Get returns a fednet with its member segments.
func (f *FedNets) Get(ctx context.Context, caller Caller, id uint64) (*models.FedNet, error) {
	fednet, err := f.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(fednet.Owner) {
		return nil, newError(KindForbidden, "Access to Federated Network %d is not allowed", id)
	}
	fednet.NetSegments, err = f.segments.ListForFedNet(ctx, id, fednet.Owner)
	if err != nil {
		return nil, err
	}
	return fednet, nil
}

// Update patches a fednet. A status of "link" runs the link transition
// first; the patch is only applied when every link adapter succeeded.
func (f *FedNets) Update(ctx context.Context, caller Caller, id uint64, patch models.FedNetPatch) (*models.FedNet, error) {
	fednet, err := f.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.owns(fednet.Owner) {
		return nil, newError(KindForbidden, "Updating Federated Network %d is not allowed", id)
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, newError(KindValidation, "Federated Network name cannot be empty")
	}

	if patch.Status != nil {
		if *patch.Status != models.FedNetLink {
			return nil, newError(KindValidation, "Federated Network status can only be set to %q", models.FedNetLink)
		}
		if err := f.link(ctx, fednet, patch); err != nil {
			return nil, err
		}
		linked := models.FedNetLinked
		patch.Status = &linked
	}

	changes, err := database.PatchOf(patch)
	if err != nil {
		return nil, newError(KindValidation, "Malformed update request for Federated Network %d", id)
	}
	if _, err := f.fednets.UpdateWhere(ctx, database.ByID(id), changes); err != nil {
		return nil, storeError(err, fmt.Sprintf("Federated Network %d", id))
	}
	f.logger.Info("Federated network updated", "fednet_id", id)
	return f.Get(ctx, caller, id)
}

// linkGroup is one link adapter call: all member segments share it, the
// token comes from the first segment hosted at a site of the kind.
type linkGroup struct {
	kind  models.SiteKind
	token string
}

// link connects the member segments of fednet. The segments owned by the
// fednet's owner are gathered across sites and the link adapter of every
// site kind represented among them is invoked once with the full endpoint
// and network tables.
func (f *FedNets) link(ctx context.Context, fednet *models.FedNet, patch models.FedNetPatch) error {
	segs, err := f.segments.ListForFedNet(ctx, fednet.ID, fednet.Owner)
	if err != nil {
		return err
	}

	linkType := fednet.LinkType
	if patch.LinkType != nil {
		linkType = *patch.LinkType
	}
	req := adapter.LinkRequest{
		Type:         linkType,
		FAEndpoints:  make([]string, 0, len(segs)),
		NetworkTable: make([]adapter.NetworkDescriptor, 0, len(segs)),
	}
	var groups []linkGroup
	seen := map[models.SiteKind]bool{}
	sites := map[uint64]*models.Site{}

	for _, seg := range segs {
		site, ok := sites[seg.SiteID]
		if !ok {
			site, err = f.sites.Get(ctx, seg.SiteID)
			if err != nil {
				return err
			}
			sites[seg.SiteID] = site
		}
		mapping, err := f.tenants.Mapping(ctx, fednet.Owner, seg.SiteID)
		if IsKind(err, KindNotFound) {
			return &Error{Kind: KindAuth, Message: fmt.Sprintf("Tenant %s has no identity at site %s", fednet.Owner, site.Name), Err: err}
		}
		if err != nil {
			return err
		}

		req.FAEndpoints = append(req.FAEndpoints, seg.FAEndpoint)
		req.NetworkTable = append(req.NetworkTable, adapter.NetworkDescriptor{
			Name:     seg.Name,
			VNID:     seg.CMPNetID,
			Site:     site.Name,
			TenantID: mapping.RemoteUserID,
			CMPBlob:  seg.CMPBlob,
		})
		if !seen[site.Type] {
			seen[site.Type] = true
			groups = append(groups, linkGroup{kind: site.Type, token: site.Type.Secret(*mapping)})
		}
	}

	for _, group := range groups {
		req.Token = group.token
		resp, res, err := adapter.Link(ctx, f.driver, group.kind, req)
		msg := "Couldn't perform link operation"
		switch {
		case err != nil:
			return &Error{Kind: KindAdapter, Message: msg, Err: err}
		case !res.Success():
			return &Error{Kind: KindAdapter, Message: msg, Output: res.Output()}
		case resp.ReturnCode != 0:
			return &Error{Kind: KindAdapter, Message: msg, Output: resp.ErrorMsg}
		}
		f.logger.Info("Federated network linked at site kind",
			"fednet_id", fednet.ID,
			"site_type", group.kind,
			"segments", len(segs))
	}
	return nil
}

// Delete removes a fednet. Its segments are left in place.
func (f *FedNets) Delete(ctx context.Context, caller Caller, id uint64) error {
	fednet, err := f.load(ctx, id)
	if err != nil {
		return err
	}
	if !caller.owns(fednet.Owner) {
		return newError(KindForbidden, "Deleting Federated Network %d is not allowed", id)
	}
	if _, err := f.fednets.DeleteWhere(ctx, database.ByID(id)); err != nil {
		return storeError(err, fmt.Sprintf("Federated Network %d", id))
	}
	f.logger.Info("Federated network deleted", "fednet_id", id)
	return nil
}
