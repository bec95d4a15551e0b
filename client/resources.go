package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/saintparish4/fedsdn/shared/models"
)

// record sends a request answered by a single record.
func record[T any](ctx context.Context, c *Client, method, path string, in any) (*T, error) {
	var out T
	if err := c.do(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// list fetches a collection. An empty collection is an empty slice.
func list[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	out := []T{}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Federated networks

func (c *Client) CreateFedNet(ctx context.Context, fednet models.FedNet) (*models.FedNet, error) {
	return record[models.FedNet](ctx, c, http.MethodPost, "/fednet", fednet)
}

func (c *Client) FedNets(ctx context.Context) ([]models.FedNet, error) {
	return list[models.FedNet](ctx, c, "/fednet")
}

func (c *Client) FedNet(ctx context.Context, id uint64) (*models.FedNet, error) {
	return record[models.FedNet](ctx, c, http.MethodGet, fmt.Sprintf("/fednet/%d", id), nil)
}

func (c *Client) UpdateFedNet(ctx context.Context, id uint64, patch models.FedNetPatch) (*models.FedNet, error) {
	return record[models.FedNet](ctx, c, http.MethodPut, fmt.Sprintf("/fednet/%d", id), patch)
}

// LinkFedNet runs the link transition of a federated network.
func (c *Client) LinkFedNet(ctx context.Context, id uint64) (*models.FedNet, error) {
	status := models.FedNetLink
	return c.UpdateFedNet(ctx, id, models.FedNetPatch{Status: &status})
}

func (c *Client) DeleteFedNet(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/fednet/%d", id), nil, nil)
}

// Sites

func (c *Client) CreateSite(ctx context.Context, site models.Site) (*models.Site, error) {
	return record[models.Site](ctx, c, http.MethodPost, "/fednet/site", site)
}

func (c *Client) Sites(ctx context.Context) ([]models.Site, error) {
	return list[models.Site](ctx, c, "/fednet/site")
}

func (c *Client) Site(ctx context.Context, id uint64) (*models.Site, error) {
	return record[models.Site](ctx, c, http.MethodGet, fmt.Sprintf("/fednet/site/%d", id), nil)
}

func (c *Client) UpdateSite(ctx context.Context, id uint64, patch models.SitePatch) (*models.Site, error) {
	return record[models.Site](ctx, c, http.MethodPut, fmt.Sprintf("/fednet/site/%d", id), patch)
}

func (c *Client) DeleteSite(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/fednet/site/%d", id), nil, nil)
}

// Network segments

func segmentPath(fednetID, siteID uint64) string {
	return fmt.Sprintf("/fednet/%d/%d/netsegment", fednetID, siteID)
}

func (c *Client) CreateNetSegment(ctx context.Context, fednetID, siteID uint64, seg models.NetSegment) (*models.NetSegment, error) {
	return record[models.NetSegment](ctx, c, http.MethodPost, segmentPath(fednetID, siteID), seg)
}

func (c *Client) NetSegments(ctx context.Context, fednetID, siteID uint64) ([]models.NetSegment, error) {
	return list[models.NetSegment](ctx, c, segmentPath(fednetID, siteID))
}

func (c *Client) NetSegment(ctx context.Context, fednetID, siteID, id uint64) (*models.NetSegment, error) {
	return record[models.NetSegment](ctx, c, http.MethodGet, fmt.Sprintf("%s/%d", segmentPath(fednetID, siteID), id), nil)
}

func (c *Client) UpdateNetSegment(ctx context.Context, fednetID, siteID, id uint64, patch models.NetSegmentPatch) (*models.NetSegment, error) {
	return record[models.NetSegment](ctx, c, http.MethodPut, fmt.Sprintf("%s/%d", segmentPath(fednetID, siteID), id), patch)
}

func (c *Client) DeleteNetSegment(ctx context.Context, fednetID, siteID, id uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%d", segmentPath(fednetID, siteID), id), nil, nil)
}

// Tenants

func (c *Client) CreateTenant(ctx context.Context, tenant models.TenantCreate) (*models.TenantView, error) {
	return record[models.TenantView](ctx, c, http.MethodPost, "/fednet/tenant", tenant)
}

func (c *Client) Tenants(ctx context.Context) ([]models.TenantView, error) {
	return list[models.TenantView](ctx, c, "/fednet/tenant")
}

func (c *Client) Tenant(ctx context.Context, id uint64) (*models.TenantView, error) {
	return record[models.TenantView](ctx, c, http.MethodGet, fmt.Sprintf("/fednet/tenant/%d", id), nil)
}

func (c *Client) UpdateTenant(ctx context.Context, id uint64, patch models.TenantPatch) (*models.TenantView, error) {
	return record[models.TenantView](ctx, c, http.MethodPut, fmt.Sprintf("/fednet/tenant/%d", id), patch)
}

func (c *Client) DeleteTenant(ctx context.Context, id uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/fednet/tenant/%d", id), nil, nil)
}
