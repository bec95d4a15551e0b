package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saintparish4/fedsdn/shared/models"
)

// parseSiteCredentials parses SITE_ID=user:pass entries.
func parseSiteCredentials(entries []string) ([]models.SiteCredential, error) {
	creds := make([]models.SiteCredential, 0, len(entries))
	for _, entry := range entries {
		site, credentials, ok := strings.Cut(entry, "=")
		if !ok || !strings.Contains(credentials, ":") {
			return nil, fmt.Errorf("invalid site credentials %q, expected SITE_ID=user:pass", entry)
		}
		id, err := parseID(site, "site")
		if err != nil {
			return nil, err
		}
		creds = append(creds, models.SiteCredential{SiteID: id, Credentials: credentials})
	}
	return creds, nil
}

func tenantCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tenant",
		Aliases: []string{"tenants"},
		Short:   "Manage tenants (administrators only)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			tenants, err := c.Tenants(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(tenants))
			for _, t := range tenants {
				sites := make([]string, 0, len(t.ValidSites))
				for _, s := range t.ValidSites {
					sites = append(sites, fmtID(s.SiteID))
				}
				rows = append(rows, []string{fmtID(t.ID), t.Name, string(t.Kind), strings.Join(sites, ",")})
			}
			return g.printTable(tenants, []string{"ID", "NAME", "TYPE", "SITES"}, rows)
		},
	}

	show := &cobra.Command{
		Use:   "show TENANT_ID",
		Short: "Show a tenant and its site identities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "tenant")
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			tenant, err := c.Tenant(cmd.Context(), id)
			if err != nil {
				return err
			}
			return g.printTenant(tenant)
		},
	}

	var (
		name, password, kind string
		sites                []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant, validating each site credential with the site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := parseSiteCredentials(sites)
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			tenant, err := c.CreateTenant(cmd.Context(), models.TenantCreate{
				Name:       name,
				Password:   password,
				Kind:       models.TenantKind(kind),
				ValidSites: creds,
			})
			if err != nil {
				return err
			}
			return g.printTenant(tenant)
		},
	}

	update := &cobra.Command{
		Use:   "update TENANT_ID",
		Short: "Change a tenant. Passing --site replaces every site identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "tenant")
			if err != nil {
				return err
			}
			patch := models.TenantPatch{
				Name:     optional(cmd, "name", name),
				Password: optional(cmd, "tenant-password", password),
			}
			if cmd.Flags().Changed("type") {
				k := models.TenantKind(kind)
				patch.Kind = &k
			}
			if cmd.Flags().Changed("site") {
				creds, err := parseSiteCredentials(sites)
				if err != nil {
					return err
				}
				patch.ValidSites = &creds
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			tenant, err := c.UpdateTenant(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			return g.printTenant(tenant)
		},
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().StringVar(&name, "name", "", "tenant name")
		c.Flags().StringVar(&password, "tenant-password", "", "password of the tenant")
		c.Flags().StringVar(&kind, "type", "", "admin or user")
		c.Flags().StringArrayVar(&sites, "site", nil, "site identity as SITE_ID=user:pass, repeatable")
	}

	del := &cobra.Command{
		Use:   "delete TENANT_ID",
		Short: "Delete a tenant and its site identities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "tenant")
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.DeleteTenant(cmd.Context(), id); err != nil {
				return err
			}
			return g.done(fmt.Sprintf("Tenant %d removed", id))
		},
	}

	cmd.AddCommand(list, show, create, update, del)
	return cmd
}

func (g *globals) printTenant(t *models.TenantView) error {
	fields := [][2]string{
		{"ID", fmtID(t.ID)},
		{"NAME", t.Name},
		{"TYPE", string(t.Kind)},
	}
	for _, s := range t.ValidSites {
		fields = append(fields, [2]string{"SITE " + fmtID(s.SiteID), s.RemoteUserID})
	}
	return g.print(t, fields)
}
