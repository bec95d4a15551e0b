package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saintparish4/fedsdn/shared/models"
)

func siteCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "site",
		Aliases: []string{"sites"},
		Short:   "Manage the site pool",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			sites, err := c.Sites(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(sites))
			for _, s := range sites {
				rows = append(rows, []string{fmtID(s.ID), s.Name, string(s.Type), s.CMPEndpoint})
			}
			return g.printTable(sites, []string{"ID", "NAME", "TYPE", "CMP ENDPOINT"}, rows)
		},
	}

	show := &cobra.Command{
		Use:   "show SITE_ID",
		Short: "Show a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "site")
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			site, err := c.Site(cmd.Context(), id)
			if err != nil {
				return err
			}
			return g.printSite(site)
		},
	}

	var name, kind, endpoint string
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a site to the federation (administrators only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			site, err := c.CreateSite(cmd.Context(), models.Site{
				Name:        name,
				Type:        models.ParseSiteKind(kind),
				CMPEndpoint: endpoint,
			})
			if err != nil {
				return err
			}
			return g.printSite(site)
		},
	}

	update := &cobra.Command{
		Use:   "update SITE_ID",
		Short: "Change a site (administrators only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "site")
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			site, err := c.UpdateSite(cmd.Context(), id, models.SitePatch{
				Name:        optional(cmd, "name", name),
				Type:        optional(cmd, "type", kind),
				CMPEndpoint: optional(cmd, "endpoint", endpoint),
			})
			if err != nil {
				return err
			}
			return g.printSite(site)
		},
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().StringVar(&name, "name", "", "site name")
		c.Flags().StringVar(&kind, "type", "", "cloud platform: opennebula or openstack")
		c.Flags().StringVar(&endpoint, "endpoint", "", "endpoint of the cloud management platform")
	}

	del := &cobra.Command{
		Use:   "delete SITE_ID",
		Short: "Remove a site (administrators only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "site")
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.DeleteSite(cmd.Context(), id); err != nil {
				return err
			}
			return g.done(fmt.Sprintf("Site %d removed", id))
		},
	}

	cmd.AddCommand(list, show, create, update, del)
	return cmd
}

func (g *globals) printSite(s *models.Site) error {
	return g.print(s, [][2]string{
		{"ID", fmtID(s.ID)},
		{"NAME", s.Name},
		{"TYPE", string(s.Type)},
		{"CMP ENDPOINT", s.CMPEndpoint},
	})
}
