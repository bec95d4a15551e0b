package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saintparish4/fedsdn/shared/models"
)

func netsegmentCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "netsegment",
		Aliases: []string{"netsegments", "segment"},
		Short:   "Manage the network segments of a federated network at one site",
	}

	list := &cobra.Command{
		Use:   "list FEDNET_ID SITE_ID",
		Short: "List network segments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "fednet", "site")
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			segments, err := c.NetSegments(cmd.Context(), ids[0], ids[1])
			if err != nil {
				return err
			}
			return g.printSegments(segments)
		},
	}

	show := &cobra.Command{
		Use:   "show FEDNET_ID SITE_ID SEGMENT_ID",
		Short: "Show a network segment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "fednet", "site", "netsegment")
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			seg, err := c.NetSegment(cmd.Context(), ids[0], ids[1], ids[2])
			if err != nil {
				return err
			}
			return g.printSegment(seg)
		},
	}

	var fields models.NetSegment
	create := &cobra.Command{
		Use:   "create FEDNET_ID SITE_ID",
		Short: "Provision a network segment at a site",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "fednet", "site")
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			seg, err := c.CreateNetSegment(cmd.Context(), ids[0], ids[1], fields)
			if err != nil {
				return err
			}
			return g.printSegment(seg)
		},
	}

	update := &cobra.Command{
		Use:   "update FEDNET_ID SITE_ID SEGMENT_ID",
		Short: "Change a network segment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "fednet", "site", "netsegment")
			if err != nil {
				return err
			}
			patch := models.NetSegmentPatch{
				Name:           optional(cmd, "name", fields.Name),
				FAEndpoint:     optional(cmd, "fa-endpoint", fields.FAEndpoint),
				NetworkAddress: optional(cmd, "address", fields.NetworkAddress),
				NetworkMask:    optional(cmd, "mask", fields.NetworkMask),
				Size:           optional(cmd, "size", fields.Size),
				VlanID:         optional(cmd, "vlan", fields.VlanID),
				CMPNetID:       optional(cmd, "cmp-net-id", fields.CMPNetID),
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			seg, err := c.UpdateNetSegment(cmd.Context(), ids[0], ids[1], ids[2], patch)
			if err != nil {
				return err
			}
			return g.printSegment(seg)
		},
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().StringVar(&fields.Name, "name", "", "segment name")
		c.Flags().StringVar(&fields.FAEndpoint, "fa-endpoint", "", "endpoint of the site's federation agent")
		c.Flags().StringVar(&fields.NetworkAddress, "address", "", "network address")
		c.Flags().StringVar(&fields.NetworkMask, "mask", "", "network mask")
		c.Flags().StringVar(&fields.Size, "size", "", "network size")
		c.Flags().StringVar(&fields.VlanID, "vlan", "", "VLAN id")
		c.Flags().StringVar(&fields.CMPNetID, "cmp-net-id", "", "network id in the site's cloud platform")
	}

	del := &cobra.Command{
		Use:   "delete FEDNET_ID SITE_ID SEGMENT_ID",
		Short: "Delete a network segment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args, "fednet", "site", "netsegment")
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.DeleteNetSegment(cmd.Context(), ids[0], ids[1], ids[2]); err != nil {
				return err
			}
			return g.done(fmt.Sprintf("NetSegment %d removed", ids[2]))
		},
	}

	cmd.AddCommand(list, show, create, update, del)
	return cmd
}

func (g *globals) printSegments(segments []models.NetSegment) error {
	rows := make([][]string, 0, len(segments))
	for _, s := range segments {
		rows = append(rows, []string{
			fmtID(s.ID), s.Name, fmtID(s.FedNetID), fmtID(s.SiteID), s.Owner,
			s.FAEndpoint, s.CMPNetID, s.VlanID,
		})
	}
	return g.printTable(segments, []string{"ID", "NAME", "FEDNET", "SITE", "OWNER", "FA ENDPOINT", "CMP NET", "VLAN"}, rows)
}

func (g *globals) printSegment(s *models.NetSegment) error {
	return g.print(s, [][2]string{
		{"ID", fmtID(s.ID)},
		{"NAME", s.Name},
		{"OWNER", s.Owner},
		{"FEDNET", fmtID(s.FedNetID)},
		{"SITE", fmtID(s.SiteID)},
		{"FA ENDPOINT", s.FAEndpoint},
		{"NETWORK", s.NetworkAddress + "/" + s.NetworkMask},
		{"SIZE", s.Size},
		{"VLAN", s.VlanID},
		{"CMP NET ID", s.CMPNetID},
		{"CMP BLOB", s.CMPBlob},
	})
}
