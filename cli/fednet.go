package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saintparish4/fedsdn/shared/models"
)

func fednetCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fednet",
		Aliases: []string{"fednets"},
		Short:   "Manage federated networks",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List federated networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			fednets, err := c.FedNets(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(fednets))
			for _, f := range fednets {
				rows = append(rows, []string{fmtID(f.ID), f.Name, f.Owner, string(f.Status), f.Type, f.LinkType, f.Topology})
			}
			return g.printTable(fednets, []string{"ID", "NAME", "OWNER", "STATUS", "TYPE", "LINKTYPE", "TOPOLOGY"}, rows)
		},
	}

	show := &cobra.Command{
		Use:   "show FEDNET_ID",
		Short: "Show a federated network and its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "fednet")
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			fednet, err := c.FedNet(cmd.Context(), id)
			if err != nil {
				return err
			}
			return g.printFedNet(fednet)
		},
	}

	var fields models.FedNet
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a federated network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			fednet, err := c.CreateFedNet(cmd.Context(), fields)
			if err != nil {
				return err
			}
			return g.printFedNet(fednet)
		},
	}
	create.Flags().StringVar(&fields.Name, "name", "", "network name")
	create.Flags().StringVar(&fields.Type, "type", "", "network type, e.g. l2")
	create.Flags().StringVar(&fields.LinkType, "linktype", "", "link technology, e.g. vxlan")
	create.Flags().StringVar(&fields.Topology, "topology", "", "topology hint")

	update := &cobra.Command{
		Use:   "update FEDNET_ID",
		Short: "Change the attributes of a federated network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "fednet")
			if err != nil {
				return err
			}
			patch := models.FedNetPatch{
				Name:     optional(cmd, "name", fields.Name),
				Type:     optional(cmd, "type", fields.Type),
				LinkType: optional(cmd, "linktype", fields.LinkType),
				Topology: optional(cmd, "topology", fields.Topology),
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			fednet, err := c.UpdateFedNet(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			return g.printFedNet(fednet)
		},
	}
	update.Flags().StringVar(&fields.Name, "name", "", "network name")
	update.Flags().StringVar(&fields.Type, "type", "", "network type")
	update.Flags().StringVar(&fields.LinkType, "linktype", "", "link technology")
	update.Flags().StringVar(&fields.Topology, "topology", "", "topology hint")

	link := &cobra.Command{
		Use:   "link FEDNET_ID",
		Short: "Link the segments of a federated network across their sites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "fednet")
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			fednet, err := c.LinkFedNet(cmd.Context(), id)
			if err != nil {
				return err
			}
			return g.printFedNet(fednet)
		},
	}

	del := &cobra.Command{
		Use:   "delete FEDNET_ID",
		Short: "Delete a federated network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "fednet")
			if err != nil {
				return err
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.DeleteFedNet(cmd.Context(), id); err != nil {
				return err
			}
			return g.done(fmt.Sprintf("FedNet %d removed", id))
		},
	}

	cmd.AddCommand(list, show, create, update, link, del)
	return cmd
}

func (g *globals) printFedNet(f *models.FedNet) error {
	if err := g.print(f, [][2]string{
		{"ID", fmtID(f.ID)},
		{"NAME", f.Name},
		{"OWNER", f.Owner},
		{"STATUS", string(f.Status)},
		{"TYPE", f.Type},
		{"LINKTYPE", f.LinkType},
		{"TOPOLOGY", f.Topology},
	}); err != nil || g.json || len(f.NetSegments) == 0 {
		return err
	}
	return g.printSegments(f.NetSegments)
}
