package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/saintparish4/fedsdn/client"
)

func main() {
	if err := rootCmd(os.Stdout).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the connection flags shared by every command.
type globals struct {
	url      string
	user     string
	password string
	token    string
	json     bool
	out      io.Writer
}

func (g *globals) client() (*client.Client, error) {
	return client.New(client.Options{
		Username: g.user,
		Password: g.password,
		URL:      g.url,
		Token:    g.token,
		Agent:    "fedsdn-cli",
	})
}

func rootCmd(out io.Writer) *cobra.Command {
	g := &globals{out: out}

	cmd := &cobra.Command{
		Use:           "fedsdn",
		Short:         "Federated SDN command line client",
		Long:          `Manage federated networks, sites, tenants and network segments of a federation manager.`,
		Version:       client.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.url, "url", "", "server URL (default $FEDSDN_URL or "+client.DefaultURL+")")
	flags.StringVarP(&g.user, "user", "u", "", "tenant name (default $FEDSDN_USER)")
	flags.StringVarP(&g.password, "password", "p", "", "tenant password (default $FEDSDN_PASSWORD)")
	flags.StringVar(&g.token, "token", "", "bearer token used instead of a password")
	flags.BoolVar(&g.json, "json", false, "print raw JSON instead of tables")

	cmd.AddCommand(
		fednetCmd(g),
		siteCmd(g),
		tenantCmd(g),
		netsegmentCmd(g),
		tokenCmd(g),
	)
	return cmd
}

func tokenCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the current credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			token, err := c.IssueToken(cmd.Context())
			if err != nil {
				return err
			}
			return g.print(token, [][2]string{
				{"TOKEN", token.Token},
				{"EXPIRES", token.ExpiresAt.Format("2006-01-02 15:04:05 MST")},
			})
		},
	}
}

func parseID(arg, what string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}

// parseIDs parses positional ids, naming each for error messages.
func parseIDs(args []string, names ...string) ([]uint64, error) {
	ids := make([]uint64, len(names))
	for i, name := range names {
		id, err := parseID(args[i], name)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// optional returns a pointer to value when the flag was set.
func optional(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}
