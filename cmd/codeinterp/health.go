package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rhuss/codeinterp/pkg/client"
)

func newHealthCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server and its warehouse are reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := client.New(global.serverURL, client.WithAPIKey(global.apiKey))
			if err := c.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "healthy")
			return nil
		},
	}
}
