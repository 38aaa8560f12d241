package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/rhuss/codeinterp/pkg/capability"
)

func newCapabilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "List the capability names bound into every snippet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "capability set %s\n", capability.V1.Version)
			names := slices.Concat(capability.V1.Names, capability.QueryNames)
			for _, name := range names {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
}
