// Command codeinterp submits snippets to a code interpreter server.
//
//	codeinterp run analysis.js --database sales
//	cat snippet.js | codeinterp run - --database sales --json
//	codeinterp capabilities
//	codeinterp health
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

type globalOptions struct {
	serverURL string
	apiKey    string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "codeinterp",
		Short: "Code interpreter client",
		Long: `codeinterp talks to a code interpreter server.

  codeinterp run <file|-> --database sales    Execute a snippet and print the report
  codeinterp capabilities                     List the names a snippet can use
  codeinterp health                           Check the server`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.serverURL, "server", envOr("CODEINTERP_SERVER", "http://localhost:8080"), "code interpreter server URL")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("CODEINTERP_API_KEY"), "API key sent as a Bearer token")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newCapabilitiesCmd())
	root.AddCommand(newHealthCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
