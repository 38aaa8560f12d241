package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhuss/codeinterp/pkg/api"
	"github.com/rhuss/codeinterp/pkg/client"
)

// errRunFailed makes the process exit non-zero when the snippet itself
// failed, after the report has been printed.
var errRunFailed = errors.New("execution did not succeed")

type runOptions struct {
	database string
	jsonOut  bool
	download string
	timeout  time.Duration
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <file|->",
		Short: "Execute a snippet",
		Long: `Read a snippet from a file (or stdin with "-"), submit it to POST /run and
print the execution report. The exit code is non-zero when the run ends in
error or timeout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			c := client.New(global.serverURL, client.WithAPIKey(global.apiKey), client.WithTimeout(opts.timeout))
			report, err := c.Run(cmd.Context(), &api.RunRequest{Code: code, Database: opts.database})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(out, report)
			}

			if opts.download != "" {
				if err := downloadArtifacts(cmd, c, report, opts.download); err != nil {
					return err
				}
			}

			if report.Status != api.StatusSuccess {
				return errRunFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.database, "database", "d", "", "warehouse target for query()")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the raw JSON report")
	cmd.Flags().StringVar(&opts.download, "download", "", "directory to save figures and datasets into")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "HTTP request timeout")
	return cmd
}

func readSource(stdin io.Reader, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("reading snippet: %w", err)
	}
	return string(data), nil
}

func printReport(w io.Writer, r *api.ExecutionReport) {
	fmt.Fprintf(w, "status: %s (%.3fs)\n", r.Status, r.ExecutionTime)
	if r.Output != "" {
		fmt.Fprintf(w, "--- output\n%s", r.Output)
		if r.Output[len(r.Output)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}
	if r.Errors != "" {
		fmt.Fprintf(w, "--- errors\n%s\n", r.Errors)
	}
	for _, img := range r.Images {
		fmt.Fprintf(w, "image: %s\n", img.URL)
	}
	for _, f := range r.Files {
		fmt.Fprintf(w, "file: %s\n", f.URL)
	}

	names := make([]string, 0, len(r.Objects))
	for name := range r.Objects {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := json.Marshal(r.Objects[name])
		if err != nil {
			data = []byte(err.Error())
		}
		fmt.Fprintf(w, "object %s: %s\n", name, data)
	}
}

func downloadArtifacts(cmd *cobra.Command, c *client.Client, r *api.ExecutionReport, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	artifacts := append(append([]api.Artifact{}, r.Images...), r.Files...)
	for _, a := range artifacts {
		data, err := c.Download(cmd.Context(), a.URL)
		if err != nil {
			return fmt.Errorf("downloading %s: %w", a.URL, err)
		}
		dest := filepath.Join(dir, path.Base(a.URL))
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", dest)
	}
	return nil
}
