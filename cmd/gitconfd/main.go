// Command gitconfd materializes environment-specific configuration from a
// git-backed repository of templates and config fragments, either as a
// long-running HTTP service (serve) or a batch run over a local checkout
// (transform).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "gitconfd",
		Short: "Materializes environment configuration from a git repository",
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newTransformCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
