// Command pichi-proxy is the CLI entrypoint: it loads configuration,
// builds the logger and the managers, bootstraps any statically
// configured ingresses/egresses/rules/route, and serves until a signal
// asks it to stop.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "pichi-proxy",
		Short: "pichi-proxy is a multi-protocol TCP proxy node",
	}
	root.AddCommand(newServeCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
