package main

import (
	"os"

	"github.com/spf13/cobra"

	"dialogsmith/internal/config"
)

var (
	configPath string
	fromDB     bool
)

func main() {
	root := &cobra.Command{
		Use:           "dialogsmith",
		Short:         "Branching dialogue graph interpreter",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadDotEnv()
		},
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Project config file")
	root.PersistentFlags().BoolVar(&fromDB, "from-db", false, "Read the graph from source.dsn instead of source.csv")
	root.AddCommand(initCmd())
	root.AddCommand(importCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(nodesCmd())
	root.AddCommand(showCmd())
	root.AddCommand(edgesCmd())
	root.AddCommand(playCmd())
	root.AddCommand(journalCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(wsCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
