/*
Package cmd wires the pipeline packages into the kiln command line tool.
Every subcommand loads the same TOML configuration, takes the build lock
on the cooked output root where it mutates state, and reports through the
shared logger.
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spaghettifunk/kiln/pipeline/config"
	"github.com/spaghettifunk/kiln/pipeline/core"
)

var (
	configPath string
	cfg        *config.Config
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "kiln",
	Short: "Cooks source assets into engine ready binary containers",
	Long: `Kiln imports interchange assets such as wavefront models, material
definitions, images and bitmap fonts, and cooks them into the packed
descriptor, resource table and index files the engine loads at runtime.
Cooked output accumulates across runs: re-cooking appends to the existing
containers instead of rebuilding them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		core.SetLogLevel(cfg.Logging.Level)
		return nil
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		core.LogError("%v", err)
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to the configuration file (default "+config.DefaultFileName+" in the working directory)")
}
