// Package cmd wires the trainingportal command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/learnforge/trainingportal/cmd/backup"
	"github.com/learnforge/trainingportal/cmd/chat"
	"github.com/learnforge/trainingportal/cmd/hashpw"
	"github.com/learnforge/trainingportal/cmd/seed"
	"github.com/learnforge/trainingportal/cmd/serve"
	"github.com/learnforge/trainingportal/internal/buildinfo"
	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/logger"
)

// RootCommand creates and returns the root command. Subcommands receive
// settings that are filled in by the persistent pre-run hook.
func RootCommand(info *buildinfo.Info) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "trainingportal",
		Short:         "Training portal backend",
		Version:       info.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	hashpwCmd := hashpw.Command()
	subcommands := []*cobra.Command{
		serve.Command(settings, info),
		backup.Command(settings, info),
		seed.Command(settings),
		chat.Command(settings),
		hashpwCmd,
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// hashpw works without a config file
		if cmd.Name() == hashpwCmd.Name() {
			return nil
		}
		return initialize(configFile, settings)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		_ = logger.Global().Flush()
	}

	return rootCmd
}

// initialize loads the configuration and sets up logging before any
// subcommand runs.
func initialize(configFile string, settings *conf.Settings) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	logger.Global().Module("main").Debug("configuration loaded",
		logger.String("config_file", conf.ConfigFileUsed()),
		logger.String("storage_backend", settings.Storage.Backend))
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search ., /etc/trainingportal, ~/.config/trainingportal)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("datadir", "", "Directory holding the JSON collections")
	flags.String("backend", "", "Storage backend: json, sqlite or mysql")

	bindings := map[string]string{
		"debug":   "debug",
		"datadir": "storage.datadir",
		"backend": "storage.backend",
	}
	for flag, key := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}
