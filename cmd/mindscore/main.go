// Command mindscore serves the score API and maintains its storage.
package main

import (
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cobra"

	"github.com/hyp3rd/mindscore/internal/config"
)

type rootFlags struct {
	configPath string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "mindscore",
		Short:         "Score storage and statistics for cognitive mini-games",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path of the HuJSON configuration file")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log debug messages")

	root.AddCommand(
		serveSubcommand(flags),
		migrateSubcommand(flags),
		checkSubcommand(flags),
		statsSubcommand(flags),
	)

	return root
}

// load reads the configuration and sets the log level from it.
func (flags *rootFlags) load() (*config.Settings, error) {
	settings, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(settings.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}

	if flags.verbose {
		level = log.DebugLevel
	}

	log.SetLevel(level)

	return settings, nil
}

func main() {
	log.SetHandler(cli.New(os.Stderr))

	err := newRootCommand().Execute()
	if err != nil {
		log.WithError(err).Error("mindscore failed")
		os.Exit(1)
	}
}
