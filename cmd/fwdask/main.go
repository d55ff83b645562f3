// Command fwdask runs the flow-admission engine and its tooling.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fwdask/fwdask/config"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type globalOptions struct {
	configFile string
	debug      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "fwdask",
		Short:         "Flow admission for SDN controllers",
		Long:          "fwdask decides whether unmatched flows are forwarded or dropped by consulting evaluators and an operator.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "C", "", "configuration file, searched in /etc/fwdask, ~/.fwdask and . by default")
	flags.BoolVarP(&opts.debug, "debug", "D", false, "enable debug logging")

	cmd.AddCommand(
		newServeCommand(opts),
		newReplayCommand(opts),
		newFingerprintCommand(),
		newExportCommand(opts),
	)
	return cmd
}

// loadConfig reads the configuration file. A missing default file yields an
// empty configuration.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	cfg := &config.Config{}

	if opts.configFile != "" {
		file, err := homedir.Expand(opts.configFile)
		if err != nil {
			return nil, err
		}
		if err := cfg.ReadFile(file); err != nil {
			return nil, err
		}
	} else if err := cfg.Load(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if opts.debug {
		if cfg.Log == nil {
			cfg.Log = &config.LogConfig{}
		}
		cfg.Log.Level = "debug"
	}

	config.Set(cfg)
	return cfg, nil
}
