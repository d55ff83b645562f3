package main

import (
	"errors"
	"io"
	"os"

	"github.com/fwdask/fwdask/config/parsing/store"
	"github.com/fwdask/fwdask/flow"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
)

type exportOptions struct {
	src    string
	dst    string
	output string
}

func newExportCommand(gopts *globalOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded flows from or to an address as XML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.src == "") == (opts.dst == "") {
				return errors.New("exactly one of --src or --dst is required")
			}

			cfg, err := loadConfig(gopts)
			if err != nil {
				return err
			}

			s, err := store.ParseStore(cmd.Context(), cfg.Store)
			if err != nil {
				return err
			}
			defer s.Close()

			var flows []*flow.Flow
			if opts.src != "" {
				flows, err = s.FindBySource(cmd.Context(), opts.src)
			} else {
				flows, err = s.FindByDestination(cmd.Context(), opts.dst)
			}
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if opts.output != "" {
				file, err := homedir.Expand(opts.output)
				if err != nil {
					return err
				}
				f, err := os.Create(file)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return flow.WriteXML(out, flows)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.src, "src", "", "source address")
	flags.StringVar(&opts.dst, "dst", "", "destination address")
	flags.StringVarP(&opts.output, "output", "o", "", "output file, stdout by default")
	return cmd
}
