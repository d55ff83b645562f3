package main

import (
	"encoding/json"
	"os"
	"os/signal"

	"github.com/fwdask/fwdask/config/loader"
	"github.com/fwdask/fwdask/intake"
	"github.com/spf13/cobra"
)

type replayOptions struct {
	workers int
	rate    float64
	burst   int
}

func newReplayCommand(gopts *globalOptions) *cobra.Command {
	opts := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay <file.pcap>",
		Short: "Decide every frame of a pcap capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(gopts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			rt, err := loader.Load(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			stats, err := intake.NewReplayer(rt.Engine,
				intake.WorkersReplayOption(opts.workers),
				intake.RateReplayOption(opts.rate, opts.burst),
			).Replay(ctx, f)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.workers, "workers", "w", intake.DefaultReplayWorkers, "number of frames decided concurrently")
	flags.Float64Var(&opts.rate, "rate", 0, "frames decided per second, 0 for no limit")
	flags.IntVar(&opts.burst, "burst", 1, "rate limiter burst")
	return cmd
}
