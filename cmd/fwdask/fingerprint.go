package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fwdask/fwdask/flow"
	"github.com/spf13/cobra"
)

func newFingerprintCommand() *cobra.Command {
	var xml bool

	cmd := &cobra.Command{
		Use:   "fingerprint [file]",
		Short: "Print the fingerprint of flows read as JSON or XML",
		Long: "Reads one JSON flow, or with --xml a <flows> document, from the file or stdin\n" +
			"and prints one fingerprint per flow.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			flows, err := readFlows(in, xml)
			if err != nil {
				return err
			}
			for _, f := range flows {
				fp, err := flow.Fingerprint(f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", fp, f)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&xml, "xml", false, "read an XML flow document")
	return cmd
}

func readFlows(r io.Reader, xml bool) ([]*flow.Flow, error) {
	if xml {
		return flow.ReadXML(r)
	}

	var f flow.Flow
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("invalid flow: %w", err)
	}
	return []*flow.Flow{&f}, nil
}
