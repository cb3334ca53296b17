// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/db47h/ticksim/hwlib"
	"github.com/spf13/cobra"
)

var partsCmd = &cobra.Command{
	Use:   "parts",
	Short: "List the part types available in netlists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
		fmt.Fprintln(tw, "type\tinputs\toutputs\tbidirectional")
		for _, name := range hwlib.Names() {
			// default parameters
			sp, err := hwlib.New(name, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, pinList(sp.Inputs), pinList(sp.Outputs), pinList(sp.Bidir))
		}
		return tw.Flush()
	},
}

func pinList(pins []string) string {
	if len(pins) == 0 {
		return "-"
	}
	return strings.Join(pins, ",")
}

func init() {
	rootCmd.AddCommand(partsCmd)
}
