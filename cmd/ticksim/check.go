// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"

	"github.com/db47h/ticksim/netlist"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <netlist>",
	Short: "Load a netlist and validate its wiring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := netlist.ParseFile(args[0])
		if err != nil {
			return err
		}
		m, err := n.Build()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, b := range m.Boards() {
			fmt.Fprintf(w, "board %s: %d components, %d links\n", b.Name(), len(b.Components()), len(b.Links()))
		}
		fmt.Fprintf(w, "%d clock domains, %d ops, %d feedback groups\n",
			len(m.Domains()), len(m.Ops()), len(m.FeedbackGroups()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
