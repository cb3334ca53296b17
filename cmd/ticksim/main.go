// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command ticksim loads and runs netlist files.
//
// Usage:
//
//	ticksim run circuit.yaml --ticks 200 --vcd out.vcd
//	ticksim check circuit.yaml
//	ticksim parts
//
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ticksim",
	Short: "Discrete-time digital circuit simulator",
	Long: `Ticksim simulates digital circuits described in YAML netlists. Each
tick, combinational logic is evaluated until it settles and clocked parts
see the edges of their clock domain.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
