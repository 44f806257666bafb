// Command plutoctl drives a registered scenario under the concurrency
// substrate's scheduling engine, standing in for the entry point generated
// native code would otherwise call into directly (spec §6.1).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "plutoctl",
	Short: "Pluto runtime control CLI",
	Long: `plutoctl drives a registered concurrency scenario under the Pluto
managed heap and scheduler.

STRATEGIES:
  sequential   run fibers to completion in spawn order
  roundrobin   rotate the baton through ready fibers
  random       pick among ready fibers via a seeded RNG
  exhaustive   explore every racing interleaving via DPOR
`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
}
