// Command serilang is the embedder CLI for the serilang runtime: it
// loads a precompiled chunk, wires up the VM's ambient stack (logging,
// GC tuning, module cache, filesystem-backed import), and drives
// evaluate() (spec §6.2). It never parses `.seri` source itself — the
// compiler front end is an external collaborator (spec §1) — so `run`
// and `dump` both operate on already-compiled chunk files, the way the
// teacher's `smog run`/`smog disassemble` operate on its own `.sg`
// files, minus the `.smog` source path the teacher also supports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "serilang",
		Short:         "Embedder CLI for the serilang stack-VM runtime",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	root.AddCommand(newRunCmd())
	root.AddCommand(newDumpCmd())
	root.AddCommand(newVersionCmd())
	return root
}
