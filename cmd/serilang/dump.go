package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kanon/serilang/pkg/bytecode"
)

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <chunk-file>",
		Short: "Disassemble a precompiled chunk file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			chunk, err := bytecode.Decode(f)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			fmt.Print(bytecode.Disassemble(chunk, args[0]))
			return nil
		},
	}
}
