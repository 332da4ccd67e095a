package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kanon/serilang/pkg/async"
	"github.com/kanon/serilang/pkg/bytecode"
	"github.com/kanon/serilang/pkg/config"
	"github.com/kanon/serilang/pkg/vm"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <chunk-file>",
		Short: "Evaluate a precompiled chunk file to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunkFile(args[0])
		},
	}
	return cmd
}

func runChunkFile(path string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	fs := afero.NewOsFs()

	opts, err := cfg.Options(fs)
	if err != nil {
		return err
	}
	opts = append(opts, vm.WithImporter(fileImporter(cfg.ImportPaths)))
	m := vm.New(opts...)
	cfg.ApplyGC(m.GC)
	async.Register(m)
	m.EnableGC()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	chunk, err := bytecode.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	result, err := m.Evaluate(chunk)
	if err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}
	fmt.Println(result.Desc())
	return nil
}

// fileImporter resolves import(name) by looking for <name>.src in each
// search path, in order, and decoding it as a precompiled chunk. This
// stands in for the compiler's Compile hook (spec §6.2) — the module
// ships no lexer/parser, so only already-compiled modules are
// importable through this CLI.
func fileImporter(searchPaths []string) vm.Importer {
	return func(fs afero.Fs, name string) (*bytecode.Chunk, error) {
		var lastErr error
		for _, dir := range searchPaths {
			path := dir + "/" + name + ".src"
			f, err := fs.Open(path)
			if err != nil {
				lastErr = err
				continue
			}
			defer f.Close()
			return bytecode.Decode(f)
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("no search paths configured")
		}
		return nil, fmt.Errorf("import %q: %w", name, lastErr)
	}
}
