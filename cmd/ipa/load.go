package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ipa/internal/callgraph"
	"ipa/internal/config"
	"ipa/internal/diag"
	"ipa/internal/hierarchy"
	"ipa/internal/ir"
	"ipa/internal/irtext"
)

// loadModule reads and parses the input files into one module. Parse
// errors are printed as diagnostics.
func loadModule(cmd *cobra.Command, paths []string) (*ir.Module, error) {
	srcs := make([]irtext.Source, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		srcs[i] = irtext.Source{Name: p, Data: data}
	}
	var m *ir.Module
	err := timed("parse", func() error {
		var err error
		m, err = irtext.ParseFiles(cmd.Context(), srcs)
		return err
	})
	if err != nil {
		var d diag.Diagnostic
		if errors.As(err, &d) {
			_ = diag.Fprint(cmd.ErrOrStderr(), []diag.Diagnostic{d}, sess.useColor)
			return nil, errors.New("parsing failed")
		}
		return nil, err
	}
	return m, nil
}

// loadConfig reads --config, or ipa.toml next to the first input when it
// exists, or falls back to the defaults.
func loadConfig(cmd *cobra.Command, paths []string) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	if path == "" && len(paths) > 0 {
		candidate := filepath.Join(filepath.Dir(paths[0]), config.FileName)
		if _, statErr := os.Stat(candidate); statErr == nil {
			path = candidate
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if errors.Is(err, config.ErrUnknownKey) {
		d := diag.NewError(diag.CfgUnknownKey, diag.Pos{File: path}, err.Error())
		_ = diag.Fprint(cmd.ErrOrStderr(), []diag.Diagnostic{d}, sess.useColor)
		return config.Config{}, errors.New("invalid options file")
	}
	return cfg, err
}

func buildGraph(cmd *cobra.Command, m *ir.Module, opts callgraph.BuildOptions) *callgraph.CallGraph {
	var g *callgraph.CallGraph
	_ = timed("callgraph", func() error {
		g = callgraph.Build(cmd.Context(), m, hierarchy.Build(m), opts)
		return nil
	})
	return g
}

// flushDiagnostics prints what the bag collected to stderr.
func flushDiagnostics(cmd *cobra.Command, bag *diag.Bag) {
	if bag == nil || bag.Len() == 0 || sess.quiet {
		return
	}
	bag.Sort()
	_ = diag.Fprint(cmd.ErrOrStderr(), bag.Items(), sess.useColor)
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
