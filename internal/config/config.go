// Package config loads ipa.toml, the options file of the inline driver.
package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"ipa/internal/callgraph"
	"ipa/internal/diag"
	"ipa/internal/inline"
)

// FileName is the options file looked up next to the inputs.
const FileName = "ipa.toml"

var (
	// ErrUnknownKey reports keys the decoder did not consume.
	ErrUnknownKey = errors.New("unknown key")
	// ErrBadValue reports a value outside its valid range.
	ErrBadValue = errors.New("invalid value")
)

// Config mirrors the tables of ipa.toml.
type Config struct {
	Inline    InlineConfig    `toml:"inline"`
	CallGraph CallGraphConfig `toml:"callgraph"`
}

// InlineConfig is the [inline] table.
type InlineConfig struct {
	ModuleGrowth                   int64 `toml:"module_growth"`
	MaxNondeclaredInlineCallee     int64 `toml:"max_nondeclared_inline_callee"`
	MaxDeclaredInlineCallee        int64 `toml:"max_declared_inline_callee"`
	SmallFunc                      int64 `toml:"small_func"`
	MaxDepthIgnoreGrowthLimit      int   `toml:"max_depth_ignore_growth_limit"`
	RelaxSmallFuncRemovable        int64 `toml:"relax_small_func_removable"`
	RelaxDeclaredInline            int64 `toml:"relax_declared_inline"`
	MaxDepth                       int   `toml:"max_depth"`
	MaxRecursionLevel              int   `toml:"max_recursion_level"`
	EnableIgnoreGrowthLimit        bool  `toml:"enable_ignore_growth_limit"`
	InlineToAllCallers             bool  `toml:"inline_to_all_callers"`
	AllowNondeclaredInlineSizeGrow bool  `toml:"allow_nondeclared_inline_size_grow"`
	Comments                       bool  `toml:"comments"`
	RemoveDead                     bool  `toml:"remove_dead"`

	InlineList   string `toml:"inline_list"`
	NoInlineList string `toml:"noinline_list"`
	Profile      string `toml:"profile"`
	ProfileHot   uint64 `toml:"profile_hot"`
	ProfileCold  uint64 `toml:"profile_cold"`
}

// CallGraphConfig is the [callgraph] table.
type CallGraphConfig struct {
	PruneStatic     bool   `toml:"prune_static"`
	ResolveIndirect bool   `toml:"resolve_indirect"`
	DumpDot         string `toml:"dump_dot"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	o := inline.DefaultOptions()
	b := callgraph.DefaultBuildOptions()
	return Config{
		Inline: InlineConfig{
			ModuleGrowth:                   o.ModuleGrowth,
			MaxNondeclaredInlineCallee:     o.MaxNondeclaredInlineCallee,
			MaxDeclaredInlineCallee:        o.MaxDeclaredInlineCallee,
			SmallFunc:                      o.SmallFunc,
			MaxDepthIgnoreGrowthLimit:      o.MaxDepthIgnoreGrowthLimit,
			RelaxSmallFuncRemovable:        o.RelaxSmallFuncCanBeRemoved,
			RelaxDeclaredInline:            o.RelaxSmallFuncDeclaredInline,
			MaxDepth:                       o.MaxDepth,
			MaxRecursionLevel:              o.MaxRecursionLevel,
			EnableIgnoreGrowthLimit:        o.EnableIgnoreGrowthLimit,
			InlineToAllCallers:             o.InlineToAllCallers,
			AllowNondeclaredInlineSizeGrow: o.AllowNondeclaredInlineSizeGrow,
			Comments:                       o.Comments,
			RemoveDead:                     o.RemoveDead,
			ProfileHot:                     inline.DefaultProfileHot,
			ProfileCold:                    inline.DefaultProfileCold,
		},
		CallGraph: CallGraphConfig{
			PruneStatic:     b.PruneStatic,
			ResolveIndirect: b.ResolveIndirect,
		},
	}
}

// Load reads path over the defaults. Relative file references inside the
// file are resolved against its directory.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := finish(&cfg, meta, filepath.Dir(path)); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads a configuration from r; base anchors relative paths.
func Decode(r io.Reader, base string) (Config, error) {
	cfg := Default()
	meta, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := finish(&cfg, meta, base); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func finish(cfg *Config, meta toml.MetaData, base string) error {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	in := &cfg.Inline
	for _, p := range []*string{&in.InlineList, &in.NoInlineList, &in.Profile, &cfg.CallGraph.DumpDot} {
		if *p != "" && base != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	in := c.Inline
	checks := []struct {
		key string
		bad bool
	}{
		{"inline.module_growth", in.ModuleGrowth < 0},
		{"inline.max_nondeclared_inline_callee", in.MaxNondeclaredInlineCallee < 0},
		{"inline.max_declared_inline_callee", in.MaxDeclaredInlineCallee < 0},
		{"inline.small_func", in.SmallFunc < 0},
		{"inline.max_depth_ignore_growth_limit", in.MaxDepthIgnoreGrowthLimit < 0},
		{"inline.relax_small_func_removable", in.RelaxSmallFuncRemovable < 1},
		{"inline.relax_declared_inline", in.RelaxDeclaredInline < 1},
		{"inline.max_depth", in.MaxDepth < 0},
		{"inline.max_recursion_level", in.MaxRecursionLevel < 0},
		{"inline.profile_cold", in.ProfileCold >= in.ProfileHot},
	}
	for _, ck := range checks {
		if ck.bad {
			return fmt.Errorf("%w for %s", ErrBadValue, ck.key)
		}
	}
	return nil
}

// Options maps the [inline] table onto inliner options.
func (c Config) Options() inline.Options {
	in := c.Inline
	o := inline.DefaultOptions()
	o.ModuleGrowth = in.ModuleGrowth
	o.MaxNondeclaredInlineCallee = in.MaxNondeclaredInlineCallee
	o.MaxDeclaredInlineCallee = in.MaxDeclaredInlineCallee
	o.SmallFunc = in.SmallFunc
	o.MaxDepthIgnoreGrowthLimit = in.MaxDepthIgnoreGrowthLimit
	o.RelaxSmallFuncCanBeRemoved = in.RelaxSmallFuncRemovable
	o.RelaxSmallFuncDeclaredInline = in.RelaxDeclaredInline
	o.MaxDepth = in.MaxDepth
	o.MaxRecursionLevel = in.MaxRecursionLevel
	o.EnableIgnoreGrowthLimit = in.EnableIgnoreGrowthLimit
	o.InlineToAllCallers = in.InlineToAllCallers
	o.AllowNondeclaredInlineSizeGrow = in.AllowNondeclaredInlineSizeGrow
	o.Comments = in.Comments
	o.RemoveDead = in.RemoveDead
	return o
}

// BuildOptions maps the [callgraph] table.
func (c Config) BuildOptions() callgraph.BuildOptions {
	return callgraph.BuildOptions{
		ResolveIndirect: c.CallGraph.ResolveIndirect,
		PruneStatic:     c.CallGraph.PruneStatic,
	}
}

// LoadLists reads the inline and noinline lists and the call profile named
// by the configuration. Missing entries yield nil values.
func (c Config) LoadLists(rep diag.Reporter) (inline.Lists, *inline.Profile, error) {
	var lists inline.Lists
	var err error
	if c.Inline.InlineList != "" {
		if lists.Inline, err = inline.LoadList(c.Inline.InlineList, rep); err != nil {
			return inline.Lists{}, nil, err
		}
	}
	if c.Inline.NoInlineList != "" {
		if lists.NoInline, err = inline.LoadList(c.Inline.NoInlineList, rep); err != nil {
			return inline.Lists{}, nil, err
		}
	}
	if c.Inline.Profile == "" {
		return lists, nil, nil
	}
	prof, err := inline.LoadProfile(c.Inline.Profile, rep)
	if err != nil {
		return inline.Lists{}, nil, err
	}
	prof.Hot, prof.Cold = c.Inline.ProfileHot, c.Inline.ProfileCold
	return lists, prof, nil
}
