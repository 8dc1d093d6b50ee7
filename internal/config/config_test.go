package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ipa/internal/config"
	"ipa/internal/diag"
	"ipa/internal/inline"
)

func TestDefaultMatchesInliner(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	got, want := cfg.Options(), inline.DefaultOptions()
	if got.ModuleGrowth != want.ModuleGrowth || got.SmallFunc != want.SmallFunc || got.MaxDepth != want.MaxDepth {
		t.Errorf("Options() = %+v", got)
	}
	if b := cfg.BuildOptions(); !b.ResolveIndirect || !b.PruneStatic {
		t.Errorf("BuildOptions() = %+v", b)
	}
}

func TestDecodeOverridesDefaults(t *testing.T) {
	src := `
[inline]
module_growth = 25
small_func = 40
inline_to_all_callers = false
inline_list = "lists/inline.list"

[callgraph]
prune_static = false
`
	cfg, err := config.Decode(strings.NewReader(src), "/proj")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	o := cfg.Options()
	if o.ModuleGrowth != 25 || o.SmallFunc != 40 || o.InlineToAllCallers {
		t.Errorf("options = %+v", o)
	}
	if o.MaxNondeclaredInlineCallee != inline.DefaultOptions().MaxNondeclaredInlineCallee {
		t.Errorf("unset key lost its default")
	}
	if cfg.BuildOptions().PruneStatic || !cfg.BuildOptions().ResolveIndirect {
		t.Errorf("build options = %+v", cfg.BuildOptions())
	}
	if want := filepath.Join("/proj", "lists/inline.list"); cfg.Inline.InlineList != want {
		t.Errorf("inline_list = %q, want %q", cfg.Inline.InlineList, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown key", "[inline]\nmodule_grwoth = 3\n", config.ErrUnknownKey},
		{"unknown table", "[inliner]\nx = 1\n", config.ErrUnknownKey},
		{"negative growth", "[inline]\nmodule_growth = -1\n", config.ErrBadValue},
		{"cold above hot", "[inline]\nprofile_hot = 5\nprofile_cold = 9\n", config.ErrBadValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Decode(strings.NewReader(tt.src), "")
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := config.Decode(strings.NewReader("[inline\n"), ""); err == nil {
		t.Errorf("malformed TOML accepted")
	}
}

func TestLoadWithLists(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("inline.list", "square\n")
	write("noinline.list", "slow\n->main\n")
	write("calls.prof", "main square 50\n")
	write(config.FileName, `
[inline]
inline_list = "inline.list"
noinline_list = "noinline.list"
profile = "calls.prof"
profile_hot = 40
profile_cold = 1
`)

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	bag := diag.NewBag(10)
	lists, prof, err := cfg.LoadLists(diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("LoadLists: %v", err)
	}
	if lists.Inline.Len() != 1 || lists.NoInline.Len() != 1 {
		t.Errorf("lists = %d/%d entries", lists.Inline.Len(), lists.NoInline.Len())
	}
	if listed, callsite := lists.NoInline.Match("main", "slow"); !listed || !callsite {
		t.Errorf("noinline entry not restricted to main")
	}
	if prof == nil || prof.Hot != 40 || prof.Len() != 1 {
		t.Fatalf("profile = %+v", prof)
	}
	if bag.Len() != 0 {
		t.Errorf("diagnostics = %v", bag.Items())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("missing file accepted")
	}
}
