package version_test

import (
	"os"
	"testing"

	"github.com/fatih/color"

	"ipa/internal/version"
)

func TestColoredPlain(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	tests := []string{"0.3.0-dev", "1.2.3", "2.0.0+build.7", "10"}
	for _, v := range tests {
		if got := version.Colored(v); got != v {
			t.Errorf("Colored(%q) = %q without colors", v, got)
		}
	}
}

func TestColoredKeepsSuffix(t *testing.T) {
	if os.Getenv("NO_COLOR") != "" {
		t.Skip("NO_COLOR is set")
	}
	saved := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = saved }()

	got := version.Colored("1.2.3-rc.1")
	if got == "1.2.3-rc.1" {
		t.Fatalf("expected escape sequences in %q", got)
	}
	if want := "-rc.1"; got[len(got)-len(want):] != want {
		t.Errorf("suffix lost in %q", got)
	}
}

func TestInfoShort(t *testing.T) {
	tests := []struct {
		info version.Info
		want string
	}{
		{version.Info{Version: "1.0.0"}, "1.0.0"},
		{version.Info{Version: "1.0.0", Commit: "abc123"}, "1.0.0 (abc123)"},
		{version.Info{Version: "1.0.0", Commit: "1234567890abcdef"}, "1.0.0 (1234567890ab)"},
	}
	for _, tt := range tests {
		if got := tt.info.Short(); got != tt.want {
			t.Errorf("Short() = %q, want %q", got, tt.want)
		}
	}
}

func TestCurrentFollowsVariables(t *testing.T) {
	saved := version.GitCommit
	version.GitCommit = "deadbeef"
	defer func() { version.GitCommit = saved }()

	if got := version.Current(); got.Commit != "deadbeef" || got.Version != version.Version {
		t.Errorf("Current() = %+v", got)
	}
}
