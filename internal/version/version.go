package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Build metadata for the ipa CLI. The plain values are overridden at link
// time via -ldflags "-X ipa/internal/version.Version=...".
var (
	// Version is the semantic version of the CLI.
	Version = "0.3.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var segmentColors = []*color.Color{
	color.New(color.FgYellow, color.Bold),
	color.New(color.FgGreen, color.Bold),
	color.New(color.FgBlue, color.Bold),
}

// Colored renders v with one color per numeric segment. Any pre-release
// suffix is left plain. Colors follow color.NoColor.
func Colored(v string) string {
	core, suffix := v, ""
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		core, suffix = v[:i], v[i:]
	}
	parts := strings.Split(core, ".")
	for i, p := range parts {
		if i < len(segmentColors) {
			parts[i] = segmentColors[i].Sprint(p)
		}
	}
	return strings.Join(parts, ".") + suffix
}

// Info is the build metadata in one struct, as printed by `ipa version`.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Message string `json:"message,omitempty"`
	Date    string `json:"date,omitempty"`
}

// Current returns the metadata baked into the binary.
func Current() Info {
	return Info{Version: Version, Commit: GitCommit, Message: GitMessage, Date: BuildDate}
}

// Short is the one-line form: version plus abbreviated commit.
func (i Info) Short() string {
	if i.Commit == "" {
		return i.Version
	}
	commit := i.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("%s (%s)", i.Version, commit)
}
