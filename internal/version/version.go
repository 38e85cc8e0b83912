// Package version holds build metadata injected at link time.
package version

import "fmt"

var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = "unknown"
)

// SetInfo overrides the build metadata. Empty values keep the defaults.
func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// String returns a one-line version description.
func String() string {
	return fmt.Sprintf("timeros %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
