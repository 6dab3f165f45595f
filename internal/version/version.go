// Package version reports build information for the dftour binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const (
	unknownValue     = "unknown"
	commitHashLength = 7

	// ArrowModule is the columnar engine dependency reported by Info
	ArrowModule = "github.com/apache/arrow-go/v18"
)

// Build-time variables set by ldflags
var (
	Version   = "dev"
	BuildDate = unknownValue
	GitCommit = unknownValue
)

// BuildInfo contains build information
type BuildInfo struct {
	Version      string `json:"version"`
	BuildDate    string `json:"build_date"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	Module       string `json:"module"`
	ArrowVersion string `json:"arrow_version"`
	Dirty        bool   `json:"dirty"`
}

// Info returns build information, filling gaps from the embedded module data
func Info() BuildInfo {
	info := BuildInfo{
		Version:      Version,
		BuildDate:    BuildDate,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		ArrowVersion: unknownValue,
		Dirty:        strings.HasSuffix(GitCommit, "-dirty"),
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.Module = buildInfo.Main.Path
	if info.Version == "dev" && buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
		info.Version = buildInfo.Main.Version
	}
	for _, dep := range buildInfo.Deps {
		if dep.Path == ArrowModule {
			info.ArrowVersion = dep.Version
		}
	}
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == unknownValue {
				info.GitCommit = setting.Value
			}
		case "vcs.modified":
			info.Dirty = info.Dirty || setting.Value == "true"
		}
	}
	return info
}

// String returns a formatted version string
func (b BuildInfo) String() string {
	var sb strings.Builder
	sb.WriteString("dftour DataFrame tour\n")
	sb.WriteString(fmt.Sprintf("Version: %s", b.Version))
	if b.Dirty {
		sb.WriteString(" (dirty)")
	}
	sb.WriteString("\n")

	if b.BuildDate != unknownValue && b.BuildDate != "" {
		sb.WriteString(fmt.Sprintf("Build Date: %s\n", b.BuildDate))
	}

	if b.GitCommit != unknownValue && b.GitCommit != "" {
		commit := b.GitCommit
		if len(commit) > commitHashLength {
			commit = commit[:commitHashLength]
		}
		sb.WriteString(fmt.Sprintf("Git Commit: %s\n", commit))
	}

	sb.WriteString(fmt.Sprintf("Go Version: %s\n", b.GoVersion))
	sb.WriteString(fmt.Sprintf("Arrow: %s\n", b.ArrowVersion))

	if b.Module != "" {
		sb.WriteString(fmt.Sprintf("Module: %s\n", b.Module))
	}
	return sb.String()
}

// IsRelease returns true if this is a release version (not dev)
func IsRelease() bool {
	return Version != "dev" && !strings.Contains(Version, "-")
}
