package builder

import (
	"bytes"
	"os/exec"
	"runtime/debug"
	"strings"
)

var (
	// Set these at build time with -ldflags "-X 'github.com/idlab-discover/nilmeval-cli/internal/builder.Version=...' -X '...Commit=...'"
	Version = ""
	Commit  = ""
)

var readBuildInfo = debug.ReadBuildInfo

// GetVersion resolves the nilmeval version: ldflags, then module build
// info, then git, then the commit.
func GetVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := readBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	if d := gitDescribe(); d != "" {
		return d
	}
	if Commit != "" {
		return "commit-" + Commit
	}
	return "devel"
}

func gitDescribe() string {
	out, err := exec.Command("git", "describe", "--tags", "--always", "--dirty").Output()
	if err != nil {
		if short, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output(); err == nil {
			return strings.TrimSpace(string(short))
		}
		return ""
	}
	return string(bytes.TrimSpace(out))
}
