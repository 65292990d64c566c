package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

// ModulePath is the import path of this module, used to find its version
// in the build info of a binary that depends on it.
const ModulePath = "github.com/kbukum/apikit"

// Version and GitCommit may be set at build time with -ldflags. When
// Version is left at "dev" the module version recorded in the binary's
// build info is used instead.
var (
	Version   = "dev"
	GitCommit = ""
)

// Info describes the running copy of apikit.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	GoVersion string `json:"go_version"`
	IsRelease bool   `json:"is_release"`
}

var (
	buildInfoOnce sync.Once
	buildInfo     *debug.BuildInfo
)

func readBuildInfo() *debug.BuildInfo {
	buildInfoOnce.Do(func() {
		if bi, ok := debug.ReadBuildInfo(); ok {
			buildInfo = bi
		}
	})
	return buildInfo
}

// Get returns version information, preferring ldflags values over build
// info.
func Get() Info {
	return resolve(Version, GitCommit, readBuildInfo())
}

func resolve(ver, commit string, bi *debug.BuildInfo) Info {
	info := Info{Version: ver, GitCommit: commit, GoVersion: runtime.Version()}

	if bi != nil {
		if ver == "dev" {
			info.Version = moduleVersion(bi)
		}
		if commit == "" {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					info.GitCommit = s.Value
				}
			}
		}
	}
	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	info.IsRelease = strings.HasPrefix(info.Version, "v") && !strings.Contains(info.Version, "-")
	return info
}

// moduleVersion finds this module's version as the main module or as a
// dependency. Development builds report "(devel)", mapped to "dev".
func moduleVersion(bi *debug.BuildInfo) string {
	v := ""
	if bi.Main.Path == ModulePath {
		v = bi.Main.Version
	}
	for _, dep := range bi.Deps {
		if dep.Path == ModulePath {
			v = dep.Version
			if dep.Replace != nil && dep.Replace.Version != "" {
				v = dep.Replace.Version
			}
		}
	}
	if v == "" || v == "(devel)" {
		return "dev"
	}
	return v
}

// UserAgent returns the User-Agent sent by the API client.
func UserAgent() string {
	return "apikit/" + Get().Version
}
