// Package version carries the build identity stamped into the
// livescribe binary.
//
// Version and Commit are set at build time through -ldflags:
//
//	go build -ldflags "-X github.com/skillsenselab/livescribe/version.Version=1.2.0"
//
// When the commit is not stamped it falls back to the VCS metadata the
// Go toolchain embeds in the binary.
package version

import "runtime/debug"

var (
	// Version is the release version, "dev" when unstamped.
	Version = "dev"
	// Commit is the short git revision the binary was built from.
	Commit = ""
)

// Short returns "version" alone or "version-commit" when a revision is
// known.
func Short() string {
	commit := Commit
	if commit == "" {
		commit = vcsRevision()
	}
	if commit == "" {
		return Version
	}
	return Version + "-" + commit
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && dirty {
		revision += "-dirty"
	}
	return revision
}
