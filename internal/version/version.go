// Package version carries build metadata stamped in through ldflags.
package version

import (
	"os/exec"
	"strings"
)

var (
	Version = "0.1.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// Resolve returns the version string, extended with a git-derived suffix
// when running from a source checkout whose HEAD is not on a release tag.
func Resolve() string {
	return resolve(Version, gitOutput)
}

func resolve(base string, git func(...string) (string, error)) string {
	if base == "" {
		base = "0.0.0"
	}

	if _, err := git("rev-parse", "--git-dir"); err != nil {
		return base
	}

	if _, err := git("describe", "--tags", "--exact-match"); err == nil {
		return base
	}

	desc, err := git("describe", "--tags", "--dirty", "--always")
	if err != nil {
		return base
	}

	suffix := strings.TrimPrefix(desc, "v"+base+"-")
	if suffix == "" {
		return base
	}

	return base + "-" + suffix
}

func gitOutput(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
