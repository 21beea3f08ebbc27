package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeGit(exactMatch, describe string, exactErr, descErr error) func(...string) (string, error) {
	return func(args ...string) (string, error) {
		if len(args) == 0 {
			return "", errors.New("missing git subcommand")
		}
		switch args[0] {
		case "rev-parse":
			return ".git", nil
		case "describe":
			for _, a := range args {
				if a == "--exact-match" {
					return exactMatch, exactErr
				}
			}
			return describe, descErr
		default:
			return "", errors.New("unexpected git subcommand")
		}
	}
}

func notARepo(...string) (string, error) {
	return "", errors.New("not a git repository")
}

func TestResolveOnReleaseTag(t *testing.T) {
	t.Parallel()

	got := resolve("0.1.0", fakeGit("v0.1.0", "", nil, nil))
	require.Equal(t, "0.1.0", got)
}

func TestResolveCommitsAfterTag(t *testing.T) {
	t.Parallel()

	got := resolve("0.1.0", fakeGit("", "v0.1.0-3-gabcdef", errors.New("no tag"), nil))
	require.Equal(t, "0.1.0-3-gabcdef", got)
}

func TestResolveDirtyWorkingTree(t *testing.T) {
	t.Parallel()

	got := resolve("0.1.0", fakeGit("", "v0.1.0-3-gabcdef-dirty", errors.New("no tag"), nil))
	require.Equal(t, "0.1.0-3-gabcdef-dirty", got)
}

func TestResolveWithoutAnyTags(t *testing.T) {
	t.Parallel()

	got := resolve("0.1.0", fakeGit("", "abcdef", errors.New("no tag"), nil))
	require.Equal(t, "0.1.0-abcdef", got)
}

func TestResolveOutsideRepository(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0.1.0", resolve("0.1.0", notARepo))
}

func TestResolveEmptyBaseFallsBackToZero(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0.0.0", resolve("", notARepo))
}

func TestResolveDescribeFailure(t *testing.T) {
	t.Parallel()

	got := resolve("0.1.0", fakeGit("", "", errors.New("no tag"), errors.New("describe failed")))
	require.Equal(t, "0.1.0", got)
}
