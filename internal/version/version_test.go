package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeBuildInfo(info buildInfo, ok bool) func() (buildInfo, bool) {
	return func() (buildInfo, bool) {
		return info, ok
	}
}

func TestResolveVersion_TaggedRelease(t *testing.T) {
	t.Parallel()
	got := resolveVersion("1.0.0", fakeBuildInfo(buildInfo{tagged: true}, true))
	require.Equal(t, "1.0.0", got)
}

func TestResolveVersion_RevisionSuffix(t *testing.T) {
	t.Parallel()
	got := resolveVersion("1.0.0", fakeBuildInfo(buildInfo{revision: "abcdef0123456789"}, true))
	require.Equal(t, "1.0.0-abcdef0", got)
}

func TestResolveVersion_DirtyWorkingTree(t *testing.T) {
	t.Parallel()
	got := resolveVersion("1.0.0", fakeBuildInfo(buildInfo{revision: "abcdef0123456789", modified: true}, true))
	require.Equal(t, "1.0.0-abcdef0-dirty", got)
}

func TestResolveVersion_ShortRevisionKeptWhole(t *testing.T) {
	t.Parallel()
	got := resolveVersion("1.0.0", fakeBuildInfo(buildInfo{revision: "abc"}, true))
	require.Equal(t, "1.0.0-abc", got)
}

func TestResolveVersion_NoBuildInfo(t *testing.T) {
	t.Parallel()
	got := resolveVersion("1.0.0", fakeBuildInfo(buildInfo{}, false))
	require.Equal(t, "1.0.0", got)
}

func TestResolveVersion_NoRevision(t *testing.T) {
	t.Parallel()
	got := resolveVersion("1.0.0", fakeBuildInfo(buildInfo{modified: true}, true))
	require.Equal(t, "1.0.0", got)
}

func TestResolveVersion_EmptyBaseFallsBackToZero(t *testing.T) {
	t.Parallel()
	got := resolveVersion("", fakeBuildInfo(buildInfo{}, false))
	require.Equal(t, "0.0.0", got)
}

func TestResolveReturnsBaseVersionPrefix(t *testing.T) {
	t.Parallel()
	require.Contains(t, Resolve(), Version)
}

func TestResolveVersion_TaggedBuildIgnoresRevision(t *testing.T) {
	t.Parallel()
	info := buildInfoFrom(&debug.BuildInfo{
		Main:     debug.Module{Path: "github.com/fmueller/xxlasr", Version: "v1.0.0"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abcdef0123456789"}},
	})
	require.True(t, info.tagged)
	require.Equal(t, "1.0.0", resolveVersion("1.0.0", fakeBuildInfo(info, true)))
}

func TestResolveVersion_PseudoVersionBuildKeepsRevision(t *testing.T) {
	t.Parallel()
	info := buildInfoFrom(&debug.BuildInfo{
		Main:     debug.Module{Path: "github.com/fmueller/xxlasr", Version: "v1.0.1-0.20260102030405-abcdef012345+dirty"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abcdef0123456789"},
			{Key: "vcs.modified", Value: "true"},
		},
	})
	require.False(t, info.tagged)
	require.Equal(t, "1.0.0-abcdef0-dirty", resolveVersion("1.0.0", fakeBuildInfo(info, true)))
}

func TestIsReleaseVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version string
		want    bool
	}{
		{version: "v1.2.3", want: true},
		{version: "v2.0.0-rc.1", want: true},
		{version: "v0.0.0-20260102030405-abcdef012345", want: false},
		{version: "v1.2.4-0.20260102030405-abcdef012345", want: false},
		{version: "v1.2.3+dirty", want: false},
		{version: "(devel)", want: false},
		{version: "", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.version, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, isReleaseVersion(tt.version))
		})
	}
}
