package wheel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o644))
	return path
}

func noEnv(string) string { return "" }

func TestLocateExplicitPathWins(t *testing.T) {
	dir := t.TempDir()
	explicit := touch(t, dir, "custom-build.whl")

	// scan directories hold a tagged candidate that must be ignored
	scanDir := t.TempDir()
	touch(t, scanDir, ArtifactPrefix+"1.0-manylinux_x86_64.whl")

	cand, err := Locate(LocateOptions{
		Explicit: explicit,
		Dirs:     []string{scanDir},
		Tags:     []string{"manylinux"},
		getenv:   noEnv,
	})
	require.NoError(t, err)
	assert.Equal(t, explicit, cand.Path)
	assert.Empty(t, cand.Tag, "explicit path skips platform inference")
}

func TestLocateExplicitPathMissing(t *testing.T) {
	scanDir := t.TempDir()
	touch(t, scanDir, ArtifactPrefix+"1.0-manylinux_x86_64.whl")

	// a supplied-but-absent explicit path is a hard miss, not a fallthrough
	_, err := Locate(LocateOptions{
		Explicit: filepath.Join(t.TempDir(), "missing.whl"),
		Dirs:     []string{scanDir},
		Tags:     []string{"manylinux"},
		getenv:   noEnv,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocateEnvOverride(t *testing.T) {
	dir := t.TempDir()
	envPath := touch(t, dir, "env-build.whl")

	scanDir := t.TempDir()
	touch(t, scanDir, ArtifactPrefix+"1.0-manylinux_x86_64.whl")

	cand, err := Locate(LocateOptions{
		Dirs:   []string{scanDir},
		Tags:   []string{"manylinux"},
		getenv: func(key string) string {
			if key == EnvWheelPath {
				return envPath
			}
			return ""
		},
	})
	require.NoError(t, err)
	assert.Equal(t, envPath, cand.Path)
}

func TestLocateEnvOverrideMissingFallsThrough(t *testing.T) {
	scanDir := t.TempDir()
	want := touch(t, scanDir, ArtifactPrefix+"1.0-manylinux_x86_64.whl")

	cand, err := Locate(LocateOptions{
		Dirs:   []string{scanDir},
		Tags:   []string{"manylinux"},
		getenv: func(string) string { return "/nonexistent/wheel.whl" },
	})
	require.NoError(t, err)
	assert.Equal(t, want, cand.Path)
}

func TestLocateTagPriority(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, ArtifactPrefix+"1.0-win32.whl")
	want := touch(t, dir, ArtifactPrefix+"1.0-win_amd64.whl")
	touch(t, dir, ArtifactPrefix+"1.0-manylinux_x86_64.whl")

	cand, err := Locate(LocateOptions{
		Dirs:   []string{dir},
		Tags:   []string{"win_amd64", "win32"},
		getenv: noEnv,
	})
	require.NoError(t, err)
	assert.Equal(t, want, cand.Path)
	assert.Equal(t, "win_amd64", cand.Tag)
}

func TestLocateSecondTagWhenFirstAbsent(t *testing.T) {
	dir := t.TempDir()
	want := touch(t, dir, ArtifactPrefix+"1.0-win32.whl")
	touch(t, dir, ArtifactPrefix+"1.0-manylinux_x86_64.whl")

	cand, err := Locate(LocateOptions{
		Dirs:   []string{dir},
		Tags:   []string{"win_amd64", "win32"},
		getenv: noEnv,
	})
	require.NoError(t, err)
	assert.Equal(t, want, cand.Path)
	assert.Equal(t, "win32", cand.Tag)
}

func TestLocateFallbackFirstMatch(t *testing.T) {
	dir := t.TempDir()
	first := touch(t, dir, ArtifactPrefix+"1.0-aix_ppc64.whl")
	touch(t, dir, ArtifactPrefix+"1.0-freebsd_amd64.whl")

	cand, err := Locate(LocateOptions{
		Dirs:   []string{dir},
		Tags:   []string{"manylinux", "linux"},
		getenv: noEnv,
	})
	require.NoError(t, err)
	assert.Equal(t, first, cand.Path)
	assert.Empty(t, cand.Tag)
}

func TestLocateFirstDirectoryWins(t *testing.T) {
	early := t.TempDir()
	late := t.TempDir()

	// the early directory holds only an untagged match; the late one holds
	// a perfectly tagged wheel. The early match still wins: directories are
	// never merged and the scan stops at the first hit.
	want := touch(t, early, ArtifactPrefix+"1.0-aix_ppc64.whl")
	touch(t, late, ArtifactPrefix+"1.0-manylinux_x86_64.whl")

	cand, err := Locate(LocateOptions{
		Dirs:   []string{early, late},
		Tags:   []string{"manylinux", "linux"},
		getenv: noEnv,
	})
	require.NoError(t, err)
	assert.Equal(t, want, cand.Path)
}

func TestLocateSkipsEmptyAndMissingDirs(t *testing.T) {
	empty := t.TempDir()
	hit := t.TempDir()
	want := touch(t, hit, ArtifactPrefix+"1.0-manylinux_x86_64.whl")

	cand, err := Locate(LocateOptions{
		Dirs:   []string{"/nonexistent/wheels", empty, hit},
		Tags:   []string{"manylinux"},
		getenv: noEnv,
	})
	require.NoError(t, err)
	assert.Equal(t, want, cand.Path)
}

func TestLocateNotFound(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "unrelated-1.0.whl")

	_, err := Locate(LocateOptions{
		Dirs:   []string{dir},
		Tags:   []string{"manylinux"},
		getenv: noEnv,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPreferredTags(t *testing.T) {
	assert.Equal(t, []string{"win_amd64", "win32"}, PreferredTags("windows"))
	assert.Equal(t, []string{"macosx_11_0_arm64", "macosx_10_9_x86_64", "macosx"}, PreferredTags("darwin"))
	assert.Equal(t, []string{"manylinux", "linux"}, PreferredTags("linux"))
	assert.Equal(t, []string{"manylinux", "linux"}, PreferredTags("freebsd"))
}

func TestScanDirsOrder(t *testing.T) {
	dirs := ScanDirs("/opt/ntmusic", "/work")
	require.Len(t, dirs, 5)
	assert.Equal(t, filepath.Join("/opt/ntmusic", "engine", "python", "wheels"), dirs[0])
	assert.Equal(t, filepath.Join("/opt/ntmusic", "engine", "python"), dirs[1])
	assert.Equal(t, filepath.Join("/opt/ntmusic", "wheels"), dirs[2])
	assert.Equal(t, "/work", dirs[3])
	assert.Equal(t, filepath.Join("/opt", "VCPChat", "audio_engine"), dirs[4])
}
