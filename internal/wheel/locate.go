package wheel

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// ArtifactPrefix is the fixed filename prefix of the packaged native module.
const ArtifactPrefix = "rust_audio_resampler-"

// EnvWheelPath names the environment override consulted when no explicit
// path is given on the command line.
const EnvWheelPath = "NTMUSIC_WHEEL_PATH"

// ErrNotFound is returned when no candidate artifact exists in any of the
// override locations or scan directories.
var ErrNotFound = errors.New("wheel not found")

// Candidate is a located artifact plus the platform tag that matched it.
// Tag is empty when the artifact was selected without tag inference
// (explicit or environment override, or fallback first match).
type Candidate struct {
	Path string
	Tag  string
}

// LocateOptions control artifact resolution. Zero values fall back to the
// defaults for the running platform.
type LocateOptions struct {
	// Explicit is the --wheel path. When set and present on disk it is used
	// verbatim, with no pattern matching or platform inference.
	Explicit string

	// Dirs is the ordered list of directories to scan. Defaults to ScanDirs.
	Dirs []string

	// Tags is the platform-tag priority order. Defaults to PreferredTags.
	Tags []string

	// env lookup, swappable in tests
	getenv func(string) string
}

// PreferredTags returns the platform-tag tie-break order for an operating
// system family, highest priority first.
func PreferredTags(goos string) []string {
	switch goos {
	case "windows":
		return []string{"win_amd64", "win32"}
	case "darwin":
		return []string{"macosx_11_0_arm64", "macosx_10_9_x86_64", "macosx"}
	default:
		return []string{"manylinux", "linux"}
	}
}

// ScanDirs returns the fixed, ordered directory list searched when no
// override is in effect: wheel drop locations under the install root, the
// working directory, and the sibling VCPChat project's engine directory.
func ScanDirs(installRoot, cwd string) []string {
	return []string{
		filepath.Join(installRoot, "engine", "python", "wheels"),
		filepath.Join(installRoot, "engine", "python"),
		filepath.Join(installRoot, "wheels"),
		cwd,
		filepath.Join(filepath.Dir(installRoot), "VCPChat", "audio_engine"),
	}
}

// Locate resolves a single artifact candidate.
//
// Resolution order: explicit path, then environment override, then directory
// scan. The scan stops at the first directory containing at least one match;
// later directories are never consulted, even if they hold a better-tagged
// artifact. That is long-standing behavior operators rely on, so it is kept
// as-is rather than merging directories.
func Locate(opts LocateOptions) (Candidate, error) {
	getenv := opts.getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	if opts.Explicit != "" {
		if _, err := os.Stat(opts.Explicit); err == nil {
			return Candidate{Path: opts.Explicit}, nil
		}
		return Candidate{}, ErrNotFound
	}

	if envPath := getenv(EnvWheelPath); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return Candidate{Path: envPath}, nil
		}
	}

	tags := opts.Tags
	if tags == nil {
		tags = PreferredTags(runtime.GOOS)
	}

	dirs := opts.Dirs
	if dirs == nil {
		root, cwd, err := defaultRoots()
		if err != nil {
			return Candidate{}, err
		}
		dirs = ScanDirs(root, cwd)
	}

	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, ArtifactPrefix+"*.whl"))
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		return pickCandidate(matches, tags), nil
	}

	return Candidate{}, ErrNotFound
}

// pickCandidate applies the tag tie-break: tags are scanned in priority
// order against the matches in enumeration order, and the first hit wins.
// With no tag hit at all, the first match is returned untagged.
func pickCandidate(matches []string, tags []string) Candidate {
	for _, tag := range tags {
		for _, match := range matches {
			if strings.Contains(filepath.Base(match), tag) {
				return Candidate{Path: match, Tag: tag}
			}
		}
	}
	return Candidate{Path: matches[0]}
}

func defaultRoots() (installRoot, cwd string, err error) {
	exe, err := os.Executable()
	if err != nil {
		return "", "", err
	}
	// binary lives in <root>/bin or <root>/tools; the root is one up
	installRoot = filepath.Dir(filepath.Dir(exe))

	cwd, err = os.Getwd()
	if err != nil {
		return "", "", err
	}
	return installRoot, cwd, nil
}
