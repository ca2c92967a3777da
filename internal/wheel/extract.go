package wheel

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrExtract marks any failure while unpacking an artifact archive.
var ErrExtract = errors.New("extraction failed")

// Extract unpacks the zip-format artifact at archivePath.
//
// With a non-empty outDir the directory is created (parents included) and
// reused in place: repeated extraction overlays files, nothing is emptied
// first. With an empty outDir a fresh uniquely named temporary directory is
// created. Either way the caller owns the resulting directory's lifetime;
// Extract never cleans up after itself, not even on error.
func Extract(archivePath, outDir string) (string, error) {
	targetDir := outDir
	if targetDir != "" {
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtract, err)
		}
	} else {
		dir, err := os.MkdirTemp("", "ntmusic_wheel_")
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtract, err)
		}
		targetDir = dir
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrExtract, archivePath, err)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		if err := extractEntry(f, targetDir); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrExtract, f.Name, err)
		}
	}

	return targetDir, nil
}

func extractEntry(f *zip.File, targetDir string) error {
	dest := filepath.Join(targetDir, filepath.FromSlash(f.Name))

	// reject entries escaping the target directory
	if !strings.HasPrefix(dest, filepath.Clean(targetDir)+string(os.PathSeparator)) {
		return fmt.Errorf("illegal entry path %q", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o200)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, rc)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
