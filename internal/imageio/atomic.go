package imageio

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
)

// writeAtomic streams encode's output into a temporary file next to
// destPath, syncs it and renames it over destPath.
func writeAtomic(destPath string, encode func(io.Writer) error) error {
	destDir := filepath.Dir(destPath)

	tmpFile, err := os.CreateTemp(destDir, ".pic-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if err := tmpFile.Chmod(0o644); err != nil {
		_ = tmpFile.Close()
		return err
	}

	bw := bufio.NewWriter(tmpFile)
	if err := encode(bw); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return replaceFile(tmpFile.Name(), destPath)
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
