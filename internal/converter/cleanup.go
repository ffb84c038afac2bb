package converter

import (
	"fmt"
	"os"
	"path/filepath"

	"pic/internal/config"
)

// Cleanup disposes of the source directory's files according to the
// configured cleanup mode and returns how many files it handled.
//
// The directory is listed again rather than reusing the worklist: every
// regular file present at cleanup time is swept, including files that were
// not images and files that arrived during the run. Sub-directories are left
// alone.
func (c *Converter) Cleanup() (int, error) {
	unlock := lockDirs(c.cfg.SourceDir)
	defer unlock()
	return c.cleanup()
}

func (c *Converter) cleanup() (int, error) {
	mode := c.cfg.Cleanup
	if mode.Kind == config.CleanupNone {
		return 0, nil
	}

	src := c.cfg.SourceDir
	entries, err := os.ReadDir(src)
	if err != nil {
		return 0, fmt.Errorf("listing %s for cleanup: %w", src, err)
	}

	folder := ""
	handled := 0
	for _, entry := range entries {
		path := filepath.Join(src, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		switch mode.Kind {
		case config.CleanupDelete:
			if err := os.Remove(path); err != nil {
				return handled, fmt.Errorf("deleting %s: %w", path, err)
			}
			c.log.Debug("deleted source file", "file", entry.Name())
		case config.CleanupOrganise:
			if folder == "" {
				folder, err = c.organiseFolder(mode.FolderLayout)
				if err != nil {
					return handled, err
				}
			}
			dest := filepath.Join(folder, entry.Name())
			if err := os.Rename(path, dest); err != nil {
				return handled, fmt.Errorf("moving %s to %s: %w", path, folder, err)
			}
			c.log.Debug("moved source file", "file", entry.Name(), "folder", filepath.Base(folder))
		}
		handled++
	}

	if handled > 0 {
		c.log.Info("cleaned up source directory", "mode", mode.Kind, "files", handled)
	}
	return handled, nil
}

// organiseFolder creates the timestamped folder for this cleanup. A folder
// with the same name left by a cleanup within the same second is reused.
func (c *Converter) organiseFolder(layout string) (string, error) {
	folder := filepath.Join(c.cfg.SourceDir, c.now().Format(layout))
	if err := os.Mkdir(folder, 0o755); err != nil {
		info, statErr := os.Stat(folder)
		if !os.IsExist(err) || statErr != nil || !info.IsDir() {
			return "", fmt.Errorf("creating organise folder: %w", err)
		}
	}
	return folder, nil
}
