package converter

import (
	"errors"
	"os"

	"github.com/charmbracelet/log"
)

// ValidateDirectories makes sure source and target exist as directories,
// creating any that are missing. Creation is single-level and is not rolled
// back if the other directory then fails.
func ValidateDirectories(logger *log.Logger, source, target string) error {
	logger.Info("Validating source and target directories...")

	dirs := []struct {
		label string
		path  string
	}{
		{label: "source", path: source},
		{label: "target", path: target},
	}
	for _, d := range dirs {
		info, err := os.Stat(d.path)
		if err == nil {
			if !info.IsDir() {
				return &DirectoryCreationError{Path: d.path, Err: errors.New("path exists and is not a directory")}
			}
			logger.Debug("validated directory", "kind", d.label, "path", d.path)
			continue
		}
		if !os.IsNotExist(err) {
			return &DirectoryCreationError{Path: d.path, Err: err}
		}

		logger.Warn("directory does not exist, creating it", "kind", d.label, "path", d.path)
		if err := os.Mkdir(d.path, 0o755); err != nil && !os.IsExist(err) {
			return &DirectoryCreationError{Path: d.path, Err: err}
		}
	}
	return nil
}
