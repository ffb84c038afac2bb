// Package config builds the immutable run configuration from defaults, an
// optional pic.yaml, PIC_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

const (
	DefaultSourceDir = "./images/"
	DefaultTargetDir = "./converted_images/"
	DefaultQuality   = 95
	DefaultLogFile   = "file.log"
	DefaultMethod    = "gaussian"

	// DefaultOrganiseLayout names the folder organise cleanup moves sources
	// into (Month DD YYYY HH MM SS).
	DefaultOrganiseLayout = "January 02 2006 15 04 05"
)

// Keys shared by viper, the YAML file and the flag bindings.
const (
	KeyInput    = "input"
	KeyOutput   = "output"
	KeyDelete   = "delete"
	KeySort     = "sort"
	KeyAuto     = "auto"
	KeyNoShow   = "noshow"
	KeyScale    = "scale"
	KeyMethod   = "method"
	KeyQuality  = "quality"
	KeyLogFile  = "log_file"
	KeyLogLevel = "log_level"
	KeyLedger   = "ledger"
)

// CleanupKind enumerates the post-run dispositions of source files.
type CleanupKind int

const (
	CleanupNone CleanupKind = iota
	CleanupDelete
	CleanupOrganise
)

func (k CleanupKind) String() string {
	switch k {
	case CleanupDelete:
		return "delete"
	case CleanupOrganise:
		return "organise"
	default:
		return "none"
	}
}

// CleanupMode is the cleanup policy chosen once per configuration. Only the
// organise variant uses FolderLayout.
type CleanupMode struct {
	Kind         CleanupKind
	FolderLayout string
}

func NoCleanup() CleanupMode     { return CleanupMode{Kind: CleanupNone} }
func DeleteCleanup() CleanupMode { return CleanupMode{Kind: CleanupDelete} }

// OrganiseCleanup moves sources into one folder named by formatting the
// cleanup time with layout (a time.Format layout).
func OrganiseCleanup(layout string) CleanupMode {
	if layout == "" {
		layout = DefaultOrganiseLayout
	}
	return CleanupMode{Kind: CleanupOrganise, FolderLayout: layout}
}

// ErrConflictingCleanup matches a *ConflictError with errors.Is.
var ErrConflictingCleanup = errors.New("conflicting cleanup modes")

// ConflictError is returned when both delete and organise are requested.
type ConflictError struct{}

func (e *ConflictError) Error() string {
	return "delete and organise cleanup cannot be used together, use either one or the other"
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflictingCleanup }

// IsConflict reports whether err is, or wraps, a *ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// CleanupFromFlags maps the two user-facing switches onto a CleanupMode.
func CleanupFromFlags(deleteOnComplete, organiseOnComplete bool) (CleanupMode, error) {
	switch {
	case deleteOnComplete && organiseOnComplete:
		return CleanupMode{}, &ConflictError{}
	case deleteOnComplete:
		return DeleteCleanup(), nil
	case organiseOnComplete:
		return OrganiseCleanup(DefaultOrganiseLayout), nil
	default:
		return NoCleanup(), nil
	}
}

// Config is the resolved configuration of one converter. It is passed by
// value and never modified after construction.
type Config struct {
	SourceDir   string
	TargetDir   string
	Cleanup     CleanupMode
	AutoCleanup bool

	// Show opens the target directory when a run completes.
	Show bool
	// Scale shrinks sources before conversion when 0 < Scale < 1.
	Scale float64
	// Method is the adaptive threshold method: "gaussian" or "mean".
	Method  string
	Quality int

	LogFile    string
	LogLevel   string
	LedgerPath string
}

// New builds a Config with defaults for everything but the directories and
// cleanup switches. It fails with a *ConflictError, before touching the
// filesystem, when both deleteOnComplete and organiseOnComplete are set.
func New(sourceDir, targetDir string, deleteOnComplete, organiseOnComplete, autoCleanup bool) (Config, error) {
	cleanup, err := CleanupFromFlags(deleteOnComplete, organiseOnComplete)
	if err != nil {
		return Config{}, err
	}
	return Config{
		SourceDir:   sourceDir,
		TargetDir:   targetDir,
		Cleanup:     cleanup,
		AutoCleanup: autoCleanup,
		Scale:       1,
		Method:      DefaultMethod,
		Quality:     DefaultQuality,
	}, nil
}

func (c Config) DeleteOnComplete() bool   { return c.Cleanup.Kind == CleanupDelete }
func (c Config) OrganiseOnComplete() bool { return c.Cleanup.Kind == CleanupOrganise }

// Validate checks value ranges. Cleanup conflicts are impossible once a
// CleanupMode exists.
func (c Config) Validate() error {
	if c.SourceDir == "" {
		return errors.New("source directory must not be empty")
	}
	if c.TargetDir == "" {
		return errors.New("target directory must not be empty")
	}
	if c.Scale <= 0 || c.Scale > 1 {
		return fmt.Errorf("scale must be in (0, 1], got %g", c.Scale)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("quality must be in [1, 100], got %d", c.Quality)
	}
	switch c.Method {
	case "gaussian", "mean":
	default:
		return fmt.Errorf("unknown threshold method %q (want gaussian or mean)", c.Method)
	}
	if c.Cleanup.Kind == CleanupOrganise && c.Cleanup.FolderLayout == "" {
		return errors.New("organise cleanup needs a folder layout")
	}
	return nil
}

// File mirrors pic.yaml. Viper unmarshals into it; Dump marshals it back.
type File struct {
	Input    string  `mapstructure:"input" yaml:"input"`
	Output   string  `mapstructure:"output" yaml:"output"`
	Delete   bool    `mapstructure:"delete" yaml:"delete"`
	Sort     bool    `mapstructure:"sort" yaml:"sort"`
	Auto     bool    `mapstructure:"auto" yaml:"auto"`
	NoShow   bool    `mapstructure:"noshow" yaml:"noshow"`
	Scale    float64 `mapstructure:"scale" yaml:"scale"`
	Method   string  `mapstructure:"method" yaml:"method"`
	Quality  int     `mapstructure:"quality" yaml:"quality"`
	LogFile  string  `mapstructure:"log_file" yaml:"log_file"`
	LogLevel string  `mapstructure:"log_level" yaml:"log_level"`
	Ledger   string  `mapstructure:"ledger" yaml:"ledger"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyInput, DefaultSourceDir)
	v.SetDefault(KeyOutput, DefaultTargetDir)
	v.SetDefault(KeyDelete, false)
	v.SetDefault(KeySort, false)
	v.SetDefault(KeyAuto, false)
	v.SetDefault(KeyNoShow, false)
	v.SetDefault(KeyScale, 1.0)
	v.SetDefault(KeyMethod, DefaultMethod)
	v.SetDefault(KeyQuality, DefaultQuality)
	v.SetDefault(KeyLogFile, DefaultLogFile)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLedger, "")
}

// Load resolves the effective configuration from v. Directory paths are
// made absolute.
func Load(v *viper.Viper) (Config, error) {
	var f File
	if err := v.Unmarshal(&f); err != nil {
		return Config{}, fmt.Errorf("reading configuration: %w", err)
	}
	return FromFile(f)
}

// FromFile converts the flat file view into a validated Config.
func FromFile(f File) (Config, error) {
	cleanup, err := CleanupFromFlags(f.Delete, f.Sort)
	if err != nil {
		return Config{}, err
	}

	source, err := absPath(f.Input)
	if err != nil {
		return Config{}, err
	}
	target, err := absPath(f.Output)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		SourceDir:   source,
		TargetDir:   target,
		Cleanup:     cleanup,
		AutoCleanup: f.Auto,
		Show:        !f.NoShow,
		Scale:       f.Scale,
		Method:      f.Method,
		Quality:     f.Quality,
		LogFile:     f.LogFile,
		LogLevel:    f.LogLevel,
		LedgerPath:  f.Ledger,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ToFile is the inverse of FromFile.
func (c Config) ToFile() File {
	return File{
		Input:    c.SourceDir,
		Output:   c.TargetDir,
		Delete:   c.DeleteOnComplete(),
		Sort:     c.OrganiseOnComplete(),
		Auto:     c.AutoCleanup,
		NoShow:   !c.Show,
		Scale:    c.Scale,
		Method:   c.Method,
		Quality:  c.Quality,
		LogFile:  c.LogFile,
		LogLevel: c.LogLevel,
		Ledger:   c.LedgerPath,
	}
}

// Dump renders c as pic.yaml.
func Dump(c Config) ([]byte, error) {
	return yaml.Marshal(c.ToFile())
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", p, err)
	}
	return abs, nil
}
