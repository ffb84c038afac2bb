package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pic/internal/config"
	"pic/internal/converter"
	"pic/internal/imageio"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:           "pic",
	Short:         "pic - turn photos into paintable line art or chalk drawings",
	Long:          "pic converts every image in a source directory into paintable line art or a chalk-style edge drawing, then optionally deletes or organises the originals.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the status matching the
// error kind.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for the conversion failures a user can act on, 1 otherwise.
func exitCode(err error) int {
	var conflict *config.ConflictError
	switch {
	case errors.As(err, &conflict),
		converter.IsNoImagesFound(err),
		converter.IsDirectoryCreation(err),
		imageio.IsSaveError(err):
		return 2
	default:
		return 1
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./pic.yaml or ~/.config/pic/pic.yaml)")
	flags.StringP("input", "i", config.DefaultSourceDir, "directory containing the source images")
	flags.StringP("output", "o", config.DefaultTargetDir, "directory the converted images are written to")
	flags.BoolP("delete", "d", false, "delete the source files on cleanup")
	flags.BoolP("sort", "s", false, "move the source files into a timestamped folder on cleanup")
	flags.BoolP("auto", "a", false, "clean up the source directory after a conversion")
	flags.Bool("noshow", false, "print the output directory instead of opening it")
	flags.Float64("scale", 1, "shrink sources by this factor before converting (0 < scale <= 1)")
	flags.String("method", config.DefaultMethod, "adaptive threshold method for paintable: gaussian or mean")
	flags.Int("quality", config.DefaultQuality, "JPEG quality of the converted images (1-100)")
	flags.String("log-file", config.DefaultLogFile, "append log lines to this file (empty disables)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("ledger", "", "record runs in this SQLite database (empty disables)")

	bindings := map[string]string{
		config.KeyInput:    "input",
		config.KeyOutput:   "output",
		config.KeyDelete:   "delete",
		config.KeySort:     "sort",
		config.KeyAuto:     "auto",
		config.KeyNoShow:   "noshow",
		config.KeyScale:    "scale",
		config.KeyMethod:   "method",
		config.KeyQuality:  "quality",
		config.KeyLogFile:  "log-file",
		config.KeyLogLevel: "log-level",
		config.KeyLedger:   "ledger",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func initConfig() {
	config.SetDefaults(v)
	v.SetEnvPrefix("PIC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pic")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pic"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			fmt.Fprintf(os.Stderr, "reading config: %v\n", err)
			os.Exit(1)
		}
	}
}
