package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"runtime"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pic/internal/config"
	"pic/internal/converter"
	"pic/internal/ledger"
	"pic/internal/logging"
	"pic/internal/tui"
)

// session holds what every converting or cleaning command builds first.
type session struct {
	cfg    config.Config
	logger *logging.Logger
	store  *ledger.Store
	conv   *converter.Converter
}

func (s *session) Close() {
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

// interactive reports whether progress is drawn with the bubbletea UI.
func interactive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// logConsole is where console log lines go. The bubbletea view owns the
// terminal while it runs, so an interactive session only logs to the file.
func logConsole(interactive bool) io.Writer {
	if interactive {
		return io.Discard
	}
	return os.Stderr
}

// drain consumes updates until the channel is closed so the run never
// blocks on a progress send.
func drain(updates <-chan converter.ProgressUpdate) {
	for range updates {
	}
}

// watchProgress consumes updates in the background with show, or drains
// them when show is nil or fails. The returned channel closes once updates
// is closed and fully consumed.
func watchProgress(show func() error, updates <-chan converter.ProgressUpdate, logger *log.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if show == nil {
			drain(updates)
			return
		}
		if err := show(); err != nil {
			logger.Warn("progress view stopped", "err", err)
			drain(updates)
		}
	}()
	return done
}

// openSession builds the logger and converter. A converting session also
// opens the ledger and hands the terminal to the progress view.
func openSession(converting bool) (*session, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	console := logConsole(converting && interactive())
	logger, err := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Prefix:  "pic",
		Console: console,
	})
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, logger: logger}

	opts := []converter.Option{converter.WithLogger(logger.Logger)}
	if converting && cfg.LedgerPath != "" {
		store, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.store = store
		opts = append(opts, converter.WithRecorder(store))
	}

	conv, err := converter.New(cfg, opts...)
	if err != nil {
		logger.Error("could not prepare directories", "err", err)
		s.Close()
		return nil, err
	}
	s.conv = conv
	return s, nil
}

func runConversion(cmd *cobra.Command, t converter.Transform) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.conv.LoadImages(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan converter.ProgressUpdate, 64)
	var show func() error
	if interactive() {
		model := tui.NewModel(t.String(), updates).WithInterrupt(cancel)
		program := tea.NewProgram(model)
		show = func() error {
			_, err := program.Run()
			return err
		}
	}
	uiDone := watchProgress(show, updates, s.logger.Logger)

	summary, runErr := s.conv.Run(ctx, t, updates)
	close(updates)
	<-uiDone

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tui.RenderSummary(tui.RunRows(summary, s.cfg.TargetDir)))
	if failures := tui.RenderFailures(summary.Failures); failures != "" {
		fmt.Fprintln(out, failures)
	}
	if runErr != nil {
		s.logger.Error("conversion finished with errors", "err", runErr)
		return runErr
	}

	s.logger.Info("conversion complete", "converted", summary.Converted, "target", s.cfg.TargetDir)
	showResult(out, s)
	return nil
}

// showResult opens the target directory in the platform file browser, or
// prints its path when that is disabled or fails.
func showResult(out io.Writer, s *session) {
	if s.cfg.Show {
		err := openDir(s.cfg.TargetDir)
		if err == nil {
			return
		}
		s.logger.Warn("could not open output directory", "err", err)
	}
	fmt.Fprintf(out, "Conversion complete! Files can be found at: %s\n", s.cfg.TargetDir)
}

func openDir(path string) error {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", path)
	case "windows":
		c = exec.Command("explorer", path)
	default:
		c = exec.Command("xdg-open", path)
	}
	return c.Start()
}

var paintableCmd = &cobra.Command{
	Use:   "paintable",
	Short: "Convert every source image into paintable line art",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConversion(cmd, converter.TransformPaintable)
	},
}

var chalkCmd = &cobra.Command{
	Use:   "chalk",
	Short: "Convert every source image into a chalk-style edge drawing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConversion(cmd, converter.TransformChalk)
	},
}

func init() {
	rootCmd.AddCommand(paintableCmd, chalkCmd)
}
