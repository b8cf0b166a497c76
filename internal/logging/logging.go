package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const (
	// RunnerLogMaxBytes / RunnerLogBackups match logs/runner.log's
	// "rotating, 5 MiB x 3" requirement: 3 backups plus the active file.
	RunnerLogMaxBytes = 5 * 1024 * 1024
	RunnerLogBackups  = 3
)

// Sink owns every log destination a Runner or Watcher process writes to
// under the logs directory it was built with (the main checkout's logs/).
// It is constructed once at process startup and
// passed explicitly to the components that need it; there is no
// package-level logger singleton.
type Sink struct {
	dir        string
	runnerFile *rotatingFile
	logger     *slog.Logger
	errorsFile *os.File
	model      *ModelLog
}

// NewRunnerSink sets up logs/runner.log (rotating) and logs/errors.log
// (truncated fresh) and installs the process-wide slog logger: colorized
// text to stdout via tint, plain text to the rotating file.
func NewRunnerSink(logsDir string) (*Sink, error) {
	rf, err := newRotatingFile(logsDir+"/runner.log", RunnerLogMaxBytes, RunnerLogBackups)
	if err != nil {
		return nil, fmt.Errorf("open runner.log: %w", err)
	}
	errF, err := truncateFile(logsDir + "/errors.log")
	if err != nil {
		_ = rf.Close()
		return nil, fmt.Errorf("open errors.log: %w", err)
	}
	logger := newMultiLogger(rf)
	slog.SetDefault(logger)

	ml, err := newModelLog(logsDir + "/model.log")
	if err != nil {
		_ = rf.Close()
		_ = errF.Close()
		return nil, fmt.Errorf("open model.log: %w", err)
	}

	return &Sink{dir: logsDir, runnerFile: rf, logger: logger, errorsFile: errF, model: ml}, nil
}

// NewWatcherSink sets up logs/watcher.log with the same console+file fan-out,
// but does not touch errors.log or model.log (those belong to the Runner).
func NewWatcherSink(logsDir string) (*Sink, error) {
	rf, err := newRotatingFile(logsDir+"/watcher.log", RunnerLogMaxBytes, RunnerLogBackups)
	if err != nil {
		return nil, fmt.Errorf("open watcher.log: %w", err)
	}
	logger := newMultiLogger(rf)
	return &Sink{dir: logsDir, runnerFile: rf, logger: logger}, nil
}

// newMultiLogger builds a slog.Logger that writes colorized text to stdout
// (tint, gated by isatty and wrapped through go-colorable) and plain text
// to the rotating file. Stdout, not stderr: the Runner redirects fd 2
// into errors.log, whose size the Watcher treats as an unhealth signal,
// so routine log output must stay off it.
func newMultiLogger(file *rotatingFile) *slog.Logger {
	consoleW := colorable.NewColorable(os.Stdout)
	noColor := !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
	console := tint.NewHandler(consoleW, &tint.Options{
		Level:      slog.LevelInfo,
		NoColor:    noColor,
		TimeFormat: "15:04:05",
	})
	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(&fanoutHandler{handlers: []slog.Handler{console, fileHandler}})
}

// ErrorsLog returns the writer stderr should be redirected to
// (logs/errors.log, truncated on start).
func (s *Sink) ErrorsLog() *os.File { return s.errorsFile }

// ModelLog returns the structured model-I/O transcript sink.
func (s *Sink) ModelLog() *ModelLog { return s.model }

// Logger returns the process-wide structured logger.
func (s *Sink) Logger() *slog.Logger { return s.logger }

// Close flushes and closes every owned file handle.
func (s *Sink) Close() error {
	var firstErr error
	if s.runnerFile != nil {
		if err := s.runnerFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.errorsFile != nil {
		if err := s.errorsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.model != nil {
		if err := s.model.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// fanoutHandler implements slog.Handler by forwarding every record to each
// of its handlers in turn, stopping at the first error.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
