package runner

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/autofram-dev/autofram/internal/logging"
)

// WatchAdvisory starts a best-effort fsnotify watch over COMMS.md and the
// contracts/ directory under workingDir, logging changes purely for
// operator visibility. It never feeds back into cycle scheduling:
// RunCycle's own git-pull-then-hash-compare is what decides whether a
// cycle does anything, so a failure to start the watch is logged and
// otherwise ignored.
func WatchAdvisory(sink *logging.Sink, workingDir string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		sink.Logger().Warn("advisory file watch unavailable", "err", err)
		return
	}

	for _, target := range []string{workingDir, filepath.Join(workingDir, "contracts")} {
		if err := watcher.Add(target); err != nil {
			sink.Logger().Debug("advisory file watch: could not watch path", "path", target, "err", err)
		}
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) == "COMMS.md" || filepath.Ext(event.Name) == ".md" {
					sink.Logger().Info("advisory file watch event", "name", event.Name, "op", event.Op.String())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				sink.Logger().Debug("advisory file watch error", "err", err)
			}
		}
	}()
}
