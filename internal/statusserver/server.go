// Package statusserver serves the plain-text status endpoint: a
// timestamp, the branch, and one line each for the watcher and runner
// processes, plus a /hello liveness probe. It is observability glue
// only; nothing in the work cycle or supervision loop depends on it.
package statusserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/autofram-dev/autofram/internal/procscan"
)

// Server answers /status and /hello.
type Server struct {
	// Branch is the branch name reported in /status.
	Branch string
	// MainDir is the main checkout, used to locate the Runner's PID
	// file.
	MainDir string
	// Logger receives access lines and a failure to open the geoip
	// database.
	Logger *slog.Logger

	geo *geoDB
}

// New returns a Server. geoDBPath optionally names a MaxMind database
// used to annotate the caller's location in /status; when empty or
// unreadable the annotation is skipped.
func New(branch, mainDir, geoDBPath string, logger *slog.Logger) *Server {
	s := &Server{Branch: branch, MainDir: mainDir, Logger: logger}
	if geoDBPath != "" {
		geo, err := openGeoDB(geoDBPath)
		if err != nil {
			logger.Warn("geoip database unavailable", "path", geoDBPath, "err", err)
		} else {
			s.geo = geo
		}
	}
	return s
}

// ListenAndServe serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /hello", s.handleHello)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s.accessLog(compressMiddleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	s.Logger.Info("status server listening", "port", port)
	return srv.ListenAndServe()
}

func (s *Server) handleHello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Hello, World!"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	lines := []string{
		"timestamp: " + time.Now().Format("2006-01-02 15:04:05"),
		"branch: " + s.Branch,
		processInfo(procscan.FindWatcher(), "watcher"),
		processInfo(procscan.FindRunner(s.MainDir), "runner"),
	}
	if caller := s.callerLine(r); caller != "" {
		lines = append(lines, caller)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(strings.Join(lines, "\n") + "\n"))
}

// processInfo renders one "name: pid=N status=S uptime=Xh Ym Zs" line, or
// "not running" / "not accessible" when the process is absent or /proc
// cannot be read.
func processInfo(proc *procscan.Process, name string) string {
	if proc == nil {
		return name + ": not running"
	}
	started, err := procscan.StartTime(proc.PID)
	if err != nil {
		return name + ": not accessible"
	}
	up := time.Since(started)
	hours := int(up.Hours())
	minutes := int(up.Minutes()) % 60
	seconds := int(up.Seconds()) % 60
	return fmt.Sprintf("%s: pid=%d status=%s uptime=%dh %dm %ds",
		name, proc.PID, stateWord(procscan.State(proc.PID)), hours, minutes, seconds)
}

// stateWord expands the kernel's one-letter process state.
func stateWord(state string) string {
	switch state {
	case "R":
		return "running"
	case "S":
		return "sleeping"
	case "D":
		return "disk-sleep"
	case "T", "t":
		return "stopped"
	case "Z":
		return "zombie"
	case "":
		return "unknown"
	}
	return state
}

// accessLog logs one line per request.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		s.Logger.Info("status request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
	})
}
