// Package api assembles the HTTP surface of the relief service.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/relief/api/evacuations"
	apijournal "github.com/kilianp07/relief/api/journal"
	"github.com/kilianp07/relief/api/network"
	"github.com/kilianp07/relief/api/reports"
	"github.com/kilianp07/relief/api/resources"
	"github.com/kilianp07/relief/api/respond"
	"github.com/kilianp07/relief/api/teams"
	"github.com/kilianp07/relief/core/coordinator"
	"github.com/kilianp07/relief/core/logger"
	"github.com/kilianp07/relief/core/monitoring"
)

// Options are the dependencies of the HTTP handler.
type Options struct {
	Coordinator   *coordinator.Coordinator
	Notifications reports.Notifications
	JournalToken  string
	CriticalRisk  int
	Monitor       monitoring.Monitor
	Logger        logger.Logger
}

// NewHandler builds the routed handler with panic recovery and access logging.
func NewHandler(o Options) http.Handler {
	c := o.Coordinator
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	network.Register(mux, c)
	teams.Register(mux, c)
	evacuations.Register(mux, c)
	resources.Register(mux, c)
	reports.Register(mux, c, o.Notifications, o.CriticalRisk)
	mux.Handle("GET /api/journal", apijournal.NewHandler(apijournal.QueryFunc(c.Journal), o.JournalToken))

	return Recover(o.Monitor, o.Logger, AccessLog(o.Logger, mux))
}

type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status, w.wrote = code, true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.status, w.wrote = http.StatusOK, true
	}
	return w.ResponseWriter.Write(b)
}

// AccessLog logs every request at debug level and server errors at error
// level.
func AccessLog(log logger.Logger, next http.Handler) http.Handler {
	log = logger.OrNop(log)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		fields := map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": time.Since(start).String(),
		}
		if sw.status >= http.StatusInternalServerError {
			log.Errorf("%s %s -> %d", r.Method, r.URL.Path, sw.status)
			return
		}
		log.Debugw("http request", fields)
	})
}

// Recover turns a handler panic into a 500 and reports it to mon.
func Recover(mon monitoring.Monitor, log logger.Logger, next http.Handler) http.Handler {
	mon, log = monitoring.OrNop(mon), logger.OrNop(log)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			log.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, v)
			mon.CapturePanic(v, map[string]string{"method": r.Method, "path": r.URL.Path})
			respond.Error(w, fmt.Errorf("panic: %v", v))
		}()
		next.ServeHTTP(w, r)
	})
}

// Serve runs an HTTP server on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler, log logger.Logger) error {
	log = logger.OrNop(log)
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("http server shutdown: %v", err)
		}
	}()
	log.Infof("serving api on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
