// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/apex/log"
)

// Greeting is the body of GET /. Clients use it as a reachability probe.
const Greeting = "Hello World!!!!"

// Options configure the HTTP routes.
type Options struct {
	// ListDelay is slept before answering GET /tasks.
	ListDelay time.Duration
	// CreateDelay is slept before answering POST /tasks/create. The task is
	// created before the delay starts.
	CreateDelay time.Duration
}

// Handler returns the Task Service routes over svc.
func Handler(svc *Service, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, Greeting)
	})

	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		if !sleep(r.Context(), opts.ListDelay) {
			return
		}
		writeJSON(w, svc.List())
	})

	mux.HandleFunc("GET /tasks/{id}/complete", func(w http.ResponseWriter, r *http.Request) {
		data := svc.Complete(r.PathValue("id"))
		log.WithField("items", len(data)).Debugf("completed task %s", r.PathValue("id"))
		writeJSON(w, data)
	})

	mux.HandleFunc("POST /tasks/create", func(w http.ResponseWriter, r *http.Request) {
		it, data := svc.Create()
		log.WithField("items", len(data)).Debugf("created task %d", it.ID)
		if !sleep(r.Context(), opts.CreateDelay) {
			return
		}
		writeJSON(w, data)
	})

	return withHeaders(withLogging(mux))
}

// sleep waits d or until ctx is done. It reports whether to carry on.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-cache, no-transform")
		h.Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET,HEAD,PUT,PATCH,POST,DELETE")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				log.WithField("panic", p).Errorf("%s %s", r.Method, r.URL.Path)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			ctxLog := log.WithFields(log.Fields{
				"status":  rec.status,
				"elapsed": time.Since(start).Round(time.Millisecond),
			})
			if r.Context().Err() != nil {
				ctxLog.Infof("%s %s abandoned by client", r.Method, r.URL.Path)
				return
			}
			ctxLog.Infof("%s %s", r.Method, r.URL.Path)
		}()

		next.ServeHTTP(rec, r)
	})
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
// ready, when not nil, receives the bound address once listening.
func Serve(ctx context.Context, addr string, h http.Handler, ready chan<- string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Infof("task service listening on %s", ln.Addr())
	if ready != nil {
		ready <- ln.Addr().String()
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
