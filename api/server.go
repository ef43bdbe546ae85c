// Package api exposes a running player over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/framescroll/loop"
	"github.com/matt-g-everett/framescroll/playback"
)

// A Caller runs a function on the loop goroutine and waits for it.
type Caller interface {
	Call(ctx context.Context, fn func()) error
}

// Player is the part of playback.Controller served by the Api.
type Player interface {
	Snapshot() playback.Status
	ShowFrameWhenReady(index int) *loop.Future[int]
	UpgradeFrame(index int)
}

type frameResponse struct {
	Frame int    `json:"frame"`
	Error string `json:"error,omitempty"`
}

type Api struct {
	caller    Caller
	player    Player
	assetRoot string
	timeout   time.Duration
	log       logrus.FieldLogger
}

// NewApi creates an instance of an Api. Files under assetRoot are served from /assets/
// when assetRoot is set.
func NewApi(caller Caller, player Player, assetRoot string, log logrus.FieldLogger) *Api {
	a := new(Api)
	a.caller = caller
	a.player = player
	a.assetRoot = assetRoot
	a.timeout = 10 * time.Second
	a.log = log.WithField("component", "api")
	return a
}

// Handler returns the routes.
func (a *Api) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", a.handleStatus)
	mux.HandleFunc("/frame", a.handleFrame)
	if a.assetRoot != "" {
		mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(a.assetRoot))))
	}
	return a.logRequests(mux)
}

// Serve listens on addr until ctx is cancelled.
func (a *Api) Serve(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: a.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("Shutting down")
		}
	}()

	a.log.WithField("addr", addr).Info("Listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *Api) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var status playback.Status
	if err := a.caller.Call(r.Context(), func() { status = a.player.Snapshot() }); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	a.writeJSON(w, http.StatusOK, status)
}

// handleFrame shows ?index= and optionally upgrades it with &upgrade=true. It responds
// once the frame is visible or has failed.
func (a *Api) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		http.Error(w, "index must be an integer", http.StatusBadRequest)
		return
	}
	upgrade, _ := strconv.ParseBool(r.URL.Query().Get("upgrade"))

	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()

	type result struct {
		frame int
		err   error
	}
	done := make(chan result, 1)
	err = a.caller.Call(ctx, func() {
		a.player.ShowFrameWhenReady(index).OnComplete(func(frame int, err error) {
			done <- result{frame, err}
		})
		if upgrade {
			a.player.UpgradeFrame(index)
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	select {
	case res := <-done:
		if res.err != nil {
			a.writeJSON(w, statusFor(res.err), frameResponse{Frame: index, Error: res.err.Error()})
			return
		}
		a.writeJSON(w, http.StatusOK, frameResponse{Frame: res.frame})
	case <-ctx.Done():
		http.Error(w, ctx.Err().Error(), http.StatusGatewayTimeout)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, playback.ErrFrameOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, playback.ErrFrameSuperseded):
		return http.StatusConflict
	case errors.Is(err, playback.ErrFrameLoadFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (a *Api) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.WithError(err).Warn("Writing response")
	}
}

func (a *Api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("Request completed")
	})
}
