// Cellboard
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Cellboard.
//
// Cellboard is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cellboard is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Cellboard.  If not, see <http://www.gnu.org/licenses/>.

// Package api serves the display's state over HTTP and pushes every
// notification to websocket clients.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/api/middleware"
	"github.com/ZaparooProject/cellboard/pkg/models"
	"github.com/ZaparooProject/cellboard/pkg/service/broker"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

const (
	RequestTimeout   = 10 * time.Second
	ShutdownTimeout  = 5 * time.Second
	subscriberBuffer = 64
)

// StateSource answers snapshot queries. Implementations run the query on
// the service's main loop.
type StateSource interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
	Chart(ctx context.Context) (models.ChartData, error)
}

type Options struct {
	Metrics        http.Handler
	Listen         string
	AllowedOrigins []string
	RateLimit      int
}

// notificationMessage is the websocket envelope for a notification.
type notificationMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Server struct {
	source  StateSource
	broker  *broker.Broker
	ws      *melody.Melody
	limiter *middleware.IPRateLimiter
	opts    Options
}

func NewServer(opts Options, source StateSource, b *broker.Broker) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"https://*", "http://*"}
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}

	s := &Server{
		source:  source,
		broker:  b,
		ws:      melody.New(),
		limiter: middleware.NewIPRateLimiter(opts.RateLimit, nil),
		opts:    opts,
	}
	s.ws.Upgrader.CheckOrigin = func(*http.Request) bool { return true }
	s.ws.HandleConnect(s.handleConnect)
	s.ws.HandleMessage(middleware.WebSocketRateLimitHandler(s.limiter, handleWSMessage))
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.NoCache)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Accept"},
	}))

	r.Get("/api/ws", func(w http.ResponseWriter, r *http.Request) {
		if err := s.ws.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.HTTPRateLimitMiddleware(s.limiter))
		r.Use(chimiddleware.Timeout(RequestTimeout))
		r.Get("/api/state", s.handleState)
		r.Get("/api/chart", s.handleChart)
		if s.opts.Metrics != nil {
			r.Handle("/metrics", s.opts.Metrics)
		}
	})

	return r
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.source.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	chart, err := s.source.Chart(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, chart)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("marshalling response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		log.Debug().Err(err).Msg("writing response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	log.Warn().Err(err).Msg("state query failed")
	http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
}

func encodeNotification(n models.Notification) ([]byte, error) {
	data, err := json.Marshal(notificationMessage{
		JSONRPC: "2.0",
		Method:  n.Method,
		Params:  n.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshalling notification: %w", err)
	}
	return data, nil
}

// handleConnect brings a new client up to date with the latest
// notification of each method.
func (s *Server) handleConnect(session *melody.Session) {
	for _, n := range s.broker.Latest() {
		data, err := encodeNotification(n)
		if err != nil {
			log.Error().Err(err).Msg("encoding replay notification")
			continue
		}
		if err := session.Write(data); err != nil {
			log.Debug().Err(err).Msg("writing replay notification")
			return
		}
	}
}

func handleWSMessage(session *melody.Session, msg []byte) {
	if bytes.Equal(msg, []byte("ping")) {
		if err := session.Write([]byte("pong")); err != nil {
			log.Error().Err(err).Msg("sending pong")
		}
		return
	}
	log.Debug().Int("size", len(msg)).Msg("ignoring websocket message")
}

// broadcast forwards notifications to every websocket client until the
// subscription closes or ctx is done.
func (s *Server) broadcast(ctx context.Context, notifications <-chan models.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			data, err := encodeNotification(n)
			if err != nil {
				log.Error().Err(err).Msg("encoding notification")
				continue
			}
			if err := s.ws.Broadcast(data); err != nil {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

// Serve runs the server on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	notifications, id := s.broker.Subscribe(subscriberBuffer)
	defer s.broker.Unsubscribe(id)

	bctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.broadcast(bctx, notifications)
	s.limiter.StartCleanup(bctx)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: RequestTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	log.Info().Msgf("api server listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		_ = s.ws.Close()
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	if err := s.ws.Close(); err != nil {
		log.Debug().Err(err).Msg("closing websocket sessions")
	}
	sctx, scancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and serves until ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}
