/*
 * Copyright (c) 2024. Shuojiang Liu.
 * Licensed under the MIT License (the "License");
 * you may not use this file except in compliance with the License.
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package server exposes a Dispatcher over the Redis wire protocol using
// tidwall/redcon. It holds no data structure logic of its own: every command
// is resolved and run by the Dispatcher, and server only shapes the RESP
// reply and tracks connections.
package server

import (
	"context"
	"strings"
	"time"

	"github.com/redisdb/redisdb/dispatch"
	"github.com/redisdb/redisdb/metrics"
	"github.com/rs/zerolog"
	"github.com/tidwall/redcon"
)

// Options controls the RESP listener.
type Options struct {
	Address string
}

// Server runs a redcon.Server backed by a single Dispatcher. There is no
// per-connection database selection (spec.md scopes SELECT out); every
// connection shares the one logical keyspace the Dispatcher was built with.
type Server struct {
	dispatcher *dispatch.Dispatcher
	metrics    *metrics.Registry
	log        zerolog.Logger
	redcon     *redcon.Server
	opts       Options
}

// New builds a Server. metricsReg may be nil to run without instrumentation.
func New(d *dispatch.Dispatcher, metricsReg *metrics.Registry, log zerolog.Logger, opts Options) *Server {
	return &Server{
		dispatcher: d,
		metrics:    metricsReg,
		log:        log.With().Str("component", "server").Logger(),
		opts:       opts,
	}
}

// ListenAndServe blocks accepting connections until the listener is closed
// by Shutdown.
func (s *Server) ListenAndServe() error {
	s.redcon = redcon.NewServer(s.opts.Address, s.handleCommand, s.accept, s.closed)
	s.log.Info().Str("address", s.opts.Address).Msg("RESP listener starting")
	return s.redcon.ListenAndServe()
}

// Shutdown closes the listener, interrupting ListenAndServe.
func (s *Server) Shutdown() error {
	if s.redcon == nil {
		return nil
	}
	return s.redcon.Close()
}

// connState is the per-connection cancellable context redcon stores via
// conn.SetContext, so a closed connection cancels any command (and any scan
// it drives) still running against it instead of letting it run unbounded.
type connState struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *Server) accept(conn redcon.Conn) bool {
	ctx, cancel := context.WithCancel(context.Background())
	conn.SetContext(&connState{ctx: ctx, cancel: cancel})
	s.log.Debug().Str("remote", conn.RemoteAddr()).Msg("connection accepted")
	return true
}

func (s *Server) closed(conn redcon.Conn, err error) {
	if cs, ok := conn.Context().(*connState); ok {
		cs.cancel()
	}
	s.log.Debug().Str("remote", conn.RemoteAddr()).Err(err).Msg("connection closed")
}

// handleCommand dispatches one RESP command and writes its reply, translating
// the Dispatcher's Go-shaped reply value into the matching RESP encoding.
func (s *Server) handleCommand(conn redcon.Conn, cmd redcon.Command) {
	name := strings.ToLower(string(cmd.Args[0]))
	if name == "quit" {
		conn.WriteString("OK")
		_ = conn.Close()
		return
	}

	ctx := context.Background()
	if cs, ok := conn.Context().(*connState); ok {
		ctx = cs.ctx
	}

	start := time.Now()
	reply, err := s.dispatcher.Execute(ctx, name, cmd.Args[1:])
	if s.metrics != nil {
		s.metrics.ObserveCommand(name, time.Since(start), err)
	}

	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	if reply == nil {
		conn.WriteNull()
		return
	}
	conn.WriteAny(reply)
}
