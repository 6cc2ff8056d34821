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

// Package logging builds the zerolog.Logger every server component logs
// through, so log level and format are configured once at startup instead of
// per package.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls the root logger built by New.
type Options struct {
	// Level is one of "debug", "info", "warn", "error"; unrecognized values
	// fall back to "info".
	Level string
	// Pretty switches to zerolog's human-readable console writer instead of
	// newline-delimited JSON; meant for local/dev use, not production.
	Pretty bool
}

// DefaultOptions matches the level config.Load defaults to.
func DefaultOptions() Options {
	return Options{Level: "info"}
}

// New builds the root logger. Every component logger (sweeper, dispatch,
// server) is derived from it via Logger.With().
func New(opts Options) zerolog.Logger {
	var out io.Writer = os.Stderr
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	level := parseLevel(opts.Level)
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
