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

// Package cli holds the command line flags and process setup shared by
// the cellboard binaries.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ZaparooProject/cellboard/pkg/config"
	"github.com/ZaparooProject/cellboard/pkg/helpers"
	"github.com/ZaparooProject/cellboard/pkg/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Flags struct {
	Version   *bool
	ListPorts *bool
	Daemon    *bool
	Debug     *bool
	ConfigDir *string
}

// SetupFlags defines the common flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		ListPorts: fs.Bool(
			"list-ports",
			false,
			"print the serial ports on this system and exit",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"also log to stderr",
		),
		Debug: fs.Bool(
			"debug",
			false,
			"enable debug logging for this run",
		),
		ConfigDir: fs.String(
			"config",
			"",
			"directory holding cellboard.toml and logs",
		),
	}
}

// listPorts is replaced in tests.
var listPorts = transport.ListPorts

// Pre actions the flags that don't need config or logging. It reports
// whether the process should exit.
func (f *Flags) Pre(out io.Writer) (exit bool, err error) {
	switch {
	case *f.Version:
		_, _ = fmt.Fprintf(out, "Cellboard v%s\n", config.AppVersion)
		return true, nil
	case *f.ListPorts:
		ports, err := listPorts()
		if err != nil {
			return true, fmt.Errorf("error listing serial ports: %w", err)
		}
		if len(ports) == 0 {
			_, _ = fmt.Fprintln(out, "No serial ports found")
		}
		for _, p := range ports {
			_, _ = fmt.Fprintln(out, p)
		}
		return true, nil
	}
	return false, nil
}

// Writers returns the extra log writers the flags ask for.
func (f *Flags) Writers() []io.Writer {
	if *f.Daemon {
		return []io.Writer{helpers.ConsoleWriter()}
	}
	return nil
}

// Setup initializes logging and loads the user config, writing the
// defaults on first run.
//
//nolint:gocritic // config struct copied for immutability
func Setup(
	f *Flags,
	defaultConfig config.Values,
) (*config.Instance, error) {
	dir := *f.ConfigDir
	if dir == "" {
		dir = helpers.ConfigDir()
	}

	err := os.MkdirAll(dir, 0o750)
	if err != nil {
		return nil, fmt.Errorf("error creating config directory: %w", err)
	}

	err = helpers.InitLogging(helpers.LogDir(dir), f.Writers())
	if err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(dir, defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if cfg.DebugLogging() || *f.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Msgf("cellboard v%s, config: %s", config.AppVersion, cfg.Path())
	return cfg, nil
}
