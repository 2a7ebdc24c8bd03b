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

package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZaparooProject/cellboard/pkg/config"
	"github.com/ZaparooProject/cellboard/pkg/helpers"
	"github.com/ZaparooProject/cellboard/pkg/service"
	"github.com/ZaparooProject/cellboard/pkg/transport/testutils"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) *Flags {
	t.Helper()
	fs := flag.NewFlagSet("cellboard", flag.ContinueOnError)
	f := SetupFlags(fs)
	require.NoError(t, fs.Parse(args))
	return f
}

func TestPre_Version(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	exit, err := parse(t, "-version").Pre(&out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Equal(t, "Cellboard v"+config.AppVersion+"\n", out.String())
}

func TestPre_NoFlags(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	exit, err := parse(t).Pre(&out)
	require.NoError(t, err)
	assert.False(t, exit)
	assert.Empty(t, out.String())
}

//nolint:paralleltest // replaces listPorts
func TestPre_ListPorts(t *testing.T) {
	orig := listPorts
	t.Cleanup(func() { listPorts = orig })

	tests := []struct {
		name    string
		ports   []string
		err     error
		want    string
		wantErr bool
	}{
		{name: "ports", ports: []string{"/dev/ttyUSB0", "/dev/ttyACM0"}, want: "/dev/ttyUSB0\n/dev/ttyACM0\n"},
		{name: "none", want: "No serial ports found\n"},
		{name: "error", err: errors.New("no permission"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listPorts = func() ([]string, error) { return tt.ports, tt.err }

			var out bytes.Buffer
			exit, err := parse(t, "-list-ports").Pre(&out)
			assert.True(t, exit)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestWriters(t *testing.T) {
	t.Parallel()

	assert.Empty(t, parse(t).Writers())
	assert.Len(t, parse(t, "-daemon").Writers(), 1)
}

//nolint:paralleltest // replaces the global logger
func TestSetup(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Setup(parse(t, "-config", dir), config.BaseDefaults)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, config.CfgFile), cfg.Path())
	assert.FileExists(t, cfg.Path())
	_, err = os.Stat(helpers.LogDir(dir))
	assert.NoError(t, err)
}

//nolint:paralleltest // replaces the global logger
func TestSetup_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.CfgFile), []byte("robot = ["), 0o600))

	_, err := Setup(parse(t, "-config", dir), config.BaseDefaults)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading config")
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	vals := config.BaseDefaults
	vals.IMU.Enabled = false
	vals.API.Disabled = true
	cfg, err := config.NewConfig(t.TempDir(), vals)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, cfg,
			service.WithClock(clockwork.NewFakeClock()),
			service.WithDialer(testutils.NewPipeDialer()),
		)
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
