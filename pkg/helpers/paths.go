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

package helpers

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	AppName = "cellboard"
	// DirEnv overrides the directory holding the config file and logs.
	DirEnv = "CELLBOARD_DIR"
)

// ConfigDir returns the directory for the config file and logs. DirEnv
// takes precedence over the XDG config home.
func ConfigDir() string {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir
	}
	return filepath.Join(xdg.ConfigHome, AppName)
}

// LogDir returns the directory logs are written to.
func LogDir(configDir string) string {
	return filepath.Join(configDir, "logs")
}
