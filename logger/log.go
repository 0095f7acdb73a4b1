// Copyright 2026 The kad Authors
// This file is part of kad.
//
// kad is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// kad is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with kad. If not, see <http://www.gnu.org/licenses/>.

// Package logger is kad's leveled logging facade, adapted from the
// teacher's logger package: same LogSystem/LogLevel plumbing, retargeted at
// the DHT node's own datadir layout instead of go-ethereum's. New/
// BuildNewMLogSystem/NewJSONsystem are kadnode's only structured-log-file
// entry points; there is no separate mlog component registry (the
// teacher's per-package mlog.go files described events for subsystems —
// eth sync, miner, downloader — this module doesn't have).
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
)

func openLogFile(datadir string, filename string) *os.File {
	path := filename
	if !filepath.IsAbs(path) {
		path = filepath.Join(datadir, filename)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		panic(fmt.Sprintf("error opening log file '%s': %v", filename, err))
	}
	return file
}

func New(datadir string, logFile string, logLevel int, flags int) LogSystem {
	var writer io.Writer
	if logFile == "" {
		writer = os.Stdout
	} else {
		writer = openLogFile(datadir, logFile)
	}

	var sys LogSystem
	sys = NewStdLogSystem(writer, flags, LogLevel(logLevel))
	AddLogSystem(sys)

	return sys
}

func BuildNewMLogSystem(datadir string, logFile string, logLevel int, flags int, withTimestamp bool) LogSystem {
	var writer io.Writer
	if logFile == "" {
		writer = os.Stdout
	} else {
		writer = openLogFile(datadir, logFile)
	}

	var sys LogSystem
	sys = NewMLogSystem(writer, flags, LogLevel(logLevel), withTimestamp)
	AddLogSystem(sys)

	return sys
}

func NewJSONsystem(datadir string, logFile string) LogSystem {
	var writer io.Writer
	if logFile == "-" {
		writer = os.Stdout
	} else {
		writer = openLogFile(datadir, logFile)
	}

	var sys LogSystem
	sys = NewJsonLogSystem(writer)
	AddLogSystem(sys)

	return sys
}

// Color helpers used by the CLI console (cmd/kadnode) to highlight peer
// ids and statuses; backed by github.com/fatih/color rather than hand-rolled
// ANSI escapes so NO_COLOR / non-tty detection comes for free.
var (
	colorGreen   = color.New(color.FgGreen).SprintFunc()
	colorRed     = color.New(color.FgRed).SprintFunc()
	colorBlue    = color.New(color.FgCyan).SprintFunc()
	colorYellow  = color.New(color.FgYellow).SprintFunc()
	colorMagenta = color.New(color.FgMagenta).SprintFunc()
)

func ColorGreen(s string) string   { return colorGreen(s) }
func ColorRed(s string) string     { return colorRed(s) }
func ColorBlue(s string) string    { return colorBlue(s) }
func ColorYellow(s string) string  { return colorYellow(s) }
func ColorMagenta(s string) string { return colorMagenta(s) }
