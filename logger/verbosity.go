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

package logger

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// LogLevel is the verbosity threshold a LogSystem filters against. Lower is
// louder: Silence disables a sink entirely.
type LogLevel uint32

const (
	Silence LogLevel = iota
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
	DebugDetailLevel
)

// LogMsg is one formatted line plus the level it was logged at, enough for
// a LogSystem to decide whether to keep it.
type LogMsg interface {
	String() string
	Level() LogLevel
}

type stdMsg struct {
	level LogLevel
	msg   string
}

func (m stdMsg) String() string  { return m.msg }
func (m stdMsg) Level() LogLevel { return m.level }

// LogSystem is a single log sink; New/BuildNewMLogSystem/NewJSONsystem each
// register one via AddLogSystem.
type LogSystem interface {
	LogPrint(LogMsg)
}

var (
	systemsMu sync.Mutex
	systems   []LogSystem
)

// AddLogSystem registers sys to receive every subsequent Printf.
func AddLogSystem(sys LogSystem) {
	systemsMu.Lock()
	defer systemsMu.Unlock()
	systems = append(systems, sys)
}

// Reset removes every registered sink, mainly for tests.
func Reset() {
	systemsMu.Lock()
	defer systemsMu.Unlock()
	systems = nil
}

func dispatch(level LogLevel, msg string) {
	systemsMu.Lock()
	snapshot := append([]LogSystem(nil), systems...)
	systemsMu.Unlock()

	m := stdMsg{level: level, msg: msg}
	for _, sys := range snapshot {
		sys.LogPrint(m)
	}
}

// Printf fans a formatted line out to every registered sink at
// the given level; the node's own logging goes through glog instead, this
// facade exists for the console and cmd/kadnode startup banner.
func Printf(level LogLevel, format string, args ...interface{}) {
	dispatch(level, fmt.Sprintf(format, args...))
}

type stdLogSystem struct {
	mu     sync.Mutex
	writer io.Writer
	level  LogLevel
	mlog   bool
	stamp  bool
}

// NewStdLogSystem returns a LogSystem writing plain lines to writer,
// dropping anything more verbose (a higher LogLevel) than level. flags is accepted for parity with
// the teacher's log.New(writer, prefix, flags) sinks but unused here: kad's
// messages already carry their own prefix via glog.
func NewStdLogSystem(writer io.Writer, flags int, level LogLevel) LogSystem {
	return &stdLogSystem{writer: writer, level: level}
}

// NewMLogSystem returns a LogSystem like NewStdLogSystem, optionally
// prefixing each line with an RFC3339 timestamp (the "withTimestamp" mode
// BuildNewMLogSystem exposes for machine-readable log shipping).
func NewMLogSystem(writer io.Writer, flags int, level LogLevel, withTimestamp bool) LogSystem {
	return &stdLogSystem{writer: writer, level: level, mlog: true, stamp: withTimestamp}
}

// NewJsonLogSystem returns a LogSystem that writes each line unmodified,
// trusting the caller (NewJSONsystem's callers format mlog lines as JSON
// themselves before calling Printf).
func NewJsonLogSystem(writer io.Writer) LogSystem {
	return &stdLogSystem{writer: writer, level: DebugDetailLevel}
}

func (s *stdLogSystem) LogPrint(msg LogMsg) {
	if msg.Level() > s.level {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mlog && s.stamp {
		fmt.Fprintf(s.writer, "%s %s\n", time.Now().UTC().Format(time.RFC3339), msg.String())
		return
	}
	fmt.Fprintln(s.writer, msg.String())
}
