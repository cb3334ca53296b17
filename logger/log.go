// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package logger implements the bounded log sink used by simulation machines.
//
// Entries are tagged. Consecutive identical entries are folded into a single
// entry with a repeat count so that a component failing on every iteration of
// a tick does not flood the log.
//
package logger

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// DefaultMaxEntries is the default capacity of a Logger.
//
const DefaultMaxEntries = 256

// Permission implementations indicate whether the environment making a log
// request is allowed to create new log entries.
//
type Permission interface {
	AllowLogging() bool
}

type allow struct{}

func (allow) AllowLogging() bool { return true }

// Allow is a Permission that always allows logging.
//
var Allow Permission = allow{}

// Entry represents a single line in the log.
//
type Entry struct {
	Timestamp time.Time
	Tag       string
	Detail    string
	repeated  int
}

// Repeated returns how many times the entry has been logged.
//
func (e *Entry) Repeated() int { return e.repeated + 1 }

func (e *Entry) String() string {
	s := strings.Builder{}
	s.WriteString(e.Tag)
	s.WriteString(": ")
	s.WriteString(e.Detail)
	if e.repeated > 0 {
		fmt.Fprintf(&s, " (repeat x%d)", e.repeated+1)
	}
	s.WriteString("\n")
	return s.String()
}

// Logger is a bounded list of log entries. The zero value is not usable, use
// New.
//
type Logger struct {
	maxEntries int
	entries    []Entry
	counts     map[string]int
	echo       io.Writer
	recent     int
}

// New returns a new Logger holding at most maxEntries entries. If maxEntries
// is less or equal to 0, DefaultMaxEntries is used.
//
func New(maxEntries int) *Logger {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Logger{
		maxEntries: maxEntries,
		entries:    make([]Entry, 0),
		counts:     make(map[string]int),
	}
}

// Log adds an entry to the log.
//
func (l *Logger) Log(perm Permission, tag, detail string) {
	if perm != Allow && !perm.AllowLogging() {
		return
	}
	l.log(tag, detail)
}

// Logf adds a formatted entry to the log.
//
func (l *Logger) Logf(perm Permission, tag, detail string, args ...interface{}) {
	if perm != Allow && !perm.AllowLogging() {
		return
	}
	l.log(tag, fmt.Sprintf(detail, args...))
}

func (l *Logger) log(tag, detail string) {
	// remove all newline characters from tag and detail string
	tag = strings.ReplaceAll(tag, "\n", "")
	detail = strings.ReplaceAll(detail, "\n", "")

	l.counts[tag]++

	var e *Entry
	if n := len(l.entries); n > 0 && l.entries[n-1].Tag == tag && l.entries[n-1].Detail == detail {
		e = &l.entries[n-1]
		e.repeated++
		e.Timestamp = time.Now()
	} else {
		l.entries = append(l.entries, Entry{Timestamp: time.Now(), Tag: tag, Detail: detail})
		e = &l.entries[len(l.entries)-1]
	}
	line := e.String()

	// maintain maximum length
	if len(l.entries) > l.maxEntries {
		drop := len(l.entries) - l.maxEntries
		l.entries = append(l.entries[:0], l.entries[drop:]...)
		l.recent -= drop
		if l.recent < 0 {
			l.recent = 0
		}
	}

	if l.echo != nil {
		io.WriteString(l.echo, line)
	}
}

// SetEcho prints every new log entry to w. A nil writer disables echoing.
//
func (l *Logger) SetEcho(w io.Writer) {
	l.echo = w
}

// Clear removes all entries. Per-tag counters are kept.
//
func (l *Logger) Clear() {
	l.entries = l.entries[:0]
	l.recent = 0
}

// Len returns the number of entries currently held.
//
func (l *Logger) Len() int { return len(l.entries) }

// Count returns how many times an entry with the given tag has been logged
// since the Logger was created, including entries folded as repeats or
// dropped because of the capacity bound.
//
func (l *Logger) Count(tag string) int { return l.counts[tag] }

// Write writes all entries to output.
//
func (l *Logger) Write(output io.Writer) bool {
	if len(l.entries) == 0 {
		return false
	}
	for i := range l.entries {
		io.WriteString(output, l.entries[i].String())
	}
	return true
}

// WriteRecent writes the entries added since the last call to WriteRecent.
//
func (l *Logger) WriteRecent(output io.Writer) {
	for i := l.recent; i < len(l.entries); i++ {
		io.WriteString(output, l.entries[i].String())
	}
	l.recent = len(l.entries)
}

// Tail writes the last number entries to output.
//
func (l *Logger) Tail(output io.Writer, number int) {
	if number > len(l.entries) {
		number = len(l.entries)
	}
	for _, e := range l.entries[len(l.entries)-number:] {
		io.WriteString(output, e.String())
	}
}

// Entries returns a copy of the current entries.
//
func (l *Logger) Entries() []Entry {
	c := make([]Entry, len(l.entries))
	copy(c, l.entries)
	return c
}

// Find returns the entries with the given tag.
//
func (l *Logger) Find(tag string) []Entry {
	var r []Entry
	for _, e := range l.entries {
		if e.Tag == tag {
			r = append(r, e)
		}
	}
	return r
}
