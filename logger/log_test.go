package logger_test

import (
	"strings"
	"testing"

	"github.com/db47h/ticksim/logger"
)

type deny struct{}

func (deny) AllowLogging() bool { return false }

func TestLogger(t *testing.T) {
	l := logger.New(0)
	var b strings.Builder

	l.Log(logger.Allow, "test", "this is a test")
	l.Write(&b)
	if got, want := b.String(), "test: this is a test\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	// clear the buffer, but not the log
	b.Reset()
	l.Log(logger.Allow, "test2", "this is another test")
	l.Write(&b)
	if got, want := b.String(), "test: this is a test\ntest2: this is another test\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	// repeated entries are folded
	b.Reset()
	l.Log(logger.Allow, "test2", "this is another test")
	l.Tail(&b, 1)
	if got, want := b.String(), "test2: this is another test (repeat x2)\n"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if l.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", l.Len())
	}
	if l.Count("test2") != 2 {
		t.Fatalf("expected count 2 for test2, got %d", l.Count("test2"))
	}

	// tail larger than the log
	b.Reset()
	l.Tail(&b, 100)
	if strings.Count(b.String(), "\n") != 2 {
		t.Fatalf("unexpected tail output %q", b.String())
	}

	l.Clear()
	b.Reset()
	if l.Write(&b) {
		t.Fatalf("expected empty log")
	}
}

func TestLoggerPermission(t *testing.T) {
	l := logger.New(10)
	l.Log(deny{}, "test", "denied")
	l.Logf(deny{}, "test", "denied %d", 1)
	if l.Len() != 0 {
		t.Fatalf("expected no entries, got %d", l.Len())
	}
}

func TestLoggerBound(t *testing.T) {
	l := logger.New(4)
	for i := 0; i < 10; i++ {
		l.Logf(logger.Allow, "n", "%d", i)
	}
	if l.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", l.Len())
	}
	e := l.Entries()
	if e[0].Detail != "6" || e[3].Detail != "9" {
		t.Fatalf("unexpected entries %v", e)
	}
	if l.Count("n") != 10 {
		t.Fatalf("expected count 10, got %d", l.Count("n"))
	}

	var b strings.Builder
	l.WriteRecent(&b)
	if strings.Count(b.String(), "\n") != 4 {
		t.Fatalf("unexpected recent output %q", b.String())
	}
	b.Reset()
	l.Log(logger.Allow, "n", "last")
	l.WriteRecent(&b)
	if b.String() != "n: last\n" {
		t.Fatalf("unexpected recent output %q", b.String())
	}
}

func TestLoggerEcho(t *testing.T) {
	l := logger.New(4)
	var b strings.Builder
	l.SetEcho(&b)
	l.Log(logger.Allow, "echo", "hello")
	l.SetEcho(nil)
	l.Log(logger.Allow, "echo", "world")
	if b.String() != "echo: hello\n" {
		t.Fatalf("unexpected echo %q", b.String())
	}
	if len(l.Find("echo")) != 2 {
		t.Fatalf("expected 2 echo entries")
	}
}
