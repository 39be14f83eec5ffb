package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/syntaxworker/internal/exitcode"
	"github.com/danmuck/syntaxworker/internal/syntax"
	"github.com/danmuck/syntaxworker/internal/testutil/testlog"
	"github.com/danmuck/syntaxworker/internal/tokenize"
	"github.com/danmuck/syntaxworker/internal/transport"
	"github.com/danmuck/syntaxworker/internal/worker"
)

const goSource = `package demo

// Add sums two ints.
func Add(a, b int) int {
	return a + b
}
`

func TestDriveAgainstInProcessWorker(t *testing.T) {
	testlog.Start(t)
	dir, err := os.MkdirTemp("", "sc")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	sock := filepath.Join(dir, "w.sock")

	ln, err := transport.Listen(sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	cfg := worker.DefaultConfig()
	cfg.TickPeriod = time.Millisecond
	cfg.Tokenize.ChunkLines = 2
	tok := tokenize.New(cfg.Tokenize, tokenize.DefaultRegistry())
	srv := worker.NewServer(cfg, worker.DialUnix(sock, cfg.Transport), tok, tok.HealthCheck)

	codes := make(chan int, 1)
	go func() { codes <- srv.Run(context.Background()) }()

	ch, err := transport.Accept(ln, transport.DefaultConfig())
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	defer ch.Close()

	lines := splitLines(goSource)
	var out bytes.Buffer
	rep, err := drive(ch, job{BufferID: 1, Filetype: "go", Lines: lines, Timeout: 5 * time.Second}, &out)
	if err != nil {
		t.Fatalf("drive: %v\n%s", err, out.String())
	}
	if !rep.Initialized || !rep.Healthy || !rep.Closing {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.Echo != "syntaxctl" {
		t.Fatalf("unexpected echo: %q", rep.Echo)
	}
	if len(rep.TokenLines) != len(lines) {
		t.Fatalf("expected %d token lines, got %d", len(lines), len(rep.TokenLines))
	}
	if !hasType(rep.TokenLines[0], syntax.TokenKeyword) {
		t.Fatalf("expected keyword on line 0: %+v", rep.TokenLines[0])
	}
	if !hasType(rep.TokenLines[2], syntax.TokenComment) {
		t.Fatalf("expected comment on line 2: %+v", rep.TokenLines[2])
	}
	if !strings.Contains(out.String(), "{bold blue}") {
		t.Fatalf("expected themed keyword style in output:\n%s", out.String())
	}

	select {
	case code := <-codes:
		if code != exitcode.Success {
			t.Fatalf("worker exit code %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not exit after close")
	}
}

func hasType(tokens []syntax.Token, typ syntax.TokenType) bool {
	for _, tok := range tokens {
		if tok.Type == typ {
			return true
		}
	}
	return false
}

func TestSplitLines(t *testing.T) {
	cases := map[string][]string{
		"":         nil,
		"a":        {"a"},
		"a\n":      {"a"},
		"a\r\nb\n": {"a", "b"},
		"a\n\nb":   {"a", "", "b"},
		"a\n\n":    {"a", ""},
	}
	for in, want := range cases {
		got := splitLines(in)
		if len(got) != len(want) {
			t.Fatalf("split %q: got %q want %q", in, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("split %q: got %q want %q", in, got, want)
			}
		}
	}
}

func TestFiletypeFor(t *testing.T) {
	for path, want := range map[string]string{
		"main.go":    "go",
		"a/b.JSON":   "json",
		"Cargo.toml": "toml",
		"README":     "plaintext",
		"notes.txt":  "plaintext",
	} {
		if got := filetypeFor(path); got != want {
			t.Fatalf("filetype %q: got %q want %q", path, got, want)
		}
	}
}

func TestFormatTokens(t *testing.T) {
	got := formatTokens([]syntax.Token{{Start: 0, End: 4, Type: syntax.TokenKeyword, Style: "bold"}, {Start: 5, End: 6, Type: syntax.TokenText}})
	if got != "[0,4)keyword{bold} [5,6)text" {
		t.Fatalf("unexpected format: %q", got)
	}
	if formatTokens(nil) != "-" {
		t.Fatalf("expected placeholder for empty line")
	}
}
