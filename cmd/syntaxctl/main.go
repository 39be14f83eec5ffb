package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/syntaxworker/internal/logging"
	"github.com/danmuck/syntaxworker/internal/syntax"
	"github.com/danmuck/syntaxworker/internal/transport"
	"github.com/rs/zerolog/log"
)

type options struct {
	worker   string
	file     string
	filetype string
	config   string
	timeout  time.Duration
	quiet    bool
}

func main() {
	opts := parseFlags()
	logging.ConfigureRuntime()
	code, err := run(opts)
	if err != nil {
		fatalf("%v", err)
	}
	os.Exit(code)
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.worker, "worker", "syntaxworker", "path to the syntaxworker binary")
	flag.StringVar(&opts.file, "file", "", "file to tokenize (required)")
	flag.StringVar(&opts.filetype, "filetype", "", "filetype sent with BufferEnter (default: from extension)")
	flag.StringVar(&opts.config, "config", "", "worker TOML config passed as SYNTAXWORKER_CONFIG")
	flag.DurationVar(&opts.timeout, "timeout", 10*time.Second, "overall session timeout")
	flag.BoolVar(&opts.quiet, "quiet", false, "print only the summary")
	flag.Parse()
	if opts.file == "" {
		fatalf("-file is required")
	}
	return opts
}

// run spawns the worker as a child of this process and drives one session.
// It returns 0 only when the worker closed cleanly with a success status.
func run(opts options) (int, error) {
	content, err := os.ReadFile(opts.file)
	if err != nil {
		return 1, err
	}
	ft := opts.filetype
	if ft == "" {
		ft = filetypeFor(opts.file)
	}

	dir, err := os.MkdirTemp("", "syntaxctl")
	if err != nil {
		return 1, err
	}
	defer os.RemoveAll(dir)
	sock := filepath.Join(dir, "worker.sock")

	ln, err := transport.Listen(sock)
	if err != nil {
		return 1, fmt.Errorf("listen %s: %w", sock, err)
	}
	defer ln.Close()

	cmd := exec.Command(opts.worker)
	cmd.Env = append(os.Environ(),
		"SYNTAXWORKER_PARENT_PID="+strconv.Itoa(os.Getpid()),
		"SYNTAXWORKER_CHANNEL="+sock,
	)
	if opts.config != "" {
		cmd.Env = append(cmd.Env, "SYNTAXWORKER_CONFIG="+opts.config)
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("start worker: %w", err)
	}
	log.Info().Int("pid", cmd.Process.Pid).Str("channel", sock).Msg("syntaxctl worker started")

	if ul, ok := ln.(*net.UnixListener); ok {
		_ = ul.SetDeadline(time.Now().Add(opts.timeout))
	}
	ch, err := transport.Accept(ln, transport.DefaultConfig())
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return 1, fmt.Errorf("accept worker: %w", err)
	}
	defer ch.Close()

	out := os.Stdout
	var sink io.Writer = out
	if opts.quiet {
		sink = io.Discard
	}
	rep, driveErr := drive(ch, job{
		BufferID: syntax.BufferID(1),
		Filetype: ft,
		Lines:    splitLines(string(content)),
		Timeout:  opts.timeout,
	}, sink)
	summarize(rep, out)

	code, waitErr := waitExit(cmd, opts.timeout)
	fmt.Fprintf(out, "worker exited with code %d\n", code)
	if driveErr != nil {
		return 1, driveErr
	}
	if waitErr != nil {
		return 1, waitErr
	}
	if code != 0 {
		return 1, nil
	}
	return 0, nil
}

func waitExit(cmd *exec.Cmd, timeout time.Duration) (int, error) {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		if err != nil {
			return -1, err
		}
		return 0, nil
	case <-time.After(timeout):
		_ = cmd.Process.Kill()
		<-done
		return -1, fmt.Errorf("worker did not exit within %s", timeout)
	}
}

func filetypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		return "plaintext"
	}
}

// splitLines splits on \n, dropping one trailing empty line and any \r.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "syntaxctl: "+format+"\n", args...)
	os.Exit(1)
}
