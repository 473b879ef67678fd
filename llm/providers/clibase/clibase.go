// Package clibase holds the subprocess plumbing shared by the claude_code
// and qwen_code CLI adapters: neither backend exposes an HTTP API, both are
// driven by writing a JSON turn to stdin and reading newline-delimited
// "stream-json" events from stdout.
package clibase

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rashee1997/orchestrator-sub000/llm"
	"go.uber.org/zap"
)

const (
	// MaxTimeout bounds any single CLI invocation per spec.md §4.1.
	MaxTimeout = 10 * time.Minute
	// MaxStdout bounds the buffered stdout read; the CLI can emit very
	// long reasoning traces before the final assistant message.
	MaxStdout = 1 << 30 // 1 GiB

	probeTimeout = 5 * time.Second
)

// turnMessage is the stdin payload: a single user turn.
type turnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamEvent is one line of stream-json stdout. Only the fields needed to
// extract the assistant's final text are modeled; unknown event types and
// fields are ignored.
type streamEvent struct {
	Type    string `json:"type"`
	Message struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// Runner drives one CLI-backed provider. Command is the executable resolved
// against PATH ("claude" or "qwen"); Args are appended before the model
// flag if any.
type Runner struct {
	Command string
	Args    []string
	Model   string
	Logger  *zap.Logger

	// unavailable latches true on the first ENOENT; the CLI is never
	// probed again for the remainder of the process.
	unavailable atomic.Bool
}

// NewRunner constructs a Runner, defaulting Logger to a no-op.
func NewRunner(command string, args []string, model string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Command: command, Args: args, Model: model, Logger: logger}
}

// Probe runs `<command> --version` bounded to 5s. ENOENT flips
// availability to false for the remainder of the process; any other
// failure reports false for this probe only.
func (r *Runner) Probe(ctx context.Context) (bool, error) {
	if r.unavailable.Load() {
		return false, nil
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, r.Command, "--version")
	if err := cmd.Run(); err != nil {
		if isENOENT(err) {
			r.unavailable.Store(true)
		}
		return false, nil
	}
	return true, nil
}

// Chat writes a single user turn to stdin and parses the stream-json reply
// from stdout, concatenating every assistant message's text parts.
func (r *Runner) Chat(ctx context.Context, req llm.ChatRequest, providerName string) (llm.ChatResponse, error) {
	if r.unavailable.Load() {
		return llm.ChatResponse{}, llm.NewError(llm.ErrCLIMissing, r.Command+" not found on PATH").
			WithProvider(providerName).WithRetryable(false)
	}

	timeout := req.Timeout
	if timeout <= 0 || timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = r.Model
	}
	args := append([]string{}, r.Args...)
	if model != "" {
		args = append(args, "--model", model)
	}

	cmd := exec.CommandContext(runCtx, r.Command, args...)

	prompt := req.User
	if req.System != "" {
		prompt = req.System + "\n\n" + req.User
	}
	turns := []turnMessage{{Role: "user", Content: prompt}}
	stdin, err := json.Marshal(turns)
	if err != nil {
		return llm.ChatResponse{}, llm.NewError(llm.ErrInvalidRequest, "marshal stdin turns").WithCause(err).WithProvider(providerName)
	}
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	stdout.Grow(1 << 16)
	cmd.Stdout = &limitedWriter{buf: &stdout, max: MaxStdout}
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	// Always reap the process; on timeout the context already signaled
	// Kill via exec.CommandContext, but we still Wait() implicitly via Run.
	if runErr != nil {
		if isENOENT(runErr) {
			r.unavailable.Store(true)
			return llm.ChatResponse{}, llm.NewError(llm.ErrCLIMissing, r.Command+" not found on PATH").
				WithProvider(providerName).WithCause(runErr).WithRetryable(false)
		}
		if runCtx.Err() != nil {
			return llm.ChatResponse{}, llm.NewError(llm.ErrTimeout, "cli invocation timed out").
				WithProvider(providerName).WithCause(runCtx.Err()).WithRetryable(true)
		}
		return llm.ChatResponse{}, llm.NewError(llm.ErrUpstreamError, strings.TrimSpace(stderr.String())).
			WithProvider(providerName).WithCause(runErr).WithRetryable(true)
	}

	content, err := extractAssistantText(stdout.Bytes())
	if err != nil {
		return llm.ChatResponse{}, llm.NewError(llm.ErrUpstreamError, "parse stream-json output").
			WithCause(err).WithProvider(providerName).WithRetryable(false)
	}

	return llm.ChatResponse{
		Content:   content,
		Model:     model,
		Provider:  providerName,
		CreatedAt: time.Now(),
	}, nil
}

func extractAssistantText(out []byte) (string, error) {
	var text strings.Builder
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), MaxStdout)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev streamEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue // tolerate non-JSON progress lines
		}
		if ev.Type != "assistant" || ev.Message.Role != "assistant" {
			continue
		}
		for _, part := range ev.Message.Content {
			if part.Type == "text" {
				text.WriteString(part.Text)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return text.String(), fmt.Errorf("scan stdout: %w", err)
	}
	return text.String(), nil
}

func isENOENT(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || strings.Contains(err.Error(), "executable file not found")
}

// limitedWriter caps total bytes written to buf at max, silently discarding
// the remainder rather than letting a runaway CLI exhaust memory. It always
// reports the full length written so io.Copy never sees a short write.
type limitedWriter struct {
	buf     *bytes.Buffer
	max     int
	written int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	full := len(p)
	if w.written < w.max {
		remaining := w.max - w.written
		chunk := p
		if len(chunk) > remaining {
			chunk = chunk[:remaining]
		}
		n, err := w.buf.Write(chunk)
		w.written += n
		if err != nil {
			return n, err
		}
	}
	return full, nil
}
