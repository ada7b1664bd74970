// Package claude runs the claude command line tool as a subprocess and
// collects its streamed response.
package claude

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Result is the outcome of one CLI invocation.
type Result struct {
	// FullText is the assembled response text.
	FullText string
	// ExitCode is the subprocess exit status, 0 on success.
	ExitCode int
	// Aborted reports that the invocation was cancelled rather than failed.
	Aborted bool
}

// Invoker sends a prompt and returns the response. Implementations must be
// safe for concurrent use; each call owns an independent subprocess.
type Invoker interface {
	Invoke(ctx context.Context, prompt, workDir string) (Result, error)
}

// CLI invokes the claude binary. The zero value uses "claude" from PATH and
// the account's default model.
type CLI struct {
	// Path is the claude executable, "claude" when empty.
	Path string
	// Model selects a model with --model when non-empty.
	Model string
	Log   *zap.Logger
}

func (c *CLI) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func (c *CLI) binary() string {
	if c.Path == "" {
		return "claude"
	}
	return c.Path
}

// Invoke writes the prompt to a temp file, streams it to the CLI on stdin and
// assembles the streamed response. A cancelled context kills the subprocess
// and returns an aborted result instead of an error.
func (c *CLI) Invoke(ctx context.Context, prompt, workDir string) (Result, error) {
	log := c.logger()

	promptFile, err := os.CreateTemp("", "assay-prompt-*.txt")
	if err != nil {
		return Result{}, fmt.Errorf("creating prompt file: %w", err)
	}
	defer os.Remove(promptFile.Name())
	if _, err := promptFile.WriteString(prompt); err != nil {
		promptFile.Close()
		return Result{}, fmt.Errorf("writing prompt file: %w", err)
	}
	if _, err := promptFile.Seek(0, 0); err != nil {
		promptFile.Close()
		return Result{}, fmt.Errorf("rewinding prompt file: %w", err)
	}
	defer promptFile.Close()

	args := []string{"--print", "--verbose", "--output-format", "stream-json"}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}

	cmd := exec.CommandContext(ctx, c.binary(), args...)
	cmd.Dir = workDir
	cmd.Stdin = promptFile
	// A nested CLI session refuses to start; drop the marker variable.
	cmd.Env = envWithout(os.Environ(), "CLAUDECODE")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("opening stdout pipe: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	log.Debug("invoking claude", zap.String("binary", c.binary()), zap.Strings("args", args))
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("starting %s: %w", c.binary(), err)
	}

	acc := newAccumulator()
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		acc.feed(scanner.Text())
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		log.Debug("claude invocation aborted")
		return Result{Aborted: true}, nil
	}
	if scanErr != nil {
		return Result{}, fmt.Errorf("reading claude output: %w", scanErr)
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
			log.Debug("claude exited non-zero",
				zap.Int("code", exitCode), zap.String("stderr", stderr.String()))
		} else {
			return Result{}, fmt.Errorf("running %s: %w", c.binary(), waitErr)
		}
	}

	return Result{FullText: acc.text(), ExitCode: exitCode}, nil
}

func envWithout(env []string, name string) []string {
	prefix := name + "="
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			continue
		}
		out = append(out, kv)
	}
	return out
}
