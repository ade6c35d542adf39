package metadata

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"mediasort/internal/faults"
	"mediasort/internal/logging"
)

const exiftoolReady = "{ready}"

var exiftoolTags = []string{"-DateTimeOriginal", "-CreateDate", "-ModifyDate"}

// ExiftoolReader keeps one exiftool process in -stay_open mode and feeds it
// one request at a time. Requests from concurrent workers are serialized.
// A request abandoned through its context kills the process; the next Read
// starts a fresh one. The per-request timeout starts once a request holds
// the process, so time spent queued behind other workers does not count.
type ExiftoolReader struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger

	mu   sync.Mutex
	proc *exiftoolProcess
}

type exiftoolProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
}

// NewExiftoolReader returns a reader that starts binary on first use. A
// positive timeout bounds each request; zero leaves requests unbounded.
func NewExiftoolReader(binary string, timeout time.Duration, logger *slog.Logger) *ExiftoolReader {
	if strings.TrimSpace(binary) == "" {
		binary = "exiftool"
	}
	return &ExiftoolReader{binary: binary, timeout: timeout, logger: logging.NewComponentLogger(logger, "exiftool")}
}

// Read implements Reader.
func (r *ExiftoolReader) Read(ctx context.Context, path string) (Tags, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Tags{}, err
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if r.proc == nil {
		proc, err := r.start()
		if err != nil {
			return Tags{}, faults.Wrap(faults.ErrExternalTool, "metadata", "exiftool", "start failed", err)
		}
		r.proc = proc
	}

	type response struct {
		output string
		err    error
	}
	proc := r.proc
	done := make(chan response, 1)
	go func() {
		output, err := proc.execute(append(append([]string{"-json"}, exiftoolTags...), path))
		done <- response{output: output, err: err}
	}()

	select {
	case <-ctx.Done():
		_ = proc.cmd.Process.Kill()
		<-done
		r.discard()
		return Tags{}, ctx.Err()
	case resp := <-done:
		if resp.err != nil {
			_ = proc.cmd.Process.Kill()
			r.discard()
			return Tags{}, faults.Wrap(faults.ErrExternalTool, "metadata", "exiftool", "request failed", resp.err)
		}
		return parseExiftoolJSON(resp.output)
	}
}

// Close stops the exiftool process if one is running.
func (r *ExiftoolReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.proc == nil {
		return nil
	}
	proc := r.proc
	r.proc = nil
	return proc.close()
}

func (r *ExiftoolReader) start() (*exiftoolProcess, error) {
	cmd := exec.Command(r.binary, "-stay_open", "True", "-@", "-")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", r.binary, err)
	}

	logger := r.logger
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				logger.Debug("exiftool stderr", logging.String("line", line))
			}
		}
	}()

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	logger.Debug("exiftool started", logging.Int("pid", cmd.Process.Pid))
	return &exiftoolProcess{cmd: cmd, stdin: stdin, stdout: scanner}, nil
}

// discard reaps a killed process. The request goroutine must have returned.
func (r *ExiftoolReader) discard() {
	if r.proc == nil {
		return
	}
	_ = r.proc.stdin.Close()
	_ = r.proc.cmd.Wait()
	r.proc = nil
}

func (p *exiftoolProcess) execute(args []string) (string, error) {
	for _, arg := range args {
		if _, err := fmt.Fprintln(p.stdin, arg); err != nil {
			return "", fmt.Errorf("write arg: %w", err)
		}
	}
	if _, err := fmt.Fprintln(p.stdin, "-execute"); err != nil {
		return "", fmt.Errorf("write execute: %w", err)
	}

	var output strings.Builder
	for p.stdout.Scan() {
		line := p.stdout.Text()
		if strings.HasPrefix(line, exiftoolReady) {
			return output.String(), nil
		}
		output.WriteString(line)
		output.WriteByte('\n')
	}
	if err := p.stdout.Err(); err != nil {
		return "", fmt.Errorf("read output: %w", err)
	}
	return "", io.ErrUnexpectedEOF
}

func (p *exiftoolProcess) close() error {
	_, _ = fmt.Fprintln(p.stdin, "-stay_open")
	_, _ = fmt.Fprintln(p.stdin, "False")
	if err := p.stdin.Close(); err != nil {
		return err
	}
	return p.cmd.Wait()
}

func parseExiftoolJSON(output string) (Tags, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return Tags{}, faults.Wrap(faults.ErrExternalTool, "metadata", "exiftool", "no output for file", nil)
	}
	var records []map[string]any
	if err := json.Unmarshal([]byte(output), &records); err != nil {
		return Tags{}, faults.Wrap(faults.ErrExternalTool, "metadata", "exiftool", "decode output", err)
	}
	if len(records) == 0 {
		return Tags{}, ErrNoMetadata
	}
	record := records[0]
	if msg, ok := record["Error"]; ok {
		return Tags{}, fmt.Errorf("%w: %v", ErrNoMetadata, msg)
	}
	tags := Tags{
		CaptureTime: jsonString(record["DateTimeOriginal"]),
		CreateTime:  jsonString(record["CreateDate"]),
		ModifyTime:  jsonString(record["ModifyDate"]),
	}
	return tags, nil
}

func jsonString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
