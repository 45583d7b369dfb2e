package ml

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Worker operations.
const (
	opPredict      = "predict"
	opPredictProba = "predict_proba"
	opRun          = "run"
)

// WorkerConfig describes the Python process that owns the model artifacts.
type WorkerConfig struct {
	PythonPath   string
	ScriptPath   string
	Models       map[string]string // model name -> artifact path
	Timeout      time.Duration
	StartTimeout time.Duration
}

// PythonWorker keeps one Python process alive for the lifetime of the service.
// The process loads every artifact once and then answers one JSON line per
// request, so calls are serialised.
type PythonWorker struct {
	cfg  WorkerConfig
	args []string

	mu   sync.Mutex
	proc *workerProcess
}

type workerRequest struct {
	Model string `json:"model"`
	Op    string `json:"op"`
	Rows  any    `json:"rows"`
}

type workerResponse struct {
	Ready  bool            `json:"ready,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// NewPythonWorker resolves the interpreter and script and starts the process.
func NewPythonWorker(cfg WorkerConfig) (*PythonWorker, error) {
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("python worker needs at least one model")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 60 * time.Second
	}

	if cfg.PythonPath == "" {
		p, err := findPython()
		if err != nil {
			return nil, err
		}
		cfg.PythonPath = p
	}

	if cfg.ScriptPath == "" {
		cfg.ScriptPath = filepath.Join(os.TempDir(), "healthmania_inference_worker.py")
		if err := createInferenceScript(cfg.ScriptPath); err != nil {
			return nil, fmt.Errorf("failed to create inference script: %w", err)
		}
	}

	w := &PythonWorker{cfg: cfg, args: workerArgs(cfg.ScriptPath, cfg.Models)}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.startLocked(); err != nil {
		return nil, err
	}
	return w, nil
}

func workerArgs(script string, models map[string]string) []string {
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)

	args := []string{script}
	for _, name := range names {
		path := models[name]
		args = append(args, fmt.Sprintf("%s=%s:%s", name, artifactKind(path), path))
	}
	return args
}

func artifactKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".onnx":
		return "onnx"
	case ".joblib":
		return "joblib"
	default:
		return "pickle"
	}
}

// Invoke sends one request and waits for its response line.
func (w *PythonWorker) Invoke(ctx context.Context, model, op string, rows any) ([]byte, error) {
	reqJSON, err := json.Marshal(workerRequest{Model: model, Op: op, Rows: rows})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// The caller may have given up while queued behind another call.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The per-call timeout starts once the worker is ours.
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	if w.proc == nil {
		log.Warn().Msg("Python worker not running, restarting")
		if err := w.startLocked(); err != nil {
			return nil, err
		}
	}

	proc := w.proc
	if _, err := proc.stdin.Write(append(reqJSON, '\n')); err != nil {
		w.resetLocked()
		return nil, fmt.Errorf("failed to write to python worker: %w", err)
	}

	line, err := proc.readLine(ctx)
	if err != nil {
		stderr := proc.stderr.String()
		w.resetLocked()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.Error().
				Str("model", model).
				Str("op", op).
				Dur("timeout", w.cfg.Timeout).
				Msg("Python inference timed out, worker killed")
			return nil, fmt.Errorf("prediction timeout after %v: %w", w.cfg.Timeout, err)
		}
		return nil, classifyWorkerFailure(err, stderr)
	}

	var resp workerResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		log.Error().
			Err(err).
			Str("stdout", string(line)).
			Str("model", model).
			Msg("Failed to parse prediction response")
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("python inference error: %s", resp.Error)
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("python inference returned no result")
	}

	log.Debug().
		Str("model", model).
		Str("op", op).
		RawJSON("result", resp.Result).
		Msg("Prediction successful")

	return resp.Result, nil
}

// Close stops the worker process.
func (w *PythonWorker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.proc == nil {
		return nil
	}
	w.proc.stdin.Close()
	err := w.proc.cmd.Wait()
	w.proc = nil
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func (w *PythonWorker) startLocked() error {
	cmd := exec.Command(w.cfg.PythonPath, w.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open worker stdout: %w", err)
	}
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start python worker: %w", err)
	}

	proc := &workerProcess{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout), stderr: stderr}

	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.StartTimeout)
	defer cancel()

	line, err := proc.readLine(ctx)
	if err != nil {
		proc.kill()
		return fmt.Errorf("python worker did not become ready: %w", classifyWorkerFailure(err, stderr.String()))
	}

	var resp workerResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		proc.kill()
		return fmt.Errorf("unexpected python worker handshake %q: %w", strings.TrimSpace(string(line)), err)
	}
	if resp.Error != "" {
		proc.kill()
		return classifyWorkerFailure(errors.New(resp.Error), stderr.String())
	}
	if !resp.Ready {
		proc.kill()
		return fmt.Errorf("python worker did not report ready")
	}

	log.Info().
		Str("python_path", w.cfg.PythonPath).
		Str("script_path", w.cfg.ScriptPath).
		Int("models", len(w.cfg.Models)).
		Int("pid", cmd.Process.Pid).
		Msg("Python inference worker ready")

	w.proc = proc
	return nil
}

func (w *PythonWorker) resetLocked() {
	if w.proc != nil {
		w.proc.kill()
		w.proc = nil
	}
}

func classifyWorkerFailure(err error, stderr string) error {
	switch {
	case strings.Contains(stderr, "onnxruntime not installed") || strings.Contains(err.Error(), "onnxruntime not installed"):
		return fmt.Errorf("ONNX runtime dependency missing: %w", err)
	case strings.Contains(stderr, "No such file or directory"):
		return fmt.Errorf("model file not accessible: %w", err)
	case strings.Contains(stderr, "Permission denied"):
		return fmt.Errorf("permission denied accessing model files: %w", err)
	case stderr != "":
		return fmt.Errorf("python worker failed: %w, stderr: %s", err, stderr)
	default:
		return fmt.Errorf("python worker failed: %w", err)
	}
}

type workerProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr *tailBuffer
}

func (p *workerProcess) readLine(ctx context.Context) ([]byte, error) {
	type result struct {
		line []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.stdout.ReadBytes('\n')
		ch <- result{line, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && len(r.line) == 0 {
			return nil, r.err
		}
		return r.line, nil
	case <-ctx.Done():
		p.kill()
		return nil, ctx.Err()
	}
}

func (p *workerProcess) kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	go func() { _ = p.cmd.Wait() }()
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Write(p)
	if over := b.buf.Len() - b.max; over > 0 {
		b.buf.Next(over)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func findPython() (string, error) {
	probe := "import sys, sklearn, onnxruntime; print('Python', sys.version)"

	if venvPath := os.Getenv("VIRTUAL_ENV"); venvPath != "" {
		candidates := []string{
			filepath.Join(venvPath, "bin", "python3"),
			filepath.Join(venvPath, "bin", "python"),
			filepath.Join(venvPath, "Scripts", "python.exe"),
		}
		for _, venvPython := range candidates {
			if _, err := os.Stat(venvPython); err == nil {
				cmd := exec.Command(venvPython, "-c", probe)
				if output, err := cmd.Output(); err == nil && strings.Contains(string(output), "Python 3") {
					log.Info().Str("python_path", venvPython).Msg("Using virtual environment Python")
					return venvPython, nil
				}
			}
		}
	}

	candidates := []string{"python3", "python", "python3.12", "python3.11", "python3.10"}
	for _, candidate := range candidates {
		path, err := exec.LookPath(candidate)
		if err != nil {
			continue
		}
		cmd := exec.Command(path, "-c", probe)
		if output, err := cmd.Output(); err == nil && strings.Contains(string(output), "Python 3") {
			log.Info().Str("python_path", path).Msg("Using system Python")
			return path, nil
		}
	}

	for _, candidate := range candidates {
		path, err := exec.LookPath(candidate)
		if err != nil {
			continue
		}
		cmd := exec.Command(path, "-c", "import sys; exit(0 if sys.version_info[0] == 3 else 1)")
		if err := cmd.Run(); err == nil {
			log.Warn().Str("python_path", path).Msg("Found Python 3 but scikit-learn or ONNX Runtime may not be installed")
			return path, nil
		}
	}

	return "", fmt.Errorf("no suitable Python 3 executable found; install Python 3 with scikit-learn and onnxruntime")
}

func createInferenceScript(scriptPath string) error {
	script := `#!/usr/bin/env python3
"""
HealthMania inference worker. Loads every model once, then answers one JSON
request per stdin line with one JSON response per stdout line.
"""
import sys
import json
import pickle


def emit(obj):
    sys.stdout.write(json.dumps(obj) + "\n")
    sys.stdout.flush()


def load(kind, path):
    if kind == "onnx":
        try:
            import onnxruntime as ort
        except ImportError:
            raise RuntimeError("onnxruntime not installed")
        return ort.InferenceSession(path)
    if kind == "joblib":
        import joblib
        return joblib.load(path)
    with open(path, "rb") as f:
        return pickle.load(f)


def main():
    models = {}
    try:
        for spec in sys.argv[1:]:
            name, rest = spec.split("=", 1)
            kind, path = rest.split(":", 1)
            models[name] = (kind, load(kind, path))
        import numpy as np
    except Exception as e:
        emit({"error": "load failed: %s" % e})
        sys.exit(1)

    emit({"ready": True})

    while True:
        line = sys.stdin.readline()
        if not line:
            break
        line = line.strip()
        if not line:
            continue
        try:
            request = json.loads(line)
            kind, model = models[request["model"]]
            op = request["op"]
            if op == "run":
                input_name = model.get_inputs()[0].name
                rows = np.array(request["rows"], dtype=np.float32)
                outputs = model.run(None, {input_name: rows})
                result = np.asarray(outputs[0], dtype=np.float64).tolist()
            elif op == "predict":
                rows = np.array(request["rows"], dtype=np.float64)
                result = np.asarray(model.predict(rows), dtype=np.float64).tolist()
            elif op == "predict_proba":
                rows = np.array(request["rows"], dtype=np.float64)
                result = np.asarray(model.predict_proba(rows), dtype=np.float64).tolist()
            else:
                raise ValueError("unknown op %s" % op)
            emit({"result": result})
        except Exception as e:
            emit({"error": str(e)})


if __name__ == "__main__":
    main()
`

	return os.WriteFile(scriptPath, []byte(script), 0755)
}
