package ml

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorker is a shell stand-in for the Python worker speaking the same
// line protocol.
const fakeWorker = `echo '{"ready":true}'
while IFS= read -r line; do
  case "$line" in
    *'"model":"slow"'*) sleep 5 ;;
    *'"model":"broken"'*) echo '{"error":"boom"}' ;;
    *'"op":"predict_proba"'*) echo '{"result":[[0.25,0.75]]}' ;;
    *'"op":"predict"'*) echo '{"result":[1]}' ;;
    *'"op":"run"'*) echo '{"result":[[6.0,2.0]]}' ;;
    *) echo '{"error":"unknown"}' ;;
  esac
done
`

func startFakeWorker(t *testing.T, script string, timeout time.Duration) *PythonWorker {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake worker needs /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	path := filepath.Join(t.TempDir(), "worker.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))

	w, err := NewPythonWorker(WorkerConfig{
		PythonPath:   "/bin/sh",
		ScriptPath:   path,
		Models:       map[string]string{"diabetes": "diabetes.pkl", "sleep_stress": "sleep.onnx"},
		Timeout:      timeout,
		StartTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestPythonWorker_Operations(t *testing.T) {
	w := startFakeWorker(t, fakeWorker, 2*time.Second)
	ctx := context.Background()

	classes, err := NewClassifier(w, "diabetes").Predict(ctx, [][]float64{{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, classes)

	probs, err := NewClassifier(w, "diabetes").PredictProba(ctx, [][]float64{{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.25, 0.75}}, probs)

	out, err := NewSession(w, "sleep_stress").Run(ctx, [][]float32{{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{6, 2}}, out)
}

func TestPythonWorker_ErrorResponseKeepsWorker(t *testing.T) {
	w := startFakeWorker(t, fakeWorker, 2*time.Second)
	ctx := context.Background()

	_, err := w.Invoke(ctx, "broken", opPredict, [][]float64{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = w.Invoke(ctx, "diabetes", opPredict, [][]float64{{1}})
	assert.NoError(t, err)
}

func TestPythonWorker_TimeoutRestartsWorker(t *testing.T) {
	w := startFakeWorker(t, fakeWorker, 200*time.Millisecond)
	ctx := context.Background()

	_, err := w.Invoke(ctx, "slow", opPredict, [][]float64{{1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	raw, err := w.Invoke(ctx, "diabetes", opPredict, [][]float64{{1}})
	require.NoError(t, err)
	assert.JSONEq(t, `[1]`, string(raw))
}

// countingWorker logs each start to countFile before the handshake.
func countingWorker(countFile string) string {
	return "echo start >> '" + countFile + "'\n" + fakeWorker
}

func workerStarts(t *testing.T, countFile string) int {
	t.Helper()
	data, err := os.ReadFile(countFile)
	require.NoError(t, err)
	return strings.Count(string(data), "start")
}

func TestPythonWorker_QueuedCallsSurviveSlowCall(t *testing.T) {
	countFile := filepath.Join(t.TempDir(), "starts")
	w := startFakeWorker(t, countingWorker(countFile), 300*time.Millisecond)
	ctx := context.Background()

	slowDone := make(chan error, 1)
	go func() {
		_, err := w.Invoke(ctx, "slow", opPredict, [][]float64{{1}})
		slowDone <- err
	}()
	time.Sleep(50 * time.Millisecond)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = w.Invoke(ctx, "diabetes", opPredict, [][]float64{{1}})
		}()
	}
	wg.Wait()

	assert.ErrorIs(t, <-slowDone, context.DeadlineExceeded)
	for _, err := range errs {
		assert.NoError(t, err)
	}
	// initial start plus one restart after the slow call was killed
	assert.Equal(t, 2, workerStarts(t, countFile))
}

func TestPythonWorker_CanceledCallerKeepsWorker(t *testing.T) {
	countFile := filepath.Join(t.TempDir(), "starts")
	w := startFakeWorker(t, countingWorker(countFile), 2*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Invoke(ctx, "diabetes", opPredict, [][]float64{{1}})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = w.Invoke(context.Background(), "diabetes", opPredict, [][]float64{{1}})
	require.NoError(t, err)
	assert.Equal(t, 1, workerStarts(t, countFile))
}

func TestPythonWorker_FailedHandshake(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake worker needs /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "worker.sh")
	require.NoError(t, os.WriteFile(path, []byte(`echo '{"error":"load failed: missing"}'`+"\n"), 0755))

	_, err := NewPythonWorker(WorkerConfig{
		PythonPath:   "/bin/sh",
		ScriptPath:   path,
		Models:       map[string]string{"diabetes": "diabetes.pkl"},
		StartTimeout: 5 * time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load failed")
}

func TestNewPythonWorker_NeedsModels(t *testing.T) {
	_, err := NewPythonWorker(WorkerConfig{PythonPath: "/bin/sh"})
	assert.Error(t, err)
}

func TestWorkerArgs_SortedWithKinds(t *testing.T) {
	args := workerArgs("worker.py", map[string]string{
		"sleep_stress": "models/sleep.onnx",
		"diabetes":     "models/diabetes.pkl",
		"food_health":  "models/food.joblib",
	})
	assert.Equal(t, []string{
		"worker.py",
		"diabetes=pickle:models/diabetes.pkl",
		"food_health=joblib:models/food.joblib",
		"sleep_stress=onnx:models/sleep.onnx",
	}, args)
}

func TestClassifyWorkerFailure(t *testing.T) {
	err := classifyWorkerFailure(assert.AnError, "RuntimeError: onnxruntime not installed")
	assert.Contains(t, err.Error(), "ONNX runtime dependency missing")

	err = classifyWorkerFailure(assert.AnError, "")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestTailBuffer_KeepsLastBytes(t *testing.T) {
	b := &tailBuffer{max: 4}
	_, _ = b.Write([]byte("abcdef"))
	_, _ = b.Write([]byte("gh"))
	assert.Equal(t, "efgh", b.String())
}

func TestCreateInferenceScript(t *testing.T) {
	tempDir := t.TempDir()
	scriptPath := filepath.Join(tempDir, "test_inference.py")

	err := createInferenceScript(scriptPath)
	if err != nil {
		t.Fatalf("Failed to create inference script: %v", err)
	}

	info, err := os.Stat(scriptPath)
	if err != nil {
		t.Fatalf("Failed to stat script: %v", err)
	}
	if info.Mode()&0111 == 0 {
		t.Error("Inference script is not executable")
	}

	content, err := os.ReadFile(scriptPath)
	if err != nil {
		t.Fatalf("Failed to read script: %v", err)
	}

	scriptStr := string(content)
	expectedParts := []string{
		"#!/usr/bin/env python3",
		"import onnxruntime",
		`emit({"ready": True})`,
		"predict_proba",
		"model.run",
	}
	for _, part := range expectedParts {
		if !strings.Contains(scriptStr, part) {
			t.Errorf("Script missing expected part: %s", part)
		}
	}
}
