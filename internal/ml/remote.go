package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RemoteBackend calls an inference server that already holds the artifacts.
// Each operation is POST {base}/v1/models/{model}/{op} with {"rows": [...]}
// and answers {"result": ...} or {"error": "..."}.
type RemoteBackend struct {
	base string
	rest *resty.Client
}

func NewRemoteBackend(base string, timeout time.Duration) *RemoteBackend {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	r.SetHeader("Content-Type", "application/json")
	return &RemoteBackend{base: strings.TrimRight(base, "/"), rest: r}
}

type remoteRequest struct {
	Rows any `json:"rows"`
}

type remoteResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func (b *RemoteBackend) Invoke(ctx context.Context, model, op string, rows any) ([]byte, error) {
	resp := &remoteResponse{}
	path := fmt.Sprintf("%s/v1/models/%s/%s", b.base, model, op)

	r, err := b.rest.R().
		SetContext(ctx).
		SetBody(remoteRequest{Rows: rows}).
		SetResult(resp).
		SetError(resp).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("inference server request failed: %w", err)
	}
	if r.IsError() {
		if resp.Error != "" {
			return nil, fmt.Errorf("inference server: %d %s", r.StatusCode(), resp.Error)
		}
		return nil, fmt.Errorf("inference server: %d %s", r.StatusCode(), strings.TrimSpace(r.String()))
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("inference server error: %s", resp.Error)
	}
	if len(resp.Result) == 0 {
		return nil, fmt.Errorf("inference server returned no result")
	}
	return resp.Result, nil
}

func (b *RemoteBackend) Close() error { return nil }
