package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPEvaluator queries the decision-table service over HTTP JSON.
type HTTPEvaluator struct {
	baseURL string
	client  *http.Client
}

func NewHTTPEvaluator(baseURL string, timeout time.Duration) *HTTPEvaluator {
	return &HTTPEvaluator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type evaluateRequest struct {
	Inputs map[string]string `json:"inputs"`
}

type evaluateResponse struct {
	Results []Result `json:"results"`
}

func (e *HTTPEvaluator) Evaluate(ctx context.Context, inputs map[string]string) ([]Result, error) {
	body, err := json.Marshal(evaluateRequest{Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("marshal evaluate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/decision/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build evaluate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evaluate decision table: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("decision table returned %d: %s", resp.StatusCode, b)
	}

	var out evaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode evaluate response: %w", err)
	}
	return out.Results, nil
}
