package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"oho-chat-gateway/pkg/flow/tweaks"
)

// RunInput is the single explicit invocation contract: a plain input
// string plus session metadata. Session data is never duplicated into the
// input value itself.
type RunInput struct {
	Input         string
	SessionID     string
	FallbackToEnv bool
	Tweaks        tweaks.Map
}

// Runner invokes the external flow engine and returns its raw,
// engine-version-dependent result. Implementations must not interpret the
// result; that is the extractor's job.
type Runner interface {
	Run(ctx context.Context, in RunInput) (any, error)
}

// Client calls the engine's HTTP run API.
type Client struct {
	BaseURL string
	APIKey  string
	FlowID  string
	Http    *http.Client
}

var _ Runner = &Client{}

// NewClient creates an engine client with an explicit timeout. Unbounded
// calls are not allowed; a hung engine must not pin a turn forever.
func NewClient(baseURL, apiKey, flowID string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		FlowID:  flowID,
		Http: &http.Client{
			Timeout: timeout,
		},
	}
}

type runRequest struct {
	InputValue        string     `json:"input_value"`
	InputType         string     `json:"input_type"`
	OutputType        string     `json:"output_type"`
	SessionID         string     `json:"session_id,omitempty"`
	FallbackToEnvVars bool       `json:"fallback_to_env_vars"`
	Tweaks            tweaks.Map `json:"tweaks,omitempty"`
}

// Run executes the flow once. The decoded body is returned as-is: the
// engine's response shape varies across its versions, so no schema is
// imposed here.
func (c *Client) Run(ctx context.Context, in RunInput) (any, error) {
	body, err := json.Marshal(runRequest{
		InputValue:        in.Input,
		InputType:         "chat",
		OutputType:        "chat",
		SessionID:         in.SessionID,
		FallbackToEnvVars: in.FallbackToEnv,
		Tweaks:            in.Tweaks,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal run request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/run/%s?stream=false", c.BaseURL, c.FlowID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}

	resp, err := c.Http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flow engine call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read engine response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("flow engine returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		// Some engine versions reply with partially stringified bodies.
		// Hand the raw text to the extractor instead of failing the turn.
		return string(raw), nil
	}
	return result, nil
}
