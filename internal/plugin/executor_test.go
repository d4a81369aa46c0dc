package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExecutor_Execute(t *testing.T) {
	p := writePlugin(t, t.TempDir(), "hello",
		"echo '{\"success\":true,\"data\":{\"message\":\"hello world\"}}'\n", "greet")

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{Action: "greet", Event: "click"})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !resp.Success || resp.Error != "" {
		t.Errorf("response = %+v, want success", resp)
	}

	var data map[string]any
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "hello world" {
		t.Errorf("message = %v, want 'hello world'", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	p := writePlugin(t, t.TempDir(), "echo",
		"INPUT=$(cat)\necho \"{\\\"success\\\":true,\\\"data\\\":{\\\"received\\\":$INPUT}}\"\n")

	req := &Request{
		Action: "keystroke",
		Event:  "swipe",
		Value:  "LEFT",
		Tool:   "MEDIA",
		Params: json.RawMessage(`{"key":"right"}`),
	}
	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, req)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var data struct {
		Received Request `json:"received"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	got := data.Received
	if got.Action != "keystroke" || got.Event != "swipe" || got.Value != "LEFT" || got.Tool != "MEDIA" {
		t.Errorf("plugin received %+v", got)
	}
	if string(got.Params) != `{"key":"right"}` {
		t.Errorf("params = %s", got.Params)
	}
}

func TestExecutor_Failures(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		timeout time.Duration
		check   func(t *testing.T, resp *Response, err error)
	}{
		{
			name:    "timeout",
			script:  "sleep 10\necho '{\"success\":true}'\n",
			timeout: 100 * time.Millisecond,
			check: func(t *testing.T, _ *Response, err error) {
				if !errors.Is(err, ErrTimeout) {
					t.Errorf("error = %v, want ErrTimeout", err)
				}
			},
		},
		{
			name:   "error response",
			script: "echo '{\"success\":false,\"error\":\"something went wrong\"}'\n",
			check: func(t *testing.T, resp *Response, err error) {
				if err != nil {
					t.Fatalf("Execute() failed: %v", err)
				}
				if resp.Success || resp.Error != "something went wrong" {
					t.Errorf("response = %+v", resp)
				}
			},
		},
		{
			name:   "invalid json",
			script: "echo 'not valid json'\n",
			check: func(t *testing.T, _ *Response, err error) {
				if err == nil || !strings.Contains(err.Error(), "parse plugin response") {
					t.Errorf("error = %v, want parse failure", err)
				}
			},
		},
		{
			name:   "non-zero exit",
			script: "echo 'Error: something failed' >&2\nexit 1\n",
			check: func(t *testing.T, _ *Response, err error) {
				if err == nil || !strings.Contains(err.Error(), "something failed") {
					t.Errorf("error = %v, want stderr in message", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writePlugin(t, t.TempDir(), "p", tt.script)
			timeout := tt.timeout
			if timeout == 0 {
				timeout = 5 * time.Second
			}
			resp, err := NewExecutor(timeout).Execute(context.Background(), p, &Request{Action: "x"})
			tt.check(t, resp, err)
		})
	}
}
