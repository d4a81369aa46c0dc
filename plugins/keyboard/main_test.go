package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/plugin"
)

func TestBuildScript(t *testing.T) {
	tests := []struct {
		name    string
		req     plugin.Request
		want    string
		wantErr string
	}{
		{
			name: "keystroke",
			req:  plugin.Request{Action: "keystroke", Params: json.RawMessage(`{"key":"a"}`)},
			want: `tell application "System Events" to keystroke "a"`,
		},
		{
			name: "shortcut with modifiers",
			req:  plugin.Request{Action: "shortcut", Params: json.RawMessage(`{"key":"c","modifiers":["cmd","Shift","hyper"]}`)},
			want: `tell application "System Events" to keystroke "c" using {command down, shift down}`,
		},
		{
			name: "swipe arrow",
			req:  plugin.Request{Action: "arrow", Event: "swipe", Value: "LEFT"},
			want: `tell application "System Events" to key code 123`,
		},
		{
			name: "slide arrow",
			req:  plugin.Request{Action: "arrow", Event: "slide", Value: "3", Params: json.RawMessage(`{"direction":"right"}`)},
			want: `tell application "System Events" to key code 124`,
		},
		{
			name:    "missing key",
			req:     plugin.Request{Action: "keystroke"},
			wantErr: "key is required",
		},
		{
			name:    "slide without direction",
			req:     plugin.Request{Action: "arrow", Event: "slide", Value: "3"},
			wantErr: "no arrow key",
		},
		{
			name:    "unknown action",
			req:     plugin.Request{Action: "dance"},
			wantErr: "unknown action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildScript(tt.req)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("buildScript() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildScript() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("buildScript() = %q, want %q", got, tt.want)
			}
		})
	}
}
