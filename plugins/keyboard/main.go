// Command keyboard is a mudra plugin that sends keystrokes on macOS through
// AppleScript. Swipes and slide changes map to arrow keys, so a deck of
// slides can follow the hand.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
)

// KeystrokeParams defines parameters for keystroke and shortcut actions.
type KeystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

// modifierMap maps user-friendly modifier names to AppleScript equivalents.
var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

// arrowCodes are the macOS key codes of the arrow keys by swipe direction.
var arrowCodes = map[string]int{
	"LEFT":  123,
	"RIGHT": 124,
	"DOWN":  125,
	"UP":    126,
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		respond(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	script, err := buildScript(req)
	if err == nil {
		err = runAppleScript(script)
	}
	respond(err)
}

// buildScript turns a request into the AppleScript that performs it.
func buildScript(req plugin.Request) (string, error) {
	switch req.Action {
	case "keystroke", "shortcut":
		var p KeystrokeParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &p); err != nil {
				return "", fmt.Errorf("failed to parse params: %w", err)
			}
		}
		if p.Key == "" {
			return "", fmt.Errorf("key is required")
		}
		return keystrokeScript(p.Key, p.Modifiers), nil
	case "arrow":
		dir := req.Value
		if req.Event == "slide" {
			// Slide events carry the index, so the params name the key.
			var p struct {
				Direction string `json:"direction"`
			}
			if len(req.Params) > 0 {
				_ = json.Unmarshal(req.Params, &p)
			}
			dir = strings.ToUpper(p.Direction)
		}
		code, ok := arrowCodes[dir]
		if !ok {
			return "", fmt.Errorf("no arrow key for %q", dir)
		}
		return fmt.Sprintf(`tell application "System Events" to key code %d`, code), nil
	default:
		return "", fmt.Errorf("unknown action: %s", req.Action)
	}
}

// keystrokeScript generates an AppleScript for the given key and modifiers.
func keystrokeScript(key string, modifiers []string) string {
	var appleModifiers []string
	for _, mod := range modifiers {
		if appleMod, ok := modifierMap[strings.ToLower(mod)]; ok {
			appleModifiers = append(appleModifiers, appleMod)
		}
	}
	if len(appleModifiers) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, strings.Join(appleModifiers, ", "))
}

func respond(err error) {
	resp := plugin.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	output, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
