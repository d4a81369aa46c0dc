// Command system-control is a mudra plugin for volume, brightness and media
// playback on macOS. The directional actions read the swipe direction from
// the event, so one binding on "swipe" covers both ways.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/ayusman/mudra/internal/plugin"
)

// Key codes of the macOS media and brightness keys.
const (
	keyBrightnessUp   = 144
	keyBrightnessDown = 145
	keyPlayPause      = 100
	keyNext           = 101
	keyPrev           = 98
)

const (
	volumeUp   = `set volume output volume ((output volume of (get volume settings)) + 10)`
	volumeDown = `set volume output volume ((output volume of (get volume settings)) - 10)`
	volumeMute = `set volume output muted (not (output muted of (get volume settings)))`
)

// fixed maps the direction-free actions to their scripts.
var fixed = map[string]string{
	"volume-up":        volumeUp,
	"volume-down":      volumeDown,
	"volume-mute":      volumeMute,
	"brightness-up":    keyCode(keyBrightnessUp),
	"brightness-down":  keyCode(keyBrightnessDown),
	"media-play-pause": keyCode(keyPlayPause),
	"media-next":       keyCode(keyNext),
	"media-prev":       keyCode(keyPrev),
}

// directional maps an action and a swipe direction to a script.
var directional = map[string]map[string]string{
	"volume": {
		"UP":   volumeUp,
		"DOWN": volumeDown,
	},
	"brightness": {
		"UP":   keyCode(keyBrightnessUp),
		"DOWN": keyCode(keyBrightnessDown),
	},
	"media": {
		"LEFT":  keyCode(keyPrev),
		"RIGHT": keyCode(keyNext),
		"UP":    keyCode(keyPlayPause),
		"DOWN":  keyCode(keyPlayPause),
	},
}

func keyCode(code int) string {
	return fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code)
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		respond(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	script, err := scriptFor(req)
	if err == nil {
		err = runAppleScript(script)
	}
	respond(err)
}

func scriptFor(req plugin.Request) (string, error) {
	if script, ok := fixed[req.Action]; ok {
		return script, nil
	}
	byDir, ok := directional[req.Action]
	if !ok {
		return "", fmt.Errorf("unknown action: %s", req.Action)
	}
	script, ok := byDir[req.Value]
	if !ok {
		return "", fmt.Errorf("action %s has no direction %q", req.Action, req.Value)
	}
	return script, nil
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
