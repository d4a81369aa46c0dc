package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/store"
)

// ActionLister lists the stored action bindings.
type ActionLister interface {
	ListEnabled(ctx context.Context) ([]*store.Action, error)
}

// LoadBindings merges the bindings of cfg with the enabled stored actions.
// Configured bindings come first for each event. A nil src adds nothing.
func LoadBindings(ctx context.Context, cfg plugin.Config, src ActionLister) (map[string][]plugin.Binding, error) {
	out := make(map[string][]plugin.Binding, len(cfg.Bindings))
	for event, b := range cfg.Bindings {
		out[event] = append(out[event], b)
	}
	if src == nil {
		return out, nil
	}

	actions, err := src.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	for _, a := range actions {
		b := plugin.Binding{Plugin: a.PluginName, Action: a.ActionName}
		if len(a.Params) > 0 {
			if err := json.Unmarshal(a.Params, &b.Params); err != nil {
				return nil, fmt.Errorf("action %s params: %w", a.ID, err)
			}
		}
		out[a.Event] = append(out[a.Event], b)
	}
	return out, nil
}
