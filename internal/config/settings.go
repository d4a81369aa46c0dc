package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ApplySettings overrides cfg with dotted-path settings such as
// "swipe.mode" = "consensus". Values are parsed as YAML scalars.
func ApplySettings(cfg *Config, settings map[string]string) error {
	if len(settings) == 0 {
		return nil
	}
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range keys {
		if err := insert(root, key, settings[key]); err != nil {
			return err
		}
	}
	if err := root.Decode(cfg); err != nil {
		return fmt.Errorf("apply settings: %w", err)
	}
	return nil
}

// insert places value at the dotted key below root.
func insert(root *yaml.Node, key, value string) error {
	parts := strings.Split(key, ".")
	node := root
	for i, part := range parts {
		if part == "" {
			return fmt.Errorf("setting %q: empty path segment", key)
		}
		child := lookup(node, part)
		last := i == len(parts)-1
		switch {
		case child == nil && last:
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: part},
				&yaml.Node{Kind: yaml.ScalarNode, Value: value})
			return nil
		case child == nil:
			child = &yaml.Node{Kind: yaml.MappingNode}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: part}, child)
		case last || child.Kind != yaml.MappingNode:
			return fmt.Errorf("setting %q conflicts with another setting", key)
		}
		node = child
	}
	return nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// ValidateSetting checks that key names a scalar option and that value,
// applied on top of the defaults, yields a valid configuration.
func ValidateSetting(key, value string) error {
	var doc yaml.Node
	if err := doc.Encode(Default()); err != nil {
		return err
	}
	node := &doc
	for _, part := range strings.Split(key, ".") {
		if node.Kind != yaml.MappingNode {
			node = nil
			break
		}
		node = lookup(node, part)
		if node == nil {
			break
		}
	}
	if node == nil || node.Kind != yaml.ScalarNode {
		return fmt.Errorf("unknown setting %q", key)
	}

	cfg := Default()
	if err := ApplySettings(&cfg, map[string]string{key: value}); err != nil {
		return err
	}
	return cfg.Validate()
}
