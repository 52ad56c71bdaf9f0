package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// GetByPath retrieves a config value by dot-separated path,
// e.g. "autoReply.intervalSeconds" or "providers.openai.defaultModel".
func GetByPath(cfg *Config, path string) (any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal config: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	parts := strings.Split(path, ".")
	var current any = m
	for i, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path %s: %s is not an object", path, strings.Join(parts[:i], "."))
		}
		current, ok = node[part]
		if !ok {
			return nil, fmt.Errorf("unknown config key: %s", path)
		}
	}
	return current, nil
}

// SetByPath sets a config value by dot-separated path. The value string is
// coerced to bool or number when it parses as one.
func SetByPath(cfg *Config, path string, value string) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("cannot unmarshal config: %w", err)
	}

	parts := strings.Split(path, ".")
	node := m
	for i, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			return fmt.Errorf("path %s: %s is not an object", path, strings.Join(parts[:i+1], "."))
		}
		node = next
	}
	node[parts[len(parts)-1]] = parseValue(value)

	updated, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("cannot re-marshal config: %w", err)
	}
	if err := json.Unmarshal(updated, cfg); err != nil {
		return fmt.Errorf("value does not fit config field %s: %w", path, err)
	}
	return nil
}

// parseValue coerces a string to bool, int, or float when possible.
func parseValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Sanitize returns a copy of the config with secrets masked, suitable for
// display.
func Sanitize(cfg *Config) *Config {
	data, err := json.Marshal(cfg)
	if err != nil {
		return cfg
	}
	var out Config
	if err := json.Unmarshal(data, &out); err != nil {
		return cfg
	}

	out.Gateway.APIKey = maskString(out.Gateway.APIKey)
	for name, pc := range out.Providers {
		pc.APIKey = maskString(pc.APIKey)
		out.Providers[name] = pc
	}
	return &out
}

func maskString(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// ListPaths returns all settable config paths, sorted.
func ListPaths(cfg *Config) []string {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}

	var paths []string
	flattenMap("", m, &paths)
	sort.Strings(paths)
	return paths
}

func flattenMap(prefix string, m map[string]any, out *[]string) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flattenMap(path, sub, out)
		} else {
			*out = append(*out, path)
		}
	}
}
