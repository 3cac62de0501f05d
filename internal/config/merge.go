// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidKey is returned by SetKey for an empty or malformed dotted key.
var ErrInvalidKey = errors.New("invalid config key")

// Merge returns base deep-merged with overlay. Nested maps merge key by key;
// any other overlay value replaces the base value. Neither input is modified.
func Merge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		if om, ok := v.(map[string]any); ok {
			if bm, ok := out[k].(map[string]any); ok {
				out[k] = Merge(bm, om)
				continue
			}
			out[k] = Merge(nil, om)
			continue
		}
		out[k] = v
	}
	return out
}

// SetKey returns overlay with value stored under the dotted key, creating the
// intermediate maps. SetKey(nil, "docker.image.custom_image", "x") yields
// {docker: {image: {custom_image: x}}}.
func SetKey(overlay map[string]any, key string, value any) (map[string]any, error) {
	parts := strings.Split(key, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	var nested any = value
	for i := len(parts) - 1; i >= 0; i-- {
		nested = map[string]any{parts[i]: nested}
	}
	return Merge(overlay, nested.(map[string]any)), nil
}

// ParseValue interprets a command-line value as YAML so that "[a, b]" becomes
// a list and "true" a boolean. Plain words stay strings.
func ParseValue(s string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("invalid value %q: %w", s, err)
	}
	if v == nil {
		return s, nil
	}
	return v, nil
}
