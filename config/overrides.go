package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TopicFile is an optional per-topic override document: a topic plus a
// sparse config fragment merged over the base config.
type TopicFile struct {
	Topic     string          `json:"topic"`
	Overrides json.RawMessage `json:"overrides,omitempty"`
}

// LoadTopicFile reads a topic override document and merges its overrides
// into cfg.
func LoadTopicFile(path string, cfg *Config) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read topic file %s: %w", path, err)
	}
	var tf TopicFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("parse topic file %s: %w", path, err)
	}
	if len(tf.Overrides) > 0 {
		if err := json.Unmarshal(tf.Overrides, cfg); err != nil {
			return "", fmt.Errorf("apply topic overrides: %w", err)
		}
	}
	return tf.Topic, nil
}

// ApplySet applies repeatable --set key=value flags. Keys are dotted JSON
// paths ("llm.provider", "retry.max_attempts"); values are coerced to bool
// or number when they look like one.
func ApplySet(cfg *Config, pairs []string) error {
	if len(pairs) == 0 {
		return nil
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	for _, pair := range pairs {
		key, val, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("--set must be key=value, got %q", pair)
		}
		setNested(tree, strings.Split(key, "."), coerce(val))
	}

	merged, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal overrides: %w", err)
	}
	if err := json.Unmarshal(merged, cfg); err != nil {
		return fmt.Errorf("apply --set overrides: %w", err)
	}
	return cfg.Validate()
}

func setNested(tree map[string]interface{}, path []string, val interface{}) {
	for i, key := range path {
		if i == len(path)-1 {
			tree[key] = val
			return
		}
		next, ok := tree[key].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			tree[key] = next
		}
		tree = next
	}
}

func coerce(s string) interface{} {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
