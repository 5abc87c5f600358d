package config

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Tree is an immutable snapshot of hierarchical configuration.
// Every operation that changes a value returns a new Tree; the receiver is never modified.
// Keys are dot-separated paths and, as with viper, case-insensitive.
type Tree struct {
	v *viper.Viper
}

// New returns a Tree holding a deep copy of settings.
func New(settings map[string]any) *Tree {
	v := viper.New()
	if len(settings) > 0 {
		// MergeConfigMap only fails when handed a nil map.
		_ = v.MergeConfigMap(copyMap(settings))
	}
	return &Tree{v: v}
}

// fromViper snapshots the resolved settings of v (defaults, files, env, flags).
func fromViper(v *viper.Viper) *Tree {
	return New(v.AllSettings())
}

// Get returns the value stored at key, or nil.
func (t *Tree) Get(key string) any {
	return t.v.Get(key)
}

// GetString returns the value stored at key as a string.
func (t *Tree) GetString(key string) string {
	return t.v.GetString(key)
}

// IsSet reports whether key holds a value.
func (t *Tree) IsSet(key string) bool {
	return t.v.IsSet(key)
}

// AllSettings returns a copy of every setting as a nested map.
func (t *Tree) AllSettings() map[string]any {
	return copyMap(t.v.AllSettings())
}

// Unmarshal decodes the tree into out using `mapstructure` tags.
func (t *Tree) Unmarshal(out any) error {
	if err := t.v.Unmarshal(out); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

// Focus returns the subtree stored at path. A missing path yields an empty tree;
// a path holding a scalar is an error.
func (t *Tree) Focus(path string) (*Tree, error) {
	if !t.v.IsSet(path) {
		return New(nil), nil
	}

	raw := t.v.Get(path)
	sub, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, fmt.Errorf("focus %s: value of type %T is not a table", path, raw)
	}

	return New(sub), nil
}

// Merge returns a new tree with key set to value, overriding any existing value.
func (t *Tree) Merge(key string, value any) *Tree {
	next := New(t.v.AllSettings())
	next.v.Set(key, value)
	return fromViper(next.v)
}

// WithDefault returns a tree in which key holds value unless it was already set.
func (t *Tree) WithDefault(key string, value any) *Tree {
	if t.v.IsSet(key) {
		return t
	}
	return t.Merge(key, value)
}

func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyMap(val)
	case map[any]any:
		return copyMap(cast.ToStringMap(val))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
