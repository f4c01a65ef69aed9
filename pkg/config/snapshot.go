package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Metadata keys with a dedicated environment-variable override. These are
// checked before any file or default value, so CI can flip them without
// touching config files.
const (
	envHeadlessOverride = "BROWSER_HEADLESS"
	envBaseURLOverride  = "BASE_URL"
)

// Snapshot is the fully merged, immutable view of configuration for one load
// cycle. A reload produces a new Snapshot; an existing one is never mutated.
type Snapshot struct {
	env    string
	values map[string]interface{}
}

// Environment returns the environment name this snapshot was loaded for.
func (s *Snapshot) Environment() string {
	return s.env
}

// Get resolves a dotted path against the snapshot, returning def when any
// segment is missing or a non-mapping value is hit mid-path. Lookup is total:
// it never fails for a missing key.
//
// The keys "headless" and "base_url" honor the BROWSER_HEADLESS and BASE_URL
// environment variables ahead of any loaded value.
func (s *Snapshot) Get(key string, def interface{}) interface{} {
	switch key {
	case "headless":
		if v := os.Getenv(envHeadlessOverride); v != "" {
			return parseBool(v)
		}
	case "base_url":
		if v := os.Getenv(envBaseURLOverride); v != "" {
			return v
		}
	}

	var current interface{} = s.values
	for _, segment := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return def
		}
		current, ok = m[segment]
		if !ok {
			return def
		}
	}
	return current
}

// GetString returns the value at key coerced to a string.
func (s *Snapshot) GetString(key, def string) string {
	v := s.Get(key, nil)
	if v == nil {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// GetBool returns the value at key coerced to a bool. Strings are interpreted
// the way the headless override is: "true", "1" and "yes" are truthy.
func (s *Snapshot) GetBool(key string, def bool) bool {
	v := s.Get(key, nil)
	if v == nil {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return parseBool(t)
	default:
		return def
	}
}

// GetInt returns the value at key coerced to an int.
func (s *Snapshot) GetInt(key string, def int) int {
	v := s.Get(key, nil)
	if v == nil {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return def
}

// GetDuration returns the value at key as a time.Duration. Bare numbers are
// read as seconds, matching how wait and timeout values are written in the
// environment files; strings may use Go duration syntax ("1m30s").
func (s *Snapshot) GetDuration(key string, def time.Duration) time.Duration {
	v := s.Get(key, nil)
	if v == nil {
		return def
	}
	switch t := v.(type) {
	case int:
		return time.Duration(t) * time.Second
	case int64:
		return time.Duration(t) * time.Second
	case float64:
		return time.Duration(t * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(t); err == nil {
			return d
		}
		if n, err := strconv.Atoi(t); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

// Decode unmarshals the mapping at path into out via mapstructure. An empty
// path decodes the whole snapshot.
func (s *Snapshot) Decode(path string, out interface{}) error {
	var src interface{} = s.values
	if path != "" {
		src = s.Get(path, nil)
		if src == nil {
			return fmt.Errorf("no value at path %q", path)
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "config",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(src); err != nil {
		return fmt.Errorf("failed to decode %q: %w", path, err)
	}
	return nil
}

// All returns a deep copy of the snapshot's values. Mutating the returned
// map never affects the snapshot.
func (s *Snapshot) All() map[string]interface{} {
	return deepCopy(s.values)
}

// With returns a new snapshot with the given call-time overrides merged on
// top. The receiver is left untouched.
func (s *Snapshot) With(overrides map[string]interface{}) *Snapshot {
	merged := deepCopy(s.values)
	deepMerge(merged, overrides)
	return &Snapshot{env: s.env, values: merged}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// deepCopy clones nested string-keyed maps; other values are shared, which is
// safe because snapshots treat loaded values as read-only.
func deepCopy(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		if m, ok := v.(map[string]interface{}); ok {
			dst[k] = deepCopy(m)
		} else {
			dst[k] = v
		}
	}
	return dst
}

// deepMerge merges src into dst, descending into nested mappings so an
// override file can replace a single nested key without clobbering siblings.
func deepMerge(dst, src map[string]interface{}) {
	for k, v := range src {
		sv, srcIsMap := v.(map[string]interface{})
		dv, dstIsMap := dst[k].(map[string]interface{})
		if srcIsMap && dstIsMap {
			deepMerge(dv, sv)
			continue
		}
		if srcIsMap {
			dst[k] = deepCopy(sv)
			continue
		}
		dst[k] = v
	}
}
