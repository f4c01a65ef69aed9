// Package config loads and resolves test-run configuration.
//
// Effective configuration is assembled from four layers, highest wins:
// explicit call-time overrides, process environment variables, an
// environment-specific override file (config/<env>.yaml|.yml|.json), and
// built-in defaults. The result is an immutable Snapshot; reloading replaces
// the snapshot wholesale rather than mutating it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultDir is the directory searched for environment override files when
// none is configured.
const DefaultDir = "config"

// Resolver loads environment-specific configuration snapshots.
type Resolver struct {
	dir string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDir sets the directory searched for environment override files.
func WithDir(dir string) Option {
	return func(r *Resolver) {
		r.dir = dir
	}
}

// NewResolver creates a Resolver. A .env file in the working directory is
// loaded into the process environment if present, so local runs can keep
// their overrides out of the shell profile.
func NewResolver(opts ...Option) *Resolver {
	_ = godotenv.Load()

	r := &Resolver{dir: DefaultDir}
	if dir := os.Getenv("HARNESS_CONFIG_DIR"); dir != "" {
		r.dir = dir
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnvironmentName returns the environment selected via the ENV variable,
// defaulting to "dev".
func EnvironmentName() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "dev"
}

// Load builds a snapshot for the named environment. The environment's
// override file is required: a missing file fails with *NotFoundError and a
// malformed one with *ParseError. An empty name selects EnvironmentName().
func (r *Resolver) Load(env string) (*Snapshot, error) {
	return r.load(env, true)
}

// LoadOrDefaults builds a snapshot for the named environment, tolerating a
// missing override file (defaults and environment variables still apply).
// A file that exists but cannot be parsed still fails: a malformed override
// must never silently degrade to defaults.
func (r *Resolver) LoadOrDefaults(env string) (*Snapshot, error) {
	return r.load(env, false)
}

func (r *Resolver) load(env string, required bool) (*Snapshot, error) {
	if env == "" {
		env = EnvironmentName()
	}

	values := defaults()

	path, ok := r.findOverrideFile(env)
	if !ok {
		if required {
			return nil, &NotFoundError{Environment: env, Dir: r.dir}
		}
		return &Snapshot{env: env, values: values}, nil
	}

	overrides, err := readOverrideFile(path)
	if err != nil {
		return nil, err
	}
	deepMerge(values, overrides)

	return &Snapshot{env: env, values: values}, nil
}

// findOverrideFile locates the override file for env, trying the supported
// extensions in a fixed order.
func (r *Resolver) findOverrideFile(env string) (string, bool) {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		path := filepath.Join(r.dir, env+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func readOverrideFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	values := map[string]interface{}{}
	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	default:
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	}
	return values, nil
}

// defaults builds the base configuration layer. Each default can be replaced
// by a process environment variable before any file override is applied.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"browser":           envOr("BROWSER", "chrome"),
		"headless":          parseBool(envOr("HEADLESS", "false")),
		"window_size":       envOr("WINDOW_SIZE", "1920x1080"),
		"implicit_wait":     envOrInt("IMPLICIT_WAIT", 10),
		"explicit_wait":     envOrInt("EXPLICIT_WAIT", 20),
		"page_load_timeout": envOrInt("PAGE_LOAD_TIMEOUT", 30),
		"base_url":          envOr("BASE_URL", "http://localhost"),
		"api_base_url":      envOr("API_BASE_URL", "http://localhost/api"),
		"api_retries":       envOrInt("API_RETRIES", 3),
		"mobile_platform":   envOr("MOBILE_PLATFORM", "android"),
		"appium_server":     envOr("APPIUM_SERVER", "http://127.0.0.1:4723"),
		"screenshot_dir":    envOr("SCREENSHOT_DIR", "screenshots"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}
