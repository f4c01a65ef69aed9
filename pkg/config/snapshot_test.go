package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotWith(values map[string]interface{}) *Snapshot {
	return &Snapshot{env: "test", values: values}
}

func TestGetDottedPath(t *testing.T) {
	snap := snapshotWith(map[string]interface{}{
		"api": map[string]interface{}{
			"auth": map[string]interface{}{
				"token_url": "https://auth.example.com/token",
			},
			"retries": 3,
		},
		"browser": "chrome",
	})

	tests := []struct {
		name string
		key  string
		def  interface{}
		want interface{}
	}{
		{"top level", "browser", nil, "chrome"},
		{"nested", "api.retries", nil, 3},
		{"deeply nested", "api.auth.token_url", nil, "https://auth.example.com/token"},
		{"missing top level", "database", "fallback", "fallback"},
		{"missing mid path", "api.missing.deep", 42, 42},
		{"scalar mid path", "browser.family", "fallback", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, snap.Get(tt.key, tt.def))
		})
	}
}

func TestEnvironmentVariableOverrides(t *testing.T) {
	t.Run("BASE_URL wins over file value", func(t *testing.T) {
		t.Setenv("BASE_URL", "https://qa.example.com")

		snap := snapshotWith(map[string]interface{}{
			"base_url": "https://file.example.com",
		})
		assert.Equal(t, "https://qa.example.com", snap.Get("base_url", nil))
	})

	t.Run("BROWSER_HEADLESS wins over file value", func(t *testing.T) {
		t.Setenv("BROWSER_HEADLESS", "yes")

		snap := snapshotWith(map[string]interface{}{"headless": false})
		assert.Equal(t, true, snap.Get("headless", nil))
		assert.True(t, snap.GetBool("headless", false))
	})

	t.Run("file value applies without override", func(t *testing.T) {
		t.Setenv("BASE_URL", "")

		snap := snapshotWith(map[string]interface{}{
			"base_url": "https://file.example.com",
		})
		assert.Equal(t, "https://file.example.com", snap.Get("base_url", nil))
	})
}

func TestCoercingGetters(t *testing.T) {
	t.Setenv("BROWSER_HEADLESS", "")
	snap := snapshotWith(map[string]interface{}{
		"retries":    float64(4), // JSON numbers decode as float64
		"headless":   "true",
		"wait":       15,
		"long_wait":  "1m30s",
		"page_title": 123,
	})

	assert.Equal(t, 4, snap.GetInt("retries", 0))
	assert.True(t, snap.GetBool("headless", false))
	assert.Equal(t, 15*time.Second, snap.GetDuration("wait", 0))
	assert.Equal(t, 90*time.Second, snap.GetDuration("long_wait", 0))
	assert.Equal(t, "123", snap.GetString("page_title", ""))
	assert.Equal(t, 7, snap.GetInt("absent", 7))
}

func TestAllReturnsDefensiveCopy(t *testing.T) {
	snap := snapshotWith(map[string]interface{}{
		"nested": map[string]interface{}{"key": "original"},
	})

	all := snap.All()
	all["nested"].(map[string]interface{})["key"] = "mutated"
	all["added"] = true

	assert.Equal(t, "original", snap.Get("nested.key", nil))
	assert.Nil(t, snap.Get("added", nil))
}

func TestWithOverrides(t *testing.T) {
	base := snapshotWith(map[string]interface{}{
		"browser": "chrome",
		"nested":  map[string]interface{}{"a": 1, "b": 2},
	})

	overridden := base.With(map[string]interface{}{
		"browser": "firefox",
		"nested":  map[string]interface{}{"b": 3},
	})

	// new snapshot sees the overrides, nested siblings intact
	assert.Equal(t, "firefox", overridden.Get("browser", nil))
	assert.Equal(t, 1, overridden.Get("nested.a", nil))
	assert.Equal(t, 3, overridden.Get("nested.b", nil))

	// the original is untouched
	assert.Equal(t, "chrome", base.Get("browser", nil))
	assert.Equal(t, 2, base.Get("nested.b", nil))
}

func TestDecode(t *testing.T) {
	snap := snapshotWith(map[string]interface{}{
		"web": map[string]interface{}{
			"browser":  "firefox",
			"headless": "true",
			"retries":  "2",
		},
	})

	var out struct {
		Browser  string `config:"browser"`
		Headless bool   `config:"headless"`
		Retries  int    `config:"retries"`
	}
	require.NoError(t, snap.Decode("web", &out))

	assert.Equal(t, "firefox", out.Browser)
	assert.True(t, out.Headless)
	assert.Equal(t, 2, out.Retries)

	assert.Error(t, snap.Decode("missing.path", &out))
}
