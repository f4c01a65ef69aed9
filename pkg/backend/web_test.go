package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSessionUnsupportedBrowser(t *testing.T) {
	f := testFactory(t, nil)
	_, err := f.Create(context.Background(), KindWeb, Params{Browser: "opera"})

	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, KindWeb, unsupported.Kind)
	assert.Contains(t, err.Error(), "opera")
}

func TestParseWindowSize(t *testing.T) {
	tests := []struct {
		in         string
		wantWidth  int
		wantHeight int
	}{
		{"1920x1080", 1920, 1080},
		{"1280x720", 1280, 720},
		{" 800 x 600 ", 800, 600},
		{"garbage", 1920, 1080},
		{"1920", 1920, 1080},
		{"0x0", 1920, 1080},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, h := parseWindowSize(tt.in)
			assert.Equal(t, tt.wantWidth, w)
			assert.Equal(t, tt.wantHeight, h)
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "web", KindWeb.String())
	assert.Equal(t, "api", KindAPI.String())
	assert.Equal(t, "mobile", KindMobile.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
