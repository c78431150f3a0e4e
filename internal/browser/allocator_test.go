// internal/browser/allocator_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bmstoss13/HoleNOne/internal/config"
)

func TestDefaultAllocatorOptions(t *testing.T) {
	base := len(DefaultAllocatorOptions(config.BrowserConfig{}))
	assert.NotZero(t, base)

	t.Run("Headless adds one option", func(t *testing.T) {
		assert.Len(t, DefaultAllocatorOptions(config.BrowserConfig{Headless: true}), base+1)
	})

	t.Run("DisableCache adds cache flags", func(t *testing.T) {
		assert.Len(t, DefaultAllocatorOptions(config.BrowserConfig{DisableCache: true}), base+2)
	})

	t.Run("Args are parsed and blank entries skipped", func(t *testing.T) {
		opts := DefaultAllocatorOptions(config.BrowserConfig{
			Args: []string{"--lang=en-US", "--mute-audio", "--", ""},
		})
		assert.Len(t, opts, base+2)
	})

	t.Run("Exec path and user agent", func(t *testing.T) {
		opts := DefaultAllocatorOptions(config.BrowserConfig{ExecPath: "/usr/bin/chromium", UserAgent: "HoleNOne/1.0"})
		assert.Len(t, opts, base+2)
	})
}
