package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "8100", cfg.Server.Port)
	assert.Equal(t, CrossUserDeny, cfg.Dedup.CrossUser)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LAUNCHER_PORT", "9000")
	t.Setenv("LAUNCHER_DISCOVERY_EMULATED_TIMEOUT", "45s")
	t.Setenv("LAUNCHER_DEDUP_CROSS_USER", "switch")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Discovery.EmulatedTimeout)
	assert.Equal(t, CrossUserSwitch, cfg.Dedup.CrossUser)
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	t.Setenv("LAUNCHER_DEDUP_CROSS_USER", "ask")

	_, err := Load()
	assert.Error(t, err)
}

func TestWindowInitTimeoutPerCategory(t *testing.T) {
	d := Default().Discovery

	tests := []struct {
		category types.Category
		want     time.Duration
	}{
		{types.CategoryNative, 5 * time.Second},
		{types.CategoryWeb, 15 * time.Second},
		{types.CategoryEmbedded, 3 * time.Second},
		{types.CategoryEmulated, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			app := types.Application{Category: tt.category}
			assert.Equal(t, tt.want, d.WindowInitTimeout(app))
		})
	}
}

func TestWindowInitTimeoutPerAppOverride(t *testing.T) {
	d := Default().Discovery

	app := types.Application{Category: types.CategoryEmulated, WindowTimeoutMS: 2000}
	assert.Equal(t, 2*time.Second, d.WindowInitTimeout(app))
}

func TestValidateBackoffBounds(t *testing.T) {
	cfg := Default()
	cfg.Discovery.MaxBackoff = 10 * time.Millisecond // Below initial
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Poll.Interval = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Discovery.MaxConcurrent = 0
	assert.Error(t, cfg.Validate())
}
