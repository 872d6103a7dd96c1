package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 200, cfg.WindowSize)
	assert.Equal(t, 200, cfg.TrendBufferCap)
	assert.Equal(t, 1000, cfg.RouteHistoryCap)
	assert.Equal(t, 50, cfg.BaselineMinSamples)
	assert.Equal(t, 100, cfg.RetrainMinWindow)
	assert.Equal(t, 100, cfg.RetrainEveryTicks)
	assert.Equal(t, 30*time.Second, cfg.OfflineTimeout)
	assert.Equal(t, 5*time.Minute, cfg.RecentAnomalyAge)
	assert.Equal(t, 50*time.Millisecond, cfg.ProducerInterval)
	assert.Equal(t, 20, cfg.ProducerVehicles)
	assert.Equal(t, 8080, cfg.APIPort)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TELEMATICS_WINDOW_SIZE", "100")
	t.Setenv("TELEMATICS_API_PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.WindowSize)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, 1000, cfg.RouteHistoryCap)
}

func TestFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window_size: 64\nproducer_vehicles: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.WindowSize)
	assert.Equal(t, 5, cfg.ProducerVehicles)
	assert.Equal(t, 200, cfg.TrendBufferCap)
}

func TestMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
