package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const watchTestConfigYAML = `
defaults:
  max_burst_length: 131072
  max_connections: 1
`

const watchTestConfigYAMLUpdated = `
defaults:
  max_burst_length: 1048576
  max_connections: 2
`

func TestWatcherReloadsSessionDefaultsOnFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(watchTestConfigYAML), 0o600))

	w, err := NewWatcher(path, SessionDefaults{})
	require.NoError(t, err)

	changed := make(chan SessionDefaults, 1)
	w.OnChange(func(d SessionDefaults) { changed <- d })

	require.NoError(t, os.WriteFile(path, []byte(watchTestConfigYAMLUpdated), 0o600))

	select {
	case d := <-changed:
		assert.Equal(t, uint32(1048576), d.MaxBurstLength)
		assert.Equal(t, 2, d.MaxConnections)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}

	assert.Equal(t, uint32(1048576), w.Defaults().MaxBurstLength)
}
