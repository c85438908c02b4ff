package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryDisabledByDefault(t *testing.T) {
	Reset()
	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())
}

func TestInitRegistryEnables(t *testing.T) {
	Reset()
	defer Reset()

	reg := InitRegistry()
	assert.NotNil(t, reg)
	assert.True(t, IsEnabled())
	assert.Same(t, reg, GetRegistry())
}

func TestNewSessionMetricsNilWhenDisabled(t *testing.T) {
	Reset()
	assert.Nil(t, NewSessionMetrics())
}

func TestNewBackendMetricsNilWhenDisabled(t *testing.T) {
	Reset()
	assert.Nil(t, NewBackendMetrics())
}
