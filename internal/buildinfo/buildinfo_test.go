package buildinfo

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	info := New("", "")
	assert.Equal(t, "unknown", info.Version)
	assert.Equal(t, "unknown", info.BuildDate)
	_, err := uuid.Parse(info.InstanceID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, info.Uptime().Nanoseconds(), int64(0))
}

func TestNilInfo(t *testing.T) {
	t.Parallel()

	var info *Info
	assert.Equal(t, "unknown", info.GetVersion())
	assert.Zero(t, info.Uptime())
	assert.Equal(t, "v1.2.3", New("v1.2.3", "2025-01-01").GetVersion())
}
