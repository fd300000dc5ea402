package identity

import (
	"path/filepath"
	"testing"

	"github.com/benmeehan/proximity-agent/pkg/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceInfo_GeneratesAndPersistsID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.json")
	fs := file.NewFileService()

	first := NewDeviceInfo(path, fs)
	require.NoError(t, first.LoadDeviceInfo())
	_, err := uuid.Parse(first.GetDeviceID())
	require.NoError(t, err)

	second := NewDeviceInfo(path, fs)
	require.NoError(t, second.LoadDeviceInfo())
	assert.Equal(t, first.GetDeviceID(), second.GetDeviceID())
}
