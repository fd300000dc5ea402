package identity

import (
	"errors"
	"os"
	"sync"

	"github.com/benmeehan/proximity-agent/pkg/file"
	"github.com/google/uuid"
)

// Identity holds the agent's anonymous installation identifier.
type Identity struct {
	ID string `json:"device_id,omitempty"`
}

// DeviceInfoInterface defines methods for managing device identity.
type DeviceInfoInterface interface {
	LoadDeviceInfo() error
	GetDeviceID() string
}

// DeviceInfo manages the device identity and its associated file operations.
type DeviceInfo struct {
	DeviceInfoFile string

	mu       sync.RWMutex
	identity Identity
	fileOps  file.FileOperations
}

// NewDeviceInfo initializes a new DeviceInfo instance.
func NewDeviceInfo(filePath string, fileOps file.FileOperations) *DeviceInfo {
	return &DeviceInfo{
		DeviceInfoFile: filePath,
		fileOps:        fileOps,
	}
}

// LoadDeviceInfo reads the identity file. When the file is missing or has no
// id, a random id is generated and written back. The id carries no user data.
func (d *DeviceInfo) LoadDeviceInfo() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var loaded Identity
	err := d.fileOps.ReadJsonFile(d.DeviceInfoFile, &loaded)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if loaded.ID == "" {
		loaded.ID = uuid.New().String()
		if err := d.fileOps.WriteJsonFile(d.DeviceInfoFile, loaded); err != nil {
			return err
		}
	}

	d.identity = loaded
	return nil
}

// GetDeviceID returns the current device ID.
func (d *DeviceInfo) GetDeviceID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.identity.ID
}
