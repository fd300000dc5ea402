package mocks

import "github.com/stretchr/testify/mock"

// DeviceInfoInterface is a mock implementation of identity.DeviceInfoInterface
type DeviceInfoInterface struct {
	mock.Mock
}

func (m *DeviceInfoInterface) LoadDeviceInfo() error {
	args := m.Called()
	return args.Error(0)
}

func (m *DeviceInfoInterface) GetDeviceID() string {
	args := m.Called()
	return args.String(0)
}
