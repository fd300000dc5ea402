package mocks

import (
	"github.com/benmeehan/proximity-agent/pkg/location"
	"github.com/stretchr/testify/mock"
)

// MockLocationProvider is a mock implementation of location.Provider
type MockLocationProvider struct {
	mock.Mock
}

func (m *MockLocationProvider) GetLocation() (location.Location, error) {
	args := m.Called()
	return args.Get(0).(location.Location), args.Error(1)
}

func (m *MockLocationProvider) Close() error {
	args := m.Called()
	return args.Error(0)
}
