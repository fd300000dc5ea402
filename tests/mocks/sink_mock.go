package mocks

import (
	"github.com/benmeehan/proximity-agent/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockSink is a mock notification sink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Emit(req models.NotificationRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

// Emitted returns every request passed to Emit, in call order.
func (m *MockSink) Emitted() []models.NotificationRequest {
	var out []models.NotificationRequest
	for _, call := range m.Calls {
		if call.Method == "Emit" {
			out = append(out, call.Arguments.Get(0).(models.NotificationRequest))
		}
	}
	return out
}
