package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/benmeehan/proximity-agent/internal/metrics"
	"github.com/benmeehan/proximity-agent/internal/services"
	"github.com/benmeehan/proximity-agent/pkg/location"
	"github.com/benmeehan/proximity-agent/tests/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationService_StartStop(t *testing.T) {
	provider := new(mocks.MockLocationProvider)
	provider.On("GetLocation").Return(location.Location{Coordinate: downtown, Accuracy: 5}, nil)
	provider.On("Close").Return(nil)
	submitter := &recordingSubmitter{}

	l := services.NewLocationService(time.Hour, 0, submitter, provider, zerolog.Nop(), metrics.New())

	require.NoError(t, l.Start())
	err := l.Start()
	assert.Error(t, err)
	assert.Equal(t, "location service is already running", err.Error())

	// The first fix is taken immediately rather than after one interval.
	assert.Eventually(t, func() bool { return len(submitter.Events()) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, l.Stop())
	err = l.Stop()
	assert.Error(t, err)
	assert.Equal(t, "location service is not running", err.Error())

	events := submitter.Events()
	assert.Equal(t, services.EventPosition, events[0].Kind)
	assert.Equal(t, downtown, events[0].Position)
	provider.AssertCalled(t, "Close")
}

func TestLocationService_MovementFilter(t *testing.T) {
	nearby := location.Coordinate{Latitude: downtown.Latitude + 0.0001, Longitude: downtown.Longitude}

	provider := new(mocks.MockLocationProvider)
	provider.On("GetLocation").Return(location.Location{Coordinate: downtown}, nil).Once()
	provider.On("GetLocation").Return(location.Location{Coordinate: nearby}, nil).Once()
	provider.On("GetLocation").Return(location.Location{Coordinate: midtown}, nil)
	provider.On("Close").Return(nil)
	submitter := &recordingSubmitter{}

	l := services.NewLocationService(20*time.Millisecond, 50, submitter, provider, zerolog.Nop(), nil)

	require.NoError(t, l.Start())
	assert.Eventually(t, func() bool { return len(submitter.Events()) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, l.Stop())

	// The nearby fix is dropped and repeated midtown fixes stay filtered.
	events := submitter.Events()
	require.Len(t, events, 2)
	assert.Equal(t, downtown, events[0].Position)
	assert.Equal(t, midtown, events[1].Position)
}

func TestLocationService_ProviderErrorSkipsFix(t *testing.T) {
	provider := new(mocks.MockLocationProvider)
	provider.On("GetLocation").Return(location.Location{}, errors.New("no fix")).Once()
	provider.On("GetLocation").Return(location.Location{Coordinate: uptown}, nil)
	provider.On("Close").Return(nil)
	submitter := &recordingSubmitter{}

	l := services.NewLocationService(20*time.Millisecond, 0, submitter, provider, zerolog.Nop(), nil)

	require.NoError(t, l.Start())
	assert.Eventually(t, func() bool { return len(submitter.Events()) > 0 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, l.Stop())

	assert.Equal(t, uptown, submitter.Events()[0].Position)
}

func TestLocationService_Stop_CloseError(t *testing.T) {
	provider := new(mocks.MockLocationProvider)
	provider.On("GetLocation").Return(location.Location{Coordinate: downtown}, nil)
	provider.On("Close").Return(errors.New("port busy"))

	l := services.NewLocationService(time.Hour, 0, &recordingSubmitter{}, provider, zerolog.Nop(), nil)

	require.NoError(t, l.Start())
	assert.EqualError(t, l.Stop(), "port busy")
}
