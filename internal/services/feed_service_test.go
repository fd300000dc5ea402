package services_test

import (
	"errors"
	"testing"

	"github.com/benmeehan/proximity-agent/internal/services"
	"github.com/benmeehan/proximity-agent/tests/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	feedTopic  = "reports/snapshot"
	resetTopic = "reports/alerts/reset"
)

func newFeedService(t *testing.T, client *mocks.MockMQTTClient, submitter services.EventSubmitter) *services.FeedService {
	t.Helper()
	f, err := services.NewFeedService(feedTopic, resetTopic, 1, "^1.0.0", client, submitter, zerolog.Nop())
	require.NoError(t, err)
	return f
}

func TestNewFeedService_InvalidConstraint(t *testing.T) {
	_, err := services.NewFeedService(feedTopic, "", 1, "not a constraint", new(mocks.MockMQTTClient), &recordingSubmitter{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestFeedService_StartStop(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Subscribe", feedTopic, byte(1), mock.Anything).Return(mocks.NewCompletedToken(nil))
	client.On("Subscribe", resetTopic, byte(1), mock.Anything).Return(mocks.NewCompletedToken(nil))
	client.On("Unsubscribe", []string{feedTopic, resetTopic}).Return(mocks.NewCompletedToken(nil))

	f := newFeedService(t, client, &recordingSubmitter{})

	require.NoError(t, f.Start())
	err := f.Start()
	assert.Error(t, err)
	assert.Equal(t, "feed service is already running", err.Error())

	require.NoError(t, f.Stop())
	err = f.Stop()
	assert.Error(t, err)
	assert.Equal(t, "feed service is not running", err.Error())

	client.AssertExpectations(t)
}

func TestFeedService_Start_ResetSubscribeFailureRollsBack(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Subscribe", feedTopic, byte(1), mock.Anything).Return(mocks.NewCompletedToken(nil))
	client.On("Subscribe", resetTopic, byte(1), mock.Anything).Return(mocks.NewCompletedToken(errors.New("not authorized")))
	client.On("Unsubscribe", []string{feedTopic}).Return(mocks.NewCompletedToken(nil))

	f := newFeedService(t, client, &recordingSubmitter{})

	assert.Error(t, f.Start())
	client.AssertExpectations(t)
}

func TestFeedService_HandleSnapshot_Valid(t *testing.T) {
	submitter := &recordingSubmitter{}
	f := newFeedService(t, new(mocks.MockMQTTClient), submitter)

	payload := []byte(`{"schema_version":"1.2.0","reports":[
		{"id":"r1","category":"RAID","location_label":"Canal St","position":{"latitude":40.71,"longitude":-74.0},"narrative":"vans"},
		{"id":"r2","category":"PATROL","location_label":"Houston St","position":{"latitude":40.72,"longitude":-74.0},"narrative":"cruiser"}
	]}`)
	f.HandleSnapshot(nil, mocks.NewMockMessage(feedTopic, payload))

	events := submitter.Events()
	require.Len(t, events, 1)
	assert.Equal(t, services.EventSnapshot, events[0].Kind)
	require.Len(t, events[0].Reports, 2)
	assert.Equal(t, "r1", events[0].Reports[0].ID)
	assert.Equal(t, "Houston St", events[0].Reports[1].LocationLabel)
}

func TestFeedService_HandleSnapshot_MissingVersionAccepted(t *testing.T) {
	submitter := &recordingSubmitter{}
	f := newFeedService(t, new(mocks.MockMQTTClient), submitter)

	f.HandleSnapshot(nil, mocks.NewMockMessage(feedTopic, []byte(`{"reports":[]}`)))

	events := submitter.Events()
	require.Len(t, events, 1)
	assert.Empty(t, events[0].Reports)
}

func TestFeedService_HandleSnapshot_Dropped(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"reports":[`},
		{"bad version", `{"schema_version":"one","reports":[]}`},
		{"unsupported version", `{"schema_version":"2.0.0","reports":[]}`},
		{"missing id", `{"schema_version":"1.0.0","reports":[{"category":"RAID"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			submitter := &recordingSubmitter{}
			f := newFeedService(t, new(mocks.MockMQTTClient), submitter)

			f.HandleSnapshot(nil, mocks.NewMockMessage(feedTopic, []byte(tt.payload)))

			assert.Empty(t, submitter.Events())
		})
	}
}

func TestFeedService_HandleReset(t *testing.T) {
	submitter := &recordingSubmitter{}
	f := newFeedService(t, new(mocks.MockMQTTClient), submitter)

	f.HandleReset(nil, mocks.NewMockMessage(resetTopic, nil))

	events := submitter.Events()
	require.Len(t, events, 1)
	assert.Equal(t, services.EventClear, events[0].Kind)
}
