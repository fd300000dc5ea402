package proximity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlertedSet(t *testing.T) {
	s := NewAlertedSet()
	now := time.Now()

	assert.True(t, s.Add("a", now))
	assert.False(t, s.Add("a", now.Add(time.Minute)))
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("b"))

	at, ok := s.AlertedAt("a")
	assert.True(t, ok)
	assert.Equal(t, now, at)
	assert.Equal(t, 1, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has("a"))
}
