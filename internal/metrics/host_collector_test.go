package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeHostCollector() *HostCollector {
	c := NewHostCollector(zerolog.Nop())
	c.cpuPercent = func() ([]float64, error) { return []float64{12.5}, nil }
	c.virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 40}, nil
	}
	c.processRSS = func(int32) (uint64, error) { return 2048, nil }
	return c
}

func TestHostCollector_Sample(t *testing.T) {
	stats := fakeHostCollector().Sample()

	require.NotNil(t, stats.CPUPercent)
	require.NotNil(t, stats.MemoryPercent)
	require.NotNil(t, stats.ProcessRSSBytes)
	assert.Equal(t, 12.5, *stats.CPUPercent)
	assert.Equal(t, 40.0, *stats.MemoryPercent)
	assert.Equal(t, uint64(2048), *stats.ProcessRSSBytes)
}

func TestHostCollector_SampleFailuresLeaveFieldsNil(t *testing.T) {
	c := fakeHostCollector()
	c.cpuPercent = func() ([]float64, error) { return nil, nil }
	c.virtualMemory = func() (*mem.VirtualMemoryStat, error) { return nil, errors.New("no /proc") }
	c.processRSS = func(int32) (uint64, error) { return 0, errors.New("gone") }

	stats := c.Sample()

	assert.Nil(t, stats.CPUPercent)
	assert.Nil(t, stats.MemoryPercent)
	assert.Nil(t, stats.ProcessRSSBytes)
}

func TestHostCollector_Registered(t *testing.T) {
	m := New()
	require.NoError(t, m.RegisterHost(fakeHostCollector()))

	expected := `
# HELP proximity_agent_host_memory_percent Percentage of used virtual memory
# TYPE proximity_agent_host_memory_percent gauge
proximity_agent_host_memory_percent 40
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"proximity_agent_host_memory_percent"))

	var nilMetrics *Metrics
	assert.NoError(t, nilMetrics.RegisterHost(fakeHostCollector()))
}

func TestHostCollector_ReadsOwnProcess(t *testing.T) {
	stats := NewHostCollector(zerolog.Nop()).Sample()

	require.NotNil(t, stats.ProcessRSSBytes)
	assert.Greater(t, *stats.ProcessRSSBytes, uint64(0))
}
