package metrics

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
)

// HostStats is one sample of device load. A nil field could not be read.
type HostStats struct {
	CPUPercent      *float64
	MemoryPercent   *float64
	ProcessRSSBytes *uint64
}

// HostCollector samples CPU, memory and the agent's own resident memory.
type HostCollector struct {
	logger zerolog.Logger
	pid    int32

	cpuPercent    func() ([]float64, error)
	virtualMemory func() (*mem.VirtualMemoryStat, error)
	processRSS    func(pid int32) (uint64, error)

	cpuDesc     *prometheus.Desc
	memoryDesc  *prometheus.Desc
	processDesc *prometheus.Desc
}

// NewHostCollector creates a collector for the current process.
func NewHostCollector(logger zerolog.Logger) *HostCollector {
	return &HostCollector{
		logger: logger,
		pid:    int32(os.Getpid()),

		cpuPercent:    func() ([]float64, error) { return cpu.Percent(0, false) },
		virtualMemory: mem.VirtualMemory,
		processRSS: func(pid int32) (uint64, error) {
			p, err := process.NewProcess(pid)
			if err != nil {
				return 0, err
			}
			info, err := p.MemoryInfo()
			if err != nil {
				return 0, err
			}
			return info.RSS, nil
		},

		cpuDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "host", "cpu_percent"),
			"Percentage of CPU utilization across all cores", nil, nil),
		memoryDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "host", "memory_percent"),
			"Percentage of used virtual memory", nil, nil),
		processDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "process", "resident_bytes"),
			"Resident memory of the agent process", nil, nil),
	}
}

// Sample reads every host statistic. Failures are logged and leave the field nil.
func (c *HostCollector) Sample() HostStats {
	var stats HostStats

	if percentages, err := c.cpuPercent(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to get CPU usage")
	} else if len(percentages) == 0 {
		c.logger.Warn().Msg("CPU usage data is empty")
	} else {
		stats.CPUPercent = &percentages[0]
	}

	if memStats, err := c.virtualMemory(); err != nil {
		c.logger.Error().Err(err).Msg("Failed to retrieve memory statistics")
	} else {
		stats.MemoryPercent = &memStats.UsedPercent
	}

	if rss, err := c.processRSS(c.pid); err != nil {
		c.logger.Error().Err(err).Int32("pid", c.pid).Msg("Failed to retrieve process memory")
	} else {
		stats.ProcessRSSBytes = &rss
	}

	return stats
}

// Describe implements prometheus.Collector.
func (c *HostCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpuDesc
	ch <- c.memoryDesc
	ch <- c.processDesc
}

// Collect implements prometheus.Collector. It samples on every scrape.
func (c *HostCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.Sample()
	if stats.CPUPercent != nil {
		ch <- prometheus.MustNewConstMetric(c.cpuDesc, prometheus.GaugeValue, *stats.CPUPercent)
	}
	if stats.MemoryPercent != nil {
		ch <- prometheus.MustNewConstMetric(c.memoryDesc, prometheus.GaugeValue, *stats.MemoryPercent)
	}
	if stats.ProcessRSSBytes != nil {
		ch <- prometheus.MustNewConstMetric(c.processDesc, prometheus.GaugeValue, float64(*stats.ProcessRSSBytes))
	}
}

// RegisterHost exposes c on the metrics registry.
func (m *Metrics) RegisterHost(c *HostCollector) error {
	if m == nil || c == nil {
		return nil
	}
	return m.registry.Register(c)
}
