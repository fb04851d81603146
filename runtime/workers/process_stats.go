package workers

import (
	"chat-link/observability"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats is the latest sample of the server's own resource usage.
type ProcessStats struct {
	Status        string    `json:"status"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float32   `json:"memory_percent"`
	RSSBytes      uint64    `json:"rss_bytes"`
	SampledAt     time.Time `json:"sampled_at"`
}

// ProcessStatsWorker samples the current process every interval,
// feeds the prometheus gauges and keeps the last sample for the health endpoint.
type ProcessStatsWorker struct {
	mu       sync.RWMutex
	log      *slog.Logger
	metrics  *observability.Metrics
	interval time.Duration
	latest   ProcessStats
}

func NewProcessStatsWorker(log *slog.Logger, metrics *observability.Metrics, interval time.Duration) *ProcessStatsWorker {
	return &ProcessStatsWorker{log: log, metrics: metrics, interval: interval}
}

func (w *ProcessStatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("failed to inspect own process: %w", err)
	}

	w.sample(p)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sample(p)
		}
	}
}

// Latest returns the zero value until the first sample is taken.
func (w *ProcessStatsWorker) Latest() ProcessStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest
}

func (w *ProcessStatsWorker) sample(p *process.Process) {
	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "error", err)
		return
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		w.log.Error("Error while finding process ram usage", "error", err)
		return
	}
	stats := ProcessStats{CPUPercent: cpu, MemoryPercent: ram, SampledAt: time.Now().UTC()}
	if info, err := p.MemoryInfo(); err == nil {
		stats.RSSBytes = info.RSS
	}
	if status, err := p.Status(); err == nil {
		stats.Status = status
	}

	w.mu.Lock()
	w.latest = stats
	w.mu.Unlock()
	w.metrics.ProcessSampled(cpu, float64(ram))
}
