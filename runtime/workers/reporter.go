package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"dm-relay/observability"

	"github.com/shirou/gopsutil/process"
)

// ReporterWorker logs a telemetry snapshot at a fixed interval:
// dispatcher counters plus the process's own CPU and RSS.
type ReporterWorker struct {
	log      *slog.Logger
	metrics  *observability.Metrics
	interval time.Duration
}

func NewReporterWorker(log *slog.Logger, metrics *observability.Metrics,
	interval time.Duration) *ReporterWorker {
	return &ReporterWorker{log: log, metrics: metrics, interval: interval}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			snap := w.metrics.GetLatest()
			w.log.Info("telemetry",
				"messages_persisted", snap.MessagesPersisted,
				"persist_failures", snap.PersistFailures,
				"messages_delivered", snap.MessagesDelivered,
				"delivery_misses", snap.DeliveryMisses,
				"typing_forwarded", snap.TypingForwarded,
				"typing_dropped", snap.TypingDropped,
				"presence_broadcasts", snap.PresenceBroadcasts,
				"sink_drops", snap.SinkDrops,
				"cpu_percent", cpu,
				"ram_bytes", rss,
			)
		}
	}
}

// selfStats retrieves memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
