package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.opentelemetry.io/otel"
)

const report_perf_stats = "perf.stats"

var perfMeter = otel.Meter("telemetry/perf")
var cpuGauge, _ = perfMeter.Float64Gauge("host.cpu_usage")
var hostMemoryGauge, _ = perfMeter.Float64Gauge("host.memory_used_percent")
var allocatedGauge, _ = perfMeter.Int64Gauge("process.allocated_mb")
var goroutineGauge, _ = perfMeter.Int64Gauge("process.goroutine_count")

// InstrumentPerfStats samples host and process load every `interval` until ctx is
// done. Chrome shares the runner with us, a starved host is a common reason for
// the challenge never clearing.
func InstrumentPerfStats(ctx context.Context, interval time.Duration, tel API) {
	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, 0, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil {
					tel.ReportDebug(report_perf_stats, "failed to read cpu usage", err)
				}

				vmem, err := mem.VirtualMemoryWithContext(ctx)
				if err == nil {
					hostMemoryGauge.Record(ctx, vmem.UsedPercent)
				} else {
					tel.ReportDebug(report_perf_stats, "failed to read memory usage", err)
				}

				allocatedGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}
