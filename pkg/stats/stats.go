// Package stats periodically reports process statistics while the profiler is
// enabled, and dumps the prometheus registry on shutdown.
package stats

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

const gigabyte = 1 << 30

// EnableMemoryStatistics starts a goroutine that periodically logs the memory
// usage of the process. When the context is canceled the default prometheus
// metrics are dumped under the given directory.
func EnableMemoryStatistics(
	ctx context.Context, interval time.Duration, datadir string,
) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				printMemoryStatistics()
				printNumOfRoutines()
			case <-ctx.Done():
				if err := dumpPrometheusDefaults(datadir); err != nil {
					log.WithError(err).Warn("error on dumping metrics")
				}
				return
			}
		}
	}()
}

func toGigabytes(bytes uint64) float64 {
	return float64(bytes) / gigabyte
}

func printMemoryStatistics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	log.Infof(
		"Total allocated: %.3fGB, Heap allocated: %.3fGB, "+
			"Allocated objects count: %v, Freed objects count: %v",
		toGigabytes(memStats.TotalAlloc),
		toGigabytes(memStats.HeapAlloc),
		memStats.Mallocs,
		memStats.Frees,
	)
}

func printNumOfRoutines() {
	log.Infof("Num of go routines: %v", runtime.NumGoroutine())
}

func dumpPrometheusDefaults(datadir string) error {
	file, err := os.OpenFile(
		filepath.Join(datadir, "metrics.dump"),
		os.O_APPEND|os.O_CREATE|os.O_RDWR,
		0644,
	)
	if err != nil {
		return err
	}
	defer file.Close()
	writer := bufio.NewWriter(file)

	metricFamily, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, v := range metricFamily {
		if _, err := writer.WriteString(v.String() + "\n"); err != nil {
			return err
		}
	}

	return writer.Flush()
}
