package api

import (
	"math"
	"sort"

	"github.com/statusdeck/statusdeck/internal/database"
)

// ComputeMonitorStats aggregates a monitor's results (ordered oldest first)
// into uptime, failure counts and latency percentiles for SLA dashboards.
func ComputeMonitorStats(results []database.MonitoringResult) MonitorStats {
	stats := MonitorStats{HistoryGraph: []HistoryPoint{}}
	if len(results) == 0 {
		return stats
	}

	stats.TotalPings = len(results)
	for _, r := range results {
		if r.Status == database.MonitorStatusDown {
			stats.Failures++
		}
		stats.HistoryGraph = append(stats.HistoryGraph, HistoryPoint{
			Timestamp: r.CheckedAt,
			Status:    r.Status,
		})
	}
	up := float64(stats.TotalPings-stats.Failures) / float64(stats.TotalPings) * 100
	stats.Uptime = math.Round(up*100) / 100

	last := results[len(results)-1].CheckedAt
	stats.LastPing = &last

	var latencies []float64
	for _, r := range results {
		if r.ResponseTimeMs != nil {
			latencies = append(latencies, float64(*r.ResponseTimeMs))
		}
	}
	if len(latencies) == 0 {
		return stats
	}
	sort.Float64s(latencies)

	if len(latencies) == 1 {
		// Interpolation needs two points; a single sample is every percentile
		only := latencies[0]
		stats.P50, stats.P75, stats.P90, stats.P95, stats.P99 = &only, &only, &only, &only, &only
		return stats
	}

	stats.P50 = floatPtr(median(latencies))
	stats.P75 = floatPtr(percentileExclusive(latencies, 75))
	stats.P90 = floatPtr(percentileExclusive(latencies, 90))
	stats.P95 = floatPtr(percentileExclusive(latencies, 95))
	stats.P99 = floatPtr(percentileExclusive(latencies, 99))
	return stats
}

// median of a sorted sample; the mean of the two middle values for even
// sample sizes.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// percentileExclusive returns the k-th percentile (1 <= k <= 99) of a
// sorted sample with at least two values, using the exclusive quantile
// method: the k-th cut point sits at rank k*(n+1)/100, linearly
// interpolated between neighbouring ranks. Cut points past the outermost
// ranks extrapolate from the first or last pair of samples.
func percentileExclusive(sorted []float64, k int) float64 {
	n := len(sorted)
	m := n + 1
	j := k * m / 100
	if j < 1 {
		j = 1
	} else if j > n-1 {
		j = n - 1
	}
	delta := k*m - j*100
	return (sorted[j-1]*float64(100-delta) + sorted[j]*float64(delta)) / 100
}

func floatPtr(v float64) *float64 { return &v }
