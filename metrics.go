// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package entropy

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsConfig controls the package's opt-in Prometheus instrumentation.
// Instrumentation is disabled by default: every metrics call on the hot
// Update path is a single atomic load away from being a no-op, so leaving
// it disabled costs nothing worth measuring.
type MetricsConfig struct {
	Enabled bool
}

var (
	metricsEnabled atomic.Bool

	tokensProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "entropy_tokens_processed_total",
		Help: "Total number of stream tokens folded into an estimator via Update.",
	})
	counterRecordsLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "entropy_counter_records_live",
		Help: "Number of distinct tokens currently referenced by some estimator's sampling state.",
	})
	primaryResamplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "entropy_primary_resamples_total",
		Help: "Total number of times a sampler's primary sample was replaced.",
	})
	backupResamplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "entropy_backup_resamples_total",
		Help: "Total number of times a sampler's backup sample was replaced.",
	})
	heavyHitterDetected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "entropy_heavy_hitter_detected",
		Help: "1 if the most recent Finalize call took the heavy-hitter estimation branch, 0 otherwise.",
	})
	finalizeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "entropy_finalize_seconds",
		Help:    "Wall-clock time spent inside Finalize.",
		Buckets: prometheus.DefBuckets,
	})
	estimatorsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "entropy_estimators_created_total",
		Help: "Total number of Estimator values constructed.",
	})
	estimatorsClosedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "entropy_estimators_closed_total",
		Help: "Total number of Estimator values closed.",
	})
)

func init() {
	prometheus.MustRegister(
		tokensProcessedTotal,
		counterRecordsLive,
		primaryResamplesTotal,
		backupResamplesTotal,
		heavyHitterDetected,
		finalizeSeconds,
		estimatorsCreatedTotal,
		estimatorsClosedTotal,
	)
}

// EnableMetrics turns on Prometheus instrumentation for every Estimator in
// the process. Safe to call multiple times; the most recent call wins.
func EnableMetrics(cfg MetricsConfig) {
	metricsEnabled.Store(cfg.Enabled)
}

// MetricsEnabled reports whether instrumentation is currently active.
func MetricsEnabled() bool {
	return metricsEnabled.Load()
}

func metricsTokenProcessed() {
	if !metricsEnabled.Load() {
		return
	}
	tokensProcessedTotal.Inc()
}

func metricsSetLiveRecords(n int) {
	if !metricsEnabled.Load() {
		return
	}
	counterRecordsLive.Set(float64(n))
}

func metricsPrimaryResample() {
	if !metricsEnabled.Load() {
		return
	}
	primaryResamplesTotal.Inc()
}

func metricsBackupResample() {
	if !metricsEnabled.Load() {
		return
	}
	backupResamplesTotal.Inc()
}

func metricsSetHeavyHitterDetected(detected bool) {
	if !metricsEnabled.Load() {
		return
	}
	if detected {
		heavyHitterDetected.Set(1)
	} else {
		heavyHitterDetected.Set(0)
	}
}

func metricsEstimatorCreated() {
	if !metricsEnabled.Load() {
		return
	}
	estimatorsCreatedTotal.Inc()
}

func metricsEstimatorClosed() {
	if !metricsEnabled.Load() {
		return
	}
	estimatorsClosedTotal.Inc()
}

// metricsStartTimer and metricsObserveFinalizeDuration bracket Finalize's
// body. The timer is still taken when instrumentation is disabled (time.Now
// is cheap) to keep the call site a plain defer; the observation itself is
// skipped while disabled.
func metricsStartTimer() time.Time {
	return time.Now()
}

func metricsObserveFinalizeDuration(start time.Time) {
	if !metricsEnabled.Load() {
		return
	}
	finalizeSeconds.Observe(time.Since(start).Seconds())
}
