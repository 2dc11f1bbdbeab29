/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package searchmetrics exposes Prometheus counters and histograms for
// search progress, grounded on pkg/batcher/metrics.go's use of
// client_golang histograms for per-operation timing and size — here
// without the controller-runtime global registry the teacher binds to,
// since this module runs no controller manager.
package searchmetrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "haulsched"
	subsystem = "search"
)

// Metrics bundles the collectors one solve run reports to. Its zero value
// is not usable; construct with New, which registers every collector with
// the given prometheus.Registerer, before a run starts.
type Metrics struct {
	IterationsTotal  prometheus.Counter
	AcceptedTotal    prometheus.Counter
	RestartsTotal    prometheus.Counter
	ScoreDeltaAccept prometheus.Histogram
	BestDelivered    prometheus.Gauge
	BestDrivingTime  prometheus.Gauge
}

// New constructs a Metrics bundle and registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IterationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "iterations_total",
			Help: "Total number of driver iterations run.",
		}),
		AcceptedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "accepted_total",
			Help: "Total number of neighbour schedules accepted.",
		}),
		RestartsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "restarts_total",
			Help: "Total number of reverts to the best-known schedule.",
		}),
		ScoreDeltaAccept: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "accepted_score_delta",
			Help:    "Combined score delta of accepted neighbours.",
			Buckets: prometheus.LinearBuckets(-10, 1, 21),
		}),
		BestDelivered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "best_delivered",
			Help: "Delivered-cargo count of the best-known schedule.",
		}),
		BestDrivingTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "best_driving_time_seconds",
			Help: "Total driving time, in seconds, of the best-known schedule.",
		}),
	}
	reg.MustRegister(
		m.IterationsTotal, m.AcceptedTotal, m.RestartsTotal,
		m.ScoreDeltaAccept, m.BestDelivered, m.BestDrivingTime,
	)
	return m
}
