// Package metrics exposes Prometheus counters for replay anomalies and
// snapshot coordination. Anomalies are observability signals only: replay
// absorbs the underlying problems, so a counter is their sole surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReplayAnomalies counts record-level problems absorbed during replay,
	// by anomaly kind (duplicate insert, orphan mutation, malformed payload).
	ReplayAnomalies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapview_replay_anomalies_total",
		Help: "Record-level anomalies absorbed during replay, by kind",
	}, []string{"kind"})

	// SnapshotsComputed counts snapshot computation runs by outcome:
	// stored, stale (lost the CAS), empty (no new activities), failed.
	SnapshotsComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapview_snapshots_computed_total",
		Help: "Snapshot computation runs by outcome",
	}, []string{"outcome"})

	// TriggersCoalesced counts triggers absorbed into an already-pending
	// computation instead of starting their own run.
	TriggersCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapview_triggers_coalesced_total",
		Help: "Snapshot triggers coalesced into a pending computation",
	})

	// DuplicateActivities counts ingestion calls answered from a previously
	// stored activity via the uuid idempotency key.
	DuplicateActivities = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snapview_duplicate_activities_total",
		Help: "Ingestion calls deduplicated by client uuid",
	})
)

// Outcome labels for SnapshotsComputed.
const (
	OutcomeStored = "stored"
	OutcomeStale  = "stale"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)
