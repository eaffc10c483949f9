// Package metrics exposes the Prometheus counters and gauges the sync
// engines update inline at their call sites: package-level vectors,
// registered once, incremented where the event happens.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// SyncInterestsSent counts outbound sync/recovery interests per engine
	// kind ("chronosync" or "fullpsync") and purpose ("sync", "recovery").
	SyncInterestsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ndnsync_sync_interests_sent_total",
		Help: "Outbound sync and recovery interests, by engine and purpose.",
	}, []string{"engine", "purpose"})

	// RecoveryTriggered counts recovery interests a ChronoSync participant
	// sent for an unrecognized digest.
	RecoveryTriggered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ndnsync_recovery_triggered_total",
		Help: "Recovery paths triggered by an unrecognized sync state.",
	}, []string{"engine"})

	// IBLTDecodeFailures counts FullPSync difference decodes that exceeded
	// capacity.
	IBLTDecodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ndnsync_iblt_decode_failures_total",
		Help: "IBLT differences that could not be fully peeled.",
	}, []string{"engine"})

	// DigestTreeSize reports the current node count of a ChronoSync
	// participant's digest tree.
	DigestTreeSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ndnsync_digest_tree_size",
		Help: "Number of participants currently tracked in the digest tree.",
	}, []string{"instance"})

	// SegmentStoreEvictions counts segments the PSync segment publisher's
	// memory store dropped after their freshness period elapsed.
	SegmentStoreEvictions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ndnsync_segment_store_evictions_total",
		Help: "Segments evicted from the segment publisher's store on expiry.",
	}, []string{"instance"})
)

func init() {
	prometheus.MustRegister(SyncInterestsSent, RecoveryTriggered, IBLTDecodeFailures, DigestTreeSize, SegmentStoreEvictions)
}
