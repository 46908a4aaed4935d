package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	upsertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quartermaster_upserts_total",
		Help: "Total employee upserts by identity action",
	}, []string{"identity_action"})
	concurrencyConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quartermaster_concurrency_conflicts_total",
		Help: "Total conditional writes rejected by version mismatch",
	})
	compensationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quartermaster_compensations_total",
		Help: "Total compensating identity deletes after failed domain writes",
	})
	compensationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quartermaster_compensation_failures_total",
		Help: "Total compensating deletes that themselves failed",
	})
	orphansDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quartermaster_orphans_deleted_total",
		Help: "Total orphan identities deleted by the scanner",
	})
	auditPatchesAppliedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quartermaster_audit_patches_applied_total",
		Help: "Total audit rows re-attributed to a human actor",
	})
	auditPatchesSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quartermaster_audit_patches_skipped_total",
		Help: "Total attribution attempts that found no audit row in the window",
	})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		upsertsTotal,
		concurrencyConflictsTotal,
		compensationsTotal,
		compensationFailuresTotal,
		orphansDeletedTotal,
		auditPatchesAppliedTotal,
		auditPatchesSkippedTotal,
	)
}

// IncUpsert increments the upsert counter for an identity action.
func IncUpsert(identityAction string) { upsertsTotal.WithLabelValues(identityAction).Inc() }

// IncConcurrencyConflict increments the version-mismatch counter.
func IncConcurrencyConflict() { concurrencyConflictsTotal.Inc() }

// IncCompensation increments the compensating-delete counter.
func IncCompensation() { compensationsTotal.Inc() }

// IncCompensationFailure increments the failed-compensation counter.
func IncCompensationFailure() { compensationFailuresTotal.Inc() }

// AddOrphansDeleted adds to the deleted-orphans counter.
func AddOrphansDeleted(n int) { orphansDeletedTotal.Add(float64(n)) }

// IncAuditPatchApplied increments the applied-attribution counter.
func IncAuditPatchApplied() { auditPatchesAppliedTotal.Inc() }

// IncAuditPatchSkipped increments the skipped-attribution counter.
func IncAuditPatchSkipped() { auditPatchesSkippedTotal.Inc() }
