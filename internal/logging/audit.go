package logging

import (
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names an auditable engine event.
type AuditEventType string

const (
	AuditRecommendations AuditEventType = "recommendations_computed"
	AuditProfileBuilt    AuditEventType = "profile_built"
	AuditProfileEmpty    AuditEventType = "profile_empty"
	AuditPlanResolved    AuditEventType = "plan_resolved"
	AuditRunRecorded     AuditEventType = "run_recorded"
	AuditCatalogReloaded AuditEventType = "catalog_reloaded"
	AuditCacheHit        AuditEventType = "cache_hit"
)

// AuditEvent is one structured audit entry.
type AuditEvent struct {
	Type     AuditEventType
	UserID   string
	Target   string        // Pillar id, run id or catalog path
	Success  bool
	Duration time.Duration
	Fields   map[string]interface{}
}

// Audit writes an event to the audit category as structured fields.
func Audit(ev AuditEvent) {
	l := Get(CategoryAudit)
	if l.sugar == nil {
		return
	}

	fields := []zap.Field{
		zap.String("event", string(ev.Type)),
		zap.Bool("success", ev.Success),
	}
	if ev.UserID != "" {
		fields = append(fields, zap.String("user", ev.UserID))
	}
	if ev.Target != "" {
		fields = append(fields, zap.String("target", ev.Target))
	}
	if ev.Duration > 0 {
		fields = append(fields, zap.Duration("duration", ev.Duration))
	}
	for k, v := range ev.Fields {
		fields = append(fields, zap.Any(k, v))
	}

	l.sugar.Desugar().Info("audit", fields...)
}
