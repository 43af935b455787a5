package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"github.com/yunolab/connect_bridge/pkg/notify"
	"gorm.io/gorm"
)

// condition is one detected alert-worthy state. Each check yields zero or
// one condition per alert type per cycle. connector names the connector the
// condition was observed on, when there is one.
type condition struct {
	severity  string
	message   string
	metadata  string
	connector string
}

// errorRateWindow bounds how far back samples count toward the error rate.
const errorRateWindow = 10 * time.Minute

// checkMetrics evaluates the threshold checks against the latest data-plane
// samples. Pipelines that have never reported progress are skipped; absence
// of metrics is not a failure condition.
func (s *Scheduler) checkMetrics(ctx context.Context, pipe *model.Pipeline, settings *model.MonitoringSettings, conditions map[string]condition) {
	latest, err := s.progressDAO.Latest(ctx, s.db, pipe.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	if err != nil {
		log.Printf("[Monitor] Pipeline %d: load progress: %v", pipe.ID, err)
		return
	}

	thresholds := s.effectiveThresholds(ctx, pipe.ID, settings)

	if lagLimit := thresholds[model.AlertHighLag]; lagLimit > 0 && float64(latest.LagMs) > lagLimit {
		conditions[model.AlertHighLag] = condition{
			severity: model.SeverityWarning,
			message:  fmt.Sprintf("lag %dms over threshold %.0fms", latest.LagMs, lagLimit),
		}
	}

	if dropPct := thresholds[model.AlertThroughputDrop]; dropPct > 0 {
		prev := s.prevSample(pipe.ID)
		if prev > 0 && latest.RecordsPerSec < prev*(1-dropPct/100) {
			conditions[model.AlertThroughputDrop] = condition{
				severity: model.SeverityWarning,
				message:  fmt.Sprintf("throughput %.1f/s dropped more than %.0f%% from %.1f/s", latest.RecordsPerSec, dropPct, prev),
			}
		}
		s.setPrevSample(pipe.ID, latest.RecordsPerSec)
	}

	if ratePct := thresholds[model.AlertErrorRate]; ratePct > 0 {
		window, err := s.progressDAO.Window(ctx, s.db, pipe.ID, time.Now().Add(-errorRateWindow))
		if err != nil {
			log.Printf("[Monitor] Pipeline %d: load window: %v", pipe.ID, err)
		} else if rate, ok := errorRate(window); ok && rate > ratePct {
			conditions[model.AlertErrorRate] = condition{
				severity: model.SeverityWarning,
				message:  fmt.Sprintf("error rate %.2f%% over threshold %.0f%%", rate, ratePct),
			}
		}
	}

	if dlqLimit := thresholds[model.AlertDLQCount]; dlqLimit > 0 && float64(latest.DLQCount) > dlqLimit {
		conditions[model.AlertDLQCount] = condition{
			severity: model.SeverityWarning,
			message:  fmt.Sprintf("dead letter queue holds %d messages, ceiling %.0f", latest.DLQCount, dlqLimit),
		}
	}

	if settings.WALMonitorEnabled && latest.WALSizeMB > 0 {
		// Alert when the source log exceeds the configured size grown by
		// the tolerance percentage.
		limit := float64(settings.WALSizeMB) * (1 + settings.WALGrowthPct/100)
		if float64(latest.WALSizeMB) > limit {
			conditions[model.AlertWALSize] = condition{
				severity: model.SeverityCritical,
				message:  fmt.Sprintf("source WAL at %dMB exceeds limit %.0fMB", latest.WALSizeMB, limit),
			}
		}
	}
}

// effectiveThresholds merges the global settings with per-pipeline rule
// overrides. An enabled override replaces the global value; an override
// with threshold zero disables the check for that pipeline.
func (s *Scheduler) effectiveThresholds(ctx context.Context, pipelineID uint, settings *model.MonitoringSettings) map[string]float64 {
	thresholds := map[string]float64{
		model.AlertHighLag:        float64(settings.LagMs),
		model.AlertThroughputDrop: settings.ThroughputDropPct,
		model.AlertErrorRate:      settings.ErrorRatePct,
		model.AlertDLQCount:       float64(settings.DLQCount),
	}
	overrides, err := s.overrideDAO.ListByPipeline(ctx, s.db, pipelineID)
	if err != nil {
		log.Printf("[Monitor] Pipeline %d: load overrides: %v", pipelineID, err)
		return thresholds
	}
	for _, o := range overrides {
		if !o.Enabled {
			continue
		}
		if _, known := thresholds[o.AlertType]; known {
			thresholds[o.AlertType] = o.Threshold
		}
	}
	return thresholds
}

func errorRate(window []model.ProgressEvent) (float64, bool) {
	var records, errs int64
	for i := range window {
		if window[i].RecordsTotal > records {
			records = window[i].RecordsTotal
		}
		if window[i].ErrorCount > errs {
			errs = window[i].ErrorCount
		}
	}
	if records == 0 {
		return 0, false
	}
	return float64(errs) / float64(records) * 100, true
}

func (s *Scheduler) prevSample(pipelineID uint) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prevThroughput[pipelineID]
}

func (s *Scheduler) setPrevSample(pipelineID uint, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prevThroughput[pipelineID] = v
}

// remediationActive reports whether an automatic pause issued earlier is
// still holding the pipeline. While it is, CONNECTOR_PAUSED is not
// evaluated for the pipeline so the remediation does not alert on itself.
func (s *Scheduler) remediationActive(pipelineID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.holds[pipelineID]
	return ok
}

// liftExpiredHolds resumes connectors whose remediation hold has elapsed.
// A resume the engine rejects keeps the hold so the next cycle retries; a
// connector the engine no longer knows just drops the hold.
func (s *Scheduler) liftExpiredHolds(ctx context.Context) {
	now := time.Now()
	s.mu.Lock()
	expired := map[uint]remediationHold{}
	for id, hold := range s.holds {
		if now.After(hold.until) {
			expired[id] = hold
		}
	}
	s.mu.Unlock()

	for id, hold := range expired {
		err := s.engine.ResumeConnector(ctx, hold.connector)
		if err != nil && !isNotFound(err) {
			log.Printf("[Monitor] Pipeline %d: resume of %s failed, retrying next cycle: %v", id, hold.connector, err)
			continue
		}
		if err == nil {
			log.Printf("[Monitor] Pipeline %d: resumed connector %s after remediation hold", id, hold.connector)
		}
		s.mu.Lock()
		delete(s.holds, id)
		s.mu.Unlock()
	}
}

// remediate pauses the implicated connector when a failure condition
// persists across cycles: the condition must be present now AND already
// have an unresolved alert from an earlier cycle. Conditions tied to a
// specific connector pause that connector; lag pauses the source. Returns
// true when a pause was issued this cycle, so the caller exempts
// CONNECTOR_PAUSED.
func (s *Scheduler) remediate(ctx context.Context, pipe *model.Pipeline, connectors []model.PipelineConnector, settings *model.MonitoringSettings, conditions map[string]condition) bool {
	if !settings.AutoPauseEnabled || s.remediationActive(pipe.ID) {
		return false
	}

	persistent := false
	target := ""
	for _, alertType := range []string{model.AlertConnectorFailed, model.AlertHighLag} {
		cond, present := conditions[alertType]
		if !present {
			continue
		}
		if _, err := s.alertDAO.GetUnresolved(ctx, s.db, pipe.ID, alertType); err == nil {
			persistent = true
			target = cond.connector
			break
		}
	}
	if !persistent {
		return false
	}
	if target == "" {
		for i := range connectors {
			if connectors[i].Type == model.ConnectorTypeSource {
				target = connectors[i].Name
				break
			}
		}
	}
	if target == "" {
		return false
	}

	if err := s.engine.PauseConnector(ctx, target); err != nil {
		log.Printf("[Monitor] Pipeline %d: remediation pause of %s failed: %v", pipe.ID, target, err)
		return false
	}

	hold := time.Duration(settings.PauseDurationSeconds) * time.Second
	s.mu.Lock()
	s.holds[pipe.ID] = remediationHold{connector: target, until: time.Now().Add(hold)}
	s.mu.Unlock()
	log.Printf("[Monitor] Pipeline %d: paused connector %s for %s (automatic remediation)", pipe.ID, target, hold)
	return true
}

// reconcileAlerts applies the dedup rules: one unresolved alert per
// (pipeline, type), reused while the condition persists, resolved the
// moment it clears. Notifications fire only on transitions.
func (s *Scheduler) reconcileAlerts(ctx context.Context, pipelineID uint, conditions map[string]condition) {
	allTypes := []string{
		model.AlertConnectorFailed,
		model.AlertConnectorPaused,
		model.AlertTaskFailed,
		model.AlertHighLag,
		model.AlertThroughputDrop,
		model.AlertErrorRate,
		model.AlertDLQCount,
		model.AlertWALSize,
	}

	for _, alertType := range allTypes {
		cond, present := conditions[alertType]
		existing, err := s.alertDAO.GetUnresolved(ctx, s.db, pipelineID, alertType)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Monitor] Pipeline %d: alert lookup %s: %v", pipelineID, alertType, err)
			continue
		}
		found := err == nil

		switch {
		case present && found:
			// Steady state: refresh, no notification
			if err := s.alertDAO.Touch(ctx, s.db, existing.ID, cond.message, cond.metadata); err != nil {
				log.Printf("[Monitor] Pipeline %d: alert touch %s: %v", pipelineID, alertType, err)
			}

		case present && !found:
			alert := &model.AlertEvent{
				PipelineID: pipelineID,
				AlertType:  alertType,
				Severity:   cond.severity,
				Message:    cond.message,
				Metadata:   cond.metadata,
			}
			if err := s.alertDAO.Create(ctx, s.db, alert); err != nil {
				log.Printf("[Monitor] Pipeline %d: alert create %s: %v", pipelineID, alertType, err)
				continue
			}
			log.Printf("[Monitor] Pipeline %d: ALERT %s: %s", pipelineID, alertType, cond.message)
			s.dispatcher.Send(ctx, notify.Event{
				PipelineID: pipelineID,
				AlertType:  alertType,
				Severity:   cond.severity,
				Message:    cond.message,
				OccurredAt: time.Now(),
			})

		case !present && found:
			changed, err := s.alertDAO.Resolve(ctx, s.db, existing.ID, time.Now())
			if err != nil {
				log.Printf("[Monitor] Pipeline %d: alert resolve %s: %v", pipelineID, alertType, err)
				continue
			}
			if changed {
				log.Printf("[Monitor] Pipeline %d: RESOLVED %s", pipelineID, alertType)
				s.dispatcher.Send(ctx, notify.Event{
					PipelineID: pipelineID,
					AlertType:  alertType,
					Severity:   existing.Severity,
					Message:    existing.Message,
					Resolved:   true,
					OccurredAt: time.Now(),
				})
			}
		}
	}
}
