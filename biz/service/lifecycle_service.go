package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yunolab/connect_bridge/biz/dal/db"
	"github.com/yunolab/connect_bridge/biz/dal/model"
	"github.com/yunolab/connect_bridge/biz/model/api"
	"github.com/yunolab/connect_bridge/pkg/common"
	"github.com/yunolab/connect_bridge/pkg/validator"
	"gorm.io/gorm"
)

// CreatePipeline creates a pipeline with its source and sink connector
// halves in draft state. Connector configs arrive staged; they reach the
// engine only through a deploy.
func (s *Service) CreatePipeline(ctx context.Context, req *api.CreatePipelineRequest) (*model.Pipeline, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	// Connector names derive from the pipeline name and end up in engine
	// REST paths, so the name must sanitize cleanly.
	name, ok := validator.SanitizeConnectorName(req.Name)
	if !ok {
		return nil, fmt.Errorf("%w: invalid pipeline name %q", common.ErrValidation, req.Name)
	}
	if req.SourceClass == "" || req.SinkClass == "" {
		return nil, fmt.Errorf("%w: source_class and sink_class are required", common.ErrValidation)
	}

	retention := req.BackupRetentionHours
	if retention <= 0 {
		retention = 24
	}
	pipe := &model.Pipeline{
		Name:                 name,
		Description:          req.Description,
		SourceType:           req.SourceType,
		SinkType:             req.SinkType,
		Mode:                 req.Mode,
		Schedule:             req.Schedule,
		Status:               model.PipelineStatusDraft,
		BackupRetentionHours: retention,
		CreatedBy:            common.UserFromContext(ctx),
	}

	err := s.logic.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.logic.pipelineDAO.Create(ctx, tx, pipe); err != nil {
			return err
		}
		halves := []struct {
			connType string
			class    string
			config   map[string]string
		}{
			{model.ConnectorTypeSource, req.SourceClass, req.SourceConfig},
			{model.ConnectorTypeSink, req.SinkClass, req.SinkConfig},
		}
		for _, h := range halves {
			pending := ""
			if len(h.config) > 0 {
				data, err := json.Marshal(CanonicalizeConfig(h.config))
				if err != nil {
					return err
				}
				pending = string(data)
			}
			conn := &model.PipelineConnector{
				PipelineID:        pipe.ID,
				Name:              fmt.Sprintf("%s-%s", pipe.Name, h.connType),
				Type:              h.connType,
				ConnectorClass:    h.class,
				PendingConfig:     pending,
				HasPendingChanges: pending != "",
			}
			if err := s.logic.connectorDAO.Create(ctx, tx, conn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[Lifecycle] Created pipeline %d (%s)", pipe.ID, pipe.Name)
	return pipe, nil
}

// GetPipeline returns a live pipeline with its connectors.
func (s *Service) GetPipeline(ctx context.Context, id uint) (*model.Pipeline, []model.PipelineConnector, error) {
	pipe, err := s.logic.pipelineDAO.GetLiveByID(ctx, s.logic.db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: pipeline %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}
	connectors, err := s.logic.connectorDAO.ListByPipeline(ctx, s.logic.db, id)
	if err != nil {
		return nil, nil, err
	}
	return pipe, connectors, nil
}

// ListPipelines returns all live pipelines, optionally filtered by status.
func (s *Service) ListPipelines(ctx context.Context, status string) ([]model.Pipeline, error) {
	return s.logic.pipelineDAO.List(ctx, s.logic.db, status)
}

// SoftDeletePipeline hides a pipeline behind deleted_at. Status is left as
// it was so a restore within the retention window recovers full context.
func (s *Service) SoftDeletePipeline(ctx context.Context, id uint) error {
	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.logic.pipelineDAO.SoftDelete(ctx, s.logic.db, id, time.Now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: pipeline %d", common.ErrNotFound, id)
		}
		return err
	}
	log.Printf("[Lifecycle] Pipeline %d soft-deleted", id)
	return nil
}

// RestorePipeline clears deleted_at and resets the pipeline to draft. It
// never redeploys connectors. A restore racing the retention sweep is
// decided by whichever write commits first: the conditional update matches
// zero rows when the sweep already purged the pipeline.
func (s *Service) RestorePipeline(ctx context.Context, id uint) error {
	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.logic.pipelineDAO.Restore(ctx, s.logic.db, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: pipeline %d", common.ErrNotFound, id)
		}
		return err
	}
	log.Printf("[Lifecycle] Pipeline %d restored to draft", id)
	return nil
}

// pipelineBackup is the JSON document written to backup storage before a
// permanent purge.
type pipelineBackup struct {
	Pipeline   *model.Pipeline           `json:"pipeline"`
	Connectors []model.PipelineConnector `json:"connectors"`
	Alerts     []model.AlertEvent        `json:"alerts"`
	Overrides  []model.AlertRuleOverride `json:"overrides"`
	TakenAt    time.Time                 `json:"taken_at"`
}

// Sweep finds soft-deleted pipelines whose retention window has elapsed
// and permanently purges them with all dependent records. dry_run returns
// the candidate list without mutating anything. One candidate failing never
// stops the sweep.
func (s *Service) Sweep(ctx context.Context, dryRun bool) (*api.CleanupResult, error) {
	deleted, err := s.logic.pipelineDAO.ListSoftDeleted(ctx, s.logic.db)
	if err != nil {
		return nil, err
	}
	defaultRetention := 24
	if settings, err := s.logic.settingsDAO.Get(ctx, s.logic.db); err == nil && settings.BackupRetentionHours > 0 {
		defaultRetention = settings.BackupRetentionHours
	}

	result := &api.CleanupResult{DryRun: dryRun, Candidates: []api.CleanupCandidate{}}
	now := time.Now()

	for i := range deleted {
		pipe := &deleted[i]
		if pipe.DeletedAt == nil {
			continue
		}
		retention := pipe.BackupRetentionHours
		if retention <= 0 {
			retention = defaultRetention
		}
		expiredAt := pipe.DeletedAt.Add(time.Duration(retention) * time.Hour)
		if now.Before(expiredAt) {
			continue
		}

		candidate := api.CleanupCandidate{
			PipelineID: pipe.ID,
			Name:       pipe.Name,
			DeletedAt:  pipe.DeletedAt.Format(time.RFC3339),
			ExpiredAt:  expiredAt.Format(time.RFC3339),
		}
		if dryRun {
			result.Candidates = append(result.Candidates, candidate)
			continue
		}

		if s.purgeCandidate(ctx, pipe.ID, &candidate) {
			result.Candidates = append(result.Candidates, candidate)
		}
	}
	return result, nil
}

// purgeCandidate runs the re-check, backup and purge of one expired pipeline
// under its lock, so a restore arriving through the API waits rather than
// interleaving. A restore committed before the lock was taken wins: the
// re-check or the conditional purge sees the live row and the candidate is
// dropped. Returns whether the candidate belongs in the sweep result.
func (s *Service) purgeCandidate(ctx context.Context, id uint, candidate *api.CleanupCandidate) bool {
	release, err := s.locks.Acquire(ctx, id)
	if err != nil {
		candidate.Error = err.Error()
		return true
	}
	defer release()

	current, err := s.logic.pipelineDAO.GetByID(ctx, s.logic.db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if err != nil {
		candidate.Error = err.Error()
		return true
	}
	if current.DeletedAt == nil {
		log.Printf("[Cleanup] Pipeline %d restored during sweep, skipping", id)
		return false
	}

	if err := s.backupPipeline(ctx, current); err != nil {
		candidate.Error = fmt.Sprintf("backup failed: %v", err)
		log.Printf("[Cleanup] Pipeline %d backup failed, purge skipped: %v", id, err)
		return true
	}

	removed, err := s.logic.cleanupDAO.PurgePipeline(ctx, s.logic.db, id)
	if errors.Is(err, db.ErrPurgeConflict) {
		log.Printf("[Cleanup] Pipeline %d restored during sweep, purge rolled back", id)
		return false
	}
	if err != nil {
		candidate.Error = err.Error()
		log.Printf("[Cleanup] Pipeline %d purge failed: %v", id, err)
		return true
	}
	candidate.Purged = true
	candidate.RowsRemoved = removed
	log.Printf("[Cleanup] Pipeline %d (%s) purged, %d rows removed", id, current.Name, removed)
	return true
}

// backupPipeline writes the pipeline's metadata snapshot to backup storage.
// Without a configured backend the purge proceeds unbacked.
func (s *Service) backupPipeline(ctx context.Context, pipe *model.Pipeline) error {
	if s.backups == nil {
		return nil
	}
	connectors, err := s.logic.connectorDAO.ListByPipeline(ctx, s.logic.db, pipe.ID)
	if err != nil {
		return err
	}
	alerts, err := s.logic.alertDAO.ListByPipeline(ctx, s.logic.db, pipe.ID, 0)
	if err != nil {
		return err
	}
	overrides, err := s.logic.overrideDAO.ListByPipeline(ctx, s.logic.db, pipe.ID)
	if err != nil {
		return err
	}

	doc := pipelineBackup{
		Pipeline:   pipe,
		Connectors: connectors,
		Alerts:     alerts,
		Overrides:  overrides,
		TakenAt:    time.Now(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%d/%s.json", pipe.ID, time.Now().UTC().Format("20060102T150405Z"))
	if err := s.backups.PutObject(ctx, key, bytes.NewReader(data), "application/json", int64(len(data))); err != nil {
		return err
	}
	log.Printf("[Cleanup] Pipeline %d backed up to %s (%s)", pipe.ID, key, s.backups.Type())
	return nil
}

// RecordProgress ingests one metrics sample from the data plane.
func (s *Service) RecordProgress(ctx context.Context, pipelineID uint, report *api.ProgressReport) error {
	if report == nil {
		return fmt.Errorf("%w: progress report is required", common.ErrValidation)
	}
	if _, err := s.logic.pipelineDAO.GetLiveByID(ctx, s.logic.db, pipelineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: pipeline %d", common.ErrNotFound, pipelineID)
		}
		return err
	}
	event := &model.ProgressEvent{
		PipelineID:      pipelineID,
		Phase:           report.Phase,
		RecordsTotal:    report.RecordsTotal,
		RecordsPerSec:   report.RecordsPerSec,
		LagMs:           report.LagMs,
		ErrorCount:      report.ErrorCount,
		DLQCount:        report.DLQCount,
		WALSizeMB:       report.WALSizeMB,
		SourceTimestamp: time.Now(),
	}
	return s.logic.progressDAO.Create(ctx, s.logic.db, event)
}

// StagePendingConfig stores an edited config on a connector without touching
// the engine. The pending flag is the drift marker deploys clear.
func (s *Service) StagePendingConfig(ctx context.Context, pipelineID uint, connType string, config map[string]string) error {
	if len(config) == 0 {
		return fmt.Errorf("%w: config is required", common.ErrValidation)
	}
	conn, err := s.logic.connectorDAO.GetByPipelineAndType(ctx, s.logic.db, pipelineID, connType)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: pipeline %d has no %s connector", common.ErrNotFound, pipelineID, connType)
	}
	if err != nil {
		return err
	}
	canonical := CanonicalizeConfig(config)
	data, err := json.Marshal(canonical)
	if err != nil {
		return err
	}
	// Identical to the deployed config means no drift
	dirty := ChecksumConfig(canonical) != checksumOfStored(conn.Config)
	return s.logic.connectorDAO.StagePending(ctx, s.logic.db, conn.ID, string(data), dirty)
}

func checksumOfStored(raw string) string {
	config, err := decodeConfig(raw)
	if err != nil {
		return ""
	}
	return ChecksumConfig(config)
}
