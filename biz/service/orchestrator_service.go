package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"github.com/yunolab/connect_bridge/biz/model/api"
	"github.com/yunolab/connect_bridge/pkg/common"
	"github.com/yunolab/connect_bridge/pkg/kafkaconnect"
	"gorm.io/gorm"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// createOrUpdateConnector is the idempotent reconcile primitive: create
// the connector when the engine does not know it, push the config when it
// does. Re-running a successful deploy is a config refresh, never a
// duplicate.
func createOrUpdateConnector(ctx context.Context, engine *kafkaconnect.Client, name string, config map[string]string) (string, error) {
	_, err := engine.GetConnector(ctx, name)
	if errors.Is(err, kafkaconnect.ErrNotFound) {
		if _, err := engine.CreateConnector(ctx, name, config); err != nil {
			return "", err
		}
		return ActionCreated, nil
	}
	if err != nil {
		return "", err
	}
	if _, err := engine.PutConnectorConfig(ctx, name, config); err != nil {
		return "", err
	}
	return ActionUpdated, nil
}

// DeployPipeline reconciles a pipeline's source and sink connectors against
// the engine using the active registry versions. Source deploys first; if
// the sink then fails, the source connector is deleted from the engine as a
// compensating action so no half-deployed pair is left running. The whole
// operation is serialized per pipeline.
func (s *Service) DeployPipeline(ctx context.Context, pipelineID uint) (*api.DeployResult, error) {
	release, err := s.locks.Acquire(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	defer release()

	pipe, err := s.logic.pipelineDAO.GetLiveByID(ctx, s.logic.db, pipelineID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: pipeline %d", common.ErrNotFound, pipelineID)
	}
	if err != nil {
		return nil, err
	}

	source, sink, err := s.pipelineConnectors(ctx, pipelineID)
	if err != nil {
		return nil, err
	}

	result := &api.DeployResult{
		PipelineID: pipelineID,
		Results:    map[string]api.ConnectorOutcome{},
	}

	sourceCfg, sourceVersion, err := s.activeConfigFor(ctx, source)
	if err != nil {
		return nil, err
	}
	sinkCfg, sinkVersion, err := s.activeConfigFor(ctx, sink)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	sourceAction, err := createOrUpdateConnector(ctx, s.engine, source.Name, sourceCfg)
	if err != nil {
		result.Results[model.ConnectorTypeSource] = api.ConnectorOutcome{Error: err.Error()}
		result.Errors = append(result.Errors, api.StepError{Connector: source.Name, Error: err.Error()})
		result.Status = model.PipelineStatusError
		if derr := s.logic.pipelineDAO.UpdateStatus(ctx, s.logic.db, pipelineID, model.PipelineStatusError); derr != nil {
			log.Printf("[Orchestrator] Pipeline %d status update failed: %v", pipelineID, derr)
		}
		log.Printf("[Orchestrator] Pipeline %d source deploy failed: %v", pipelineID, err)
		return result, nil
	}
	result.Results[model.ConnectorTypeSource] = api.ConnectorOutcome{Action: sourceAction}

	sinkAction, err := createOrUpdateConnector(ctx, s.engine, sink.Name, sinkCfg)
	if err != nil {
		result.Results[model.ConnectorTypeSink] = api.ConnectorOutcome{Error: err.Error()}
		result.Errors = append(result.Errors, api.StepError{Connector: sink.Name, Error: err.Error()})

		// Compensate: drop the source connector so the engine is not left
		// capturing changes nothing consumes.
		if rbErr := s.engine.DeleteConnector(ctx, source.Name); rbErr != nil && !errors.Is(rbErr, kafkaconnect.ErrNotFound) {
			result.Rollback = fmt.Sprintf("failed to delete source connector %s: %v", source.Name, rbErr)
			result.Errors = append(result.Errors, api.StepError{Connector: source.Name, Error: result.Rollback})
			log.Printf("[Orchestrator] Pipeline %d rollback failed: %v", pipelineID, rbErr)
		} else {
			result.Rollback = fmt.Sprintf("source connector %s deleted", source.Name)
			log.Printf("[Orchestrator] Pipeline %d rolled back source connector %s", pipelineID, source.Name)
		}

		result.Status = model.PipelineStatusError
		if derr := s.logic.pipelineDAO.UpdateStatus(ctx, s.logic.db, pipelineID, model.PipelineStatusError); derr != nil {
			log.Printf("[Orchestrator] Pipeline %d status update failed: %v", pipelineID, derr)
		}
		return result, nil
	}
	result.Results[model.ConnectorTypeSink] = api.ConnectorOutcome{Action: sinkAction}

	if err := s.markDeployed(ctx, pipe, source, sourceCfg, sourceVersion, sink, sinkCfg, sinkVersion, now); err != nil {
		return nil, err
	}
	result.Status = model.PipelineStatusRunning
	log.Printf("[Orchestrator] Pipeline %d deployed: source %s, sink %s", pipelineID, sourceAction, sinkAction)
	return result, nil
}

func (s *Service) markDeployed(ctx context.Context, pipe *model.Pipeline,
	source *model.PipelineConnector, sourceCfg map[string]string, sourceVersion int,
	sink *model.PipelineConnector, sinkCfg map[string]string, sinkVersion int, at time.Time) error {
	sourceJSON, err := encodeConfig(sourceCfg)
	if err != nil {
		return err
	}
	sinkJSON, err := encodeConfig(sinkCfg)
	if err != nil {
		return err
	}
	if err := s.logic.connectorDAO.MarkDeployed(ctx, s.logic.db, source.ID, sourceJSON, sourceVersion, at); err != nil {
		return err
	}
	if err := s.logic.connectorDAO.MarkDeployed(ctx, s.logic.db, sink.ID, sinkJSON, sinkVersion, at); err != nil {
		return err
	}
	return s.logic.pipelineDAO.MarkDeployed(ctx, s.logic.db, pipe.ID, at)
}

// StartPipeline resumes both connectors. The two calls are independent
// best-effort steps; one failing never aborts the other.
func (s *Service) StartPipeline(ctx context.Context, pipelineID uint) (*api.ControlResult, error) {
	return s.controlPipeline(ctx, pipelineID, "start")
}

// PausePipeline pauses both connectors, best-effort like StartPipeline.
func (s *Service) PausePipeline(ctx context.Context, pipelineID uint) (*api.ControlResult, error) {
	return s.controlPipeline(ctx, pipelineID, "pause")
}

func (s *Service) controlPipeline(ctx context.Context, pipelineID uint, verb string) (*api.ControlResult, error) {
	release, err := s.locks.Acquire(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.logic.pipelineDAO.GetLiveByID(ctx, s.logic.db, pipelineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: pipeline %d", common.ErrNotFound, pipelineID)
		}
		return nil, err
	}
	connectors, err := s.logic.connectorDAO.ListByPipeline(ctx, s.logic.db, pipelineID)
	if err != nil {
		return nil, err
	}

	result := &api.ControlResult{PipelineID: pipelineID}
	for i := range connectors {
		conn := &connectors[i]
		var callErr error
		if verb == "start" {
			callErr = s.engine.ResumeConnector(ctx, conn.Name)
		} else {
			callErr = s.engine.PauseConnector(ctx, conn.Name)
		}
		if callErr != nil {
			result.Errors = append(result.Errors, api.StepError{Connector: conn.Name, Error: callErr.Error()})
			log.Printf("[Orchestrator] Pipeline %d %s %s failed: %v", pipelineID, verb, conn.Name, callErr)
			continue
		}
		status := model.ConnectorStatusRunning
		if verb == "pause" {
			status = model.ConnectorStatusPaused
		}
		if err := s.logic.connectorDAO.UpdateStatus(ctx, s.logic.db, conn.ID, status); err != nil {
			return nil, err
		}
	}

	if len(result.Errors) == 0 {
		status := model.PipelineStatusRunning
		if verb == "pause" {
			status = model.PipelineStatusPaused
		}
		if err := s.logic.pipelineDAO.UpdateStatus(ctx, s.logic.db, pipelineID, status); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// DeleteConnectors removes both connectors from the engine. Metadata rows
// stay untouched; this is reconciliation teardown, not pipeline deletion.
// An already-absent connector is treated as deleted.
func (s *Service) DeleteConnectors(ctx context.Context, pipelineID uint) (*api.ControlResult, error) {
	release, err := s.locks.Acquire(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	defer release()

	connectors, err := s.logic.connectorDAO.ListByPipeline(ctx, s.logic.db, pipelineID)
	if err != nil {
		return nil, err
	}
	if len(connectors) == 0 {
		return nil, fmt.Errorf("%w: pipeline %d has no connectors", common.ErrNotFound, pipelineID)
	}

	result := &api.ControlResult{PipelineID: pipelineID}
	for i := range connectors {
		conn := &connectors[i]
		if err := s.engine.DeleteConnector(ctx, conn.Name); err != nil && !errors.Is(err, kafkaconnect.ErrNotFound) {
			result.Errors = append(result.Errors, api.StepError{Connector: conn.Name, Error: err.Error()})
			log.Printf("[Orchestrator] Pipeline %d delete %s failed: %v", pipelineID, conn.Name, err)
		}
	}
	return result, nil
}

// GetStatus fetches live status and tasks for both connectors. A failure
// fetching one connector is recorded per-connector and never fails the
// whole call.
func (s *Service) GetStatus(ctx context.Context, pipelineID uint) (*api.PipelineStatus, error) {
	pipe, err := s.logic.pipelineDAO.GetLiveByID(ctx, s.logic.db, pipelineID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: pipeline %d", common.ErrNotFound, pipelineID)
	}
	if err != nil {
		return nil, err
	}
	connectors, err := s.logic.connectorDAO.ListByPipeline(ctx, s.logic.db, pipelineID)
	if err != nil {
		return nil, err
	}

	status := &api.PipelineStatus{PipelineID: pipelineID, Status: pipe.Status}
	for i := range connectors {
		conn := &connectors[i]
		live := &api.ConnectorLiveStatus{Name: conn.Name}

		engineStatus, err := s.engine.GetStatus(ctx, conn.Name)
		if err != nil {
			live.Error = err.Error()
			status.Errors = append(status.Errors, api.StepError{Connector: conn.Name, Error: err.Error()})
		} else {
			live.State = engineStatus.Connector.State
			live.Tasks = engineStatus.Tasks
		}

		if conn.Type == model.ConnectorTypeSource {
			status.Source = live
		} else {
			status.Sink = live
		}
	}
	return status, nil
}

func (s *Service) pipelineConnectors(ctx context.Context, pipelineID uint) (source, sink *model.PipelineConnector, err error) {
	source, err = s.logic.connectorDAO.GetByPipelineAndType(ctx, s.logic.db, pipelineID, model.ConnectorTypeSource)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: pipeline %d has no source connector", common.ErrNotFound, pipelineID)
	}
	if err != nil {
		return nil, nil, err
	}
	sink, err = s.logic.connectorDAO.GetByPipelineAndType(ctx, s.logic.db, pipelineID, model.ConnectorTypeSink)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: pipeline %d has no sink connector", common.ErrNotFound, pipelineID)
	}
	if err != nil {
		return nil, nil, err
	}
	return source, sink, nil
}

// activeConfigFor resolves the desired config of a connector: the active
// registry version when the connector is registered, otherwise the staged
// pending config, otherwise the last deployed config.
func (s *Service) activeConfigFor(ctx context.Context, conn *model.PipelineConnector) (map[string]string, int, error) {
	def, err := s.logic.definitionDAO.GetByName(ctx, s.logic.db, conn.Name)
	if err == nil {
		active, aerr := s.logic.versionDAO.GetActive(ctx, s.logic.db, def.ID)
		if aerr == nil {
			config, derr := decodeConfig(active.Config)
			if derr != nil {
				return nil, 0, derr
			}
			if config["connector.class"] == "" {
				config["connector.class"] = def.Class
			}
			return config, active.Version, nil
		}
		if !errors.Is(aerr, gorm.ErrRecordNotFound) {
			return nil, 0, aerr
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, err
	}

	raw := conn.PendingConfig
	if raw == "" {
		raw = conn.Config
	}
	config, err := decodeConfig(raw)
	if err != nil {
		return nil, 0, err
	}
	if len(config) == 0 {
		return nil, 0, fmt.Errorf("%w: connector %s has no active version and no staged config", common.ErrValidation, conn.Name)
	}
	if config["connector.class"] == "" {
		config["connector.class"] = conn.ConnectorClass
	}
	return config, conn.LastDeployedVersion, nil
}

func encodeConfig(config map[string]string) (string, error) {
	data, err := json.Marshal(config)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
