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
	"github.com/yunolab/connect_bridge/pkg/validator"
	"gorm.io/gorm"
)

// CreateVersion registers a configuration revision for a named connector,
// creating the definition on first use. The config is canonicalized and
// checksummed; when the checksum matches the current active version the
// existing row is returned unchanged, so repeated submissions of the same
// config are idempotent. The first version of a definition becomes active
// automatically; later versions wait for an explicit activation.
func (s *Service) CreateVersion(ctx context.Context, name string, req *api.CreateVersionRequest) (*api.VersionInfo, error) {
	if !validator.ValidateConnectorName(name) {
		return nil, fmt.Errorf("%w: invalid connector name %q", common.ErrValidation, name)
	}
	if req == nil || len(req.Config) == 0 {
		return nil, fmt.Errorf("%w: config is required", common.ErrValidation)
	}

	def, err := s.logic.definitionDAO.GetByName(ctx, s.logic.db, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if req.Kind != model.ConnectorTypeSource && req.Kind != model.ConnectorTypeSink {
			return nil, fmt.Errorf("%w: kind must be source or sink for a new connector", common.ErrValidation)
		}
		if req.Class == "" {
			return nil, fmt.Errorf("%w: class is required for a new connector", common.ErrValidation)
		}
		def = &model.ConnectorDefinition{
			Name:  name,
			Kind:  req.Kind,
			Class: req.Class,
			Owner: req.Owner,
		}
		if err := s.logic.definitionDAO.Create(ctx, s.logic.db, def); err != nil {
			return nil, err
		}
		log.Printf("[Registry] Created connector definition: %s (%s)", name, req.Kind)
	} else if err != nil {
		return nil, err
	}

	canonical := CanonicalizeConfig(req.Config)
	checksum := ChecksumConfig(canonical)

	active, err := s.logic.versionDAO.GetActive(ctx, s.logic.db, def.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if active != nil && active.Checksum == checksum {
		log.Printf("[Registry] %s config unchanged, reusing version %d", name, active.Version)
		return versionToAPI(name, active, true), nil
	}

	maxVersion, err := s.logic.versionDAO.MaxVersion(ctx, s.logic.db, def.ID)
	if err != nil {
		return nil, err
	}

	warnings := ValidatePolicy(def.Kind, canonical)
	configJSON, err := json.Marshal(canonical)
	if err != nil {
		return nil, err
	}
	warningsJSON, err := json.Marshal(warnings)
	if err != nil {
		return nil, err
	}

	version := &model.ConnectorVersion{
		DefinitionID: def.ID,
		Version:      maxVersion + 1,
		Config:       string(configJSON),
		Checksum:     checksum,
		IsActive:     active == nil,
		Warnings:     string(warningsJSON),
		CreatedBy:    common.UserFromContext(ctx),
	}
	if err := s.logic.versionDAO.Create(ctx, s.logic.db, version); err != nil {
		return nil, err
	}
	log.Printf("[Registry] %s version %d created (checksum %s, %d warnings)",
		name, version.Version, checksum[:8], len(warnings))
	return versionToAPI(name, version, false), nil
}

// ActivateVersion flips the desired-state pointer to the target version.
// No network call happens here; reconciliation picks the new config up on
// the next deploy.
func (s *Service) ActivateVersion(ctx context.Context, name string, version int) error {
	def, err := s.logic.definitionDAO.GetByName(ctx, s.logic.db, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: connector %s", common.ErrNotFound, name)
	}
	if err != nil {
		return err
	}
	if err := s.logic.versionDAO.Activate(ctx, s.logic.db, def.ID, version); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: connector %s has no version %d", common.ErrConflict, name, version)
		}
		return err
	}
	log.Printf("[Registry] %s active version is now %d", name, version)
	return nil
}

// Diff partitions the union of two versions' keys into disjoint added,
// removed, and changed sets, reading from → to.
func (s *Service) Diff(ctx context.Context, name string, from, to int) (*api.DiffResult, error) {
	def, err := s.logic.definitionDAO.GetByName(ctx, s.logic.db, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: connector %s", common.ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	fromCfg, err := s.loadVersionConfig(ctx, def.ID, name, from)
	if err != nil {
		return nil, err
	}
	toCfg, err := s.loadVersionConfig(ctx, def.ID, name, to)
	if err != nil {
		return nil, err
	}

	result := &api.DiffResult{
		Name:    name,
		From:    from,
		To:      to,
		Added:   map[string]string{},
		Removed: map[string]string{},
		Changed: map[string]api.ValueChange{},
	}
	for key, newVal := range toCfg {
		oldVal, existed := fromCfg[key]
		switch {
		case !existed:
			result.Added[key] = newVal
		case oldVal != newVal:
			result.Changed[key] = api.ValueChange{Old: oldVal, New: newVal}
		}
	}
	for key, oldVal := range fromCfg {
		if _, exists := toCfg[key]; !exists {
			result.Removed[key] = oldVal
		}
	}
	return result, nil
}

// ListVersions returns the full history of a connector, newest first.
func (s *Service) ListVersions(ctx context.Context, name string) ([]*api.VersionInfo, error) {
	def, err := s.logic.definitionDAO.GetByName(ctx, s.logic.db, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: connector %s", common.ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	versions, err := s.logic.versionDAO.ListByDefinition(ctx, s.logic.db, def.ID)
	if err != nil {
		return nil, err
	}
	list := make([]*api.VersionInfo, 0, len(versions))
	for i := range versions {
		list = append(list, versionToAPI(name, &versions[i], false))
	}
	return list, nil
}

// CreateDeployment records the intent to push one version to an engine.
// The row starts pending; ApplyDeployment performs the actual push.
func (s *Service) CreateDeployment(ctx context.Context, req *api.CreateDeploymentRequest) (*api.DeploymentInfo, error) {
	if req == nil || req.Name == "" || req.Version <= 0 {
		return nil, fmt.Errorf("%w: name and version are required", common.ErrValidation)
	}
	if req.Environment == "" {
		return nil, fmt.Errorf("%w: environment is required", common.ErrValidation)
	}

	def, err := s.logic.definitionDAO.GetByName(ctx, s.logic.db, req.Name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: connector %s", common.ErrNotFound, req.Name)
	}
	if err != nil {
		return nil, err
	}
	version, err := s.logic.versionDAO.GetByVersion(ctx, s.logic.db, def.ID, req.Version)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: connector %s has no version %d", common.ErrNotFound, req.Name, req.Version)
	}
	if err != nil {
		return nil, err
	}

	engineURL := req.EngineURL
	if engineURL == "" {
		engineURL = s.engineURL
	}
	dep := &model.Deployment{
		VersionID:   version.ID,
		Environment: req.Environment,
		EngineURL:   engineURL,
		Status:      model.DeploymentStatusPending,
	}
	if err := s.logic.deploymentDAO.Create(ctx, s.logic.db, dep); err != nil {
		return nil, err
	}
	return &api.DeploymentInfo{
		ID:          dep.ID,
		Name:        req.Name,
		Version:     req.Version,
		Environment: dep.Environment,
		EngineURL:   dep.EngineURL,
		Status:      dep.Status,
	}, nil
}

// ApplyDeployment pushes the recorded version's config to the engine via
// the create-or-update primitive and flips the row to deployed or error.
func (s *Service) ApplyDeployment(ctx context.Context, id uint) (*api.DeploymentInfo, error) {
	dep, err := s.logic.deploymentDAO.GetByID(ctx, s.logic.db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: deployment %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	version, err := s.logic.versionDAO.GetByID(ctx, s.logic.db, dep.VersionID)
	if err != nil {
		return nil, err
	}
	var def model.ConnectorDefinition
	if err := s.logic.db.WithContext(ctx).Where("id = ?", version.DefinitionID).First(&def).Error; err != nil {
		return nil, err
	}

	config, err := decodeConfig(version.Config)
	if err != nil {
		return nil, err
	}
	if config["connector.class"] == "" {
		config["connector.class"] = def.Class
	}

	engine := s.engine
	if dep.EngineURL != "" && dep.EngineURL != s.engineURL {
		engine = s.engine.WithBaseURL(dep.EngineURL)
	}

	info := &api.DeploymentInfo{
		ID:          dep.ID,
		Name:        def.Name,
		Version:     version.Version,
		Environment: dep.Environment,
		EngineURL:   dep.EngineURL,
	}
	action, pushErr := createOrUpdateConnector(ctx, engine, def.Name, config)
	if pushErr != nil {
		info.Status = model.DeploymentStatusError
		info.StatusMessage = pushErr.Error()
		if err := s.logic.deploymentDAO.UpdateStatus(ctx, s.logic.db, dep.ID, model.DeploymentStatusError, pushErr.Error()); err != nil {
			log.Printf("[Registry] Failed to record deployment %d error: %v", dep.ID, err)
		}
		return info, pushErr
	}

	info.Status = model.DeploymentStatusDeployed
	info.Action = action
	if err := s.logic.deploymentDAO.UpdateStatus(ctx, s.logic.db, dep.ID, model.DeploymentStatusDeployed, ""); err != nil {
		return nil, err
	}
	log.Printf("[Registry] Deployment %d applied: %s v%d %s on %s",
		dep.ID, def.Name, version.Version, action, dep.Environment)
	return info, nil
}

func (s *Service) loadVersionConfig(ctx context.Context, definitionID uint, name string, version int) (map[string]string, error) {
	row, err := s.logic.versionDAO.GetByVersion(ctx, s.logic.db, definitionID, version)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: connector %s has no version %d", common.ErrNotFound, name, version)
	}
	if err != nil {
		return nil, err
	}
	return decodeConfig(row.Config)
}

func decodeConfig(raw string) (map[string]string, error) {
	config := map[string]string{}
	if raw == "" {
		return config, nil
	}
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		return nil, fmt.Errorf("stored config is corrupt: %w", err)
	}
	return config, nil
}

func decodeWarnings(raw string) []string {
	if raw == "" {
		return nil
	}
	var warnings []string
	if err := json.Unmarshal([]byte(raw), &warnings); err != nil {
		return nil
	}
	return warnings
}

func versionToAPI(name string, v *model.ConnectorVersion, reused bool) *api.VersionInfo {
	config, _ := decodeConfig(v.Config)
	return &api.VersionInfo{
		Name:      name,
		Version:   v.Version,
		Checksum:  v.Checksum,
		IsActive:  v.IsActive,
		Config:    config,
		Warnings:  decodeWarnings(v.Warnings),
		CreatedBy: v.CreatedBy,
		CreatedAt: v.CreatedAt.Format(time.RFC3339),
		Reused:    reused,
	}
}
