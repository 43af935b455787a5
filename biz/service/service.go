package service

import (
	"github.com/yunolab/connect_bridge/pkg/kafkaconnect"
	"github.com/yunolab/connect_bridge/pkg/lock"
	"github.com/yunolab/connect_bridge/pkg/notify"
	"github.com/yunolab/connect_bridge/pkg/storage"
	"gorm.io/gorm"
)

// Service orchestrates the control plane: the registry, the pipeline
// lifecycle, and reconciliation against the execution engine.
type Service struct {
	logic      *Logic
	engine     *kafkaconnect.Client
	locks      lock.PipelineLocker
	dispatcher notify.Dispatcher
	backups    storage.Storage
	engineURL  string
}

// Options carries the collaborators a Service needs beyond the database.
type Options struct {
	Engine     *kafkaconnect.Client
	EngineURL  string
	Locks      lock.PipelineLocker
	Dispatcher notify.Dispatcher
	Backups    storage.Storage
}

func NewService(db *gorm.DB, opts Options) *Service {
	locks := opts.Locks
	if locks == nil {
		locks = lock.NewKeyedMutex()
	}
	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = notify.NopDispatcher{}
	}
	return &Service{
		logic:      NewLogic(db),
		engine:     opts.Engine,
		locks:      locks,
		dispatcher: dispatcher,
		backups:    opts.Backups,
		engineURL:  opts.EngineURL,
	}
}

// Logic exposes the persistence layer.
func (s *Service) Logic() *Logic { return s.logic }

// Engine returns the execution engine client.
func (s *Service) Engine() *kafkaconnect.Client { return s.engine }

// Dispatcher returns the alert notification dispatcher.
func (s *Service) Dispatcher() notify.Dispatcher { return s.dispatcher }
