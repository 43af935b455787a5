// Package monitor runs the timer-driven observation loop: it polls live
// connector status and data-plane metrics, evaluates thresholds, and
// manages the alert lifecycle. One scheduler per process.
package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yunolab/connect_bridge/biz/dal/db"
	"github.com/yunolab/connect_bridge/biz/dal/model"
	"github.com/yunolab/connect_bridge/pkg/kafkaconnect"
	"github.com/yunolab/connect_bridge/pkg/notify"
	"gorm.io/gorm"
)

const defaultInterval = 60 * time.Second

// Scheduler drives monitoring cycles on a single timer. Cycles never
// overlap: when a tick fires while the previous cycle still runs, the tick
// is skipped outright, not queued.
type Scheduler struct {
	db         *gorm.DB
	engine     *kafkaconnect.Client
	dispatcher notify.Dispatcher

	pipelineDAO  *db.PipelineDAO
	connectorDAO *db.PipelineConnectorDAO
	alertDAO     *db.AlertEventDAO
	overrideDAO  *db.AlertRuleOverrideDAO
	settingsDAO  *db.MonitoringSettingsDAO
	progressDAO  *db.ProgressEventDAO

	busy atomic.Bool

	mu             sync.Mutex
	running        bool
	stop           chan struct{}
	done           chan struct{}
	prevThroughput map[uint]float64
	holds          map[uint]remediationHold
}

// remediationHold records a connector paused automatically and when the
// pause should be lifted.
type remediationHold struct {
	connector string
	until     time.Time
}

func NewScheduler(dbConn *gorm.DB, engine *kafkaconnect.Client, dispatcher notify.Dispatcher) *Scheduler {
	if dispatcher == nil {
		dispatcher = notify.NopDispatcher{}
	}
	return &Scheduler{
		db:             dbConn,
		engine:         engine,
		dispatcher:     dispatcher,
		pipelineDAO:    db.NewPipelineDAO(),
		connectorDAO:   db.NewPipelineConnectorDAO(),
		alertDAO:       db.NewAlertEventDAO(),
		overrideDAO:    db.NewAlertRuleOverrideDAO(),
		settingsDAO:    db.NewMonitoringSettingsDAO(),
		progressDAO:    db.NewProgressEventDAO(),
		prevThroughput: map[uint]float64{},
		holds:          map[uint]remediationHold{},
	}
}

// Start launches the timer loop. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(s.stop, s.done)
	log.Printf("[Monitor] Scheduler started")
}

// Stop halts the timer and waits for an in-flight cycle launch to settle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
	log.Printf("[Monitor] Scheduler stopped")
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := s.currentInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Skip, never queue, when the previous cycle is still running
			if !s.busy.CompareAndSwap(false, true) {
				log.Printf("[Monitor] Previous cycle still running, skipping tick")
				continue
			}
			go func() {
				defer s.busy.Store(false)
				if err := s.RunCycle(context.Background()); err != nil {
					log.Printf("[Monitor] Cycle failed: %v", err)
				}
			}()

			if next := s.currentInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
				log.Printf("[Monitor] Check interval now %s", interval)
			}
		}
	}
}

func (s *Scheduler) currentInterval() time.Duration {
	settings, err := s.settingsDAO.Get(context.Background(), s.db)
	if err != nil || settings.CheckIntervalMs <= 0 {
		return defaultInterval
	}
	return time.Duration(settings.CheckIntervalMs) * time.Millisecond
}

// RunCycle evaluates every live, non-draft pipeline once. Thresholds are
// re-read from storage at the top of the cycle so settings edits take
// effect without a restart. One pipeline failing never blocks the rest.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	settings, err := s.settingsDAO.Get(ctx, s.db)
	if err != nil {
		return err
	}

	pipelines, err := s.pipelineDAO.List(ctx, s.db, "")
	if err != nil {
		return err
	}

	s.liftExpiredHolds(ctx)

	for i := range pipelines {
		pipe := &pipelines[i]
		if pipe.Status == model.PipelineStatusDraft {
			continue
		}
		s.evaluatePipeline(ctx, pipe, settings)
	}
	return nil
}

// evaluatePipeline runs all checks for one pipeline and reconciles the
// detected conditions against the stored alert lifecycle.
func (s *Scheduler) evaluatePipeline(ctx context.Context, pipe *model.Pipeline, settings *model.MonitoringSettings) {
	connectors, err := s.connectorDAO.ListByPipeline(ctx, s.db, pipe.ID)
	if err != nil {
		log.Printf("[Monitor] Pipeline %d: load connectors: %v", pipe.ID, err)
		return
	}

	exemptPaused := s.remediationActive(pipe.ID)

	conditions, unreachable := s.checkConnectors(ctx, pipe, connectors, exemptPaused)
	if unreachable {
		log.Printf("[Monitor] Pipeline %d UNREACHABLE this cycle", pipe.ID)
		return
	}

	s.checkMetrics(ctx, pipe, settings, conditions)
	remediated := s.remediate(ctx, pipe, connectors, settings, conditions)
	if remediated {
		delete(conditions, model.AlertConnectorPaused)
	}
	s.reconcileAlerts(ctx, pipe.ID, conditions)
}

// checkConnectors polls engine status for both connectors. The second
// return value reports a transport failure, which aborts the pipeline's
// evaluation for this cycle.
func (s *Scheduler) checkConnectors(ctx context.Context, pipe *model.Pipeline, connectors []model.PipelineConnector, exemptPaused bool) (map[string]condition, bool) {
	conditions := map[string]condition{}

	for i := range connectors {
		conn := &connectors[i]
		status, err := s.engine.GetStatus(ctx, conn.Name)
		if err != nil {
			if isNotFound(err) {
				// Not deployed yet; nothing to observe
				continue
			}
			return nil, true
		}

		switch status.Connector.State {
		case kafkaconnect.StateFailed:
			conditions[model.AlertConnectorFailed] = condition{
				severity:  model.SeverityCritical,
				message:   "connector " + conn.Name + " is FAILED",
				connector: conn.Name,
			}
		case kafkaconnect.StatePaused:
			if !exemptPaused {
				conditions[model.AlertConnectorPaused] = condition{
					severity:  model.SeverityWarning,
					message:   "connector " + conn.Name + " is PAUSED",
					connector: conn.Name,
				}
			}
		}

		for _, task := range status.Tasks {
			if task.State == kafkaconnect.StateFailed {
				conditions[model.AlertTaskFailed] = condition{
					severity:  model.SeverityCritical,
					message:   "task failed on connector " + conn.Name,
					metadata:  task.Trace,
					connector: conn.Name,
				}
				break
			}
		}
	}
	return conditions, false
}

func isNotFound(err error) bool {
	return errors.Is(err, kafkaconnect.ErrNotFound)
}
