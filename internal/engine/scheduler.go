package engine

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/statusdeck/statusdeck/internal/database"
	"github.com/statusdeck/statusdeck/internal/probe"
)

// controlDelay is how soon a created or updated monitor is probed after
// its control event arrives.
const controlDelay = 5 * time.Second

// MonitorSource supplies the active monitor set for scheduling.
// Satisfied by *database.MonitorStore.
type MonitorSource interface {
	ListActive() ([]database.Monitor, error)
}

// OutcomeSink consumes completed probes. Satisfied by *Engine.
type OutcomeSink interface {
	ProcessOutcome(monitor *database.Monitor, outcome probe.Outcome, checkedAt time.Time) error
}

// monitorState is one monitor's scheduling entry. inflight guards
// against overlapping probes of the same monitor.
type monitorState struct {
	monitor  database.Monitor
	nextDue  time.Time
	inflight atomic.Bool
}

// Scheduler owns the dispatch loop: each cycle it reconciles the
// monitor set against the database, then launches a probe task for
// every due monitor that has none in flight. A global semaphore caps
// concurrent probes; the loop itself never blocks on it.
type Scheduler struct {
	source   MonitorSource
	sink     OutcomeSink
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	states map[string]*monitorState

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewScheduler creates a Scheduler dispatching every interval with at
// most maxConcurrent probes in flight
func NewScheduler(source MonitorSource, sink OutcomeSink, interval time.Duration, maxConcurrent int, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Scheduler{
		source:   source,
		sink:     sink,
		interval: interval,
		logger:   logger,
		states:   make(map[string]*monitorState),
		sem:      make(chan struct{}, maxConcurrent),
	}
}

// Run drives dispatch cycles until the context is canceled, then waits
// for in-flight probe tasks to finish processing.
func (s *Scheduler) Run(ctx context.Context) {
	defer s.wg.Wait()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.reconcile()
	s.dispatchDue()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping, draining in-flight probes")
			return
		case <-ticker.C:
			s.reconcile()
			s.dispatchDue()
		}
	}
}

// OnMonitorChanged refreshes the schedule after a monitor was created
// or updated and probes it shortly after
func (s *Scheduler) OnMonitorChanged(id string) {
	s.reconcile()
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[id]; ok {
		st.nextDue = time.Now().Add(controlDelay)
	}
}

// OnMonitorDeleted drops a monitor from the schedule immediately. An
// in-flight probe for it still completes but is not rescheduled.
func (s *Scheduler) OnMonitorDeleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, id)
}

// reconcile aligns the scheduling entries with the database: new active
// monitors enter due immediately, edited ones carry their changed
// definition into the next probe, vanished ones are dropped. The DB
// read happens outside the lock.
func (s *Scheduler) reconcile() {
	monitors, err := s.source.ListActive()
	if err != nil {
		// Keep probing the last known set
		s.logger.Error("failed to load active monitors", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(monitors))
	for i := range monitors {
		monitor := monitors[i]
		seen[monitor.ID] = true
		if st, ok := s.states[monitor.ID]; ok {
			st.monitor = monitor
			continue
		}
		s.states[monitor.ID] = &monitorState{
			monitor: monitor,
			nextDue: time.Now(),
		}
	}
	for id := range s.states {
		if !seen[id] {
			delete(s.states, id)
		}
	}
}

// dispatchDue launches probe tasks for due monitors in readiness order
func (s *Scheduler) dispatchDue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var due []*monitorState
	for _, st := range s.states {
		if !st.nextDue.After(now) && !st.inflight.Load() {
			due = append(due, st)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].nextDue.Before(due[j].nextDue)
	})

	for _, st := range due {
		if !st.inflight.CompareAndSwap(false, true) {
			continue
		}
		monitor := st.monitor
		s.wg.Add(1)
		go s.runProbe(st, monitor)
	}
}

// runProbe executes one probe task: acquire a slot, probe, hand the
// outcome to the sink, then reschedule. The task owns the whole
// pipeline for its monitor, so verdicts of one monitor are processed in
// probe order.
func (s *Scheduler) runProbe(st *monitorState, monitor database.Monitor) {
	defer s.wg.Done()

	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("probe task panicked",
				zap.String("monitor_id", monitor.ID),
				zap.Any("panic", r))
		}
		s.finish(st, monitor.ID)
	}()

	prober, err := probe.For(probe.Kind(monitor.Type))
	if err != nil {
		s.logger.Warn("skipping monitor with unsupported type",
			zap.String("monitor_id", monitor.ID),
			zap.String("type", string(monitor.Type)))
		return
	}

	checkedAt := time.Now()
	outcome := prober.Probe(context.Background(), probe.Target{
		URL:     monitor.URL,
		Method:  monitor.Method,
		Headers: monitor.Headers.Map(),
		Timeout: monitor.Timeout(),
	})

	if err := s.sink.ProcessOutcome(&monitor, outcome, checkedAt); err != nil {
		s.logger.Error("failed to process probe outcome",
			zap.String("monitor_id", monitor.ID),
			zap.Error(err))
	}
}

// finish reschedules a monitor relative to probe completion and clears
// its in-flight flag. A state replaced or removed during the probe is
// left alone; the stale entry just gets its flag cleared.
func (s *Scheduler) finish(st *monitorState, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.states[id]; ok && cur == st {
		interval := st.monitor.Interval()
		if interval <= 0 {
			interval = time.Minute
		}
		st.nextDue = time.Now().Add(interval)
	}
	st.inflight.Store(false)
}
