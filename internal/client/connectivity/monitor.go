// Package connectivity is the single source of the device's online state.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Значения по умолчанию
const (
	DefaultInterval     = 5 * time.Minute
	DefaultProbeTimeout = 10 * time.Second
)

// ErrAlreadyStarted возвращается при повторном запуске монитора
var ErrAlreadyStarted = errors.New("connectivity monitor already started")

//go:generate moq -out mocks_test.go . Syncer Prober

// Syncer is the coordinator as seen by the monitor.
type Syncer interface {
	SetOnline(online bool)
	Trigger(ctx context.Context)
}

// Prober checks whether the server of record is reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

// Event переход между состояниями сети.
type Event struct {
	At     time.Time
	Online bool
}

// Option настраивает Monitor.
type Option func(*Monitor)

// WithInterval sets the periodic sync interval.
func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithProbeTimeout limits a single reachability probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.probeTimeout = d
		}
	}
}

// Monitor tracks connectivity and triggers sync cycles.
// Transitions to online trigger a cycle immediately; a cron job probes and
// triggers periodically regardless of transitions.
type Monitor struct {
	ctx          context.Context
	syncer       Syncer
	prober       Prober
	logger       *slog.Logger
	cron         *cron.Cron
	cancel       context.CancelFunc
	subscribers  map[int]func(Event)
	interval     time.Duration
	probeTimeout time.Duration
	nextSubID    int
	wg           sync.WaitGroup
	reportMu     sync.Mutex // упорядочивает Report целиком, вместе с SetOnline и подписчиками
	mu           sync.Mutex
	online       bool
	known        bool // состояние уже сообщалось хотя бы раз
	started      bool
}

// NewMonitor creates a connectivity monitor. prober may be nil when only
// platform callbacks (Report) are used.
func NewMonitor(syncer Syncer, prober Prober, logger *slog.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		ctx:          ctx,
		cancel:       cancel,
		syncer:       syncer,
		prober:       prober,
		logger:       logger,
		interval:     DefaultInterval,
		probeTimeout: DefaultProbeTimeout,
		subscribers:  make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(m)
	}

	cl := cronLogger{logger: logger}
	m.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return m
}

// Online reports the last known state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a transition listener and returns its remover.
func (m *Monitor) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Report records a connectivity observation from the platform.
// It returns true when the observation was a transition. Concurrent reports
// reach the syncer and subscribers in the order their state was recorded;
// subscribers must not call Report themselves.
func (m *Monitor) Report(online bool) bool {
	m.reportMu.Lock()
	defer m.reportMu.Unlock()

	m.mu.Lock()
	if m.known && m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online
	m.known = true
	subs := make([]func(Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	m.logger.Info("Connectivity transition", "online", online)
	m.syncer.SetOnline(online)

	event := Event{At: time.Now(), Online: online}
	for _, fn := range subs {
		fn(event)
	}

	if online {
		m.trigger()
	}

	return true
}

// Check probes the server and reports the result.
func (m *Monitor) Check(ctx context.Context) bool {
	if m.prober == nil {
		return m.Online()
	}

	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	err := m.prober.Ping(probeCtx)
	if err != nil {
		m.logger.Debug("Connectivity probe failed", "error", err)
	}

	m.Report(err == nil)
	return err == nil
}

// Start schedules the periodic probe and runs the first one.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	spec := "@every " + m.interval.String()
	if _, err := m.cron.AddFunc(spec, m.tick); err != nil {
		return fmt.Errorf("failed to schedule periodic sync: %w", err)
	}

	m.logger.Info("Starting connectivity monitor", "interval", m.interval)
	m.cron.Start()
	m.Check(m.ctx)

	return nil
}

// Stop stops the schedule and waits for triggered cycles to return.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()

	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Info("Stopped connectivity monitor")
}

// tick периодическая проверка: синхронизация даже без смены состояния
func (m *Monitor) tick() {
	m.mu.Lock()
	wasOnline := m.known && m.online
	m.mu.Unlock()

	if !m.Check(m.ctx) {
		return
	}
	// Переход в online уже запустил цикл
	if wasOnline {
		m.trigger()
	}
}

func (m *Monitor) trigger() {
	m.mu.Lock()
	defer m.mu.Unlock()

	// После Stop новые циклы не запускаются
	if m.ctx.Err() != nil {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.syncer.Trigger(m.ctx)
	}()
}

// cronLogger адаптирует slog к интерфейсу логгера cron
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
