// Package sync drains the local outbox against the server of record and
// resolves conflicts on the way.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PNdlovu/writecarenotes-sub002/internal/client/gateway"
	"github.com/PNdlovu/writecarenotes-sub002/internal/client/storage"
	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
	"github.com/PNdlovu/writecarenotes-sub002/internal/resolver"
	"github.com/PNdlovu/writecarenotes-sub002/internal/version"
)

// DefaultLivenessTimeout время, после которого зависшая in_flight мутация возвращается в очередь
const DefaultLivenessTimeout = 2 * time.Minute

// State состояние координатора.
type State string

const (
	StateIdle     State = "idle"
	StateDraining State = "draining"
	StateApplying State = "applying"
)

// Phase шаг обработки текущей мутации.
type Phase string

const (
	PhaseNone       Phase = ""
	PhaseFetching   Phase = "fetching"
	PhaseResolving  Phase = "resolving"
	PhaseSubmitting Phase = "submitting"
)

// Status is a point-in-time view of the coordinator.
type Status struct {
	LastCycleAt time.Time
	State       State
	Phase       Phase
	Online      bool
}

// Store is the part of the local store the coordinator works with.
type Store interface {
	storage.MutationStorage
	storage.SnapshotStorage
	storage.ConflictLog
	storage.MetadataStorage
}

// Flusher persists writes buffered while the store was unavailable.
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// ConflictFunc receives every conflict outcome produced by a cycle.
type ConflictFunc func(outcome models.ConflictOutcome)

// ResultFunc receives the result of every completed cycle.
type ResultFunc func(result SyncCycleResult)

type subscriber struct {
	onConflict ConflictFunc
	onResult   ResultFunc
}

// Config параметры цикла синхронизации.
type Config struct {
	BackoffBase     time.Duration `mapstructure:"backoff_base"`
	BackoffCap      time.Duration `mapstructure:"backoff_cap"`
	LivenessTimeout time.Duration `mapstructure:"liveness_timeout"`
	SkewTolerance   time.Duration `mapstructure:"skew_tolerance"`
}

// DefaultConfig returns the default cycle configuration.
func DefaultConfig() Config {
	return Config{
		BackoffBase:     DefaultBackoffBase,
		BackoffCap:      DefaultBackoffCap,
		LivenessTimeout: DefaultLivenessTimeout,
	}
}

// Option настраивает Coordinator.
type Option func(*Coordinator)

// WithConfig overrides backoff, liveness and skew settings.
func WithConfig(cfg Config) Option {
	return func(c *Coordinator) {
		c.backoff = NewBackoff(cfg.BackoffBase, cfg.BackoffCap)
		if cfg.LivenessTimeout > 0 {
			c.liveness = cfg.LivenessTimeout
		}
		c.comparator = version.NewComparator(cfg.SkewTolerance)
		c.resolver = resolver.New(c.comparator)
	}
}

// WithClock sets the clock used for resolution and snapshot stamps.
func WithClock(clock *version.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithNow sets the wall clock used for scheduling retries.
func WithNow(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithFlusher sets the overflow buffer flushed at the start of every cycle.
func WithFlusher(f Flusher) Option {
	return func(c *Coordinator) { c.flusher = f }
}

// Coordinator drives sync cycles. Only one cycle runs at a time.
type Coordinator struct {
	lastCycleAt time.Time
	store       Store
	gateway     gateway.RemoteGateway
	policies    *resolver.Registry
	resolver    *resolver.Resolver
	clock       *version.Clock
	backoff     *Backoff
	flusher     Flusher
	logger      *slog.Logger
	now         func() time.Time
	subscribers map[int]subscriber
	state       State
	phase       Phase
	comparator  version.Comparator
	liveness    time.Duration
	nextSubID   int
	mu          sync.Mutex
	online      bool
	running     bool
	rerun       bool
}

// NewCoordinator creates a new sync coordinator. It starts offline.
func NewCoordinator(store Store, gw gateway.RemoteGateway, policies *resolver.Registry, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if policies == nil {
		policies = resolver.NewRegistry(resolver.RemoteWins())
	}

	c := &Coordinator{
		store:       store,
		gateway:     gw,
		policies:    policies,
		comparator:  version.NewComparator(0),
		backoff:     NewBackoff(DefaultBackoffBase, DefaultBackoffCap),
		liveness:    DefaultLivenessTimeout,
		logger:      logger,
		now:         time.Now,
		subscribers: make(map[int]subscriber),
		state:       StateIdle,
	}
	c.resolver = resolver.New(c.comparator)
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = version.NewClock()
	}

	return c
}

// Status returns the current state of the coordinator.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		State:       c.state,
		Phase:       c.phase,
		Online:      c.online,
		LastCycleAt: c.lastCycleAt,
	}
}

// SetOnline records the connectivity state reported by the monitor.
func (c *Coordinator) SetOnline(online bool) {
	c.mu.Lock()
	changed := c.online != online
	c.online = online
	c.mu.Unlock()

	if changed {
		c.logger.Info("Connectivity changed", "online", online)
	}
}

// Trigger runs a cycle and logs its error instead of returning it.
func (c *Coordinator) Trigger(ctx context.Context) {
	if _, err := c.RunCycle(ctx); err != nil {
		c.logger.Warn("Sync cycle interrupted", "error", err)
	}
}

// Subscribe registers callbacks for conflicts and cycle results.
// Either callback may be nil. The returned function removes the subscription.
func (c *Coordinator) Subscribe(onConflict ConflictFunc, onResult ResultFunc) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = subscriber{onConflict: onConflict, onResult: onResult}

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// RunCycle drains the outbox once.
// It is a no-op while offline. A call made while a cycle is running returns
// immediately and schedules one more cycle after the current one.
// Only context cancellation is returned as an error; per-mutation failures
// are reported in the result.
func (c *Coordinator) RunCycle(ctx context.Context) (SyncCycleResult, error) {
	c.mu.Lock()
	if !c.online {
		c.mu.Unlock()
		return SyncCycleResult{Skipped: SkipOffline}, nil
	}
	if c.running {
		c.rerun = true
		c.mu.Unlock()
		return SyncCycleResult{Skipped: SkipCoalesced}, nil
	}
	c.running = true
	c.mu.Unlock()

	for {
		result, err := c.runOnce(ctx)

		c.mu.Lock()
		again := err == nil && c.rerun && c.online
		c.rerun = false
		if !again {
			c.running = false
			c.state = StateIdle
			c.phase = PhaseNone
		}
		c.mu.Unlock()

		if !again {
			return result, err
		}
		c.logger.Debug("Running coalesced sync cycle")
	}
}

func (c *Coordinator) runOnce(ctx context.Context) (SyncCycleResult, error) {
	result := SyncCycleResult{StartedAt: c.now()}
	c.setState(StateDraining, PhaseNone)

	c.logger.Info("Starting sync cycle")

	if c.flusher != nil {
		if n, err := c.flusher.Flush(ctx); err != nil {
			c.logger.Warn("Failed to flush overflow buffer", "error", err)
			c.markDegraded(&result, err)
		} else if n > 0 {
			c.logger.Info("Flushed overflow buffer", "count", n)
		}
	}

	recovered, err := c.store.RecoverInFlight(ctx, c.now().Add(-c.liveness))
	if err != nil {
		c.logger.Error("Failed to recover in-flight mutations", "error", err)
		c.markDegraded(&result, err)
		return c.finish(result), nil
	}
	if recovered > 0 {
		c.logger.Warn("Recovered stale in-flight mutations", "count", recovered)
	}

	records, err := c.store.DrainPending(ctx, c.now())
	if err != nil {
		c.logger.Error("Failed to drain pending mutations", "error", err)
		c.markDegraded(&result, err)
		return c.finish(result), nil
	}

	c.logger.Info("Drained pending mutations", "count", len(records))
	if len(records) > 0 {
		c.setState(StateApplying, PhaseNone)
	}

	for i, rec := range records {
		// Отмена проверяется только между мутациями
		if err := ctx.Err(); err != nil {
			c.logger.Warn("Sync cycle cancelled, leaving mutations in flight", "error", err)
			return c.finish(result), err
		}
		err := c.process(ctx, rec, &result)
		if errors.Is(err, gateway.ErrUnauthorized) {
			// Остальные мутации получили бы тот же ответ: возвращаем их в очередь
			c.logger.Warn("Server refused device credentials, mutations stay queued until login",
				"queued", len(records)-i)
			c.release(ctx, records[i:], err, &result)
			result.Unauthorized = true
			return c.finish(result), nil
		}
		if err != nil {
			return c.finish(result), err
		}
	}

	if err := c.store.SaveLastSyncAt(ctx, c.now()); err != nil {
		c.logger.Warn("Failed to save last sync time", "error", err)
		c.markDegraded(&result, err)
	}

	result = c.finish(result)
	c.logger.Info("Sync cycle completed",
		"synced", result.Synced,
		"conflicted", result.Conflicted,
		"failed", result.Failed,
		"retrying", result.Retrying,
		"duration", result.FinishedAt.Sub(result.StartedAt),
	)

	return result, nil
}

// finish stamps the result and delivers it to subscribers.
func (c *Coordinator) finish(result SyncCycleResult) SyncCycleResult {
	result.FinishedAt = c.now()

	c.mu.Lock()
	c.lastCycleAt = result.FinishedAt
	subs := c.snapshotSubscribers()
	c.mu.Unlock()

	for _, s := range subs {
		if s.onResult != nil {
			s.onResult(result)
		}
	}

	return result
}

// process runs one drained mutation through fetch, resolve and apply.
// Returns an error only when ctx was cancelled before the submit or the
// server refused the credentials (gateway.ErrUnauthorized); in both cases the
// record is still in flight.
func (c *Coordinator) process(ctx context.Context, rec *models.MutationRecord, result *SyncCycleResult) error {
	log := c.logger.With("mutation_id", rec.ID, "entity_type", rec.EntityType, "entity_id", rec.EntityID)

	c.setPhase(PhaseFetching)
	remote, err := c.gateway.FetchCurrent(ctx, rec.EntityType, rec.EntityID)
	if errors.Is(err, gateway.ErrNotFound) {
		remote, err = nil, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Warn("Fetch interrupted by cancellation", "error", err)
			return ctxErr
		}
		if errors.Is(err, gateway.ErrUnauthorized) {
			return err
		}
		c.retryLater(ctx, log, rec, fmt.Errorf("failed to fetch current entity: %w", err), result)
		return nil
	}
	if remote != nil {
		c.clock.Observe(remote.UpdatedAt)
	}

	c.setPhase(PhaseResolving)
	policy := c.policies.For(rec.EntityType)
	res := c.resolver.Resolve(rec, remote, policy)

	log.Debug("Mutation resolved", "policy", policy.String(), "resolution", res.Tag, "action", res.Action.String())

	switch res.Action {
	case resolver.ActionApply:
		return c.apply(ctx, log, rec, res, result)
	case resolver.ActionDiscard:
		c.discard(ctx, log, rec, res, result)
	default:
		c.park(ctx, log, rec, res, result)
	}

	return nil
}

// apply submits the resolved payload and updates the local copy.
func (c *Coordinator) apply(ctx context.Context, log *slog.Logger, rec *models.MutationRecord, res resolver.Resolution, result *SyncCycleResult) error {
	c.setPhase(PhaseSubmitting)

	// Отправка не прерывается отменой: сервер мог уже применить изменение
	submitted, err := c.gateway.Submit(context.WithoutCancel(ctx), gateway.SubmitRequest{
		MutationID:      rec.IdempotencyKey(),
		EntityType:      rec.EntityType,
		EntityID:        rec.EntityID,
		Operation:       res.Operation,
		Payload:         res.Payload,
		ExpectedVersion: res.BaseVersion,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return err
		}
		if !gateway.IsRetryable(err) {
			reason, _ := gateway.IsRejected(err)
			c.reject(ctx, log, rec, reason, result)
			return nil
		}
		c.retryLater(ctx, log, rec, fmt.Errorf("failed to submit mutation: %w", err), result)
		return nil
	}

	newBase := submitted.NewVersion
	if res.Operation == models.OperationDelete {
		newBase = 0
	}

	next, err := c.store.MarkSynced(ctx, rec.ID, rec.Revision, newBase)
	if err != nil {
		// Запись останется in_flight и будет отправлена повторно с тем же ключом
		log.Error("Failed to mark mutation synced", "error", err)
		c.markDegraded(result, err)
		return nil
	}

	snapshot := &models.EntitySnapshot{
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Version:    submitted.NewVersion,
		UpdatedAt:  submitted.UpdatedAt,
		Payload:    res.Payload,
		FetchedAt:  c.clock.Now(),
	}
	deleted := res.Operation == models.OperationDelete
	if next != nil {
		// За время отправки появилась новая локальная правка
		snapshot.Payload = next.Payload
		snapshot.Optimistic = true
		deleted = next.Operation == models.OperationDelete
	}
	c.writeSnapshot(ctx, log, snapshot, deleted, result)

	result.Synced++
	log.Info("Mutation synced", "new_version", submitted.NewVersion, "replayed", submitted.Replayed, "resolution", res.Tag)

	if res.Tag.IsConflict() {
		outcome := res.Outcome(rec, c.clock.Now())
		outcome.NewVersion = submitted.NewVersion
		c.logConflict(ctx, log, outcome, result)
	}

	return nil
}

// discard closes a mutation without submitting it.
func (c *Coordinator) discard(ctx context.Context, log *slog.Logger, rec *models.MutationRecord, res resolver.Resolution, result *SyncCycleResult) {
	if res.Tag == models.ResolutionMergeFailed {
		outcome := res.Outcome(rec, c.clock.Now())
		next, err := c.store.MarkConflicted(ctx, rec.ID, rec.Revision, outcome)
		if err != nil {
			log.Error("Failed to mark mutation conflicted", "error", err)
			c.markDegraded(result, err)
			return
		}
		if next.Status == models.StatusConflicted {
			c.writeRemote(ctx, log, res.Remote, rec, result)
			c.recordConflict(log, outcome, result)
			result.Conflicted++
		} else {
			result.Retrying++
		}
		log.Warn("Field merge failed, mutation needs attention", "reason", res.Reason)
		return
	}

	// already_applied и remote_won: на сервер ничего не уходит.
	// После remote_won новая правка остается на старой базе и снова пройдет разрешение.
	newBase := rec.BaseVersion
	if res.Tag == models.ResolutionAlreadyApplied {
		newBase = res.BaseVersion
	}
	next, err := c.store.MarkSynced(ctx, rec.ID, rec.Revision, newBase)
	if err != nil {
		log.Error("Failed to close discarded mutation", "error", err)
		c.markDegraded(result, err)
		return
	}
	if next == nil {
		c.writeRemote(ctx, log, res.Remote, rec, result)
	}
	result.Synced++

	if res.Tag == models.ResolutionAlreadyApplied {
		log.Info("Mutation already applied on server")
		return
	}

	log.Info("Local change discarded in favour of server", "resolution", res.Tag)
	c.logConflict(ctx, log, res.Outcome(rec, c.clock.Now()), result)
}

// park leaves a mutation for a human decision. The queue keeps moving.
func (c *Coordinator) park(ctx context.Context, log *slog.Logger, rec *models.MutationRecord, res resolver.Resolution, result *SyncCycleResult) {
	outcome := res.Outcome(rec, c.clock.Now())

	next, err := c.store.MarkConflicted(ctx, rec.ID, rec.Revision, outcome)
	if err != nil {
		log.Error("Failed to mark mutation conflicted", "error", err)
		c.markDegraded(result, err)
		return
	}
	if next.Status != models.StatusConflicted {
		// Пока шло разрешение, пользователь изменил запись
		result.Retrying++
		return
	}

	result.Conflicted++
	log.Warn("Mutation requires manual merge", "remote_version", outcome.RemoteVersion)
	c.recordConflict(log, outcome, result)
}

func (c *Coordinator) retryLater(ctx context.Context, log *slog.Logger, rec *models.MutationRecord, cause error, result *SyncCycleResult) {
	delay := c.backoff.Delay(rec.Attempts + 1)

	next, err := c.store.MarkFailed(ctx, rec.ID, rec.Revision, cause.Error(), c.now().Add(delay))
	if err != nil {
		log.Error("Failed to record mutation failure", "error", err, "cause", cause)
		c.markDegraded(result, err)
		return
	}

	if next.Status == models.StatusFailed {
		log.Error("Mutation failed permanently", "attempts", next.Attempts, "error", cause)
		result.Failed++
		result.Failures = append(result.Failures, FailedMutation{
			MutationID: rec.ID,
			EntityType: rec.EntityType,
			EntityID:   rec.EntityID,
			Reason:     cause.Error(),
		})
		return
	}

	log.Warn("Mutation will be retried", "attempts", next.Attempts, "retry_in", delay, "error", cause)
	result.Retrying++
}

// release returns drained records to pending without counting an attempt.
func (c *Coordinator) release(ctx context.Context, records []*models.MutationRecord, cause error, result *SyncCycleResult) {
	for _, rec := range records {
		if _, err := c.store.Release(ctx, rec.ID, rec.Revision, cause.Error()); err != nil {
			// Запись останется in_flight и вернется в очередь проверкой живости
			c.logger.Error("Failed to release mutation", "mutation_id", rec.ID, "error", err)
			c.markDegraded(result, err)
			continue
		}
		result.Retrying++
	}
}

func (c *Coordinator) reject(ctx context.Context, log *slog.Logger, rec *models.MutationRecord, reason string, result *SyncCycleResult) {
	next, err := c.store.MarkRejected(ctx, rec.ID, rec.Revision, reason)
	if err != nil {
		log.Error("Failed to mark mutation rejected", "error", err)
		c.markDegraded(result, err)
		return
	}
	if next.Status != models.StatusFailed {
		result.Retrying++
		return
	}

	log.Error("Mutation rejected by server", "reason", reason)
	result.Failed++
	result.Failures = append(result.Failures, FailedMutation{
		MutationID: rec.ID,
		EntityType: rec.EntityType,
		EntityID:   rec.EntityID,
		Reason:     reason,
	})
}

// logConflict keeps an automatically resolved conflict in the conflict log.
func (c *Coordinator) logConflict(ctx context.Context, log *slog.Logger, outcome *models.ConflictOutcome, result *SyncCycleResult) {
	if err := c.store.AppendConflict(ctx, outcome); err != nil {
		log.Error("Failed to append conflict", "error", err)
		c.markDegraded(result, err)
	}
	c.recordConflict(log, outcome, result)
}

func (c *Coordinator) recordConflict(log *slog.Logger, outcome *models.ConflictOutcome, result *SyncCycleResult) {
	result.Conflicts = append(result.Conflicts, *outcome.Clone())

	c.mu.Lock()
	subs := c.snapshotSubscribers()
	c.mu.Unlock()

	for _, s := range subs {
		if s.onConflict != nil {
			s.onConflict(*outcome.Clone())
		}
	}
	log.Debug("Conflict reported", "resolution", outcome.Resolution)
}

// writeRemote replaces the cached copy with the server state.
func (c *Coordinator) writeRemote(ctx context.Context, log *slog.Logger, remote *models.EntitySnapshot, rec *models.MutationRecord, result *SyncCycleResult) {
	if remote == nil {
		c.writeSnapshot(ctx, log, &models.EntitySnapshot{EntityType: rec.EntityType, EntityID: rec.EntityID}, true, result)
		return
	}

	snapshot := remote.Clone()
	snapshot.FetchedAt = c.clock.Now()
	snapshot.Optimistic = false
	c.writeSnapshot(ctx, log, snapshot, false, result)
}

func (c *Coordinator) writeSnapshot(ctx context.Context, log *slog.Logger, snapshot *models.EntitySnapshot, deleted bool, result *SyncCycleResult) {
	var err error
	if deleted {
		err = c.store.DeleteSnapshot(ctx, snapshot.EntityType, snapshot.EntityID)
	} else {
		err = c.store.PutSnapshot(ctx, snapshot)
	}
	if err != nil {
		log.Error("Failed to update cached snapshot", "error", err)
		c.markDegraded(result, err)
	}
}

// Refresh reads an entity from the server and caches it when it is fresher
// than the local copy and no local change for it is waiting to be sent.
// Returns the copy the caller should display.
func (c *Coordinator) Refresh(ctx context.Context, entityType, entityID string) (*models.EntitySnapshot, error) {
	if !c.Status().Online {
		return nil, gateway.ErrNetworkUnavailable
	}

	remote, err := c.gateway.FetchCurrent(ctx, entityType, entityID)
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return nil, fmt.Errorf("failed to fetch %s/%s: %w", entityType, entityID, err)
	}

	// Неотправленная локальная правка важнее свежей копии сервера
	if _, liveErr := c.store.FindLive(ctx, entityType, entityID); liveErr == nil {
		return c.store.GetSnapshot(ctx, entityType, entityID)
	} else if !errors.Is(liveErr, storage.ErrMutationNotFound) {
		return nil, fmt.Errorf("failed to check pending mutations: %w", liveErr)
	}

	if remote == nil {
		if err := c.store.DeleteSnapshot(ctx, entityType, entityID); err != nil {
			return nil, fmt.Errorf("failed to evict snapshot: %w", err)
		}
		return nil, storage.ErrSnapshotNotFound
	}
	c.clock.Observe(remote.UpdatedAt)

	cached, err := c.store.GetSnapshot(ctx, entityType, entityID)
	switch {
	case err == nil:
		if ord := c.comparator.Compare(remote.Stamp(), cached.Stamp()); ord == version.Before || ord == version.Equal {
			return cached, nil
		}
	case !errors.Is(err, storage.ErrSnapshotNotFound):
		return nil, fmt.Errorf("failed to read cached snapshot: %w", err)
	}

	fresh := remote.Clone()
	fresh.FetchedAt = c.clock.Now()
	fresh.Optimistic = false
	if err := c.store.PutSnapshot(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to cache snapshot: %w", err)
	}

	return fresh, nil
}

func (c *Coordinator) markDegraded(result *SyncCycleResult, err error) {
	if errors.Is(err, storage.ErrStorageUnavailable) {
		result.StorageDegraded = true
	}
}

func (c *Coordinator) setState(state State, phase Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.phase = phase
}

func (c *Coordinator) setPhase(phase Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = phase
}

// snapshotSubscribers копирует подписчиков, вызывать под c.mu.
func (c *Coordinator) snapshotSubscribers() []subscriber {
	subs := make([]subscriber, 0, len(c.subscribers))
	for _, s := range c.subscribers {
		subs = append(subs, s)
	}
	return subs
}
