package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSyncer(triggered chan<- struct{}) *SyncerMock {
	return &SyncerMock{
		SetOnlineFunc: func(bool) {},
		TriggerFunc: func(context.Context) {
			if triggered != nil {
				triggered <- struct{}{}
			}
		},
	}
}

func waitTriggered(t *testing.T, triggered <-chan struct{}) {
	t.Helper()
	select {
	case <-triggered:
	case <-time.After(time.Second):
		t.Fatal("sync was not triggered")
	}
}

func TestReport_Transitions(t *testing.T) {
	triggered := make(chan struct{}, 4)
	syncer := newSyncer(triggered)
	m := NewMonitor(syncer, nil, nil)
	defer m.Stop()

	var events []Event
	m.Subscribe(func(e Event) { events = append(events, e) })

	assert.True(t, m.Report(false))
	assert.False(t, m.Report(false), "same state is not a transition")
	assert.True(t, m.Report(true))
	waitTriggered(t, triggered)
	assert.False(t, m.Report(true))

	require.Len(t, events, 2)
	assert.False(t, events[0].Online)
	assert.True(t, events[1].Online)

	calls := syncer.SetOnlineCalls()
	require.Len(t, calls, 2)
	assert.False(t, calls[0].Online)
	assert.True(t, calls[1].Online)
	assert.True(t, m.Online())
}

func TestReport_ConcurrentKeepsOrder(t *testing.T) {
	syncer := newSyncer(nil)
	m := NewMonitor(syncer, nil, nil)

	var events []Event
	m.Subscribe(func(e Event) { events = append(events, e) })

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(online bool) {
			defer wg.Done()
			m.Report(online)
		}(i%2 == 0)
	}
	wg.Wait()
	m.Stop()

	calls := syncer.SetOnlineCalls()
	require.NotEmpty(t, calls)
	require.Len(t, events, len(calls))

	// Каждый вызов SetOnline - переход: значения чередуются
	for i := 1; i < len(calls); i++ {
		assert.NotEqual(t, calls[i-1].Online, calls[i].Online, "call %d", i)
	}
	for i, call := range calls {
		assert.Equal(t, call.Online, events[i].Online, "event %d", i)
	}
	assert.Equal(t, m.Online(), calls[len(calls)-1].Online)
}

func TestReport_OfflineDoesNotTrigger(t *testing.T) {
	syncer := newSyncer(nil)
	m := NewMonitor(syncer, nil, nil)

	m.Report(false)
	m.Stop()

	assert.Empty(t, syncer.TriggerCalls())
}

func TestCheck(t *testing.T) {
	triggered := make(chan struct{}, 4)
	syncer := newSyncer(triggered)

	var fail atomic.Bool
	prober := &ProberMock{
		PingFunc: func(ctx context.Context) error {
			_, hasDeadline := ctx.Deadline()
			require.True(t, hasDeadline)
			if fail.Load() {
				return errors.New("connection refused")
			}
			return nil
		},
	}

	m := NewMonitor(syncer, prober, nil, WithProbeTimeout(time.Second))
	defer m.Stop()

	assert.True(t, m.Check(context.Background()))
	waitTriggered(t, triggered)

	fail.Store(true)
	assert.False(t, m.Check(context.Background()))
	assert.False(t, m.Online())
	assert.Len(t, prober.PingCalls(), 2)
}

func TestTick_TriggersWhileOnline(t *testing.T) {
	triggered := make(chan struct{}, 4)
	syncer := newSyncer(triggered)
	prober := &ProberMock{PingFunc: func(context.Context) error { return nil }}

	m := NewMonitor(syncer, prober, nil)
	defer m.Stop()

	// Первый тик - переход в online
	m.tick()
	waitTriggered(t, triggered)

	// Следующий тик без перехода тоже запускает цикл
	m.tick()
	waitTriggered(t, triggered)

	assert.Len(t, syncer.TriggerCalls(), 2)
}

func TestStartStop(t *testing.T) {
	triggered := make(chan struct{}, 4)
	syncer := newSyncer(triggered)
	prober := &ProberMock{PingFunc: func(context.Context) error { return nil }}

	m := NewMonitor(syncer, prober, nil, WithInterval(time.Hour))

	require.NoError(t, m.Start())
	assert.ErrorIs(t, m.Start(), ErrAlreadyStarted)
	waitTriggered(t, triggered)

	m.Stop()

	// После остановки переходы не запускают циклы
	m.Report(false)
	m.Report(true)
	assert.Len(t, syncer.TriggerCalls(), 1)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	m := NewMonitor(newSyncer(make(chan struct{}, 4)), nil, nil)
	defer m.Stop()

	count := 0
	unsubscribe := m.Subscribe(func(Event) { count++ })

	m.Report(true)
	unsubscribe()
	m.Report(false)

	assert.Equal(t, 1, count)
}
