package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakePoller struct {
	mu      sync.Mutex
	tracked []string
	cycles  int32
	onIdle  func()
}

func (f *fakePoller) PollAll(ctx context.Context) map[string]error {
	atomic.AddInt32(&f.cycles, 1)
	return nil
}

func (f *fakePoller) Tracked() []string {
	f.mu.Lock()
	ids := append([]string(nil), f.tracked...)
	hook := f.onIdle
	f.mu.Unlock()

	if len(ids) == 0 && hook != nil {
		hook()
	}
	return ids
}

func (f *fakePoller) setTracked(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked = ids
}

func TestPollScheduler_PollsImmediatelyAndOnInterval(t *testing.T) {
	poller := &fakePoller{tracked: []string{"a"}}
	s := NewPollScheduler(poller, 5*time.Millisecond, true, nil)

	require.True(t, s.Ensure(context.Background()))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&poller.cycles) >= 3 }, time.Second, time.Millisecond)

	s.Stop()
	assert.False(t, s.Running())

	after := atomic.LoadInt32(&poller.cycles)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&poller.cycles), "no polls after Stop")
}

func TestPollScheduler_DoesNotStartWithoutMappings(t *testing.T) {
	s := NewPollScheduler(&fakePoller{}, time.Millisecond, true, nil)

	assert.False(t, s.Ensure(context.Background()))
	assert.False(t, s.Running())
}

func TestPollScheduler_StopsWhenMappingsRemoved(t *testing.T) {
	poller := &fakePoller{tracked: []string{"a"}}
	s := NewPollScheduler(poller, 5*time.Millisecond, true, nil)
	require.True(t, s.Ensure(context.Background()))

	poller.setTracked()

	assert.Eventually(t, func() bool { return !s.Running() }, time.Second, time.Millisecond)
}

func TestPollScheduler_AutoRefreshToggle(t *testing.T) {
	poller := &fakePoller{tracked: []string{"a"}}
	s := NewPollScheduler(poller, time.Hour, false, nil)

	assert.False(t, s.Ensure(context.Background()))

	assert.True(t, s.SetAutoRefresh(context.Background(), true))
	assert.True(t, s.Status().AutoRefresh)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&poller.cycles) == 1 }, time.Second, time.Millisecond)

	assert.False(t, s.SetAutoRefresh(context.Background(), false))
	assert.False(t, s.Running())
	assert.False(t, s.Ensure(context.Background()))
}

func TestPollScheduler_EnsureIsIdempotent(t *testing.T) {
	poller := &fakePoller{tracked: []string{"a"}}
	s := NewPollScheduler(poller, time.Hour, true, nil)
	defer s.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, s.Ensure(context.Background()))
	}
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&poller.cycles) == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&poller.cycles))
}

func TestPollScheduler_ParentCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewPollScheduler(&fakePoller{tracked: []string{"a"}}, time.Hour, true, nil)
	require.True(t, s.Ensure(ctx))

	cancel()

	assert.Eventually(t, func() bool { return !s.Running() }, time.Second, time.Millisecond)
	s.Stop()
}

func TestPollScheduler_TrackDuringIdleStopRestartsLoop(t *testing.T) {
	poller := &fakePoller{tracked: []string{"a"}}
	s := NewPollScheduler(poller, 5*time.Millisecond, true, nil)
	require.True(t, s.Ensure(context.Background()))
	t.Cleanup(s.Stop)

	ensured := make(chan bool, 1)
	var once sync.Once
	poller.mu.Lock()
	poller.onIdle = func() {
		once.Do(func() {
			// Lands while the loop is deciding to go idle.
			go func() {
				poller.setTracked("b")
				ensured <- s.Ensure(context.Background())
			}()
		})
	}
	poller.mu.Unlock()

	poller.setTracked()

	select {
	case ok := <-ensured:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Ensure never ran")
	}

	before := atomic.LoadInt32(&poller.cycles)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&poller.cycles) >= before+2 }, time.Second, time.Millisecond)
	assert.True(t, s.Running())
}
