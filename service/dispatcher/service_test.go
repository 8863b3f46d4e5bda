package dispatcher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/markov/model/mdp"
	"github.com/viant/markov/model/task"
	"github.com/viant/markov/progress"
	"github.com/viant/markov/service/messaging"
	"github.com/viant/markov/service/messaging/memory"
)

func TestLeastLoaded(t *testing.T) {
	testCases := []struct {
		name   string
		loads  []int
		expect int
	}{
		{name: "distinct", loads: []int{3, 1, 5}, expect: 1},
		{name: "tie goes to first", loads: []int{2, 0, 0}, expect: 1},
		{name: "all equal", loads: []int{4, 4, 4}, expect: 0},
		{name: "single", loads: []int{7}, expect: 0},
		{name: "empty", loads: nil, expect: -1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, LeastLoaded(tc.loads))
		})
	}
}

type fixture struct {
	system    *mdp.System
	normal    *memory.Queue[task.Task]
	immediate *memory.Queue[task.Task]
	workers   []*memory.Queue[task.Task]
	tracker   *progress.Progress
	service   *Service
}

func newFixture(t *testing.T, model mdp.Model, workerLoads []int, options ...Option) *fixture {
	ctx := context.Background()
	f := &fixture{
		system:    mdp.New(model).Init(0.9),
		normal:    memory.NewQueue[task.Task](memory.Config{DeadLetter: true}),
		immediate: memory.NewQueue[task.Task](memory.Config{DeadLetter: true}),
		tracker:   progress.New(),
	}
	var queues []messaging.Queue[task.Task]
	for _, load := range workerLoads {
		q := memory.NewQueue[task.Task](memory.Config{})
		for i := 0; i < load; i++ {
			require.NoError(t, q.Publish(ctx, task.New("preload", nil)))
		}
		f.workers = append(f.workers, q)
		queues = append(queues, q)
	}
	options = append([]Option{WithTracker(f.tracker)}, options...)
	var err error
	f.service, err = New(f.system, f.normal, f.immediate, queues, options...)
	require.NoError(t, err)
	return f
}

func (f *fixture) loads() []int {
	result := make([]int, len(f.workers))
	for i, q := range f.workers {
		result[i] = q.Size()
	}
	return result
}

func TestService_RoutesToLeastLoaded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mdp.DefaultModel(), []int{3, 1, 5})
	aTask := task.New("job", nil)
	require.NoError(t, f.service.Submit(ctx, aTask))

	assert.True(t, f.service.dispatchOnce(ctx))
	assert.Equal(t, []int{3, 2, 5}, f.loads())
	assert.Equal(t, mdp.DoQueue, f.system.State())

	var last *task.Task
	for i := 0; i < 2; i++ {
		msg, ok := f.workers[1].TryConsume()
		require.True(t, ok)
		last = msg.T()
	}
	assert.Same(t, aTask, last)
	counters := f.tracker.Snapshot()
	assert.Equal(t, 1, counters.SubmittedTasks)
	assert.Equal(t, 1, counters.RoutedTasks)
}

func TestService_Fallback(t *testing.T) {
	testCases := []struct {
		name        string
		fallback    bool
		expectRoute bool
		expectState mdp.State
	}{
		{name: "fallback serves normal queue", fallback: true, expectRoute: true, expectState: mdp.DoQueue},
		{name: "no fallback waits for immediate", fallback: false, expectRoute: false, expectState: mdp.DoQueue},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, mdp.DefaultModel(), []int{0}, WithConfig(Config{PollInterval: time.Millisecond, Fallback: tc.fallback}))
			f.system.SetState(mdp.DoQueue)
			require.Equal(t, mdp.DoImmediate, f.system.Decide(mdp.ExtState{}).State())
			require.NoError(t, f.service.Submit(ctx, task.New("job", nil)))

			assert.Equal(t, tc.expectRoute, f.service.dispatchOnce(ctx))
			assert.Equal(t, tc.expectState, f.system.State())
			if tc.expectRoute {
				assert.Equal(t, []int{1}, f.loads())
				assert.Equal(t, 0, f.normal.Size())
			} else {
				assert.Equal(t, []int{0}, f.loads())
				assert.Equal(t, 1, f.normal.Size())
			}
		})
	}
}

func TestService_ImmediateQueue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mdp.DefaultModel(), []int{0, 0})
	f.system.SetState(mdp.DoQueue)
	urgent := task.New("urgent", nil)
	require.NoError(t, f.service.Submit(ctx, task.New("job", nil)))
	require.NoError(t, f.service.SubmitImmediate(ctx, urgent))

	assert.True(t, f.service.dispatchOnce(ctx))
	assert.Equal(t, mdp.DoImmediate, f.system.State())
	msg, ok := f.workers[0].TryConsume()
	require.True(t, ok)
	assert.Same(t, urgent, msg.T())
	assert.Equal(t, 1, f.normal.Size())
}

func TestService_IdleTransition(t *testing.T) {
	ctx := context.Background()
	model := mdp.Model{
		Transitions: mdp.Matrix{{0, 0.5, 0.5}, {0.5, 0, 0.5}, {0.5, 0.5, 0}},
		Rewards:     mdp.Vector{1, 1, 1},
	}
	f := newFixture(t, model, []int{0})
	f.system.SetState(mdp.DoQueue)
	require.NoError(t, f.service.Submit(ctx, task.New("job", nil)))

	assert.True(t, f.service.dispatchOnce(ctx), "pending work keeps the loop busy")
	assert.Equal(t, mdp.Idle, f.system.State())
	assert.Equal(t, 1, f.normal.Size())

	assert.True(t, f.service.dispatchOnce(ctx))
	assert.Equal(t, mdp.DoQueue, f.system.State())
	assert.Equal(t, []int{1}, f.loads())

	f.system.SetState(mdp.DoQueue)
	assert.False(t, f.service.dispatchOnce(ctx), "idle without work parks the loop")
}

func TestService_RouteFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, mdp.DefaultModel(), []int{0})
	f.workers[0].Close()
	aTask := task.New("job", nil)
	require.NoError(t, f.service.Submit(ctx, aTask))

	assert.True(t, f.service.dispatchOnce(ctx))
	assert.Equal(t, 0, f.normal.Size())
	assert.Equal(t, []*task.Task{aTask}, f.normal.DeadLetters())
	counters := f.tracker.Snapshot()
	assert.Equal(t, 0, counters.RoutedTasks)
	assert.Equal(t, 1, counters.FailedTasks)
}

func TestService_Launch(t *testing.T) {
	f := newFixture(t, mdp.DefaultModel(), []int{0, 0, 0}, WithConfig(Config{PollInterval: time.Millisecond, Fallback: true}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.service.Launch(ctx) }()

	for i := 0; i < 10; i++ {
		require.NoError(t, f.service.Submit(ctx, task.New("normal", nil)))
		require.NoError(t, f.service.SubmitImmediate(ctx, task.New("immediate", nil)))
	}

	assert.Eventually(t, func() bool {
		total := 0
		for _, load := range f.loads() {
			total += load
		}
		return total == 20
	}, time.Second, time.Millisecond)

	// round robin emerges from least loaded selection with idle workers
	loads := f.loads()
	for _, load := range loads {
		assert.InDelta(t, 20/3, load, 1)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("launch did not return after cancel")
	}
}

func TestService_LaunchFatal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	system := mdp.New(mdp.DefaultModel(), mdp.WithWeigher(func(ext mdp.ExtState, candidate mdp.State, score float64) float64 {
		panic("corrupted policy")
	}))
	normal := memory.NewQueue[task.Task](memory.Config{})
	immediate := memory.NewQueue[task.Task](memory.Config{})
	srv, err := New(system, normal, immediate, []messaging.Queue[task.Task]{memory.NewQueue[task.Task](memory.Config{})})
	require.NoError(t, err)

	err = srv.Launch(ctx)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "corrupted policy"))
}

func TestNew_Validation(t *testing.T) {
	system := mdp.New(mdp.DefaultModel())
	q := memory.NewQueue[task.Task](memory.Config{})
	workers := []messaging.Queue[task.Task]{q}

	_, err := New(nil, q, q, workers)
	assert.Error(t, err)
	_, err = New(system, nil, q, workers)
	assert.Error(t, err)
	_, err = New(system, q, q, nil)
	assert.Error(t, err)
}
