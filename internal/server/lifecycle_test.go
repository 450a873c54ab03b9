package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockService struct {
	started  atomic.Bool
	stopped  atomic.Bool
	startFn  func(ctx context.Context) error
	stopOnce sync.Once
	stop     chan struct{}
	order    *[]string
	name     string
	mu       *sync.Mutex
}

func newMock(name string, order *[]string, mu *sync.Mutex) *mockService {
	return &mockService{name: name, order: order, mu: mu, stop: make(chan struct{})}
}

func (m *mockService) Start(ctx context.Context) error {
	m.started.Store(true)
	if m.startFn != nil {
		return m.startFn(ctx)
	}
	select {
	case <-m.stop:
	case <-ctx.Done():
	}
	return nil
}

func (m *mockService) Stop() {
	m.stopped.Store(true)
	m.stopOnce.Do(func() { close(m.stop) })
	if m.order != nil {
		m.mu.Lock()
		*m.order = append(*m.order, m.name)
		m.mu.Unlock()
	}
}

func waitStarted(t *testing.T, svcs ...*mockService) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		all := true
		for _, s := range svcs {
			all = all && s.started.Load()
		}
		if all {
			return
		}
		select {
		case <-deadline:
			t.Fatal("services did not start in time")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestLifecycleStartsAndStopsServicesInReverseOrder(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	var mu sync.Mutex
	var order []string
	svc1 := newMock("svc1", &order, &mu)
	svc2 := newMock("svc2", &order, &mu)
	lc.Add("svc1", svc1)
	lc.Add("svc2", svc2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	waitStarted(t, svc1, svc2)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}
	assert.True(t, svc1.stopped.Load())
	assert.True(t, svc2.stopped.Load())
	mu.Lock()
	assert.Equal(t, []string{"svc2", "svc1"}, order)
	mu.Unlock()
}

func TestLifecycleStopsWhenServiceFinishes(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	loop := newMock("loop", nil, nil)
	loop.startFn = func(context.Context) error { return nil }
	background := newMock("background", nil, nil)
	lc.Add("background", background)
	lc.Add("loop", loop)

	err := lc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, background.stopped.Load())
}

func TestLifecycleReturnsServiceError(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	boom := errors.New("boom")
	failing := newMock("failing", nil, nil)
	failing.startFn = func(context.Context) error { return boom }
	other := newMock("other", nil, nil)
	lc.Add("other", other)
	lc.Add("failing", failing)

	err := lc.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "service failing")
	assert.True(t, other.stopped.Load())
}

func TestFuncService(t *testing.T) {
	started := false
	stopped := false

	svc := &FuncService{
		StartFn: func(context.Context) error {
			started = true
			return nil
		},
		StopFn: func() {
			stopped = true
		},
	}

	err := svc.Start(context.Background())
	assert.NoError(t, err)
	assert.True(t, started)

	svc.Stop()
	assert.True(t, stopped)

	(&FuncService{StartFn: svc.StartFn}).Stop()
}
