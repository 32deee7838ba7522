package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingSyncer struct {
	mu     sync.Mutex
	calls  int
	limits []int
	err    error
}

func (c *countingSyncer) SyncPending(_ context.Context, limit int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.limits = append(c.limits, limit)
	return 1, c.err
}

func (c *countingSyncer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.PollInterval != 10*time.Second {
		t.Errorf("expected PollInterval 10s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}
}

func TestNewSyncProcessor_FillsDefaults(t *testing.T) {
	processor := NewSyncProcessor(&countingSyncer{}, SyncProcessorConfig{}, nil)

	if processor.config.PollInterval != 10*time.Second {
		t.Errorf("expected default PollInterval, got %v", processor.config.PollInterval)
	}
	if processor.config.BatchSize != 10 {
		t.Errorf("expected default BatchSize, got %d", processor.config.BatchSize)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_PollsUntilStopped(t *testing.T) {
	syncer := &countingSyncer{}
	processor := NewSyncProcessor(syncer, SyncProcessorConfig{PollInterval: 10 * time.Millisecond, BatchSize: 3}, nil)

	ctx := context.Background()
	if err := processor.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}

	deadline := time.Now().Add(time.Second)
	for syncer.Calls() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if syncer.Calls() < 3 {
		t.Fatalf("expected at least 3 polls, got %d", syncer.Calls())
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after Stop")
	}

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	for _, l := range syncer.limits {
		if l != 3 {
			t.Errorf("expected batch limit 3, got %d", l)
		}
	}
}

func TestSyncProcessor_SurvivesSyncErrors(t *testing.T) {
	syncer := &countingSyncer{err: errors.New("sheets unavailable")}
	processor := NewSyncProcessor(syncer, SyncProcessorConfig{PollInterval: 5 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := processor.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for syncer.Calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if syncer.Calls() < 2 {
		t.Fatalf("loop stopped after a sync error, calls=%d", syncer.Calls())
	}

	cancel()
	if err := processor.Stop(context.Background()); err != nil {
		t.Fatalf("Stop after cancel: %v", err)
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(&countingSyncer{}, DefaultSyncProcessorConfig(), nil)

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop on idle processor returned %v", err)
	}
}
