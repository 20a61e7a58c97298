package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
}

func TestInMemory_DispatchesByType(t *testing.T) {
	bus := syncBus()

	var refreshed, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventScheduleRefreshed, func(e shared.Event) error {
		refreshed = append(refreshed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewScheduleRefreshedEvent("fp", "csv", "generated", 136, 0)))
	require.NoError(t, bus.Publish(shared.NewRosterFellBackEvent("fp", "synthetic")))

	assert.Equal(t, []shared.EventType{shared.EventScheduleRefreshed}, refreshed)
	assert.Equal(t, []shared.EventType{shared.EventScheduleRefreshed, shared.EventRosterFellBack}, all)

	m := bus.Metrics().Snapshot()
	assert.Equal(t, int64(2), m.TotalPublished)
	assert.Equal(t, int64(3), m.HandlerExecutions)
	assert.Zero(t, m.HandlerFailures)
}

func TestInMemory_HandlerFailuresAreContained(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return errors.New("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("bad handler") }))

	ran := false
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { ran = true; return nil }))

	require.NoError(t, bus.Publish(shared.NewConflictsDetectedEvent("fp", 2)))
	assert.True(t, ran)
	assert.Equal(t, int64(2), bus.Metrics().Snapshot().HandlerFailures)
}

func TestInMemory_RejectsNil(t *testing.T) {
	bus := syncBus()
	assert.ErrorIs(t, bus.Subscribe(shared.EventScheduleRefreshed, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.SubscribeAll(nil), ErrNilHandler)
	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
}

func TestInMemory_AsyncAndClose(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())

	var wg sync.WaitGroup
	wg.Add(3)
	var mu sync.Mutex
	seen := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		defer wg.Done()
		mu.Lock()
		seen++
		mu.Unlock()
		return nil
	}))

	for range 3 {
		require.NoError(t, bus.Publish(shared.NewScheduleRefreshedEvent("fp", "csv", "generated", 136, 0)))
	}
	wg.Wait()
	assert.Equal(t, 3, seen)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(shared.NewRosterFellBackEvent("fp", "synthetic")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

// ─────────────────────────────────────────────────────────────────────────────
// Redis bus
// ─────────────────────────────────────────────────────────────────────────────

type fakeRedis struct {
	mu        sync.Mutex
	published []string
	messages  chan RedisMessage
	pubErr    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{messages: make(chan RedisMessage, 8)}
}

func (f *fakeRedis) Publish(_ context.Context, _ string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, message)
	return f.pubErr
}

func (f *fakeRedis) Subscribe(context.Context, string) (<-chan RedisMessage, error) {
	return f.messages, nil
}

func (f *fakeRedis) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}

func TestRedisBus_PublishesEnvelopeAndDeliversLocally(t *testing.T) {
	client := newFakeRedis()
	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Client:     client,
		InstanceID: "worker-1",
		Local:      InMemoryEventBusConfig{AsyncMode: false},
	})
	require.NoError(t, err)
	defer bus.Close()

	var local []shared.Event
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		local = append(local, e)
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewConflictsDetectedEvent("fp-1", 3)))

	require.Len(t, local, 1)
	sent := client.sent()
	require.Len(t, sent, 1)

	var env EventEnvelope
	require.NoError(t, json.Unmarshal([]byte(sent[0]), &env))
	assert.Equal(t, "worker-1", env.InstanceID)
	assert.Equal(t, shared.EventConflictsDetected, env.Type)
	assert.Equal(t, "fp-1", env.AggregateID())
	assert.EqualValues(t, 3, env.Payload()["count"])
	assert.NotEmpty(t, env.ID)
}

func TestRedisBus_RedisFailureStillDeliversLocally(t *testing.T) {
	client := newFakeRedis()
	client.pubErr = errors.New("connection refused")
	bus, err := NewRedisEventBus(RedisEventBusConfig{Client: client, Local: InMemoryEventBusConfig{AsyncMode: false}})
	require.NoError(t, err)
	defer bus.Close()

	delivered := false
	require.NoError(t, bus.Subscribe(shared.EventRosterFellBack, func(shared.Event) error {
		delivered = true
		return nil
	}))
	require.NoError(t, bus.Publish(shared.NewRosterFellBackEvent("fp", "synthetic")))
	assert.True(t, delivered)
}

func TestRedisBus_ReceivesRemoteEventsOnly(t *testing.T) {
	client := newFakeRedis()
	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Client:     client,
		InstanceID: "worker-1",
		Local:      InMemoryEventBusConfig{AsyncMode: false},
	})
	require.NoError(t, err)
	defer bus.Close()

	got := make(chan shared.Event, 4)
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		got <- e
		return nil
	}))

	own, _ := json.Marshal(EventEnvelope{InstanceID: "worker-1", Type: shared.EventScheduleRefreshed, Aggregate: "mine"})
	remote, _ := json.Marshal(EventEnvelope{
		InstanceID: "worker-2",
		Type:       shared.EventScheduleRefreshed,
		Aggregate:  "theirs",
		Data:       map[string]any{"students": 136},
	})
	client.messages <- RedisMessage{Payload: string(own)}
	client.messages <- RedisMessage{Payload: "not json"}
	client.messages <- RedisMessage{Err: errors.New("read timeout")}
	client.messages <- RedisMessage{Payload: string(remote)}

	select {
	case e := <-got:
		assert.Equal(t, "theirs", e.AggregateID())
		assert.Equal(t, shared.EventScheduleRefreshed, e.EventType())
		assert.EqualValues(t, 136, e.Payload()["students"])
	case <-time.After(2 * time.Second):
		t.Fatal("remote event not delivered")
	}
	assert.Empty(t, got)
}

func TestRedisBus_RequiresClient(t *testing.T) {
	_, err := NewRedisEventBus(RedisEventBusConfig{})
	assert.Error(t, err)
}
