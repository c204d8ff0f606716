package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBus_PublishDeliversInOrder(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 16)

	var mu sync.Mutex
	var got []string
	bus.SubscribeFunc(OperationCommitted, func(ctx context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(OperationCommittedEvent).Operation)
		return nil
	})

	pool := solana.NewWallet().PublicKey()
	for _, op := range []string{"create_pool", "stake", "claim"} {
		require.NoError(t, bus.Publish(OperationCommittedEvent{
			BaseEvent:   NewBase(OperationCommitted),
			PoolAddress: pool,
			Operation:   op,
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(ctx))

	assert.Equal(t, []string{"create_pool", "stake", "claim"}, got)
	assert.ErrorIs(t, bus.Publish(OperationCommittedEvent{BaseEvent: NewBase(OperationCommitted)}), ErrBusClosed)
}

func TestBus_AnyEventAndUnsubscribe(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 4)
	defer bus.Shutdown(context.Background())

	var all, shortfalls int
	subAll := bus.SubscribeFunc(AnyEvent, func(ctx context.Context, e Event) error {
		all++
		return nil
	})
	bus.SubscribeFunc(ReserveShortfall, func(ctx context.Context, e Event) error {
		shortfalls++
		return nil
	})

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, ReserveShortfallEvent{BaseEvent: NewBase(ReserveShortfall)}))
	require.NoError(t, bus.PublishSync(ctx, AuditCompletedEvent{BaseEvent: NewBase(AuditCompleted)}))
	assert.Equal(t, 2, all)
	assert.Equal(t, 1, shortfalls)

	subAll.Unsubscribe()
	require.NoError(t, bus.PublishSync(ctx, AuditCompletedEvent{BaseEvent: NewBase(AuditCompleted)}))
	assert.Equal(t, 2, all)

	stats := bus.Stats()
	assert.Equal(t, 1, stats.HandlersPerType[ReserveShortfall])
	assert.Zero(t, stats.HandlersPerType[AnyEvent])
}

func TestBus_WildcardUnsubscribeStopsAsyncDelivery(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 8)

	var mu sync.Mutex
	var first, second []EventType
	sub := bus.SubscribeFunc(AnyEvent, func(ctx context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		first = append(first, e.Type())
		return nil
	})
	bus.SubscribeFunc(AnyEvent, func(ctx context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		second = append(second, e.Type())
		return nil
	})

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, TransferUnconfirmedEvent{BaseEvent: NewBase(TransferUnconfirmed)}))

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 1, bus.Stats().HandlersPerType[AnyEvent], "other wildcard subscription survives")

	require.NoError(t, bus.Publish(AuditCompletedEvent{BaseEvent: NewBase(AuditCompleted)}))
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(shutdownCtx))

	assert.Equal(t, []EventType{TransferUnconfirmed}, first)
	assert.Equal(t, []EventType{TransferUnconfirmed, AuditCompleted}, second)
}

func TestBus_PublishSyncCollectsErrors(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	defer bus.Shutdown(context.Background())

	boom := errors.New("journal offline")
	bus.SubscribeFunc(OperationRejected, func(ctx context.Context, e Event) error { return boom })

	err := bus.PublishSync(context.Background(), OperationRejectedEvent{BaseEvent: NewBase(OperationRejected)})
	assert.ErrorIs(t, err, boom)
}

func TestBus_FullBufferDrops(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t), 1)
	defer bus.Shutdown(context.Background())

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	bus.SubscribeFunc(AuditCompleted, func(ctx context.Context, e Event) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})

	ev := AuditCompletedEvent{BaseEvent: NewBase(AuditCompleted)}
	require.NoError(t, bus.Publish(ev))
	<-started // loop is blocked in the handler
	require.NoError(t, bus.Publish(ev))
	assert.ErrorIs(t, bus.Publish(ev), ErrBusFull)
	assert.Equal(t, uint64(1), bus.Stats().Dropped)
	close(release)
}
