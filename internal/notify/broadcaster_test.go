package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromercado/cartstate/internal/domain"
	"github.com/agromercado/cartstate/internal/notify"
)

func TestBroadcaster_CoalescesBurst(t *testing.T) {
	b := notify.New(20*time.Millisecond, nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	events, err := b.Subscribe(ctx)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		b.Publish(changeEvent(domain.ActionAdd, i))
	}

	ev := receiveEvent(t, events)
	assert.Equal(t, domain.ActionAdd, ev.Action)
	assert.Len(t, ev.State.Items, 5, "only the latest event of the burst should arrive")

	assertNoEvent(t, events)
}

func TestBroadcaster_SpacedEventsAllArrive(t *testing.T) {
	b := notify.New(10*time.Millisecond, nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	events, err := b.Subscribe(ctx)
	require.NoError(t, err)

	actions := []domain.Action{domain.ActionAdd, domain.ActionUpdate, domain.ActionRemove}
	for _, action := range actions {
		b.Publish(changeEvent(action, 1))
		time.Sleep(40 * time.Millisecond)
	}

	for _, want := range actions {
		ev := receiveEvent(t, events)
		assert.Equal(t, want, ev.Action)
	}
}

func TestBroadcaster_CloseDeliversPending(t *testing.T) {
	b := notify.New(time.Hour, nil)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	events, err := b.Subscribe(ctx)
	require.NoError(t, err)

	b.Publish(changeEvent(domain.ActionClear, 0))
	require.NoError(t, b.Close())

	ev := receiveEvent(t, events)
	assert.Equal(t, domain.ActionClear, ev.Action)
}

func TestBroadcaster_PublishAfterCloseIsNoop(t *testing.T) {
	b := notify.New(10*time.Millisecond, nil)
	require.NoError(t, b.Close())

	// must not panic or block
	b.Publish(changeEvent(domain.ActionAdd, 1))
}

func changeEvent(action domain.Action, itemCount int) domain.ChangeEvent {
	items := make([]domain.LineItem, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		unit := decimal.NewFromInt(1000)
		items = append(items, domain.LineItem{
			ID:         "item",
			Quantity:   1,
			UnitPrice:  domain.Money{Amount: unit, Currency: domain.COP},
			TotalPrice: domain.Money{Amount: unit, Currency: domain.COP},
			Currency:   domain.COP,
			AddedAt:    time.Now(),
			UpdatedAt:  time.Now(),
		})
	}

	return domain.ChangeEvent{
		Action: action,
		State: domain.CartState{
			Items:     items,
			ItemCount: itemCount,
			Subtotal:  decimal.Zero,
			Tax:       decimal.Zero,
			Shipping:  decimal.Zero,
			Total:     decimal.Zero,
			Currency:  domain.COP,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		At: time.Now(),
	}
}

func receiveEvent(t *testing.T, events <-chan domain.ChangeEvent) domain.ChangeEvent {
	t.Helper()

	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed early")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change event")
		return domain.ChangeEvent{}
	}
}

func assertNoEvent(t *testing.T, events <-chan domain.ChangeEvent) {
	t.Helper()

	select {
	case ev := <-events:
		t.Fatalf("unexpected extra event: %+v", ev.Action)
	case <-time.After(100 * time.Millisecond):
	}
}
