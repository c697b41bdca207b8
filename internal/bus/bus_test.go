// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe_DeliversEvent(t *testing.T) {
	b := New(16)
	defer func() { _ = b.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe, err := b.Subscribe(ctx, "test")
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, b.Publish(Event{Kind: KindTick, SessionID: "s1", Data: []byte(`{"n":1}`)}))

	select {
	case ev := <-events:
		require.Equal(t, KindTick, ev.Kind)
		require.Equal(t, "s1", ev.SessionID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribe_FanOutToMultiple(t *testing.T) {
	b := New(16)
	defer func() { _ = b.Close() }()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events1, unsub1, err := b.Subscribe(ctx, "one")
	require.NoError(t, err)
	defer unsub1()
	events2, unsub2, err := b.Subscribe(ctx, "two")
	require.NoError(t, err)
	defer unsub2()

	require.NoError(t, b.Publish(Event{Kind: KindAlert, SessionID: "s1"}))

	for _, ch := range []<-chan Event{events1, events2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out delivery")
		}
	}
}

func TestMailbox_DropsOldestWhenFull(t *testing.T) {
	b := New(2)
	defer func() { _ = b.Close() }()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe, err := b.Subscribe(ctx, "slow")
	require.NoError(t, err)
	defer unsubscribe()

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Publish(Event{Kind: KindTick, SessionID: "s1"}))
	}

	// Give the pump goroutine a moment to drain watermill's channel into
	// the bounded mailbox.
	time.Sleep(100 * time.Millisecond)

	drained := 0
	for {
		select {
		case <-events:
			drained++
		default:
			goto done
		}
	}
done:
	require.LessOrEqual(t, drained, 2, "mailbox must never hold more than its capacity")
}
