// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/eventbus/bus_test.go
// Summary: Delivery order, unsubscribe and loop confinement of the bus.

package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/framegrace/texelshell/apps/texelterm/shellintegration"
	"github.com/framegrace/texelshell/internal/uiloop"
)

// manualLoop runs posted work only when drained.
type manualLoop struct {
	queue []func()
}

func (m *manualLoop) Post(fn func()) bool {
	m.queue = append(m.queue, fn)
	return true
}

func (m *manualLoop) drain() {
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
	}
}

func TestEventsDeliveredOnLoopInOrder(t *testing.T) {
	loop := &manualLoop{}
	bus := New("s1", loop, nil)
	var got []EventType
	cancel := bus.Subscribe(func(ev Event) {
		if ev.Session != "s1" {
			t.Errorf("session = %q", ev.Session)
		}
		got = append(got, ev.Type)
	})
	defer cancel()

	bus.OnCommandStarted(shellintegration.CommandStarted{Command: "ls"})
	bus.OnContentChanged()
	bus.OnCommandFinished(shellintegration.CommandFinished{Command: "ls"})
	if len(got) != 0 {
		t.Fatalf("delivered before the loop ran: %v", got)
	}
	loop.drain()
	want := []EventType{EventCommandStarted, EventContentChanged, EventCommandFinished}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestUnsubscribeSkipsScheduledEvents(t *testing.T) {
	loop := &manualLoop{}
	bus := New("s1", loop, nil)
	calls := 0
	cancel := bus.Subscribe(func(Event) { calls++ })
	bus.OnTitleChanged("vim")
	cancel()
	loop.drain()
	if calls != 0 {
		t.Fatalf("calls = %d after cancel", calls)
	}
}

func TestSubscribersRunInSubscriptionOrder(t *testing.T) {
	loop := &manualLoop{}
	bus := New("s1", loop, nil)
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		bus.Subscribe(func(Event) { order = append(order, name) })
	}
	bus.OnInitialized(shellintegration.Initialized{Shell: "bash"})
	loop.drain()
	if len(order) != 3 || order[0] != "first" || order[2] != "third" {
		t.Fatalf("order = %v", order)
	}
}

func TestDeliveryWithRealLoop(t *testing.T) {
	loop := uiloop.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	bus := New("s1", loop, nil)
	got := make(chan Event, 1)
	bus.Subscribe(func(ev Event) { got <- ev })
	bus.OnPromptState(shellintegration.PromptState{CurrentDirectory: "/tmp"})
	select {
	case ev := <-got:
		if ev.Type != EventPromptStateUpdated || ev.PromptState.CurrentDirectory != "/tmp" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
}
