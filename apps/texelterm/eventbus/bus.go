// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/eventbus/bus.go
// Summary: Per-session typed event bus delivered on the UI loop.
// Usage: The session publishes through the On* methods; consumers Subscribe
//        and receive every event on the loop goroutine, in publish order.

package eventbus

import (
	"context"
	"sort"
	"sync"

	"pkt.systems/pslog"

	"github.com/framegrace/texelshell/apps/texelterm/blocks"
	"github.com/framegrace/texelshell/apps/texelterm/shellintegration"
)

// EventType identifies the event payload.
type EventType string

const (
	EventContentChanged     EventType = "content_changed"
	EventCommandStarted     EventType = "command_started"
	EventCommandFinished    EventType = "command_finished"
	EventGeneratorFinished  EventType = "generator_finished"
	EventPromptStateUpdated EventType = "prompt_state_updated"
	EventInitialized        EventType = "initialized"
	EventBlockFinalized     EventType = "block_finalized"
	EventTitleChanged       EventType = "title_changed"
)

// Event is one published event. Only the field matching Type is set.
type Event struct {
	Type            EventType
	Session         string
	CommandStarted  shellintegration.CommandStarted
	CommandFinished shellintegration.CommandFinished
	Generator       shellintegration.GeneratorFinished
	PromptState     shellintegration.PromptState
	Initialized     shellintegration.Initialized
	Block           *blocks.CommandBlock
	Title           string
}

// Poster schedules work on the UI loop.
type Poster interface {
	Post(fn func()) bool
}

// Bus fans events out to subscribers.
type Bus struct {
	mu      sync.Mutex
	session string
	subs    map[int]func(Event)
	next    int
	loop    Poster
	log     pslog.Logger
}

// New constructs a Bus for session delivering through loop.
func New(session string, loop Poster, logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		session: session,
		subs:    make(map[int]func(Event)),
		loop:    loop,
		log:     logger,
	}
}

// Subscribe registers fn and returns its cancel function. Events already
// scheduled when cancel runs are not delivered to fn.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "subs", count)
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *Bus) OnContentChanged() {
	b.publish(Event{Type: EventContentChanged})
}

func (b *Bus) OnCommandStarted(ev shellintegration.CommandStarted) {
	b.publish(Event{Type: EventCommandStarted, CommandStarted: ev})
}

func (b *Bus) OnCommandFinished(ev shellintegration.CommandFinished) {
	b.publish(Event{Type: EventCommandFinished, CommandFinished: ev})
}

func (b *Bus) OnGeneratorFinished(ev shellintegration.GeneratorFinished) {
	b.publish(Event{Type: EventGeneratorFinished, Generator: ev})
}

func (b *Bus) OnPromptState(ev shellintegration.PromptState) {
	b.publish(Event{Type: EventPromptStateUpdated, PromptState: ev})
}

func (b *Bus) OnInitialized(ev shellintegration.Initialized) {
	b.publish(Event{Type: EventInitialized, Initialized: ev})
}

func (b *Bus) OnBlockFinalized(block *blocks.CommandBlock) {
	b.publish(Event{Type: EventBlockFinalized, Block: block})
}

func (b *Bus) OnTitleChanged(title string) {
	b.publish(Event{Type: EventTitleChanged, Title: title})
}

func (b *Bus) publish(ev Event) {
	ev.Session = b.session
	if !b.loop.Post(func() { b.deliver(ev) }) {
		b.log.Trace("eventbus dropped after loop stop", "type", string(ev.Type))
	}
}

func (b *Bus) deliver(ev Event) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	sort.Ints(ids)
	for _, id := range ids {
		b.mu.Lock()
		fn, ok := b.subs[id]
		b.mu.Unlock()
		if ok {
			fn(ev)
		}
	}
}
