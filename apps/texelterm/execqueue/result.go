// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: apps/texelterm/execqueue/result.go
// Summary: Generator handles and their one-shot results.

package execqueue

import (
	"context"
	"sync"
)

// Result is one of Completed, Cancelled or Failed.
type Result interface {
	isResult()
}

// Completed carries the output of a generator that ran.
type Completed struct {
	Output   string
	ExitCode int
}

// Cancelled reports a generator that was never transmitted.
type Cancelled struct {
	Reason string
}

// Failed reports a generator that could not produce a result.
type Failed struct {
	Err error
}

func (Completed) isResult() {}
func (Cancelled) isResult() {}
func (Failed) isResult()    {}

type genStatus int

const (
	genQueued genStatus = iota
	genSent
	genDone
)

// Generator is an introspection request whose result resolves exactly once.
type Generator struct {
	ID      uint64
	Command string

	seq    uint64
	status genStatus // guarded by the manager section

	once   sync.Once
	done   chan struct{}
	result Result
}

func newGenerator(id, seq uint64, command string) *Generator {
	return &Generator{ID: id, Command: command, seq: seq, done: make(chan struct{})}
}

// Done is closed once the result is available.
func (g *Generator) Done() <-chan struct{} { return g.done }

// Result returns the result, or nil while unresolved.
func (g *Generator) Result() Result {
	select {
	case <-g.done:
		return g.result
	default:
		return nil
	}
}

// Wait blocks until the result resolves or ctx ends.
func (g *Generator) Wait(ctx context.Context) (Result, error) {
	select {
	case <-g.done:
		return g.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Generator) resolve(r Result) {
	g.once.Do(func() {
		g.result = r
		close(g.done)
	})
}
