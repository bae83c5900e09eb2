// Package client is the Go SDK for the chat backend: a websocket event
// source, a REST client and a per-conversation view that keeps local state
// in sync with server pushes.
package client

import (
	"encoding/json"
	"slices"
	"sync"

	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
)

// Listener receives the raw data of one event.
type Listener func(data json.RawMessage)

// EventSource is what a ConversationView binds to. The returned func unbinds
// exactly that listener.
type EventSource interface {
	On(event string, fn Listener) (unbind func())
}

// Emitter is an in-process EventSource; Socket feeds it from the wire.
type Emitter struct {
	mu        sync.RWMutex
	seq       int
	listeners map[string]map[int]Listener
}

func NewEmitter() *Emitter {
	return &Emitter{listeners: make(map[string]map[int]Listener)}
}

func (e *Emitter) On(event string, fn Listener) func() {
	e.mu.Lock()
	e.seq++
	id := e.seq
	if e.listeners[event] == nil {
		e.listeners[event] = make(map[int]Listener)
	}
	e.listeners[event][id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners[event], id)
			if len(e.listeners[event]) == 0 {
				delete(e.listeners, event)
			}
			e.mu.Unlock()
		})
	}
}

// Count reports bound listeners for event.
func (e *Emitter) Count(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners[event])
}

// Emit calls every listener of event, in bind order.
func (e *Emitter) Emit(event string, data json.RawMessage) {
	e.mu.RLock()
	ids := make([]int, 0, len(e.listeners[event]))
	for id := range e.listeners[event] {
		ids = append(ids, id)
	}
	fns := make([]Listener, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, e.listeners[event][id])
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(data)
	}
}

// EmitFrame dispatches an encoded {"event","data"} frame.
func (e *Emitter) EmitFrame(raw []byte) error {
	f, err := chatmodel.ParseFrame(raw)
	if err != nil {
		return err
	}
	e.Emit(f.Event, f.Data)
	return nil
}
