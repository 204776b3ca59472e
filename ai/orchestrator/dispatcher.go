package orchestrator

import (
	"log/slog"
	"sync"
)

// EmitFunc receives stream events from the coordinator.
type EmitFunc func(StreamEvent)

// Dispatcher serializes event delivery to the emit callback. It also owns
// the per-agent chunk bookkeeping: content chunk indexes are strictly
// increasing per agent and exactly one chunk per agent is final. Events
// arriving after Close are dropped.
type Dispatcher struct {
	emit    EmitFunc
	eventCh chan StreamEvent
	wg      sync.WaitGroup
	traceID string

	mu       sync.Mutex
	closed   bool
	chunkIdx map[string]int
	finished map[string]bool
}

// NewDispatcher creates a dispatcher delivering to emit. A nil emit produces
// an inert dispatcher whose sends are no-ops.
func NewDispatcher(traceID string, emit EmitFunc) *Dispatcher {
	d := &Dispatcher{
		emit:     emit,
		traceID:  traceID,
		chunkIdx: make(map[string]int),
		finished: make(map[string]bool),
	}
	if emit == nil {
		return d
	}
	d.eventCh = make(chan StreamEvent, 100)
	d.wg.Add(1)
	go d.dispatchLoop()
	return d
}

func (d *Dispatcher) dispatchLoop() {
	defer d.wg.Done()
	for e := range d.eventCh {
		// Recover from panic in the callback to protect the loop.
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("dispatcher: recovered from panic in emit", "panic", r, "trace_id", d.traceID)
				}
			}()
			d.emit(e)
		}()
	}
}

// Send delivers an event in order. Content events must go through Content so
// chunk indexes stay consistent.
func (d *Dispatcher) Send(e StreamEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sendLocked(e)
}

func (d *Dispatcher) sendLocked(e StreamEvent) {
	if d.emit == nil || d.closed {
		return
	}
	if e.TraceID == "" {
		e.TraceID = d.traceID
	}
	d.eventCh <- e
}

// Content emits one content chunk for an agent, assigning the next chunk
// index. After the final chunk, further content for that agent is dropped.
func (d *Dispatcher) Content(agentID, text string, final bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.finished[agentID] {
		slog.Warn("dispatcher: content after final chunk dropped", "agent", agentID, "trace_id", d.traceID)
		return
	}
	e := ContentEvent(agentID, text, final)
	e.ChunkIndex = d.chunkIdx[agentID]
	d.chunkIdx[agentID]++
	if final {
		d.finished[agentID] = true
	}
	d.sendLocked(e)
}

// FinishAgent marks an agent's content stream final. If no content was ever
// emitted for the agent, an empty final chunk is sent so consumers always
// see exactly one is_final per agent.
func (d *Dispatcher) FinishAgent(agentID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.finished[agentID] {
		return
	}
	e := ContentEvent(agentID, "", true)
	e.ChunkIndex = d.chunkIdx[agentID]
	d.chunkIdx[agentID]++
	d.finished[agentID] = true
	d.sendLocked(e)
}

// Close stops the dispatcher and waits until every queued event is delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.emit == nil || d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.eventCh)
	d.wg.Wait()
}
