package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	TypeRoundStarted     = "round.started"
	TypeRoundResolved    = "round.resolved"
	TypeFairnessAlert    = "fairness.alert"
	TypeSimulationResult = "simulation.result"
)

// EngineEvent is the wire shape for every published event.
type EngineEvent struct {
	Type      string `json:"type"`
	RoundID   string `json:"round_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Emitter publishes engine events. The NATS implementation is used in
// production; Noop keeps tests and ephemeral runs quiet.
type Emitter interface {
	Emit(event EngineEvent) error
	Close()
}

type NATSEmitter struct {
	conn          *nats.Conn
	subjectPrefix string
}

func NewNATSEmitter(natsURL, subjectPrefix string) (*NATSEmitter, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSEmitter{conn: conn, subjectPrefix: subjectPrefix}, nil
}

func (e *NATSEmitter) Emit(event EngineEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.conn.Publish(e.subjectPrefix+"."+event.Type, data)
}

func (e *NATSEmitter) Close() {
	if e.conn != nil {
		e.conn.Close()
	}
}

// Noop discards all events.
type Noop struct{}

func (Noop) Emit(EngineEvent) error { return nil }
func (Noop) Close()                 {}

// Recorder collects events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []EngineEvent
}

func (r *Recorder) Emit(event EngineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() {}

func (r *Recorder) Events() []EngineEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EngineEvent, len(r.events))
	copy(out, r.events)
	return out
}
