// Package telemetry records what happens during a run and writes it out:
// the event log, per-step population stats, bookmarks, timing and the final
// report files.
package telemetry

import (
	"github.com/pthm-cable/gridcomp/components"
	"github.com/pthm-cable/gridcomp/systems"
)

// EventType identifies telemetry events.
type EventType uint8

const (
	EventFounding EventType = iota
	EventIntroduction
	EventBirth
	EventDeath
)

func (t EventType) String() string {
	switch t {
	case EventFounding:
		return "founding"
	case EventIntroduction:
		return "introduction"
	case EventBirth:
		return "birth"
	case EventDeath:
		return "death"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Event represents a single telemetry event.
type Event struct {
	Type    EventType
	Step    int
	Species components.Species

	// Birth: the new pair and its parent. Death: the removed pair.
	Pair        components.PairID
	Cells       [2]components.Cell
	Parent      components.PairID
	ParentCells [2]components.Cell

	// Founding/introduction: number of pairs placed.
	Count int
}

// NewFoundingEvent creates a founding-cluster event.
func NewFoundingEvent(step int, species components.Species, pairs int) Event {
	return Event{Type: EventFounding, Step: step, Species: species, Count: pairs}
}

// NewIntroductionEvent creates a scattered-introduction event.
func NewIntroductionEvent(step int, species components.Species, pairs int) Event {
	return Event{Type: EventIntroduction, Step: step, Species: species, Count: pairs}
}

// NewBirthEvent creates a birth event from a reproduction record.
func NewBirthEvent(b systems.Birth) Event {
	return Event{
		Type:        EventBirth,
		Step:        b.Step,
		Species:     b.Species,
		Pair:        b.Child,
		Cells:       b.ChildCells,
		Parent:      b.Parent,
		ParentCells: b.ParentCells,
	}
}

// NewDeathEvent creates a death event from a mortality record.
func NewDeathEvent(d systems.Death) Event {
	return Event{
		Type:    EventDeath,
		Step:    d.Step,
		Species: d.Species,
		Pair:    d.Pair,
		Cells:   d.Cells,
	}
}

// EventLog is an append-only ordered event record.
type EventLog struct {
	events []Event
}

// Append adds events to the end of the log.
func (l *EventLog) Append(events ...Event) {
	l.events = append(l.events, events...)
}

// Events returns the logged events in order. The slice must not be modified.
func (l *EventLog) Events() []Event {
	return l.events
}

// Len returns the number of logged events.
func (l *EventLog) Len() int {
	return len(l.events)
}

// Count returns how many events of type t were logged for species.
// Pass components.Empty to count all species.
func (l *EventLog) Count(t EventType, species components.Species) int {
	n := 0
	for _, e := range l.events {
		if e.Type == t && (species == components.Empty || e.Species == species) {
			n++
		}
	}
	return n
}
