package marble

import (
	"slices"

	"github.com/akmonengine/marble/constraint"
)

const (
	COLLISION_ENTER EventType = iota
	COLLISION_STAY
	COLLISION_EXIT
)

type EventType uint8

func (t EventType) String() string {
	switch t {
	case COLLISION_ENTER:
		return "COLLISION_ENTER"
	case COLLISION_STAY:
		return "COLLISION_STAY"
	case COLLISION_EXIT:
		return "COLLISION_EXIT"
	}

	return "UNKNOWN"
}

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// CollisionEnterEvent is emitted on the first update two bodies touch
type CollisionEnterEvent struct {
	BodyA Handle
	BodyB Handle
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

// CollisionStayEvent is emitted on every following update they still touch
type CollisionStayEvent struct {
	BodyA Handle
	BodyB Handle
}

func (e CollisionStayEvent) Type() EventType { return COLLISION_STAY }

// CollisionExitEvent is emitted on the first update they no longer touch
type CollisionExitEvent struct {
	BodyA Handle
	BodyB Handle
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// EventListener - callback for events
type EventListener func(event Event)

// Events buffers the contact events of an update and dispatches them to the
// listeners once the update is over. Pairs are reported with BodyA < BodyB,
// in ascending order.
type Events struct {
	listeners map[EventType][]EventListener

	buffer []Event

	// Collision tracking for Enter/Stay/Exit detection
	previousActivePairs map[handlePair]bool
	currentActivePairs  map[handlePair]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[handlePair]bool),
		currentActivePairs:  make(map[handlePair]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// recordContacts marks the body pairs of the collision records of an update as active
func (e *Events) recordContacts(contacts map[contactKey]*constraint.ContactConstraint) {
	for key := range contacts {
		e.currentActivePairs[makeHandlePair(Handle(key.BodyA), Handle(key.BodyB))] = true
	}
}

func sortedPairs(pairs map[handlePair]bool) []handlePair {
	sorted := make([]handlePair, 0, len(pairs))
	for pair := range pairs {
		sorted = append(sorted, pair)
	}
	slices.SortFunc(sorted, func(a, b handlePair) int {
		if a.A != b.A {
			return int(a.A - b.A)
		}
		return int(a.B - b.B)
	})

	return sorted
}

// processCollisionEvents compares current and previous pairs to detect Enter/Stay/Exit
func (e *Events) processCollisionEvents() {
	for _, pair := range sortedPairs(e.currentActivePairs) {
		if e.previousActivePairs[pair] {
			e.buffer = append(e.buffer, CollisionStayEvent{BodyA: pair.A, BodyB: pair.B})
		} else {
			e.buffer = append(e.buffer, CollisionEnterEvent{BodyA: pair.A, BodyB: pair.B})
		}
	}

	for _, pair := range sortedPairs(e.previousActivePairs) {
		if !e.currentActivePairs[pair] {
			e.buffer = append(e.buffer, CollisionExitEvent{BodyA: pair.A, BodyB: pair.B})
		}
	}

	// Swap for next update and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.processCollisionEvents()

	for _, event := range e.buffer {
		for _, listener := range e.listeners[event.Type()] {
			listener(event)
		}
	}
	e.buffer = e.buffer[:0]
}
