package discovery

import (
	"fmt"

	"github.com/amishk599/jobharvest/internal/model"
)

// State is a phase of one site's discovery run.
type State int

const (
	StateStart State = iota
	StateAdvancing
	StateExtracting
	StateExhausted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateAdvancing:
		return "advancing"
	case StateExtracting:
		return "extracting"
	case StateExhausted:
		return "exhausted"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Event is what the driver observed after acting on the page.
type Event int

const (
	EventLoaded     Event = iota // first page rendered and captured
	EventLoadFailed              // first navigation or capture failed
	EventGrew                    // snapshot added new items
	EventStalled                 // snapshot added nothing new
	EventEmpty                   // snapshot held no items at all
	EventItemLimit               // max_cards reached
	EventStepLimit               // max_steps / max_pages reached
	EventAdvanced                // next page, scroll or modal step done
	EventNoControl               // nothing left to advance with
	EventStepFailed              // an advance or capture failed mid-run
	EventSkipped                 // one item failed or repeated; move on
)

var eventNames = [...]string{
	"loaded", "load_failed", "grew", "stalled", "empty",
	"item_limit", "step_limit", "advanced", "no_control", "step_failed",
	"skipped",
}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", int(e))
}

var transitions = map[State]map[Event]State{
	StateStart: {
		EventLoaded:     StateExtracting,
		EventLoadFailed: StateAborted,
	},
	StateExtracting: {
		EventGrew:       StateAdvancing,
		EventSkipped:    StateAdvancing,
		EventStalled:    StateExhausted,
		EventEmpty:      StateExhausted,
		EventItemLimit:  StateExhausted,
		EventStepFailed: StateExhausted,
	},
	StateAdvancing: {
		EventAdvanced:   StateExtracting,
		EventNoControl:  StateExhausted,
		EventStepLimit:  StateExhausted,
		EventItemLimit:  StateExhausted,
		EventStepFailed: StateExhausted,
	},
}

// stopReasons maps the event that ended a run to its reported reason.
var stopReasons = map[Event]model.StopReason{
	EventLoadFailed: model.StopNavigationFailed,
	EventStalled:    model.StopNoNewItems,
	EventEmpty:      model.StopNoCards,
	EventItemLimit:  model.StopMaxItems,
	EventStepLimit:  model.StopMaxSteps,
	EventNoControl:  model.StopNoNextControl,
	EventStepFailed: model.StopStepFailed,
}

// Transition is one entry of a machine's trace.
type Transition struct {
	From  State
	Event Event
	To    State
	Step  int
}

func (t Transition) String() string {
	return fmt.Sprintf("%d:%s-%s->%s", t.Step, t.From, t.Event, t.To)
}

// Machine tracks discovery progress independent of any live page. Steps
// count advances; the driver compares them against its bound.
type Machine struct {
	state  State
	steps  int
	reason model.StopReason
	trace  []Transition
}

func NewMachine() *Machine {
	return &Machine{state: StateStart}
}

// Fire applies ev. An event with no transition from the current state is a
// driver bug and leaves the machine unchanged.
func (m *Machine) Fire(ev Event) error {
	next, ok := transitions[m.state][ev]
	if !ok {
		return fmt.Errorf("discovery: no transition from %s on %s", m.state, ev)
	}
	if ev == EventAdvanced {
		m.steps++
	}
	m.trace = append(m.trace, Transition{From: m.state, Event: ev, To: next, Step: m.steps})
	m.state = next
	if m.Done() {
		m.reason = stopReasons[ev]
	}
	return nil
}

func (m *Machine) State() State { return m.state }

// Done reports whether the machine reached a terminal state.
func (m *Machine) Done() bool {
	return m.state == StateExhausted || m.state == StateAborted
}

// Steps is the number of completed advances.
func (m *Machine) Steps() int { return m.steps }

func (m *Machine) Reason() model.StopReason { return m.reason }

// Trace returns a copy of every transition taken.
func (m *Machine) Trace() []Transition {
	out := make([]Transition, len(m.trace))
	copy(out, m.trace)
	return out
}
