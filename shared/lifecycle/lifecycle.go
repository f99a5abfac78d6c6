// Package lifecycle models the shutdown state machine every saga service goes through.
//
//	Running --Drain--> Draining --Terminate--> Terminated
//	Running --Terminate-------------------> Terminated
//
// Transitions are triggered only by a ShutDown message on the service's primary
// inbound mailbox. A Machine is owned by a single service goroutine.
package lifecycle

import (
	"time"

	"github.com/pkg/errors"
)

var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// State of a service
type State string

const (
	StateRunning    State = "running"
	StateDraining   State = "draining"
	StateTerminated State = "terminated"
)

// Transition records a state change
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Machine tracks the lifecycle of one service
type Machine struct {
	service     string
	state       State
	transitions []Transition
	now         func() time.Time
}

// New creates a machine in the running state
func New(service string) *Machine {
	return &Machine{
		service: service,
		state:   StateRunning,
		now:     time.Now,
	}
}

// Service returns the owning service name
func (m *Machine) Service() string {
	return m.service
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Running reports whether the service still accepts work
func (m *Machine) Running() bool {
	return m.state == StateRunning
}

// Drain moves a running service into the draining state, where it checks its
// local quiescence precondition before forwarding the shutdown.
func (m *Machine) Drain() error {
	if m.state != StateRunning {
		return errors.Wrapf(ErrInvalidTransition, "%s: drain from %s", m.service, m.state)
	}
	m.transition(StateDraining)
	return nil
}

// Terminate moves the service into its final state
func (m *Machine) Terminate() error {
	if m.state == StateTerminated {
		return errors.Wrapf(ErrInvalidTransition, "%s: terminate from %s", m.service, m.state)
	}
	m.transition(StateTerminated)
	return nil
}

// TerminatedAt returns when the service terminated, or the zero time if it has not.
func (m *Machine) TerminatedAt() time.Time {
	for _, t := range m.transitions {
		if t.To == StateTerminated {
			return t.At
		}
	}
	return time.Time{}
}

func (m *Machine) transition(to State) {
	m.transitions = append(m.transitions, Transition{From: m.state, To: to, At: m.now()})
	m.state = to
}
