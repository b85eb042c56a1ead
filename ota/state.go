package ota

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// State is the session state.
type State string

const (
	StateIdle      State = "idle"
	StateReceiving State = "receiving"
	StateError     State = "error"
)

func (s State) String() string {
	return string(s)
}

// State machine events.
const (
	eventBeginOK     = "begin_ok"
	eventBeginFailed = "begin_failed"
	eventWriteFailed = "write_failed"
	eventReset       = "reset"
)

var allStates = []string{string(StateIdle), string(StateReceiving), string(StateError)}

// newStateMachine builds the session state graph. Only flash outcomes and
// resets move the machine; message validation happens before an event fires.
func newStateMachine(onTransition func(from, to string)) *fsm.FSM {
	return fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: eventBeginOK, Src: allStates, Dst: string(StateReceiving)},
			{Name: eventBeginFailed, Src: allStates, Dst: string(StateError)},
			{Name: eventWriteFailed, Src: []string{string(StateReceiving)}, Dst: string(StateError)},
			{Name: eventReset, Src: allStates, Dst: string(StateIdle)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				onTransition(e.Src, e.Dst)
			},
		},
	)
}

// fire triggers an event. Self transitions (e.g. a second INIT while
// receiving) are not errors.
func (s *Session) fire(ctx context.Context, event string) {
	err := s.machine.Event(ctx, event)
	if err == nil {
		return
	}

	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return
	}
	s.logError("state transition failed", "event", event, "state", s.machine.Current(), "error", err)
}
