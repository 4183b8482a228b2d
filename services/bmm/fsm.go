package bmm

import (
	"github.com/looplab/fsm"
)

const (
	StateIdle       = "IDLE"
	StateAttempting = "ATTEMPTING"
	StateBroadcast  = "BROADCAST"
	StateConnected  = "CONNECTED"
	StateFailed     = "FAILED"
)

const (
	EventAttempt   = "attempt"
	EventBroadcast = "broadcast"
	EventConnect   = "connect"
	EventFail      = "fail"
	EventReset     = "reset"
)

// newFiniteStateMachine creates the attempt state machine:
// - IDLE -> attempt -> ATTEMPTING
// - ATTEMPTING -> broadcast -> BROADCAST
// - BROADCAST -> connect -> CONNECTED
// - any state but IDLE and FAILED -> fail -> FAILED
// - FAILED or CONNECTED -> reset -> IDLE
func newFiniteStateMachine(callbacks fsm.Callbacks) *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{
				Name: EventAttempt,
				Src:  []string{StateIdle},
				Dst:  StateAttempting,
			},
			{
				Name: EventBroadcast,
				Src:  []string{StateAttempting},
				Dst:  StateBroadcast,
			},
			{
				Name: EventConnect,
				Src:  []string{StateBroadcast},
				Dst:  StateConnected,
			},
			{
				Name: EventFail,
				Src: []string{
					StateAttempting,
					StateBroadcast,
					StateConnected,
				},
				Dst: StateFailed,
			},
			{
				Name: EventReset,
				Src: []string{
					StateFailed,
					StateConnected,
				},
				Dst: StateIdle,
			},
		},
		callbacks,
	)
}
