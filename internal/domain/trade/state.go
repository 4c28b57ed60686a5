package trade

import "fmt"

type State int

const (
	StateInitiated State = iota
	StateCollectingOffers
	StateAwaitingFinalConfirm
	StateExecuting
	StateCompleted
	StateFailed
	StateCancelled
	StateTimedOut
)

var stateNames = map[State]string{
	StateInitiated:            "INITIATED",
	StateCollectingOffers:     "COLLECTING_OFFERS",
	StateAwaitingFinalConfirm: "AWAITING_FINAL_CONFIRM",
	StateExecuting:            "EXECUTING",
	StateCompleted:            "COMPLETED",
	StateFailed:               "FAILED",
	StateCancelled:            "CANCELLED",
	StateTimedOut:             "TIMED_OUT",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateTimedOut:
		return true
	}
	return false
}

// AllowsCancel reports whether a party may still abort the session.
func (s State) AllowsCancel() bool {
	return s == StateInitiated || s == StateCollectingOffers || s == StateAwaitingFinalConfirm
}

func (s State) OffersMutable() bool {
	return s == StateCollectingOffers
}

// Outcome maps a terminal state to the outcome stored on the record.
func (s State) Outcome() (Outcome, bool) {
	switch s {
	case StateCompleted:
		return OutcomeCompleted, true
	case StateFailed:
		return OutcomeFailed, true
	case StateCancelled:
		return OutcomeCancelled, true
	case StateTimedOut:
		return OutcomeTimedOut, true
	}
	return "", false
}

type Event int

const (
	EvBegin Event = iota
	EvOffersConfirmed
	EvBothAccepted
	EvCancel
	EvTimeout
	EvStale
	EvExecFailed
	EvCommitted
)

var eventNames = map[Event]string{
	EvBegin:           "begin",
	EvOffersConfirmed: "offers_confirmed",
	EvBothAccepted:    "both_accepted",
	EvCancel:          "cancel",
	EvTimeout:         "timeout",
	EvStale:           "stale",
	EvExecFailed:      "exec_failed",
	EvCommitted:       "committed",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

type edge struct {
	from State
	ev   Event
}

var transitions = map[edge]State{
	{StateInitiated, EvBegin}:  StateCollectingOffers,
	{StateInitiated, EvCancel}: StateCancelled,

	{StateCollectingOffers, EvOffersConfirmed}: StateAwaitingFinalConfirm,
	{StateCollectingOffers, EvCancel}:          StateCancelled,
	{StateCollectingOffers, EvTimeout}:         StateTimedOut,

	{StateAwaitingFinalConfirm, EvBothAccepted}: StateExecuting,
	{StateAwaitingFinalConfirm, EvCancel}:       StateCancelled,
	{StateAwaitingFinalConfirm, EvTimeout}:      StateTimedOut,

	{StateExecuting, EvCommitted}:  StateCompleted,
	{StateExecuting, EvStale}:      StateFailed,
	{StateExecuting, EvExecFailed}: StateFailed,
}

// Transition is the only place session states change. Terminal states accept
// no events.
func Transition(from State, ev Event) (State, error) {
	to, ok := transitions[edge{from, ev}]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, ev, from)
	}
	return to, nil
}
