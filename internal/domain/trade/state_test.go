package trade

import (
	"errors"
	"testing"
)

var allEvents = []Event{EvBegin, EvOffersConfirmed, EvBothAccepted, EvCancel, EvTimeout, EvStale, EvExecFailed, EvCommitted}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		ev      Event
		want    State
		wantErr bool
	}{
		{name: "begin collecting", from: StateInitiated, ev: EvBegin, want: StateCollectingOffers},
		{name: "cancel before collecting", from: StateInitiated, ev: EvCancel, want: StateCancelled},
		{name: "both offers confirmed", from: StateCollectingOffers, ev: EvOffersConfirmed, want: StateAwaitingFinalConfirm},
		{name: "cancel while collecting", from: StateCollectingOffers, ev: EvCancel, want: StateCancelled},
		{name: "offer window elapsed", from: StateCollectingOffers, ev: EvTimeout, want: StateTimedOut},
		{name: "both accepted", from: StateAwaitingFinalConfirm, ev: EvBothAccepted, want: StateExecuting},
		{name: "cancel during final confirm", from: StateAwaitingFinalConfirm, ev: EvCancel, want: StateCancelled},
		{name: "final window elapsed", from: StateAwaitingFinalConfirm, ev: EvTimeout, want: StateTimedOut},
		{name: "committed", from: StateExecuting, ev: EvCommitted, want: StateCompleted},
		{name: "stale offer", from: StateExecuting, ev: EvStale, want: StateFailed},
		{name: "execution failed", from: StateExecuting, ev: EvExecFailed, want: StateFailed},
		{name: "cannot skip final confirm", from: StateCollectingOffers, ev: EvBothAccepted, want: StateCollectingOffers, wantErr: true},
		{name: "cannot execute from initiated", from: StateInitiated, ev: EvCommitted, want: StateInitiated, wantErr: true},
		{name: "cannot cancel while executing", from: StateExecuting, ev: EvCancel, want: StateExecuting, wantErr: true},
		{name: "cannot time out while executing", from: StateExecuting, ev: EvTimeout, want: StateExecuting, wantErr: true},
		{name: "cannot go back to collecting", from: StateAwaitingFinalConfirm, ev: EvBegin, want: StateAwaitingFinalConfirm, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.from, tt.ev)
			if (err != nil) != tt.wantErr {
				t.Errorf("Transition() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("Transition() error = %v, want ErrIllegalTransition", err)
			}
			if got != tt.want {
				t.Errorf("Transition() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTerminalStatesAreSinks(t *testing.T) {
	for _, st := range []State{StateCompleted, StateFailed, StateCancelled, StateTimedOut} {
		if !st.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false", st)
		}
		if _, ok := st.Outcome(); !ok {
			t.Errorf("%s has no outcome", st)
		}
		for _, ev := range allEvents {
			if got, err := Transition(st, ev); err == nil {
				t.Errorf("Transition(%s, %s) = %s, want error", st, ev, got)
			}
		}
	}
}

func TestStatePredicates(t *testing.T) {
	tests := []struct {
		state       State
		cancellable bool
		mutable     bool
	}{
		{StateInitiated, true, false},
		{StateCollectingOffers, true, true},
		{StateAwaitingFinalConfirm, true, false},
		{StateExecuting, false, false},
		{StateCompleted, false, false},
		{StateTimedOut, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.AllowsCancel(); got != tt.cancellable {
				t.Errorf("AllowsCancel() = %v, want %v", got, tt.cancellable)
			}
			if got := tt.state.OffersMutable(); got != tt.mutable {
				t.Errorf("OffersMutable() = %v, want %v", got, tt.mutable)
			}
		})
	}
}
