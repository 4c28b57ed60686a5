package trade

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Session is the live negotiation between two parties. All mutable fields are
// guarded by mu; the state decides which of them may still change.
type Session struct {
	ID           string
	Initiator    Party
	Counterparty Party
	CreatedAt    time.Time
	ExpiresAt    time.Time

	mu          sync.Mutex
	state       State
	offers      map[Role]Offer
	reason      string
	cancelledBy string
	staleSides  []Role
	record      *Record
	cancelRun   context.CancelFunc
	done        chan struct{}
}

func newSession(id string, initiator, counterparty Party, createdAt, expiresAt time.Time) *Session {
	return &Session{
		ID:           id,
		Initiator:    initiator,
		Counterparty: counterparty,
		CreatedAt:    createdAt,
		ExpiresAt:    expiresAt,
		state:        StateInitiated,
		offers: map[Role]Offer{
			RoleInitiator:    {Owner: initiator},
			RoleCounterparty: {Owner: counterparty},
		},
		done: make(chan struct{}),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Party(role Role) Party {
	if role == RoleInitiator {
		return s.Initiator
	}
	return s.Counterparty
}

func (s *Session) PartyFor(userID string) (Party, bool) {
	switch userID {
	case s.Initiator.UserID:
		return s.Initiator, true
	case s.Counterparty.UserID:
		return s.Counterparty, true
	}
	return Party{}, false
}

func (s *Session) Offer(role Role) Offer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offers[role].Clone()
}

// Done is closed once the session is terminal and its record was handed out.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Record() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return Record{}, false
	}
	return s.record.clone(), true
}

// bindRun attaches the cancel func of the running negotiation. It returns
// false if the session was already finished before Run started.
func (s *Session) bindRun(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsTerminal() {
		return false
	}
	s.cancelRun = cancel
	return true
}

func (s *Session) apply(ev Event) (from, to State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(ev)
}

func (s *Session) applyLocked(ev Event) (State, State, error) {
	from := s.state
	to, err := Transition(from, ev)
	if err != nil {
		return from, from, err
	}
	s.state = to
	return from, to, nil
}

// terminate applies a terminal event and stores why it happened. It is a no-op
// returning false if the session already left the state the event applies to.
func (s *Session) terminate(ev Event, reason, by string, stale []Role) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.applyLocked(ev); err != nil {
		return s.state, false
	}
	s.reason = reason
	s.cancelledBy = by
	s.staleSides = stale
	return s.state, true
}

// cancel moves a pre-execution session to CANCELLED and stops its negotiation.
func (s *Session) cancel(by, reason string) error {
	s.mu.Lock()
	if !s.state.AllowsCancel() {
		s.mu.Unlock()
		return ErrNotCancellable
	}
	if _, _, err := s.applyLocked(EvCancel); err != nil {
		s.mu.Unlock()
		return err
	}
	s.reason = reason
	s.cancelledBy = by
	cancelRun := s.cancelRun
	s.mu.Unlock()

	if cancelRun != nil {
		cancelRun()
	}
	return nil
}

func (s *Session) setOffer(o Offer, maxCards int) error {
	cards := slices.Clone(o.Cards)
	slices.Sort(cards)
	cards = slices.Compact(cards)
	if o.Currency < 0 {
		return ErrNegativeAmount
	}
	if maxCards > 0 && len(cards) > maxCards {
		return ErrTooManyCards
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.OffersMutable() {
		return fmt.Errorf("%w: offers are closed in %s", ErrOfferFrozen, s.state)
	}
	owner := s.Party(o.Owner.Role)
	s.offers[owner.Role] = Offer{Owner: owner, Cards: cards, Currency: o.Currency}
	return nil
}

// seal builds the record exactly once.
func (s *Session) seal(finishedAt time.Time) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.record != nil {
		return s.record.clone(), false
	}
	outcome, ok := s.state.Outcome()
	if !ok {
		panic(fmt.Sprintf("trade: sealing session %s in non-terminal state %s", s.ID, s.state))
	}
	s.record = &Record{
		SessionID:         s.ID,
		Initiator:         s.Initiator,
		Counterparty:      s.Counterparty,
		InitiatorOffer:    s.offers[RoleInitiator].Clone(),
		CounterpartyOffer: s.offers[RoleCounterparty].Clone(),
		Outcome:           outcome,
		Reason:            s.reason,
		StaleSides:        slices.Clone(s.staleSides),
		CancelledBy:       s.cancelledBy,
		CreatedAt:         s.CreatedAt,
		FinishedAt:        recordTime(finishedAt),
	}
	return s.record.clone(), true
}

// recordTime normalizes a stamp stored on a Record so it survives a round
// trip through Postgres (microseconds) and MongoDB (milliseconds) unchanged.
func recordTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func (r Record) clone() Record {
	r.InitiatorOffer = r.InitiatorOffer.Clone()
	r.CounterpartyOffer = r.CounterpartyOffer.Clone()
	r.StaleSides = slices.Clone(r.StaleSides)
	return r
}
