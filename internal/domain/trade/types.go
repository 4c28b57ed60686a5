package trade

import (
	"slices"
	"time"
)

type Role string

const (
	RoleInitiator    Role = "initiator"
	RoleCounterparty Role = "counterparty"
)

// Other returns the opposite side of the trade.
func (r Role) Other() Role {
	if r == RoleInitiator {
		return RoleCounterparty
	}
	return RoleInitiator
}

// CardID is a catalog card id. One CardID in an offer stands for one copy of
// that card in the owner's inventory.
type CardID int64

type User struct {
	ID   string
	Name string
	Bot  bool
}

type Party struct {
	UserID string `json:"user_id" bson:"user_id"`
	Name   string `json:"name,omitempty" bson:"name,omitempty"`
	Role   Role   `json:"role" bson:"role"`
}

type Offer struct {
	Owner    Party    `json:"owner" bson:"owner"`
	Cards    []CardID `json:"cards" bson:"cards"`
	Currency int64    `json:"currency" bson:"currency"`
}

func (o Offer) IsEmpty() bool {
	return len(o.Cards) == 0 && o.Currency == 0
}

// Clone returns a deep copy so callers cannot alias a frozen offer.
func (o Offer) Clone() Offer {
	o.Cards = slices.Clone(o.Cards)
	return o
}

func (o Offer) Contains(id CardID) bool {
	return slices.Contains(o.Cards, id)
}

type OwnedCard struct {
	ID     CardID
	Name   string
	Level  int
	Amount int64
}

// Snapshot is a read-only view of a user's inventory at TakenAt. It is never
// used as the authority for execution.
type Snapshot struct {
	UserID  string
	Cards   []OwnedCard
	Balance int64
	TakenAt time.Time
}

func (s Snapshot) Owns(id CardID) bool {
	_, ok := s.Card(id)
	return ok
}

func (s Snapshot) Card(id CardID) (OwnedCard, bool) {
	for _, c := range s.Cards {
		if c.ID == id && c.Amount > 0 {
			return c, true
		}
	}
	return OwnedCard{}, false
}

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
)

// Record is the persisted result of a session. It is built once, when the
// session reaches a terminal state.
type Record struct {
	SessionID         string    `json:"session_id" bson:"_id"`
	Initiator         Party     `json:"initiator" bson:"initiator"`
	Counterparty      Party     `json:"counterparty" bson:"counterparty"`
	InitiatorOffer    Offer     `json:"initiator_offer" bson:"initiator_offer"`
	CounterpartyOffer Offer     `json:"counterparty_offer" bson:"counterparty_offer"`
	Outcome           Outcome   `json:"outcome" bson:"outcome"`
	Reason            string    `json:"reason,omitempty" bson:"reason,omitempty"`
	StaleSides        []Role    `json:"stale_sides,omitempty" bson:"stale_sides,omitempty"`
	CancelledBy       string    `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
	FinishedAt        time.Time `json:"finished_at" bson:"finished_at"`
}

// Offer returns the offer of the given side.
func (r Record) Offer(role Role) Offer {
	if role == RoleInitiator {
		return r.InitiatorOffer
	}
	return r.CounterpartyOffer
}

// PartyOf returns the party the user played in this trade.
func (r Record) PartyOf(userID string) (Party, bool) {
	switch userID {
	case r.Initiator.UserID:
		return r.Initiator, true
	case r.Counterparty.UserID:
		return r.Counterparty, true
	}
	return Party{}, false
}

// OfferPrompt is handed to a Messenger when a party should build an offer.
type OfferPrompt struct {
	SessionID string
	Party     Party
	Partner   Party
	Snapshot  Snapshot
	MaxCards  int
	Deadline  time.Time
}

// FinalPrompt carries the frozen summary both parties must accept.
type FinalPrompt struct {
	SessionID string
	Party     Party
	Own       Offer
	Partner   Offer
	Deadline  time.Time
}
