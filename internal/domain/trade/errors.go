package trade

import (
	"errors"
	"fmt"
	"strings"
)

type UserErrorKind string

const (
	KindSelfTrade      UserErrorKind = "self_trade"
	KindNonHuman       UserErrorKind = "non_human"
	KindAlreadyTrading UserErrorKind = "already_trading"
	KindUnreachable    UserErrorKind = "unreachable"
)

// UserError rejects a trade before any session exists.
type UserError struct {
	Kind    UserErrorKind
	UserID  string
	Message string
}

func (e *UserError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// Is matches on Kind so the sentinels below work with errors.Is.
func (e *UserError) Is(target error) bool {
	var t *UserError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrSelfTrade      = &UserError{Kind: KindSelfTrade, Message: "you cannot trade with yourself"}
	ErrNonHumanTarget = &UserError{Kind: KindNonHuman, Message: "you cannot trade with a bot"}
	ErrAlreadyTrading = &UserError{Kind: KindAlreadyTrading, Message: "user is already in a trade"}
	ErrUnreachable    = &UserError{Kind: KindUnreachable, Message: "user cannot be reached"}
)

func newUserError(kind UserErrorKind, userID, msg string) *UserError {
	return &UserError{Kind: kind, UserID: userID, Message: msg}
}

var (
	ErrTimeout   = errors.New("negotiation timed out")
	ErrCancelled = errors.New("trade cancelled")
	ErrDeclined  = errors.New("trade declined")

	ErrIllegalTransition = errors.New("illegal state transition")
	ErrNotCancellable    = errors.New("trade can no longer be cancelled")
	ErrNotParticipant    = errors.New("user is not part of this trade")
	ErrSessionNotFound   = errors.New("trade session not found")
	ErrSessionActive     = errors.New("trade session is still running")
	ErrNoActiveSession   = errors.New("no active trade")
)

// Offer editing errors.
var (
	ErrCardNotOwned        = errors.New("card is not in your inventory")
	ErrDuplicateCard       = errors.New("card is already in your offer")
	ErrCardNotOffered      = errors.New("card is not in your offer")
	ErrTooManyCards        = errors.New("offer holds too many cards")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOfferFrozen         = errors.New("offer is already confirmed")
)

// PartyError ties a negotiation failure to the party that caused it.
type PartyError struct {
	Party Party
	Err   error
}

func (e *PartyError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Party.Role, e.Party.UserID, e.Err)
}

func (e *PartyError) Unwrap() error { return e.Err }

type StaleSide struct {
	Role         Role
	UserID       string
	MissingCards []CardID
	Balance      int64
	Required     int64
}

func (s StaleSide) describe() string {
	var parts []string
	if len(s.MissingCards) > 0 {
		parts = append(parts, fmt.Sprintf("%d card(s) no longer owned", len(s.MissingCards)))
	}
	if s.Required > s.Balance {
		parts = append(parts, fmt.Sprintf("balance %d below offered %d", s.Balance, s.Required))
	}
	return fmt.Sprintf("%s offer is stale (%s)", s.Role, strings.Join(parts, ", "))
}

// StaleOfferError is returned when an offer no longer matches the live inventory.
type StaleOfferError struct {
	Sides []StaleSide
}

func (e *StaleOfferError) Error() string {
	msgs := make([]string, 0, len(e.Sides))
	for _, s := range e.Sides {
		msgs = append(msgs, s.describe())
	}
	return strings.Join(msgs, "; ")
}

func (e *StaleOfferError) Roles() []Role {
	roles := make([]Role, 0, len(e.Sides))
	for _, s := range e.Sides {
		roles = append(roles, s.Role)
	}
	return roles
}

// ExecutionError wraps a storage failure during the swap. The transaction has
// been rolled back when this is returned.
type ExecutionError struct {
	SessionID string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("trade %s execution failed: %v", e.SessionID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// HumanMessage renders err for display to a player.
func HumanMessage(err error) string {
	var (
		userErr  *UserError
		staleErr *StaleOfferError
		execErr  *ExecutionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &userErr):
		return userErr.Error()
	case errors.As(err, &staleErr):
		return "The trade failed because an offer changed: " + staleErr.Error()
	case errors.As(err, &execErr):
		return "The trade could not be completed. Nothing was transferred."
	case errors.Is(err, ErrTimeout):
		return "The trade timed out."
	case errors.Is(err, ErrCancelled), errors.Is(err, ErrDeclined):
		return "The trade was cancelled."
	case errors.Is(err, ErrNotCancellable):
		return "The trade is already executing and cannot be cancelled."
	case errors.Is(err, ErrNoActiveSession):
		return "You are not in a trade."
	case errors.Is(err, ErrNotParticipant):
		return "You are not part of this trade."
	case errors.Is(err, ErrSessionNotFound):
		return "That trade does not exist."
	case errors.Is(err, ErrCardNotOwned),
		errors.Is(err, ErrDuplicateCard),
		errors.Is(err, ErrCardNotOffered),
		errors.Is(err, ErrTooManyCards),
		errors.Is(err, ErrNegativeAmount),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrOfferFrozen):
		return capitalize(err.Error()) + "."
	}
	return "Something went wrong with the trade."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
