package trading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/disgoorg/tradebot/internal/domain/trade"
)

var ErrNoPendingPrompt = errors.New("there is nothing waiting for your answer")

var _ trade.Messenger = (*Messenger)(nil)

// DMRest is the part of the Discord REST client the messenger talks to.
type DMRest interface {
	CreateDMChannel(userID snowflake.ID, opts ...rest.RequestOpt) (*discord.DMChannel, error)
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
	UpdateMessage(channelID snowflake.ID, messageID snowflake.ID, messageUpdate discord.MessageUpdate, opts ...rest.RequestOpt) (*discord.Message, error)
}

type pendingOffer struct {
	prompt    trade.OfferPrompt
	collector *trade.OfferCollector
	channelID snowflake.ID
	messageID snowflake.ID
}

type pendingFinal struct {
	sessionID string
	answer    chan bool
}

// Messenger runs trade prompts over direct messages. Offers are edited with
// slash commands and confirmed with buttons; both land here through the
// command-facing methods below.
type Messenger struct {
	rest   DMRest
	names  *CardNameCache
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	offers map[string]*pendingOffer
	finals map[string]*pendingFinal
}

// NewMessenger builds a Messenger. A nil logger falls back to slog.Default.
func NewMessenger(rest DMRest, names *CardNameCache, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Messenger{
		rest:   rest,
		names:  names,
		logger: logger,
		now:    time.Now,
		offers: make(map[string]*pendingOffer),
		finals: make(map[string]*pendingFinal),
	}
}

func (m *Messenger) openDM(ctx context.Context, userID string) (snowflake.ID, error) {
	id, err := snowflake.Parse(userID)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	ch, err := m.rest.CreateDMChannel(id, rest.WithCtx(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to open DM channel: %w", err)
	}
	return ch.ID(), nil
}

func (m *Messenger) Reachable(ctx context.Context, userID string) error {
	_, err := m.openDM(ctx, userID)
	return err
}

func (m *Messenger) PromptOffer(ctx context.Context, p trade.OfferPrompt) (trade.Offer, error) {
	collector := trade.NewOfferCollector(p.Party, p.Snapshot, p.MaxCards)
	m.names.Remember(p.Snapshot.Cards)

	channelID, err := m.openDM(ctx, p.Party.UserID)
	if err != nil {
		return trade.Offer{}, err
	}

	pending := &pendingOffer{prompt: p, collector: collector, channelID: channelID}
	m.mu.Lock()
	m.offers[p.Party.UserID] = pending
	m.mu.Unlock()
	defer m.dropOffer(p.Party.UserID, pending)

	msg, err := m.rest.CreateMessage(channelID, discord.MessageCreate{
		Embeds:     []discord.Embed{offerEmbed(p, collector.Draft(), false, nil, m.now())},
		Components: offerComponents(p.SessionID, false),
	}, rest.WithCtx(ctx))
	if err != nil {
		return trade.Offer{}, fmt.Errorf("failed to send offer prompt: %w", err)
	}
	m.mu.Lock()
	pending.messageID = msg.ID
	m.mu.Unlock()

	return collector.Collect(ctx)
}

func (m *Messenger) dropOffer(userID string, pending *pendingOffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offers[userID] == pending {
		delete(m.offers, userID)
	}
}

func (m *Messenger) PromptFinalConfirmation(ctx context.Context, p trade.FinalPrompt) (bool, error) {
	channelID, err := m.openDM(ctx, p.Party.UserID)
	if err != nil {
		return false, err
	}

	pending := &pendingFinal{sessionID: p.SessionID, answer: make(chan bool, 1)}
	m.mu.Lock()
	m.finals[p.Party.UserID] = pending
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		if m.finals[p.Party.UserID] == pending {
			delete(m.finals, p.Party.UserID)
		}
		m.mu.Unlock()
	}()

	names := m.names.Lookup(ctx, offerNames(p.Own, p.Partner))
	_, err = m.rest.CreateMessage(channelID, discord.MessageCreate{
		Embeds:     []discord.Embed{finalEmbed(p, p.Partner.Owner, names, m.now())},
		Components: finalComponents(p.SessionID),
	}, rest.WithCtx(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to send final confirmation: %w", err)
	}

	select {
	case accepted := <-pending.answer:
		return accepted, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (m *Messenger) NotifyOutcome(ctx context.Context, userID string, rec trade.Record) error {
	channelID, err := m.openDM(ctx, userID)
	if err != nil {
		return err
	}
	names := m.names.Lookup(ctx, offerNames(rec.InitiatorOffer, rec.CounterpartyOffer))
	_, err = m.rest.CreateMessage(channelID, discord.MessageCreate{
		Embeds: []discord.Embed{OutcomeEmbed(rec, userID, names)},
	}, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to send trade outcome: %w", err)
	}
	return nil
}

func (m *Messenger) offerFor(userID, sessionID string) (*pendingOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending, ok := m.offers[userID]
	if !ok {
		return nil, ErrNoPendingPrompt
	}
	if sessionID != "" && pending.prompt.SessionID != sessionID {
		return nil, trade.ErrNotParticipant
	}
	return pending, nil
}

// AddCard resolves query against the user's snapshot and adds the match.
func (m *Messenger) AddCard(ctx context.Context, userID, query string) (trade.OwnedCard, error) {
	pending, err := m.offerFor(userID, "")
	if err != nil {
		return trade.OwnedCard{}, err
	}
	card, err := FindCard(pending.collector.Snapshot().Cards, query)
	if err != nil {
		return trade.OwnedCard{}, err
	}
	if err := pending.collector.AddCard(card.ID); err != nil {
		return trade.OwnedCard{}, err
	}
	m.refresh(ctx, pending)
	return card, nil
}

func (m *Messenger) RemoveCard(ctx context.Context, userID, query string) (trade.OwnedCard, error) {
	pending, err := m.offerFor(userID, "")
	if err != nil {
		return trade.OwnedCard{}, err
	}
	card, err := FindCard(pending.collector.Snapshot().Cards, query)
	if err != nil {
		return trade.OwnedCard{}, err
	}
	if err := pending.collector.RemoveCard(card.ID); err != nil {
		return trade.OwnedCard{}, err
	}
	m.refresh(ctx, pending)
	return card, nil
}

func (m *Messenger) SetCurrency(ctx context.Context, userID string, amount int64) error {
	pending, err := m.offerFor(userID, "")
	if err != nil {
		return err
	}
	if err := pending.collector.SetCurrency(amount); err != nil {
		return err
	}
	m.refresh(ctx, pending)
	return nil
}

// ConfirmOffer freezes the user's draft for sessionID.
func (m *Messenger) ConfirmOffer(ctx context.Context, userID, sessionID string) (trade.Offer, error) {
	pending, err := m.offerFor(userID, sessionID)
	if err != nil {
		return trade.Offer{}, err
	}
	offer, err := pending.collector.Confirm()
	if err != nil {
		return trade.Offer{}, err
	}
	m.refresh(ctx, pending)
	return offer, nil
}

// AnswerFinal delivers an accept or decline for sessionID.
func (m *Messenger) AnswerFinal(userID, sessionID string, accept bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending, ok := m.finals[userID]
	if !ok {
		return ErrNoPendingPrompt
	}
	if pending.sessionID != sessionID {
		return trade.ErrNotParticipant
	}
	delete(m.finals, userID)
	pending.answer <- accept
	return nil
}

// Draft returns the user's offer in progress.
func (m *Messenger) Draft(userID string) (trade.OfferPrompt, trade.Offer, bool) {
	pending, err := m.offerFor(userID, "")
	if err != nil {
		return trade.OfferPrompt{}, trade.Offer{}, false
	}
	return pending.prompt, pending.collector.Draft(), pending.collector.Confirmed()
}

// Tradeable lists the cards the user may still add, for autocomplete.
func (m *Messenger) Tradeable(userID string) []trade.OwnedCard {
	pending, err := m.offerFor(userID, "")
	if err != nil {
		return nil
	}
	return pending.collector.Snapshot().Cards
}

// DraftEmbed renders the user's current offer prompt.
func (m *Messenger) DraftEmbed(ctx context.Context, userID string) (discord.Embed, bool) {
	p, draft, confirmed := m.Draft(userID)
	if p.SessionID == "" {
		return discord.Embed{}, false
	}
	return offerEmbed(p, draft, confirmed, m.names.Lookup(ctx, draft.Cards), m.now()), true
}

// refresh rewrites the DM prompt so it shows the current draft. Failures
// only cost the user a stale view.
func (m *Messenger) refresh(ctx context.Context, pending *pendingOffer) {
	m.mu.Lock()
	channelID, messageID := pending.channelID, pending.messageID
	m.mu.Unlock()
	if messageID == 0 {
		return
	}

	draft := pending.collector.Draft()
	confirmed := pending.collector.Confirmed()
	embed := offerEmbed(pending.prompt, draft, confirmed, m.names.Lookup(ctx, draft.Cards), m.now())
	components := offerComponents(pending.prompt.SessionID, confirmed)

	_, err := m.rest.UpdateMessage(channelID, messageID, discord.MessageUpdate{
		Embeds:     &[]discord.Embed{embed},
		Components: &components,
	}, rest.WithCtx(ctx))
	if err != nil {
		m.logger.Warn("Failed to refresh offer prompt",
			slog.String("type", "trade"),
			slog.String("session_id", pending.prompt.SessionID),
			slog.Any("error", err))
	}
}
