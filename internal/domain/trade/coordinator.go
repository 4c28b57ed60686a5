package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
)

const shutdownReason = "shutdown"

type Config struct {
	OfferWindow        time.Duration
	FinalConfirmWindow time.Duration
	ExecutionTimeout   time.Duration
	PersistTimeout     time.Duration
	MaxCardsPerOffer   int
	FinishedCacheSize  int
}

func DefaultConfig() Config {
	return Config{
		OfferWindow:        5 * time.Minute,
		FinalConfirmWindow: 2 * time.Minute,
		ExecutionTimeout:   30 * time.Second,
		PersistTimeout:     10 * time.Second,
		MaxCardsPerOffer:   10,
		FinishedCacheSize:  1024,
	}
}

// Lifetime is the longest a session can stay open. Registry entries expire
// after it so a crashed process never blocks a user for good.
func (c Config) Lifetime() time.Duration {
	return c.OfferWindow + c.FinalConfirmWindow + c.ExecutionTimeout + time.Minute
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.OfferWindow <= 0 {
		c.OfferWindow = d.OfferWindow
	}
	if c.FinalConfirmWindow <= 0 {
		c.FinalConfirmWindow = d.FinalConfirmWindow
	}
	// The final confirmation window is always the shorter one.
	if c.FinalConfirmWindow >= c.OfferWindow {
		c.FinalConfirmWindow = c.OfferWindow / 2
	}
	if c.ExecutionTimeout <= 0 {
		c.ExecutionTimeout = d.ExecutionTimeout
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = d.PersistTimeout
	}
	if c.MaxCardsPerOffer <= 0 {
		c.MaxCardsPerOffer = d.MaxCardsPerOffer
	}
	if c.FinishedCacheSize <= 0 {
		c.FinishedCacheSize = d.FinishedCacheSize
	}
	return c
}

type Dependencies struct {
	Inventory InventoryStore
	Messenger Messenger
	Records   RecordStore
	Registry  SessionRegistry
}

type Option func(*Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

func WithListeners(listeners ...OutcomeListener) Option {
	return func(c *Coordinator) { c.listeners = append(c.listeners, listeners...) }
}

// Coordinator drives trade sessions from initiation to a terminal outcome.
type Coordinator struct {
	cfg       Config
	inventory InventoryStore
	messenger Messenger
	records   RecordStore
	registry  SessionRegistry
	executor  *Executor
	listeners []OutcomeListener
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	byUser   map[string]*Session
	running  sync.WaitGroup
	finished *lru.Cache
}

func NewCoordinator(cfg Config, deps Dependencies, opts ...Option) (*Coordinator, error) {
	if deps.Inventory == nil || deps.Messenger == nil || deps.Records == nil || deps.Registry == nil {
		return nil, errors.New("trade: coordinator needs inventory, messenger, records and registry")
	}
	cfg = cfg.withDefaults()

	finished, err := lru.New(cfg.FinishedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create outcome cache: %w", err)
	}

	c := &Coordinator{
		cfg:       cfg,
		inventory: deps.Inventory,
		messenger: deps.Messenger,
		records:   deps.Records,
		registry:  deps.Registry,
		logger:    slog.Default(),
		now:       time.Now,
		sessions:  make(map[string]*Session),
		byUser:    make(map[string]*Session),
		finished:  finished,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.executor = NewExecutor(c.inventory, c.logger)
	return c, nil
}

func (c *Coordinator) Config() Config {
	return c.cfg
}

// Start opens a session and negotiates it in the background.
func (c *Coordinator) Start(ctx context.Context, initiator, counterparty User) (*Session, error) {
	s, err := c.Open(ctx, initiator, counterparty)
	if err != nil {
		return nil, err
	}
	go c.Run(context.WithoutCancel(ctx), s)
	return s, nil
}

// Open validates both users and reserves them. No session exists when an
// error is returned.
func (c *Coordinator) Open(ctx context.Context, initiator, counterparty User) (*Session, error) {
	if initiator.ID == counterparty.ID {
		return nil, ErrSelfTrade
	}
	if counterparty.Bot {
		return nil, ErrNonHumanTarget
	}

	now := recordTime(c.now())
	id, err := NewSessionID(now)
	if err != nil {
		return nil, err
	}
	s := newSession(id,
		Party{UserID: initiator.ID, Name: initiator.Name, Role: RoleInitiator},
		Party{UserID: counterparty.ID, Name: counterparty.Name, Role: RoleCounterparty},
		now, now.Add(c.cfg.Lifetime()))

	ttl := c.cfg.Lifetime()
	if err := c.registry.Acquire(ctx, initiator.ID, id, ttl); err != nil {
		if errors.Is(err, ErrAlreadyTrading) {
			return nil, newUserError(KindAlreadyTrading, initiator.ID, "you are already in a trade")
		}
		return nil, fmt.Errorf("failed to reserve %s: %w", initiator.ID, err)
	}
	if err := c.registry.Acquire(ctx, counterparty.ID, id, ttl); err != nil {
		c.release(ctx, s.ID, initiator.ID)
		if errors.Is(err, ErrAlreadyTrading) {
			return nil, newUserError(KindAlreadyTrading, counterparty.ID,
				fmt.Sprintf("%s is already in a trade", displayName(counterparty)))
		}
		return nil, fmt.Errorf("failed to reserve %s: %w", counterparty.ID, err)
	}
	if err := c.messenger.Reachable(ctx, counterparty.ID); err != nil {
		c.release(ctx, s.ID, initiator.ID, counterparty.ID)
		c.logger.Debug("Counterparty unreachable",
			slog.String("type", "trade"),
			slog.String("user_id", counterparty.ID),
			slog.Any("error", err))
		return nil, newUserError(KindUnreachable, counterparty.ID,
			fmt.Sprintf("%s cannot receive direct messages", displayName(counterparty)))
	}

	c.mu.Lock()
	c.sessions[s.ID] = s
	c.byUser[initiator.ID] = s
	c.byUser[counterparty.ID] = s
	c.running.Add(1)
	c.mu.Unlock()

	c.logger.Info("Trade session opened",
		slog.String("type", "trade"),
		slog.String("session_id", s.ID),
		slog.String("initiator", initiator.ID),
		slog.String("counterparty", counterparty.ID))
	return s, nil
}

// Run negotiates s until it reaches a terminal state and returns its record.
func (c *Coordinator) Run(ctx context.Context, s *Session) Record {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !s.bindRun(cancel) {
		return c.finish(ctx, s)
	}
	if !c.advance(s, EvBegin) {
		return c.finish(ctx, s)
	}

	if err := c.collectOffers(runCtx, s); err != nil {
		c.abort(ctx, s, err)
		return c.finish(ctx, s)
	}
	if !c.advance(s, EvOffersConfirmed) {
		return c.finish(ctx, s)
	}

	if err := c.confirmFinal(runCtx, s); err != nil {
		c.abort(ctx, s, err)
		return c.finish(ctx, s)
	}
	if !c.advance(s, EvBothAccepted) {
		return c.finish(ctx, s)
	}

	c.execute(ctx, s)
	return c.finish(ctx, s)
}

func (c *Coordinator) advance(s *Session, ev Event) bool {
	from, to, err := s.apply(ev)
	if err != nil {
		c.logger.Debug("Trade transition rejected",
			slog.String("type", "trade"),
			slog.String("session_id", s.ID),
			slog.String("event", ev.String()),
			slog.String("state", from.String()))
		return false
	}
	c.logger.Debug("Trade state changed",
		slog.String("type", "trade"),
		slog.String("session_id", s.ID),
		slog.String("from", from.String()),
		slog.String("to", to.String()))
	return true
}

// collectOffers runs both collectors concurrently and waits for both.
func (c *Coordinator) collectOffers(ctx context.Context, s *Session) error {
	deadline := c.now().Add(c.cfg.OfferWindow)
	g, gctx := errgroup.WithContext(ctx)

	for _, p := range []Party{s.Initiator, s.Counterparty} {
		partner := s.Party(p.Role.Other())
		g.Go(func() error {
			pctx, cancel := context.WithDeadline(gctx, deadline)
			defer cancel()

			snap, err := c.inventory.Snapshot(pctx, p.UserID)
			if err != nil {
				return partyErr(pctx, p, fmt.Errorf("inventory unavailable: %w", err))
			}
			offer, err := c.messenger.PromptOffer(pctx, OfferPrompt{
				SessionID: s.ID,
				Party:     p,
				Partner:   partner,
				Snapshot:  snap,
				MaxCards:  c.cfg.MaxCardsPerOffer,
				Deadline:  deadline,
			})
			if err != nil {
				return partyErr(pctx, p, err)
			}

			offer.Owner = p
			if err := s.setOffer(offer, c.cfg.MaxCardsPerOffer); err != nil {
				return &PartyError{Party: p, Err: err}
			}
			c.logger.Debug("Offer confirmed",
				slog.String("type", "trade"),
				slog.String("session_id", s.ID),
				slog.String("role", string(p.Role)),
				slog.Int("cards", len(offer.Cards)),
				slog.Int64("currency", offer.Currency))
			return nil
		})
	}
	return g.Wait()
}

// confirmFinal requires an explicit accept from both parties.
func (c *Coordinator) confirmFinal(ctx context.Context, s *Session) error {
	deadline := c.now().Add(c.cfg.FinalConfirmWindow)
	g, gctx := errgroup.WithContext(ctx)

	for _, p := range []Party{s.Initiator, s.Counterparty} {
		g.Go(func() error {
			pctx, cancel := context.WithDeadline(gctx, deadline)
			defer cancel()

			accepted, err := c.messenger.PromptFinalConfirmation(pctx, FinalPrompt{
				SessionID: s.ID,
				Party:     p,
				Own:       s.Offer(p.Role),
				Partner:   s.Offer(p.Role.Other()),
				Deadline:  deadline,
			})
			if err == nil && !accepted && pctx.Err() != nil {
				err = pctx.Err()
			}
			if err != nil {
				return partyErr(pctx, p, err)
			}
			if !accepted {
				return &PartyError{Party: p, Err: ErrDeclined}
			}
			return nil
		})
	}
	return g.Wait()
}

func partyErr(ctx context.Context, p Party, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &PartyError{Party: p, Err: ErrTimeout}
	}
	return &PartyError{Party: p, Err: err}
}

// abort classifies a negotiation failure. A cancel that already moved the
// session to a terminal state wins over whatever the prompts returned.
func (c *Coordinator) abort(ctx context.Context, s *Session, err error) {
	if s.State().IsTerminal() {
		return
	}

	var pe *PartyError
	party := Party{}
	if errors.As(err, &pe) {
		party = pe.Party
	}

	switch {
	case errors.Is(err, ErrTimeout):
		s.terminate(EvTimeout, fmt.Sprintf("%s did not respond in time", party.Role), "", nil)
	case errors.Is(err, ErrDeclined):
		s.terminate(EvCancel, fmt.Sprintf("declined by %s", party.Role), party.UserID, nil)
	case errors.Is(err, ErrCancelled):
		s.terminate(EvCancel, fmt.Sprintf("cancelled by %s", party.Role), party.UserID, nil)
	case ctx.Err() != nil:
		s.terminate(EvCancel, shutdownReason, "", nil)
	default:
		c.logger.Warn("Trade negotiation failed",
			slog.String("type", "trade"),
			slog.String("session_id", s.ID),
			slog.String("role", string(party.Role)),
			slog.Any("error", err))
		s.terminate(EvCancel, fmt.Sprintf("%s could not be reached", party.Role), "", nil)
	}
}

// execute is the commit point. It is detached from caller cancellation so it
// always reaches COMPLETED or FAILED.
func (c *Coordinator) execute(ctx context.Context, s *Session) {
	execCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ExecutionTimeout)
	defer cancel()

	err := c.executor.Execute(execCtx, s.ID, s.Offer(RoleInitiator), s.Offer(RoleCounterparty))

	var stale *StaleOfferError
	switch {
	case err == nil:
		s.terminate(EvCommitted, "", "", nil)
	case errors.As(err, &stale):
		s.terminate(EvStale, stale.Error(), "", stale.Roles())
	default:
		s.terminate(EvExecFailed, "the transfer could not be applied", "", nil)
	}
}

// finish persists the record, releases both users and notifies everyone.
func (c *Coordinator) finish(ctx context.Context, s *Session) Record {
	rec, first := s.seal(c.now())
	if !first {
		return rec
	}
	defer close(s.done)

	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.PersistTimeout)
	defer cancel()

	if err := c.records.Save(bg, rec); err != nil {
		c.logger.Error("Failed to save trade record",
			slog.String("type", "trade"),
			slog.String("session_id", s.ID),
			slog.Any("error", err))
	}

	c.finished.Add(s.ID, rec)
	c.mu.Lock()
	delete(c.sessions, s.ID)
	for _, p := range []Party{s.Initiator, s.Counterparty} {
		if c.byUser[p.UserID] == s {
			delete(c.byUser, p.UserID)
		}
	}
	c.mu.Unlock()
	c.release(bg, s.ID, s.Initiator.UserID, s.Counterparty.UserID)

	c.logger.Info("Trade session finished",
		slog.String("type", "trade"),
		slog.String("session_id", s.ID),
		slog.String("outcome", string(rec.Outcome)),
		slog.String("reason", rec.Reason))

	var g errgroup.Group
	for _, p := range []Party{s.Initiator, s.Counterparty} {
		g.Go(func() error {
			if err := c.messenger.NotifyOutcome(bg, p.UserID, rec); err != nil {
				c.logger.Warn("Failed to notify trade outcome",
					slog.String("type", "trade"),
					slog.String("session_id", s.ID),
					slog.String("user_id", p.UserID),
					slog.Any("error", err))
			}
			return nil
		})
	}
	for _, l := range c.listeners {
		g.Go(func() error {
			if err := l.OnOutcome(bg, rec); err != nil {
				c.logger.Warn("Outcome listener failed",
					slog.String("type", "trade"),
					slog.String("session_id", s.ID),
					slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()

	c.running.Done()
	return rec
}

func (c *Coordinator) release(ctx context.Context, sessionID string, userIDs ...string) {
	for _, id := range userIDs {
		if err := c.registry.Release(ctx, id, sessionID); err != nil {
			c.logger.Error("Failed to release open trade",
				slog.String("type", "trade"),
				slog.String("session_id", sessionID),
				slog.String("user_id", id),
				slog.Any("error", err))
		}
	}
}

// Cancel aborts a session on behalf of one of its parties.
func (c *Coordinator) Cancel(_ context.Context, sessionID, userID string) error {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	c.mu.Unlock()
	if !ok {
		if _, done := c.finished.Get(sessionID); done {
			return ErrNotCancellable
		}
		return ErrSessionNotFound
	}

	party, ok := s.PartyFor(userID)
	if !ok {
		return ErrNotParticipant
	}
	if err := s.cancel(userID, fmt.Sprintf("cancelled by %s", party.Role)); err != nil {
		return err
	}
	c.logger.Info("Trade cancelled",
		slog.String("type", "trade"),
		slog.String("session_id", sessionID),
		slog.String("user_id", userID))
	return nil
}

// CancelUser cancels whatever session the user is currently in.
func (c *Coordinator) CancelUser(ctx context.Context, userID string) error {
	s, ok := c.SessionFor(userID)
	if !ok {
		return ErrNoActiveSession
	}
	return c.Cancel(ctx, s.ID, userID)
}

func (c *Coordinator) SessionFor(userID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byUser[userID]
	return s, ok
}

func (c *Coordinator) Session(sessionID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	return s, ok
}

// Outcome returns the record of a finished session. Repeated calls return
// the same record.
func (c *Coordinator) Outcome(ctx context.Context, sessionID string) (Record, error) {
	if s, ok := c.Session(sessionID); ok {
		if rec, sealed := s.Record(); sealed {
			return rec, nil
		}
		return Record{}, ErrSessionActive
	}
	if v, ok := c.finished.Get(sessionID); ok {
		return v.(Record).clone(), nil
	}

	rec, err := c.records.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("failed to load trade %s: %w", sessionID, err)
	}
	c.finished.Add(sessionID, rec)
	return rec.clone(), nil
}

// History returns the most recent records the user took part in.
func (c *Coordinator) History(ctx context.Context, userID string, limit int) ([]Record, error) {
	return c.records.LoadRecent(ctx, userID, limit)
}

// Shutdown cancels every session that has not started executing and waits
// for all sessions to finish.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	live := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		live = append(live, s)
	}
	c.mu.Unlock()

	for _, s := range live {
		if err := s.cancel("", shutdownReason); err != nil && !errors.Is(err, ErrNotCancellable) {
			c.logger.Warn("Failed to cancel trade on shutdown",
				slog.String("type", "trade"),
				slog.String("session_id", s.ID),
				slog.Any("error", err))
		}
	}

	done := make(chan struct{})
	go func() {
		c.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func displayName(u User) string {
	if u.Name != "" {
		return u.Name
	}
	return "that user"
}
