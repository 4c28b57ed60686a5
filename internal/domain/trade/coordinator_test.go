package trade_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/internal/domain/trade/mock"
	"github.com/disgoorg/tradebot/internal/gateways/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type offerFunc func(ctx context.Context, p trade.OfferPrompt) (trade.Offer, error)

type finalFunc func(ctx context.Context, p trade.FinalPrompt) (bool, error)

// scriptedMessenger answers prompts with per-user scripts.
type scriptedMessenger struct {
	mu          sync.Mutex
	offers      map[string]offerFunc
	finals      map[string]finalFunc
	unreachable map[string]bool
	notified    map[string][]trade.Record
	events      []string
}

func newScriptedMessenger() *scriptedMessenger {
	return &scriptedMessenger{
		offers:      make(map[string]offerFunc),
		finals:      make(map[string]finalFunc),
		unreachable: make(map[string]bool),
		notified:    make(map[string][]trade.Record),
	}
}

func (m *scriptedMessenger) record(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *scriptedMessenger) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

func (m *scriptedMessenger) Notified(userID string) []trade.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.notified[userID])
}

func (m *scriptedMessenger) Reachable(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unreachable[userID] {
		return errors.New("cannot send messages to this user")
	}
	return nil
}

func (m *scriptedMessenger) PromptOffer(ctx context.Context, p trade.OfferPrompt) (trade.Offer, error) {
	m.mu.Lock()
	fn, ok := m.offers[p.Party.UserID]
	m.mu.Unlock()
	if !ok {
		fn = waitOffer
	}
	offer, err := fn(ctx, p)
	if err == nil {
		m.record("offer:" + p.Party.UserID)
	}
	return offer, err
}

func (m *scriptedMessenger) PromptFinalConfirmation(ctx context.Context, p trade.FinalPrompt) (bool, error) {
	m.record("final:" + p.Party.UserID)
	m.mu.Lock()
	fn, ok := m.finals[p.Party.UserID]
	m.mu.Unlock()
	if !ok {
		fn = accept
	}
	return fn(ctx, p)
}

func (m *scriptedMessenger) NotifyOutcome(_ context.Context, userID string, rec trade.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified[userID] = append(m.notified[userID], rec)
	return nil
}

func offer(currency int64, cards ...trade.CardID) offerFunc {
	return func(context.Context, trade.OfferPrompt) (trade.Offer, error) {
		return trade.Offer{Cards: cards, Currency: currency}, nil
	}
}

func delayedOffer(d time.Duration, currency int64, cards ...trade.CardID) offerFunc {
	return func(ctx context.Context, _ trade.OfferPrompt) (trade.Offer, error) {
		select {
		case <-time.After(d):
			return trade.Offer{Cards: cards, Currency: currency}, nil
		case <-ctx.Done():
			return trade.Offer{}, ctx.Err()
		}
	}
}

func waitOffer(ctx context.Context, _ trade.OfferPrompt) (trade.Offer, error) {
	<-ctx.Done()
	return trade.Offer{}, ctx.Err()
}

func accept(context.Context, trade.FinalPrompt) (bool, error) {
	return true, nil
}

func decline(context.Context, trade.FinalPrompt) (bool, error) {
	return false, nil
}

func waitFinal(ctx context.Context, _ trade.FinalPrompt) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

type fixture struct {
	inv       *memory.Inventory
	records   *memory.Records
	registry  *trade.MemoryRegistry
	messenger *scriptedMessenger
}

func newFixture() *fixture {
	return &fixture{
		inv:       seededInventory(),
		records:   memory.NewRecords(),
		registry:  trade.NewMemoryRegistry(),
		messenger: newScriptedMessenger(),
	}
}

func testConfig() trade.Config {
	return trade.Config{
		OfferWindow:        300 * time.Millisecond,
		FinalConfirmWindow: 150 * time.Millisecond,
		ExecutionTimeout:   time.Second,
		PersistTimeout:     time.Second,
		MaxCardsPerOffer:   5,
	}
}

func (f *fixture) coordinator(t *testing.T, store trade.InventoryStore, opts ...trade.Option) *trade.Coordinator {
	t.Helper()
	c, err := trade.NewCoordinator(testConfig(), trade.Dependencies{
		Inventory: store,
		Messenger: f.messenger,
		Records:   f.records,
		Registry:  f.registry,
	}, opts...)
	require.NoError(t, err)
	return c
}

func (f *fixture) negotiate(t *testing.T, c *trade.Coordinator) (*trade.Session, trade.Record) {
	t.Helper()
	s, err := c.Open(context.Background(), trade.User{ID: alice, Name: "alice"}, trade.User{ID: bob, Name: "bob"})
	require.NoError(t, err)
	return s, c.Run(context.Background(), s)
}

func TestCoordinator_ConfigDefaults(t *testing.T) {
	tests := []struct {
		name      string
		cfg       trade.Config
		wantOffer time.Duration
		wantFinal time.Duration
	}{
		{name: "zero values", cfg: trade.Config{}, wantOffer: 5 * time.Minute, wantFinal: 2 * time.Minute},
		{name: "shorter final window kept", cfg: trade.Config{OfferWindow: time.Minute, FinalConfirmWindow: 20 * time.Second},
			wantOffer: time.Minute, wantFinal: 20 * time.Second},
		{name: "equal windows", cfg: trade.Config{OfferWindow: time.Minute, FinalConfirmWindow: time.Minute},
			wantOffer: time.Minute, wantFinal: 30 * time.Second},
		{name: "final window longer", cfg: trade.Config{OfferWindow: time.Minute, FinalConfirmWindow: 3 * time.Minute},
			wantOffer: time.Minute, wantFinal: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			c, err := trade.NewCoordinator(tt.cfg, trade.Dependencies{
				Inventory: f.inv,
				Messenger: f.messenger,
				Records:   f.records,
				Registry:  f.registry,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantOffer, c.Config().OfferWindow)
			assert.Equal(t, tt.wantFinal, c.Config().FinalConfirmWindow)
		})
	}
}

func TestCoordinator_CompletedTrade(t *testing.T) {
	f := newFixture()
	c := f.coordinator(t, f.inv)
	f.messenger.offers[alice] = offer(100, cardX)
	f.messenger.offers[bob] = offer(0, cardY)
	before := capture(f.inv, alice, bob)

	s, rec := f.negotiate(t, c)

	assert.Equal(t, trade.StateCompleted, s.State())
	assert.Equal(t, trade.OutcomeCompleted, rec.Outcome)
	assert.Equal(t, []trade.CardID{cardX}, rec.InitiatorOffer.Cards)
	assert.Equal(t, int64(100), rec.InitiatorOffer.Currency)
	assert.Equal(t, []trade.CardID{cardY}, rec.CounterpartyOffer.Cards)

	assert.Equal(t, int64(1), f.inv.Count(alice, cardY))
	assert.Zero(t, f.inv.Count(alice, cardX))
	assert.Equal(t, int64(400), f.inv.Balance(alice))
	assert.Equal(t, int64(1), f.inv.Count(bob, cardX))
	assert.Zero(t, f.inv.Count(bob, cardY))
	assert.Equal(t, int64(150), f.inv.Balance(bob))

	after := capture(f.inv, alice, bob)
	assert.Equal(t, before.total(cardX), after.total(cardX))
	assert.Equal(t, before.total(cardY), after.total(cardY))
	assert.Equal(t, before.money(), after.money())

	stored, err := f.records.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, stored)
	assert.Len(t, f.messenger.Notified(alice), 1)
	assert.Len(t, f.messenger.Notified(bob), 1)

	_, open := f.registry.Holder(alice)
	assert.False(t, open, "registry entry must be released")
	_, live := c.SessionFor(alice)
	assert.False(t, live)
}

func TestCoordinator_OfferWindowElapses(t *testing.T) {
	f := newFixture()
	c := f.coordinator(t, f.inv)
	f.messenger.offers[alice] = offer(0, cardX)
	before := capture(f.inv, alice, bob)

	_, rec := f.negotiate(t, c)

	assert.Equal(t, trade.OutcomeTimedOut, rec.Outcome)
	assert.Contains(t, rec.Reason, string(trade.RoleCounterparty))
	assert.Equal(t, int64(1), f.inv.Count(alice, cardX))
	assert.Equal(t, before, capture(f.inv, alice, bob))
	assert.NotContains(t, f.messenger.Events(), "final:"+alice)
}

func TestCoordinator_CancelBeforeFinalConfirmation(t *testing.T) {
	f := newFixture()
	c := f.coordinator(t, f.inv)
	f.messenger.offers[alice] = offer(0, cardX)
	f.messenger.offers[bob] = offer(0)
	f.messenger.finals[alice] = func(ctx context.Context, p trade.FinalPrompt) (bool, error) {
		if err := c.Cancel(ctx, p.SessionID, alice); err != nil {
			return false, err
		}
		<-ctx.Done()
		return false, ctx.Err()
	}
	f.messenger.finals[bob] = waitFinal
	before := capture(f.inv, alice, bob)

	s, rec := f.negotiate(t, c)

	assert.Equal(t, trade.StateCancelled, s.State())
	assert.Equal(t, trade.OutcomeCancelled, rec.Outcome)
	assert.Equal(t, alice, rec.CancelledBy)
	assert.Equal(t, before, capture(f.inv, alice, bob))
}

func TestCoordinator_DeclineCancels(t *testing.T) {
	f := newFixture()
	c := f.coordinator(t, f.inv)
	f.messenger.offers[alice] = offer(0, cardX)
	f.messenger.offers[bob] = offer(0, cardY)
	f.messenger.finals[bob] = decline

	_, rec := f.negotiate(t, c)

	assert.Equal(t, trade.OutcomeCancelled, rec.Outcome)
	assert.Equal(t, bob, rec.CancelledBy)
	assert.Equal(t, int64(1), f.inv.Count(alice, cardX))
}

func TestCoordinator_FinalWindowElapses(t *testing.T) {
	f := newFixture()
	c := f.coordinator(t, f.inv)
	f.messenger.offers[alice] = offer(0, cardX)
	f.messenger.offers[bob] = offer(0, cardY)
	f.messenger.finals[bob] = waitFinal
	before := capture(f.inv, alice, bob)

	_, rec := f.negotiate(t, c)

	assert.Equal(t, trade.OutcomeTimedOut, rec.Outcome)
	assert.Equal(t, before, capture(f.inv, alice, bob))
}

func TestCoordinator_CurrencySpentAfterConfirming(t *testing.T) {
	f := newFixture()
	c := f.coordinator(t, f.inv)
	f.messenger.offers[alice] = offer(100)
	f.messenger.offers[bob] = offer(0, cardY)
	f.messenger.finals[alice] = func(context.Context, trade.FinalPrompt) (bool, error) {
		if err := f.inv.Spend(alice, 450); err != nil {
			return false, err
		}
		return true, nil
	}
	bobBefore := capture(f.inv, bob)

	_, rec := f.negotiate(t, c)

	assert.Equal(t, trade.OutcomeFailed, rec.Outcome)
	assert.Equal(t, []trade.Role{trade.RoleInitiator}, rec.StaleSides)
	assert.Equal(t, bobBefore, capture(f.inv, bob))
	assert.Equal(t, int64(50), f.inv.Balance(alice))
}

func TestCoordinator_StorageFailureRollsBack(t *testing.T) {
	f := newFixture()
	f.inv.FailOn("credit", errors.New("storage offline"))
	c := f.coordinator(t, f.inv)
	f.messenger.offers[alice] = offer(100, cardX)
	f.messenger.offers[bob] = offer(0, cardY)
	before := capture(f.inv, alice, bob)

	_, rec := f.negotiate(t, c)

	assert.Equal(t, trade.OutcomeFailed, rec.Outcome)
	assert.Empty(t, rec.StaleSides)
	assert.Equal(t, before, capture(f.inv, alice, bob))
}

func TestCoordinator_EmptyOffersCompleteAsNoOp(t *testing.T) {
	f := newFixture()
	c := f.coordinator(t, f.inv)
	f.messenger.offers[alice] = offer(0)
	f.messenger.offers[bob] = offer(0)
	before := capture(f.inv, alice, bob)

	_, rec := f.negotiate(t, c)

	assert.Equal(t, trade.OutcomeCompleted, rec.Outcome)
	assert.True(t, rec.InitiatorOffer.IsEmpty())
	assert.True(t, rec.CounterpartyOffer.IsEmpty())
	assert.Equal(t, before, capture(f.inv, alice, bob))
}

func TestCoordinator_WaitsForBothOffers(t *testing.T) {
	f := newFixture()
	c := f.coordinator(t, f.inv)
	f.messenger.offers[alice] = offer(0, cardX)
	f.messenger.offers[bob] = delayedOffer(50*time.Millisecond, 0, cardY)

	_, rec := f.negotiate(t, c)
	require.Equal(t, trade.OutcomeCompleted, rec.Outcome)

	events := f.messenger.Events()
	lastOffer := max(slices.Index(events, "offer:"+alice), slices.Index(events, "offer:"+bob))
	for i, ev := range events {
		if strings.HasPrefix(ev, "final:") {
			assert.Greater(t, i, lastOffer, "final confirmation requested before both offers: %v", events)
		}
	}
}

func TestCoordinator_CancelIsRejectedWhileExecuting(t *testing.T) {
	f := newFixture()
	gate := &gatedInventory{Inventory: f.inv, entered: make(chan struct{}), release: make(chan struct{})}
	c := f.coordinator(t, gate)
	f.messenger.offers[alice] = offer(0, cardX)
	f.messenger.offers[bob] = offer(0, cardY)

	s, err := c.Open(context.Background(), trade.User{ID: alice}, trade.User{ID: bob})
	require.NoError(t, err)
	done := make(chan trade.Record, 1)
	go func() { done <- c.Run(context.Background(), s) }()

	<-gate.entered
	assert.Equal(t, trade.StateExecuting, s.State())
	assert.ErrorIs(t, c.Cancel(context.Background(), s.ID, alice), trade.ErrNotCancellable)
	close(gate.release)

	rec := <-done
	assert.Equal(t, trade.OutcomeCompleted, rec.Outcome)
	assert.ErrorIs(t, c.Cancel(context.Background(), s.ID, alice), trade.ErrNotCancellable)
}

type gatedInventory struct {
	*memory.Inventory
	entered chan struct{}
	release chan struct{}
}

func (g *gatedInventory) Atomic(ctx context.Context, fn func(ctx context.Context, tx trade.InventoryTx) error) error {
	close(g.entered)
	<-g.release
	return g.Inventory.Atomic(ctx, fn)
}

func TestCoordinator_OutcomeIsIdempotent(t *testing.T) {
	f := newFixture()
	c := f.coordinator(t, f.inv)
	f.messenger.offers[alice] = offer(10, cardX)
	f.messenger.offers[bob] = offer(0, cardY)

	s, rec := f.negotiate(t, c)

	for range 3 {
		got, err := c.Outcome(context.Background(), s.ID)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	}

	// A fresh coordinator falls back to the record store.
	other := f.coordinator(t, f.inv)
	got, err := other.Outcome(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = c.Outcome(context.Background(), "TR-missing")
	assert.ErrorIs(t, err, trade.ErrSessionNotFound)
}

// durableRecords stores records the way the Postgres driver reads them back:
// microsecond precision, UTC, no monotonic reading.
type durableRecords struct {
	*memory.Records
}

func (d durableRecords) Save(ctx context.Context, rec trade.Record) error {
	rec.CreatedAt = time.UnixMicro(rec.CreatedAt.UnixMicro()).UTC()
	rec.FinishedAt = time.UnixMicro(rec.FinishedAt.UnixMicro()).UTC()
	return d.Records.Save(ctx, rec)
}

func TestCoordinator_OutcomeSurvivesStoreRoundTrip(t *testing.T) {
	f := newFixture()
	cfg := testConfig()
	cfg.FinishedCacheSize = 1
	c, err := trade.NewCoordinator(cfg, trade.Dependencies{
		Inventory: f.inv,
		Messenger: f.messenger,
		Records:   durableRecords{f.records},
		Registry:  f.registry,
	})
	require.NoError(t, err)
	f.messenger.offers[alice] = offer(10, cardX)
	f.messenger.offers[bob] = offer(0, cardY)

	first, rec := f.negotiate(t, c)
	assert.Equal(t, time.UTC, rec.FinishedAt.Location())
	assert.Equal(t, rec.FinishedAt, rec.FinishedAt.Truncate(time.Millisecond))

	// A second session evicts the first record from the outcome cache.
	f.messenger.offers[alice] = offer(0)
	f.messenger.offers[bob] = offer(0)
	f.negotiate(t, c)

	for range 2 {
		got, err := c.Outcome(context.Background(), first.ID)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	}
}

func TestCoordinator_OutcomeOfLiveSession(t *testing.T) {
	f := newFixture()
	c := f.coordinator(t, f.inv)

	s, err := c.Open(context.Background(), trade.User{ID: alice}, trade.User{ID: bob})
	require.NoError(t, err)

	_, err = c.Outcome(context.Background(), s.ID)
	assert.ErrorIs(t, err, trade.ErrSessionActive)

	require.NoError(t, c.CancelUser(context.Background(), bob))
	rec := c.Run(context.Background(), s)
	assert.Equal(t, trade.OutcomeCancelled, rec.Outcome)
	assert.Equal(t, bob, rec.CancelledBy)
	assert.NotContains(t, f.messenger.Events(), "offer:"+alice)
}

func TestCoordinator_OpenRejections(t *testing.T) {
	f := newFixture()
	c := f.coordinator(t, f.inv)
	ctx := context.Background()

	_, err := c.Open(ctx, trade.User{ID: alice}, trade.User{ID: alice})
	assert.ErrorIs(t, err, trade.ErrSelfTrade)

	_, err = c.Open(ctx, trade.User{ID: alice}, trade.User{ID: "999", Bot: true})
	assert.ErrorIs(t, err, trade.ErrNonHumanTarget)

	f.messenger.unreachable[carol] = true
	_, err = c.Open(ctx, trade.User{ID: alice}, trade.User{ID: carol})
	assert.ErrorIs(t, err, trade.ErrUnreachable)
	_, held := f.registry.Holder(alice)
	assert.False(t, held, "rejected trade must not keep the initiator reserved")

	_, err = c.Open(ctx, trade.User{ID: alice}, trade.User{ID: bob})
	require.NoError(t, err)

	_, err = c.Open(ctx, trade.User{ID: alice}, trade.User{ID: dave})
	assert.ErrorIs(t, err, trade.ErrAlreadyTrading)

	_, err = c.Open(ctx, trade.User{ID: dave}, trade.User{ID: bob})
	assert.ErrorIs(t, err, trade.ErrAlreadyTrading)
	var userErr *trade.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, bob, userErr.UserID)

	f.messenger.unreachable[carol] = false
	_, err = c.Open(ctx, trade.User{ID: dave}, trade.User{ID: carol})
	assert.NoError(t, err, "dave must not stay reserved after the failed attempt")
}

func TestCoordinator_UnreachableReleasesRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mock.NewMockSessionRegistry(ctrl)
	messenger := mock.NewMockMessenger(ctrl)
	records := mock.NewMockRecordStore(ctrl)

	gomock.InOrder(
		registry.EXPECT().Acquire(gomock.Any(), alice, gomock.Any(), gomock.Any()).Return(nil),
		registry.EXPECT().Acquire(gomock.Any(), bob, gomock.Any(), gomock.Any()).Return(nil),
		messenger.EXPECT().Reachable(gomock.Any(), bob).Return(errors.New("dm closed")),
	)
	registry.EXPECT().Release(gomock.Any(), alice, gomock.Any()).Return(nil)
	registry.EXPECT().Release(gomock.Any(), bob, gomock.Any()).Return(nil)

	c, err := trade.NewCoordinator(testConfig(), trade.Dependencies{
		Inventory: seededInventory(),
		Messenger: messenger,
		Records:   records,
		Registry:  registry,
	})
	require.NoError(t, err)

	s, err := c.Open(context.Background(), trade.User{ID: alice}, trade.User{ID: bob, Name: "bob"})
	assert.Nil(t, s)
	assert.ErrorIs(t, err, trade.ErrUnreachable)
	assert.Equal(t, "bob cannot receive direct messages", trade.HumanMessage(err))
}

func TestCoordinator_NotifiesListeners(t *testing.T) {
	f := newFixture()
	ctrl := gomock.NewController(t)
	listener := mock.NewMockOutcomeListener(ctrl)
	listener.EXPECT().
		OnOutcome(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rec trade.Record) error {
			assert.Equal(t, trade.OutcomeCompleted, rec.Outcome)
			return errors.New("broker down")
		}).
		Times(1)

	c := f.coordinator(t, f.inv, trade.WithListeners(listener))
	f.messenger.offers[alice] = offer(0, cardX)
	f.messenger.offers[bob] = offer(0)

	_, rec := f.negotiate(t, c)
	assert.Equal(t, trade.OutcomeCompleted, rec.Outcome, "listener errors do not change the outcome")
}

func TestCoordinator_ShutdownCancelsNegotiations(t *testing.T) {
	f := newFixture()
	c := f.coordinator(t, f.inv)
	started := make(chan struct{}, 2)
	waitAndSignal := func(ctx context.Context, p trade.OfferPrompt) (trade.Offer, error) {
		started <- struct{}{}
		return waitOffer(ctx, p)
	}
	f.messenger.offers[alice] = waitAndSignal
	f.messenger.offers[bob] = waitAndSignal

	s, err := c.Start(context.Background(), trade.User{ID: alice}, trade.User{ID: bob})
	require.NoError(t, err)
	<-started
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Shutdown(ctx))

	<-s.Done()
	rec, err := c.Outcome(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.OutcomeCancelled, rec.Outcome)
	assert.Equal(t, "shutdown", rec.Reason)
}
