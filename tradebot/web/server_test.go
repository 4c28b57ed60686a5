package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disgoorg/tradebot/internal/domain/trade"
)

type fakeTrades struct {
	records   map[string]trade.Record
	active    map[string]bool
	lastLimit int
	err       error
}

func (f *fakeTrades) Outcome(_ context.Context, sessionID string) (trade.Record, error) {
	if f.err != nil {
		return trade.Record{}, f.err
	}
	if f.active[sessionID] {
		return trade.Record{}, trade.ErrSessionActive
	}
	rec, ok := f.records[sessionID]
	if !ok {
		return trade.Record{}, trade.ErrSessionNotFound
	}
	return rec, nil
}

func (f *fakeTrades) History(_ context.Context, userID string, limit int) ([]trade.Record, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	var out []trade.Record
	for _, rec := range f.records {
		if _, ok := rec.PartyOf(userID); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func sampleTrades() *fakeTrades {
	alice := trade.Party{UserID: "100", Name: "alice", Role: trade.RoleInitiator}
	bob := trade.Party{UserID: "200", Name: "bob", Role: trade.RoleCounterparty}
	return &fakeTrades{
		records: map[string]trade.Record{
			"TR-1": {
				SessionID:         "TR-1",
				Initiator:         alice,
				Counterparty:      bob,
				InitiatorOffer:    trade.Offer{Owner: alice, Cards: []trade.CardID{4}},
				CounterpartyOffer: trade.Offer{Owner: bob, Currency: 25},
				Outcome:           trade.OutcomeCompleted,
				FinishedAt:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			},
		},
		active: map[string]bool{"TR-2": true},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func do(t *testing.T, opts Options, target string) (int, envelope) {
	t.Helper()
	resp, err := New(opts).Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env))
	return resp.StatusCode, env
}

func TestHealthz(t *testing.T) {
	status, env := do(t, Options{Version: "1.0.0"}, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)

	status, env = do(t, Options{Ping: func(context.Context) error { return errors.New("down") }}, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNHEALTHY", env.Error.Code)
}

func TestTradeOutcome(t *testing.T) {
	opts := Options{Trades: sampleTrades()}

	status, env := do(t, opts, "/api/trades/TR-1")
	require.Equal(t, http.StatusOK, status)
	var rec trade.Record
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, trade.OutcomeCompleted, rec.Outcome)
	assert.Equal(t, int64(25), rec.CounterpartyOffer.Currency)

	status, _ = do(t, opts, "/api/trades/TR-2")
	assert.Equal(t, http.StatusConflict, status)

	status, env = do(t, opts, "/api/trades/TR-404")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
}

func TestUserTrades(t *testing.T) {
	trades := sampleTrades()
	opts := Options{Trades: trades}

	status, env := do(t, opts, "/api/users/200/trades?limit=10")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 10, trades.lastLimit)
	var recs []trade.Record
	require.NoError(t, json.Unmarshal(env.Data, &recs))
	require.Len(t, recs, 1)

	status, env = do(t, opts, "/api/users/999/trades")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(env.Data))

	status, _ = do(t, opts, "/api/users/200/trades?limit=0")
	assert.Equal(t, http.StatusBadRequest, status)

	trades.err = errors.New("db down")
	status, _ = do(t, opts, "/api/users/200/trades")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestUnknownRoute(t *testing.T) {
	status, env := do(t, Options{}, "/nope")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
}
