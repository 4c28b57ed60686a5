package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/disgoorg/tradebot/internal/domain/trade"
)

type Config struct {
	URI        string
	Database   string
	Collection string
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err = client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// Records keeps trade records as documents keyed by session id. It serves as
// the primary RecordStore or, attached as an OutcomeListener, as a mirror of
// the Postgres table.
type Records struct {
	coll *mongo.Collection
}

func NewRecords(client *mongo.Client, cfg Config) *Records {
	return &Records{coll: client.Database(cfg.Database).Collection(cfg.Collection)}
}

// EnsureIndexes creates the per-party history indexes.
func (r *Records) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "initiator.user_id", Value: 1}, {Key: "finished_at", Value: -1}}},
		{Keys: bson.D{{Key: "counterparty.user_id", Value: 1}, {Key: "finished_at", Value: -1}}},
		{Keys: bson.D{{Key: "outcome", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create trade record indexes: %w", err)
	}
	return nil
}

func (r *Records) Save(ctx context.Context, rec trade.Record) error {
	_, err := r.coll.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to archive trade %s: %w", rec.SessionID, err)
	}
	return nil
}

func (r *Records) Get(ctx context.Context, sessionID string) (trade.Record, error) {
	var rec trade.Record
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: sessionID}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return trade.Record{}, trade.ErrSessionNotFound
	}
	if err != nil {
		return trade.Record{}, fmt.Errorf("failed to load trade %s: %w", sessionID, err)
	}
	return rec, nil
}

func (r *Records) LoadRecent(ctx context.Context, userID string, limit int) ([]trade.Record, error) {
	cur, err := r.coll.Find(ctx, recentFilter(userID), recentOptions(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query trade history: %w", err)
	}
	defer cur.Close(ctx)

	records := make([]trade.Record, 0, limit)
	if err = cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode trade history: %w", err)
	}
	return records, nil
}

// OnOutcome mirrors a finished session into the archive.
func (r *Records) OnOutcome(ctx context.Context, rec trade.Record) error {
	if err := r.Save(ctx, rec); err != nil {
		slog.Warn("Failed to mirror trade record",
			slog.String("type", "trade"),
			slog.String("session_id", rec.SessionID),
			slog.Any("error", err))
		return err
	}
	return nil
}

func recentFilter(userID string) bson.D {
	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "initiator.user_id", Value: userID}},
		bson.D{{Key: "counterparty.user_id", Value: userID}},
	}}}
}

func recentOptions(limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "finished_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
}

var (
	_ trade.RecordStore     = (*Records)(nil)
	_ trade.OutcomeListener = (*Records)(nil)
)
