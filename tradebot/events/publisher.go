package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/disgoorg/tradebot/internal/domain/trade"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// OutcomeEvent is the message body published for every finished session.
type OutcomeEvent struct {
	SessionID    string        `json:"session_id"`
	Outcome      trade.Outcome `json:"outcome"`
	Reason       string        `json:"reason,omitempty"`
	Initiator    trade.Party   `json:"initiator"`
	Counterparty trade.Party   `json:"counterparty"`
	Offers       []trade.Offer `json:"offers"`
	StaleSides   []trade.Role  `json:"stale_sides,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	FinishedAt   time.Time     `json:"finished_at"`
}

func NewOutcomeEvent(rec trade.Record) OutcomeEvent {
	return OutcomeEvent{
		SessionID:    rec.SessionID,
		Outcome:      rec.Outcome,
		Reason:       rec.Reason,
		Initiator:    rec.Initiator,
		Counterparty: rec.Counterparty,
		Offers:       []trade.Offer{rec.InitiatorOffer, rec.CounterpartyOffer},
		StaleSides:   rec.StaleSides,
		CreatedAt:    rec.CreatedAt,
		FinishedAt:   rec.FinishedAt,
	}
}

// RoutingKey is trade.<outcome>, e.g. trade.completed.
func RoutingKey(o trade.Outcome) string {
	return "trade." + string(o)
}

// Publisher announces session outcomes on a topic exchange.
type Publisher struct {
	ch       Channel
	exchange string
}

func NewPublisher(ch Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

func (p *Publisher) OnOutcome(ctx context.Context, rec trade.Record) error {
	body, err := json.Marshal(NewOutcomeEvent(rec))
	if err != nil {
		return fmt.Errorf("could not marshal outcome: %w", err)
	}

	return p.ch.PublishWithContext(ctx,
		p.exchange,
		RoutingKey(rec.Outcome),
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     uuid.NewString(),
			CorrelationId: rec.SessionID,
			Timestamp:     rec.FinishedAt,
			Type:          "trade.outcome",
			Body:          body,
		},
	)
}

var _ trade.OutcomeListener = (*Publisher)(nil)
