// Package messaging publishes case lifecycle events to RabbitMQ so
// external consumers (analytics, appeal tooling) can follow the ledger
// without polling it. Publishing is fire-and-forget from the commands'
// point of view: a broker failure is logged and never touches the already
// recorded case.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"sentinel-bot/internal/model"
)

const publishTimeout = 10 * time.Second

// CaseCreatedEvent is the wire payload for one recorded case.
type CaseCreatedEvent struct {
	CaseID      int64      `json:"case_id"`
	CaseSeq     int64      `json:"case_seq"`
	Kind        string     `json:"kind"`
	GuildID     int64      `json:"guild_id"`
	TargetID    int64      `json:"target_id"`
	ModeratorID int64      `json:"moderator_id"`
	Reason      *string    `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ReferenceID *int64     `json:"reference_id,omitempty"`
}

// CaseEventPublisher is what commands see; swap in NopPublisher when no
// broker is configured.
type CaseEventPublisher interface {
	PublishCaseCreated(ctx context.Context, rec *model.CaseRecord) error
}

type RabbitCasePublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    zerolog.Logger
}

var _ CaseEventPublisher = (*RabbitCasePublisher)(nil)

// NewRabbitCasePublisher opens a channel and declares the durable event
// queue. Declaration parameters must match any consumer's.
func NewRabbitCasePublisher(conn *amqp.Connection, queueName string, logger zerolog.Logger) (*RabbitCasePublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("case publisher: failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("case publisher: failed to declare queue %q: %w", queueName, err)
	}

	logger.Info().Str("queue", queueName).Msg("case event publisher initialized")
	return &RabbitCasePublisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.With().Str("component", "case_publisher").Logger(),
	}, nil
}

func (p *RabbitCasePublisher) PublishCaseCreated(ctx context.Context, rec *model.CaseRecord) error {
	event := CaseCreatedEvent{
		CaseID:      rec.ID,
		CaseSeq:     rec.Seq,
		Kind:        rec.Kind.String(),
		GuildID:     rec.GuildID,
		TargetID:    rec.TargetID,
		ModeratorID: rec.ModeratorID,
		Reason:      rec.Reason,
		CreatedAt:   rec.CreatedAt,
		ExpiresAt:   rec.ExpiresAt,
		ReferenceID: rec.Reference,
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal case event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		"",          // default exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error().Err(err).Int64("case_id", rec.ID).Msg("failed to publish case event")
		return fmt.Errorf("failed to publish case event: %w", err)
	}

	p.logger.Debug().Int64("case_id", rec.ID).Int64("case_seq", rec.Seq).Msg("case event published")
	return nil
}

// Close releases the publisher's channel.
func (p *RabbitCasePublisher) Close() error {
	return p.channel.Close()
}

// NopPublisher drops every event. Used when RabbitMQ is not configured.
type NopPublisher struct{}

var _ CaseEventPublisher = NopPublisher{}

func (NopPublisher) PublishCaseCreated(context.Context, *model.CaseRecord) error {
	return nil
}
