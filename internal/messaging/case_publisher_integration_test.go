package messaging_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/docker/docker/client"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"sentinel-bot/internal/messaging"
	"sentinel-bot/internal/model"
)

const testQueue = "moderation_case_events_test"

// PublisherSuite round-trips case events through a real broker.
type PublisherSuite struct {
	suite.Suite
	ctx context.Context

	rmqContainer *rabbitmq.RabbitMQContainer
	conn         *amqp.Connection
	publisher    *messaging.RabbitCasePublisher
}

func (s *PublisherSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.rmqContainer, err = rabbitmq.Run(s.ctx,
		"rabbitmq:3-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete"),
		),
	)
	require.NoError(s.T(), err, "Failed to start rabbitmq container")

	amqpURL, err := s.rmqContainer.AmqpURL(s.ctx)
	require.NoError(s.T(), err)

	s.conn, err = amqp.Dial(amqpURL)
	require.NoError(s.T(), err, "Failed to connect to test rabbitmq")

	s.publisher, err = messaging.NewRabbitCasePublisher(s.conn, testQueue, zerolog.Nop())
	require.NoError(s.T(), err)
}

func (s *PublisherSuite) TearDownSuite() {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	if s.rmqContainer != nil {
		_ = s.rmqContainer.Terminate(s.ctx)
	}
}

func TestPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Skipf("Docker client init error: %v", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Skipf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) TestPublishedEventReachesConsumer() {
	t := s.T()

	reason := "spamming"
	reference := int64(12)
	rec := &model.CaseRecord{
		ID:          555,
		Seq:         3,
		Kind:        model.CaseKindWarn,
		GuildID:     100,
		TargetID:    42,
		ModeratorID: 3001,
		Reason:      &reason,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
		Reference:   &reference,
		Active:      true,
	}

	require.NoError(t, s.publisher.PublishCaseCreated(s.ctx, rec))

	ch, err := s.conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	deliveries, err := ch.Consume(testQueue, "", true, false, false, false, nil)
	require.NoError(t, err)

	select {
	case delivery := <-deliveries:
		require.Equal(t, "application/json", delivery.ContentType)
		require.EqualValues(t, amqp.Persistent, delivery.DeliveryMode)

		var event messaging.CaseCreatedEvent
		require.NoError(t, json.Unmarshal(delivery.Body, &event))
		require.Equal(t, rec.ID, event.CaseID)
		require.Equal(t, rec.Seq, event.CaseSeq)
		require.Equal(t, model.CaseKindWarn.String(), event.Kind)
		require.Equal(t, rec.GuildID, event.GuildID)
		require.Equal(t, rec.TargetID, event.TargetID)
		require.Equal(t, rec.ModeratorID, event.ModeratorID)
		require.NotNil(t, event.Reason)
		require.Equal(t, reason, *event.Reason)
		require.NotNil(t, event.ReferenceID)
		require.Equal(t, reference, *event.ReferenceID)
	case <-time.After(10 * time.Second):
		t.Fatal("no delivery arrived on the case event queue")
	}
}
