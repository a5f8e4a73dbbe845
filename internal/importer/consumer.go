package importer

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/internal/metrics"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// BatchValidator runs the consumer-side validation pass.
type BatchValidator interface {
	ValidateBatch(ctx context.Context, job model.ImportJob) error
}

// Consumer consumes import validation jobs from RabbitMQ. Malformed
// payloads are dropped; store failures requeue the job.
type Consumer struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	validator BatchValidator
	logger    *zap.Logger
	done      chan struct{}
}

// NewConsumer creates a RabbitMQ consumer for the import job queue.
func NewConsumer(url string, validator BatchValidator, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &Consumer{
		conn:      conn,
		channel:   channel,
		validator: validator,
		logger:    logger,
		done:      make(chan struct{}),
	}, nil
}

// Start starts consuming validation jobs.
func (c *Consumer) Start(ctx context.Context) error {
	if _, err := c.channel.QueueDeclare(JobQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", JobQueueName, err)
	}

	msgs, err := c.channel.Consume(JobQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", JobQueueName, err)
	}

	c.logger.Info("importer.consumer_started", zap.String("queue", JobQueueName))
	go c.consumeJobs(ctx, msgs)
	return nil
}

func (c *Consumer) consumeJobs(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("importer.job_channel_closed")
				return
			}

			var job model.ImportJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				c.logger.Error("importer.job_unmarshal_failed", zap.Error(err))
				metrics.IncImportJob("dropped")
				msg.Nack(false, false)
				continue
			}

			if err := c.validator.ValidateBatch(ctx, job); err != nil {
				c.logger.Error("importer.job_failed",
					zap.String("batch_id", job.BatchID),
					zap.Error(err))
				metrics.IncImportJob("requeued")
				msg.Nack(false, true) // Requeue on failure
				continue
			}

			metrics.IncImportJob("ok")
			msg.Ack(false)
		}
	}
}

// Close closes the consumer.
func (c *Consumer) Close() error {
	close(c.done)

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
