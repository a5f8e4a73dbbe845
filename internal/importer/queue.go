package importer

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// JobQueueName is the RabbitMQ queue carrying staged-batch validation jobs.
const JobQueueName = "assethub.imports.validate"

// Queue is the AMQP publisher for import jobs.
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

// NewQueue connects and declares the durable job queue.
func NewQueue(url string, logger *zap.Logger) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := channel.QueueDeclare(JobQueueName, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", JobQueueName, err)
	}

	return &Queue{conn: conn, channel: channel, logger: logger}, nil
}

// PublishJob enqueues one validation job.
func (q *Queue) PublishJob(ctx context.Context, job model.ImportJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = q.channel.PublishWithContext(
		ctx,
		"",           // exchange
		JobQueueName, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		q.logger.Error("importer.job_publish_failed",
			zap.String("batch_id", job.BatchID),
			zap.Error(err))
		return err
	}

	q.logger.Debug("importer.job_published", zap.String("batch_id", job.BatchID))
	return nil
}

// Close closes the queue connection.
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
