package publisher

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Ridgeline-Capital/assethub/internal/metrics"
	"github.com/Ridgeline-Capital/assethub/pkg/logger"
	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// Publisher wraps a NATS connection and provides helpers for publishing canonical events.
type Publisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	service string
}

// New creates a new Publisher with JetStream enabled if available.
func New(nc *nats.Conn, service string) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return &Publisher{
		nc:      nc,
		js:      js,
		service: service,
	}, nil
}

// PublishEnvelope serializes and publishes a canonical event envelope to NATS.
func (p *Publisher) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		logger.S().Errorw("publisher.marshal_failed",
			"subject", subject,
			"event_type", env.EventType,
			"error", err,
		)
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"service":        []string{p.service},
			"content_type":   []string{"application/json"},
			"seller_id":      []string{strconv.FormatInt(env.SellerID, 10)},
			"trade_id":       []string{strconv.FormatInt(env.TradeID, 10)},
		},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg)
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		logger.S().Errorw("publisher.publish_failed",
			"subject", subject,
			"event_type", env.EventType,
			"seller_id", env.SellerID,
			"trade_id", env.TradeID,
			"error", err,
		)
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	logger.S().Debugw("publisher.publish_success",
		"subject", subject,
		"event_type", env.EventType,
		"seller_id", env.SellerID,
		"trade_id", env.TradeID,
	)

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

// PublishEvent builds a canonical envelope for eventType (e.g. "asset.boarded")
// and publishes it on the matching evt.assethub subject. payload is marshaled
// as the envelope body; sellerID/tradeID carry the silo.
func (p *Publisher) PublishEvent(ctx context.Context, eventType string, sellerID, tradeID int64, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		SellerID:      sellerID,
		TradeID:       tradeID,
		Topic:         model.SubjectFor(eventType),
		EventType:     eventType,
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       data,
	}

	return p.PublishEnvelope(ctx, env.Topic, env)
}

// Publish publishes raw JSON payloads (for non-canonical internal events).
func (p *Publisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{"source": []string{p.service}},
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg)
	metrics.ObserveDuration(metrics.NATSMessageLatency, start, subject)

	if err != nil {
		metrics.IncNATSMessage(subject, "error")
		return err
	}

	metrics.IncNATSMessage(subject, "ok")
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil && p.nc.IsConnected() {
		p.nc.Close()
	}
}
