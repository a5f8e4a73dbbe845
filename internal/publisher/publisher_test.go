package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ridgeline-Capital/assethub/pkg/model"
)

// --- mock types ---

// mockJetStream implements a minimal JetStreamContext for testing
type mockJetStream struct {
	published []*nats.Msg
	fail      bool
}

func (m *mockJetStream) PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error) {
	if m.fail {
		return nil, errors.New("mock publish error")
	}
	m.published = append(m.published, msg)
	return &nats.PubAck{Stream: "mock-stream"}, nil
}

// Implement remaining JetStreamContext interface methods as no-ops for testing
func (m *mockJetStream) Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error) {
	return nil, nil
}
func (m *mockJetStream) PublishAsync(subj string, data []byte, opts ...nats.PubOpt) (nats.PubAckFuture, error) {
	return nil, nil
}
func (m *mockJetStream) PublishMsgAsync(msg *nats.Msg, opts ...nats.PubOpt) (nats.PubAckFuture, error) {
	return nil, nil
}
func (m *mockJetStream) PublishAsyncPending() int { return 0 }
func (m *mockJetStream) PublishAsyncComplete() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (m *mockJetStream) CleanupPublisher() {}
func (m *mockJetStream) Subscribe(subj string, cb nats.MsgHandler, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) SubscribeSync(subj string, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) ChanSubscribe(subj string, ch chan *nats.Msg, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) ChanQueueSubscribe(subj, queue string, ch chan *nats.Msg, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) QueueSubscribe(subj, queue string, cb nats.MsgHandler, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) QueueSubscribeSync(subj, queue string, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) PullSubscribe(subj, durable string, opts ...nats.SubOpt) (*nats.Subscription, error) {
	return nil, nil
}
func (m *mockJetStream) AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	return nil, nil
}
func (m *mockJetStream) UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	return nil, nil
}
func (m *mockJetStream) DeleteStream(name string, opts ...nats.JSOpt) error { return nil }
func (m *mockJetStream) StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error) {
	return nil, nil
}
func (m *mockJetStream) Streams(opts ...nats.JSOpt) <-chan *nats.StreamInfo {
	ch := make(chan *nats.StreamInfo)
	close(ch)
	return ch
}
func (m *mockJetStream) PurgeStream(name string, opts ...nats.JSOpt) error { return nil }
func (m *mockJetStream) StreamsInfo(opts ...nats.JSOpt) <-chan *nats.StreamInfo {
	ch := make(chan *nats.StreamInfo)
	close(ch)
	return ch
}
func (m *mockJetStream) StreamNames(opts ...nats.JSOpt) <-chan string {
	ch := make(chan string)
	close(ch)
	return ch
}
func (m *mockJetStream) GetMsg(name string, seq uint64, opts ...nats.JSOpt) (*nats.RawStreamMsg, error) {
	return nil, nil
}
func (m *mockJetStream) GetLastMsg(name, subj string, opts ...nats.JSOpt) (*nats.RawStreamMsg, error) {
	return nil, nil
}
func (m *mockJetStream) DeleteMsg(name string, seq uint64, opts ...nats.JSOpt) error { return nil }
func (m *mockJetStream) SecureDeleteMsg(name string, seq uint64, opts ...nats.JSOpt) error {
	return nil
}
func (m *mockJetStream) AddConsumer(stream string, cfg *nats.ConsumerConfig, opts ...nats.JSOpt) (*nats.ConsumerInfo, error) {
	return nil, nil
}
func (m *mockJetStream) UpdateConsumer(stream string, cfg *nats.ConsumerConfig, opts ...nats.JSOpt) (*nats.ConsumerInfo, error) {
	return nil, nil
}
func (m *mockJetStream) DeleteConsumer(stream, consumer string, opts ...nats.JSOpt) error { return nil }
func (m *mockJetStream) ConsumerInfo(stream, name string, opts ...nats.JSOpt) (*nats.ConsumerInfo, error) {
	return nil, nil
}
func (m *mockJetStream) Consumers(stream string, opts ...nats.JSOpt) <-chan *nats.ConsumerInfo {
	ch := make(chan *nats.ConsumerInfo)
	close(ch)
	return ch
}
func (m *mockJetStream) ConsumersInfo(stream string, opts ...nats.JSOpt) <-chan *nats.ConsumerInfo {
	ch := make(chan *nats.ConsumerInfo)
	close(ch)
	return ch
}
func (m *mockJetStream) ConsumerNames(stream string, opts ...nats.JSOpt) <-chan string {
	ch := make(chan string)
	close(ch)
	return ch
}
func (m *mockJetStream) AccountInfo(opts ...nats.JSOpt) (*nats.AccountInfo, error) { return nil, nil }
func (m *mockJetStream) StreamNameBySubject(string, ...nats.JSOpt) (string, error) { return "", nil }
func (m *mockJetStream) KeyValue(bucket string) (nats.KeyValue, error)             { return nil, nil }
func (m *mockJetStream) CreateKeyValue(cfg *nats.KeyValueConfig) (nats.KeyValue, error) {
	return nil, nil
}
func (m *mockJetStream) DeleteKeyValue(bucket string) error { return nil }
func (m *mockJetStream) KeyValueStoreNames() <-chan string {
	ch := make(chan string)
	close(ch)
	return ch
}
func (m *mockJetStream) KeyValueStores() <-chan nats.KeyValueStatus {
	ch := make(chan nats.KeyValueStatus)
	close(ch)
	return ch
}
func (m *mockJetStream) ObjectStore(bucket string) (nats.ObjectStore, error) { return nil, nil }
func (m *mockJetStream) CreateObjectStore(cfg *nats.ObjectStoreConfig) (nats.ObjectStore, error) {
	return nil, nil
}
func (m *mockJetStream) DeleteObjectStore(bucket string) error { return nil }
func (m *mockJetStream) ObjectStoreNames(opts ...nats.ObjectOpt) <-chan string {
	ch := make(chan string)
	close(ch)
	return ch
}
func (m *mockJetStream) ObjectStores(opts ...nats.ObjectOpt) <-chan nats.ObjectStoreStatus {
	ch := make(chan nats.ObjectStoreStatus)
	close(ch)
	return ch
}

// --- helper ---

func newTestPublisher(fail bool) *Publisher {
	return &Publisher{
		nc:      nil,
		js:      &mockJetStream{fail: fail},
		service: "assethub",
	}
}

// --- tests ---

func TestPublishEnvelope_Success(t *testing.T) {
	pub := newTestPublisher(false)
	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: uuid.New(),
		SellerID:      12,
		TradeID:       340,
		Topic:         "evt.assethub.asset.boarded.v1",
		EventType:     model.EventAssetBoarded,
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       json.RawMessage(`{"hub_id":"GSB-340-000001"}`),
	}

	require.NoError(t, pub.PublishEnvelope(context.Background(), env.Topic, env))

	js := pub.js.(*mockJetStream)
	require.Len(t, js.published, 1)

	msg := js.published[0]
	assert.Equal(t, "evt.assethub.asset.boarded.v1", msg.Subject)
	assert.Equal(t, model.EventAssetBoarded, msg.Header.Get("event_type"))
	assert.Equal(t, "12", msg.Header.Get("seller_id"))
	assert.Equal(t, "340", msg.Header.Get("trade_id"))
	assert.Equal(t, "assethub", msg.Header.Get("service"))
	assert.Equal(t, env.CorrelationID.String(), msg.Header.Get("correlation_id"))

	var parsed model.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &parsed))
	assert.Equal(t, env.ID, parsed.ID)
	assert.Equal(t, int64(340), parsed.TradeID)
	assert.JSONEq(t, `{"hub_id":"GSB-340-000001"}`, string(parsed.Payload))
}

func TestPublishEnvelope_Failure(t *testing.T) {
	pub := newTestPublisher(true)
	env := &model.Envelope{
		ID:        uuid.New(),
		EventType: model.EventAssetBoarded,
	}

	assert.Error(t, pub.PublishEnvelope(context.Background(), "evt.assethub.asset.boarded.v1", env))
}

func TestPublishEvent_BuildsEnvelope(t *testing.T) {
	pub := newTestPublisher(false)

	payload := map[string]any{"hub_id": "GSB-340-000001", "status": "ACQUISITION"}
	require.NoError(t, pub.PublishEvent(context.Background(), model.EventAssetBoarded, 12, 340, payload))

	js := pub.js.(*mockJetStream)
	require.Len(t, js.published, 1)

	msg := js.published[0]
	assert.Equal(t, model.SubjectFor(model.EventAssetBoarded), msg.Subject)

	var env model.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.NotEqual(t, uuid.Nil, env.ID)
	assert.NotEqual(t, uuid.Nil, env.CorrelationID)
	assert.Equal(t, model.EventAssetBoarded, env.EventType)
	assert.Equal(t, "evt.assethub.asset.boarded.v1", env.Topic)
	assert.Equal(t, "1.0.0", env.Version)
	assert.Equal(t, int64(12), env.SellerID)
	assert.Equal(t, int64(340), env.TradeID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(env.Payload, &body))
	assert.Equal(t, "GSB-340-000001", body["hub_id"])
}

func TestPublishEvent_UnmarshalablePayload(t *testing.T) {
	pub := newTestPublisher(false)

	err := pub.PublishEvent(context.Background(), model.EventAssetBoarded, 12, 340, make(chan int))
	assert.Error(t, err)
	assert.Empty(t, pub.js.(*mockJetStream).published)
}

func TestPublish_Raw(t *testing.T) {
	pub := newTestPublisher(false)

	require.NoError(t, pub.Publish(context.Background(), "internal.cache.invalidate", map[string]string{"key": "strat_coupon:12:340"}))

	js := pub.js.(*mockJetStream)
	require.Len(t, js.published, 1)
	assert.Equal(t, "internal.cache.invalidate", js.published[0].Subject)
	assert.Equal(t, "assethub", js.published[0].Header.Get("source"))
}
