package events

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_KeysByOrder(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "order.status_changed", logger: zap.NewNop()}

	require.NoError(t, p.Publish(context.Background(), "order-1", []byte(`{"status":"shipped"}`)))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order-1", string(w.msgs[0].Key))
	assert.JSONEq(t, `{"status":"shipped"}`, string(w.msgs[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WrapsError(t *testing.T) {
	sentinel := errors.New("leader not available")
	p := &KafkaPublisher{writer: &fakeWriter{err: sentinel}, topic: "t", logger: zap.NewNop()}

	err := p.Publish(context.Background(), "k", nil)
	assert.ErrorIs(t, err, sentinel)
}

type fakeSNS struct {
	topic string
	attrs map[string]string
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, topicArn string, _ []byte, attrs map[string]string) error {
	f.topic = topicArn
	f.attrs = attrs
	return f.err
}

func TestSNSPublisher_SetsAttributes(t *testing.T) {
	client := &fakeSNS{}
	p := NewSNSPublisher(client, "arn:topic")

	require.NoError(t, p.Publish(context.Background(), "order-1", []byte("{}")))
	assert.Equal(t, "arn:topic", client.topic)
	assert.Equal(t, "order.status_changed", client.attrs["event_type"])
	assert.Equal(t, "order-1", client.attrs["order_id"])
}

func TestFanout_TriesEveryTarget(t *testing.T) {
	failing := &fakeSNS{err: errors.New("sns down")}
	w := &fakeWriter{}
	kp := &KafkaPublisher{writer: w, topic: "t", logger: zap.NewNop()}

	err := Fanout{NewSNSPublisher(failing, "arn"), kp}.Publish(context.Background(), "k", []byte("{}"))
	assert.Error(t, err)
	assert.Len(t, w.msgs, 1)
}
