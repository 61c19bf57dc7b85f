package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
	err       error
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name+"/"+kind)
	return nil
}

func (f *fakeChannel) Publish(_, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}

	p, err := newPublisher(ch, "order.exchange")
	require.NoError(t, err)
	assert.Equal(t, []string{"order.exchange/topic"}, ch.declared)

	require.NoError(t, p.Publish(context.Background(), "order.placed", map[string]string{"orderId": "42"}))

	require.Len(t, ch.published, 1)
	assert.Equal(t, "order.placed", ch.keys[0])
	assert.Equal(t, "application/json", ch.published[0].ContentType)

	var msg struct {
		Pattern string            `json:"pattern"`
		Data    map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &msg))
	assert.Equal(t, "order.placed", msg.Pattern)
	assert.Equal(t, "42", msg.Data["orderId"])
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}

	p, err := newPublisher(ch, "order.exchange")
	require.NoError(t, err)

	err = p.Publish(context.Background(), "order.placed", nil)
	assert.ErrorContains(t, err, "channel closed")
}
