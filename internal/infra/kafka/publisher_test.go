package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublisher_KeysByOrder(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	evt := domain.OrderEvent{Type: domain.OrderEventPlaced, OrderID: uuid.New()}
	require.NoError(t, p.Publish(context.Background(), string(evt.Type), evt))
	require.NoError(t, p.Publish(context.Background(), "ping", map[string]int{"n": 1}))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, evt.OrderID.String(), string(w.msgs[0].Key))
	assert.Equal(t, "order.placed", string(w.msgs[0].Headers[0].Value))
	assert.Equal(t, "ping", string(w.msgs[1].Key))
	assert.JSONEq(t, `{"n":1}`, string(w.msgs[1].Value))
}

func TestPublisher_WriteError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("broker down")}}

	err := p.Publish(context.Background(), "order.placed", struct{}{})
	assert.ErrorContains(t, err, "broker down")
}
