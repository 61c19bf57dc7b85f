package infra

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// LogPublisher writes events to a logger instead of a broker.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, routingKey string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}

	p.log.Info().Str("routing_key", routingKey).RawJSON("event", body).Msg("event published")
	return nil
}
