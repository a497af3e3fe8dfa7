package listener

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/segmentio/kafka-go"
)

// KafkaConsumerConfig configures the event topic subscription.
type KafkaConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// KafkaConsumer reads JSON-encoded APIEvents from a topic and feeds them to
// a dispatcher.
type KafkaConsumer struct {
	reader     *kafka.Reader
	dispatcher *Dispatcher
}

// NewKafkaConsumer builds a consumer over the given dispatcher.
func NewKafkaConsumer(cfg KafkaConsumerConfig, dispatcher *Dispatcher) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			GroupID: cfg.GroupID,
		}),
		dispatcher: dispatcher,
	}
}

// Run consumes events until the context is cancelled. Undecodable messages
// are logged and skipped.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	log.Info("consuming api events", "topic", c.reader.Config().Topic)

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		event, err := decodeEvent(msg.Value)
		if err != nil {
			log.Warn("skipping undecodable event", "offset", msg.Offset, "err", err)
			continue
		}
		c.dispatcher.Dispatch(ctx, event)
	}
}

// Close releases the underlying reader.
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func decodeEvent(value []byte) (APIEvent, error) {
	var event APIEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return APIEvent{}, err
	}
	return event, nil
}
