// Package events feeds lifecycle events from a Kafka topic into the
// tracker, one message at a time.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/xapi-tracker/internal/tracker"
)

type Handler interface {
	Handle(ctx context.Context, ev tracker.Event) tracker.Outcome
}

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaReader(brokers []string, groupID, topic string) (*kafka.Reader, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka consumer requires group id")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka consumer requires a topic")
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	}), nil
}

type Consumer struct {
	Reader  Reader
	Handler Handler
	Log     logrus.FieldLogger
}

// Run handles messages until ctx is cancelled. Each message is committed
// after it is handled, delivered or not; malformed messages are logged and
// committed too, since nothing is ever redelivered.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}
		log := c.Log.WithFields(logrus.Fields{"topic": msg.Topic, "offset": msg.Offset})

		var ev tracker.Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			log.WithError(err).Warn("malformed event message")
		} else {
			out := c.Handler.Handle(ctx, ev)
			log.WithFields(logrus.Fields{
				"survey_id": ev.SurveyID,
				"event":     string(ev.Kind),
				"delivered": out.Delivered,
				"skipped":   out.Skipped,
			}).Info("event handled")
		}
		if err := c.Reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka commit: %w", err)
		}
	}
}

func (c *Consumer) Close() error { return c.Reader.Close() }
