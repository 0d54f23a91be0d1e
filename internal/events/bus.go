package events

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/SAP-F-2025/course-marketplace/internal/config"
)

// Bus pairs the publisher and subscriber of one transport
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Kind       string
}

// NewBus connects to Kafka when brokers are configured and falls back to an
// in-process channel otherwise
func NewBus(cfg config.KafkaConfig, logger *slog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if !cfg.Enabled() {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		return &Bus{Publisher: ch, Subscriber: ch, Kind: "gochannel"}, nil
	}

	publisher, err := NewKafkaPublisher(cfg.Brokers, wmLogger)
	if err != nil {
		return nil, err
	}
	subscriber, err := NewKafkaSubscriber(cfg.Brokers, cfg.ConsumerGroup, wmLogger)
	if err != nil {
		_ = publisher.Close()
		return nil, err
	}

	return &Bus{Publisher: publisher, Subscriber: subscriber, Kind: "kafka"}, nil
}

func NewKafkaPublisher(brokers []string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return publisher, nil
}

func NewKafkaSubscriber(brokers []string, consumerGroup string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	saramaConfig := kafka.DefaultSaramaSubscriberConfig()

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           kafka.DefaultMarshaler{},
		OverwriteSaramaConfig: saramaConfig,
		ConsumerGroup:         consumerGroup,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}
	return subscriber, nil
}

// Close shuts down both sides. The channel bus shares one object for both.
func (b *Bus) Close() error {
	pubErr := b.Publisher.Close()
	if b.Kind == "gochannel" {
		return pubErr
	}
	return errors.Join(pubErr, b.Subscriber.Close())
}
