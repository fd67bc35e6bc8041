package messaging

import (
	"fmt"

	"wallet-api/internal/infrastructure/messaging/kafka"
)

// EventPublisher defines the interface for publishing wallet events
type EventPublisher interface {
	PublishWalletCreated(event WalletCreatedEvent) error
	PublishAccountCreated(event AccountCreatedEvent) error
	PublishTransferCompleted(event TransferCompletedEvent) error
	PublishTransferFailed(event TransferFailedEvent) error
	PublishInterestApplied(event InterestAppliedEvent) error
	Close() error
	IsHealthy() bool
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer *kafka.Producer
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(config *kafka.Config) (*KafkaEventPublisher, error) {
	producer, err := kafka.NewProducer(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &KafkaEventPublisher{producer: producer}, nil
}

// PublishWalletCreated publishes a wallet created event
func (p *KafkaEventPublisher) PublishWalletCreated(event WalletCreatedEvent) error {
	return p.producer.PublishEvent(kafka.TopicWalletCreated, event.WalletID, event)
}

// PublishAccountCreated publishes an account created event
func (p *KafkaEventPublisher) PublishAccountCreated(event AccountCreatedEvent) error {
	return p.producer.PublishEvent(kafka.TopicAccountCreated, event.AccountID, event)
}

// PublishTransferCompleted publishes a transfer completed event, keyed by
// the wallet pair so entries for the same pair stay ordered.
func (p *KafkaEventPublisher) PublishTransferCompleted(event TransferCompletedEvent) error {
	key := fmt.Sprintf("%s-%s", event.FromWalletID, event.ToWalletID)
	return p.producer.PublishEvent(kafka.TopicTransferComplete, key, event)
}

// PublishTransferFailed publishes a transfer failed event
func (p *KafkaEventPublisher) PublishTransferFailed(event TransferFailedEvent) error {
	key := fmt.Sprintf("%s-%s", event.FromWalletID, event.ToWalletID)
	return p.producer.PublishEvent(kafka.TopicTransferFailed, key, event)
}

// PublishInterestApplied publishes an interest applied event
func (p *KafkaEventPublisher) PublishInterestApplied(event InterestAppliedEvent) error {
	return p.producer.PublishEvent(kafka.TopicInterestApplied, event.AccountID, event)
}

// Close closes the Kafka producer
func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}

// IsHealthy checks if the publisher is healthy
func (p *KafkaEventPublisher) IsHealthy() bool {
	return p.producer.IsHealthy()
}

// NoOpEventPublisher is a no-op implementation used when Kafka is
// disabled or unavailable
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

func (p *NoOpEventPublisher) PublishWalletCreated(event WalletCreatedEvent) error         { return nil }
func (p *NoOpEventPublisher) PublishAccountCreated(event AccountCreatedEvent) error       { return nil }
func (p *NoOpEventPublisher) PublishTransferCompleted(event TransferCompletedEvent) error { return nil }
func (p *NoOpEventPublisher) PublishTransferFailed(event TransferFailedEvent) error       { return nil }
func (p *NoOpEventPublisher) PublishInterestApplied(event InterestAppliedEvent) error     { return nil }
func (p *NoOpEventPublisher) Close() error                                                { return nil }
func (p *NoOpEventPublisher) IsHealthy() bool                                             { return true }
