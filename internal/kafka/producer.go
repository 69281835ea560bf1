package kafka

import (
	"encoding/json"
	"fmt"

	"car-market/internal/config"
	"car-market/internal/logger"
	"car-market/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer публикует события рынка в Kafka
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создает синхронный продюсер Kafka
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Info("Successfully connected to Kafka producer")

	return &Producer{
		producer: producer,
		log:      log,
		topics:   &cfg.Topics,
	}, nil
}

// Close закрывает продюсер
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// publishEvent сериализует и отправляет событие в топик
func (p *Producer) publishEvent(topic string, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID.String()),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}

	p.log.WithFields(map[string]interface{}{
		"topic":      topic,
		"partition":  partition,
		"offset":     offset,
		"event_type": event.Type,
	}).Debug("Event published to Kafka")

	return nil
}

// PublishDealCompleted публикует событие о завершенной сделке
func (p *Producer) PublishDealCompleted(payload models.DealCompletedPayload) error {
	event, err := models.NewEvent(models.EventTypeDealCompleted, payload)
	if err != nil {
		return err
	}
	return p.publishEvent(p.topics.Deals, event)
}

// PublishRestockOrdered публикует событие о закупке дилера у поставщика
func (p *Producer) PublishRestockOrdered(payload models.RestockOrderedPayload) error {
	event, err := models.NewEvent(models.EventTypeRestockOrdered, payload)
	if err != nil {
		return err
	}
	return p.publishEvent(p.topics.Deals, event)
}

// PublishCooperationUpdated публикует событие о смене поставщиков дилера
func (p *Producer) PublishCooperationUpdated(dealerID uuid.UUID, suppliers []uuid.UUID) error {
	event, err := models.NewEvent(models.EventTypeCooperationUpdated, models.CooperationUpdatedPayload{
		DealerID:  dealerID,
		Suppliers: suppliers,
	})
	if err != nil {
		return err
	}
	return p.publishEvent(p.topics.Deals, event)
}
