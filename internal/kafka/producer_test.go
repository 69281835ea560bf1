package kafka

import (
	"testing"

	"car-market/internal/config"
	"car-market/internal/logger"
	"car-market/internal/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
)

func newTestProducer(t *testing.T, expected int) (*Producer, *mocks.SyncProducer) {
	t.Helper()
	cfg := sarama.NewConfig()
	mp := mocks.NewSyncProducer(t, cfg)
	for i := 0; i < expected; i++ {
		mp.ExpectSendMessageAndSucceed()
	}
	p := &Producer{
		producer: mp,
		log:      logger.New(&config.LoggerConfig{Level: "error", Format: "json"}),
		topics:   &config.Topics{Deals: "deals", Tasks: "market-tasks"},
	}
	return p, mp
}

func TestPublishEvent(t *testing.T) {
	p, mp := newTestProducer(t, 1)

	event := models.Event{ID: uuid.New(), Type: models.EventTypeDealCompleted}
	if err := p.publishEvent("deals", event); err != nil {
		t.Fatalf("expected publish success, got %v", err)
	}

	if err := mp.Close(); err != nil {
		t.Fatalf("failed to close mock producer: %v", err)
	}
}

func TestProducer_WrapperMethods(t *testing.T) {
	p, _ := newTestProducer(t, 3)

	dealPayload := models.DealCompletedPayload{
		DealID:      uuid.New(),
		BuyerID:     uuid.New(),
		SellerID:    uuid.New(),
		CarID:       uuid.New(),
		Amount:      1,
		PricePerOne: 500000,
		BuyerKind:   "customer",
	}
	if err := p.PublishDealCompleted(dealPayload); err != nil {
		t.Fatalf("PublishDealCompleted failed: %v", err)
	}

	restockPayload := models.RestockOrderedPayload{
		DealerID:    uuid.New(),
		SupplierID:  uuid.New(),
		CarID:       uuid.New(),
		Amount:      70,
		PricePerOne: 400000,
	}
	if err := p.PublishRestockOrdered(restockPayload); err != nil {
		t.Fatalf("PublishRestockOrdered failed: %v", err)
	}

	if err := p.PublishCooperationUpdated(uuid.New(), []uuid.UUID{uuid.New()}); err != nil {
		t.Fatalf("PublishCooperationUpdated failed: %v", err)
	}
}

func TestProducer_PublishEvent_Failure(t *testing.T) {
	cfg := sarama.NewConfig()
	mp := mocks.NewSyncProducer(t, cfg)
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := &Producer{
		producer: mp,
		log:      logger.New(&config.LoggerConfig{Level: "error", Format: "json"}),
		topics:   &config.Topics{Deals: "deals"},
	}

	ev := models.Event{ID: uuid.New(), Type: models.EventTypeDealCompleted}
	if err := p.publishEvent("deals", ev); err == nil {
		t.Fatalf("expected error on send failure")
	}
	_ = p.Close()
}

func TestNewProducer_Error(t *testing.T) {
	log := logger.New(&config.LoggerConfig{Level: "error", Format: "json"})
	cfg := &config.KafkaConfig{Brokers: []string{"localhost:0"}}
	if _, err := NewProducer(cfg, log); err == nil {
		t.Fatalf("expected error creating producer")
	}
}

func TestProducer_CloseNil(t *testing.T) {
	var p *Producer
	if err := p.Close(); err != nil {
		t.Fatalf("expected nil error on nil producer")
	}
	p = &Producer{}
	if err := p.Close(); err != nil {
		t.Fatalf("expected nil error on empty producer, got %v", err)
	}
}
