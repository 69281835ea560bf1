package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType представляет тип события в Kafka
type EventType string

const (
	EventTypeDealCompleted      EventType = "deal.completed"
	EventTypeRestockOrdered     EventType = "restock.ordered"
	EventTypeCooperationUpdated EventType = "cooperation.updated"

	// Задачи планировщика, поступающие из внешнего расписания
	EventTypeTaskDealerRestock    EventType = "task.dealer_restock"
	EventTypeTaskCustomerPurchase EventType = "task.customer_purchase"
	EventTypeTaskCooperationCheck EventType = "task.cooperation_check"
)

// Event представляет событие для передачи через Kafka
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DealCompletedPayload описывает завершенную сделку
type DealCompletedPayload struct {
	DealID      uuid.UUID `json:"deal_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	CarID       uuid.UUID `json:"car_id"`
	Amount      int64     `json:"amount"`
	PricePerOne int64     `json:"price_per_one"`
	BuyerKind   string    `json:"buyer_kind"`
}

// RestockOrderedPayload описывает пополнение склада дилера
type RestockOrderedPayload struct {
	DealerID    uuid.UUID `json:"dealer_id"`
	SupplierID  uuid.UUID `json:"supplier_id"`
	CarID       uuid.UUID `json:"car_id"`
	Amount      int64     `json:"amount"`
	PricePerOne int64     `json:"price_per_one"`
}

// CooperationUpdatedPayload описывает смену набора поставщиков дилера
type CooperationUpdatedPayload struct {
	DealerID  uuid.UUID   `json:"dealer_id"`
	Suppliers []uuid.UUID `json:"suppliers"`
}

// DealerTaskPayload описывает задачу планировщика для дилера
type DealerTaskPayload struct {
	DealerID uuid.UUID `json:"dealer_id"`
}

// CustomerPurchaseTaskPayload описывает задачу покупки от имени покупателя
type CustomerPurchaseTaskPayload struct {
	Offer CustomerOffer `json:"offer"`
}

// NewEvent создает событие с сериализованной нагрузкой
func NewEvent(eventType EventType, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}, nil
}
