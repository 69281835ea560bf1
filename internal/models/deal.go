package models

import (
	"time"

	"github.com/google/uuid"
)

// DealRecord представляет завершенную сделку в истории
type DealRecord struct {
	ID          uuid.UUID `json:"id" db:"id"`
	BuyerID     uuid.UUID `json:"buyer_id" db:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id" db:"seller_id"`
	CarID       uuid.UUID `json:"car_id" db:"car_id"`
	Amount      int64     `json:"amount" db:"amount"`
	PricePerOne int64     `json:"price_per_one" db:"price_per_one"`
	Date        time.Time `json:"date" db:"date"`
}
