package models

import "github.com/google/uuid"

// StockItem представляет позицию склада продавца
type StockItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OwnerID     uuid.UUID `json:"owner_id" db:"owner_id"`
	Car         *Car      `json:"car"`
	Amount      int64     `json:"amount" db:"amount"`
	PricePerOne int64     `json:"price_per_one" db:"price_per_one"`
}
