package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// DiscountType представляет тип скидки продавца
type DiscountType string

const (
	// DiscountTypeCumulative зависит от накопленного объема покупок у продавца
	DiscountTypeCumulative DiscountType = "cumulative"
	// DiscountTypeBulk зависит от количества машин в текущей сделке
	DiscountTypeBulk DiscountType = "bulk"
)

// Discount представляет скидку продавца
type Discount struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	SellerID   uuid.UUID    `json:"seller_id" db:"seller_id"`
	Name       string       `json:"name" db:"name"`
	Type       DiscountType `json:"type" db:"type"`
	MinAmount  int64        `json:"min_amount" db:"min_amount"`
	Percentage float64      `json:"percentage" db:"percentage"`
}

// DiscountPercentage возвращает процент скидки для покупателя.
// totalPurchases учитывается для накопительных скидок,
// currentAmount для оптовых. Неприменимая скидка дает 0.
func (d *Discount) DiscountPercentage(totalPurchases, currentAmount int64) float64 {
	switch d.Type {
	case DiscountTypeCumulative:
		if totalPurchases >= d.MinAmount {
			return d.Percentage
		}
	case DiscountTypeBulk:
		if currentAmount >= d.MinAmount {
			return d.Percentage
		}
	}
	return 0
}

// PriceWithDiscount возвращает цену после применения процента скидки.
// Результат округляется вверх до целого, нулевой процент не меняет цену.
func PriceWithDiscount(price int64, percentage float64) int64 {
	if percentage <= 0 {
		return price
	}
	return int64(math.Ceil(float64(price) * (100 - percentage) / 100))
}

// MarketingCampaign представляет маркетинговую акцию на набор машин
type MarketingCampaign struct {
	ID         uuid.UUID `json:"id" db:"id"`
	SellerID   uuid.UUID `json:"seller_id" db:"seller_id"`
	Name       string    `json:"name" db:"name"`
	Percentage float64   `json:"percentage" db:"percentage"`
	Cars       []*Car    `json:"cars"`
	StartDate  time.Time `json:"start_date" db:"start_date"`
	EndDate    time.Time `json:"end_date" db:"end_date"`
}

// ActiveAt проверяет, действует ли акция в указанный момент
func (m *MarketingCampaign) ActiveAt(now time.Time) bool {
	return !now.Before(m.StartDate) && !now.After(m.EndDate)
}

// AppliesTo проверяет, распространяется ли акция на машину
func (m *MarketingCampaign) AppliesTo(carID uuid.UUID) bool {
	for _, car := range m.Cars {
		if car != nil && car.ID == carID {
			return true
		}
	}
	return false
}

// AppliesToCharacteristic проверяет, покрывает ли акция хотя бы одну
// машину, подходящую под характеристику.
func (m *MarketingCampaign) AppliesToCharacteristic(ch *CarCharacteristic) bool {
	if ch == nil {
		return false
	}
	for _, car := range m.Cars {
		if ch.Suits(car) {
			return true
		}
	}
	return false
}
