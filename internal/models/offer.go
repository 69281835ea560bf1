package models

import (
	"fmt"

	"github.com/google/uuid"
)

// CustomerOffer представляет заявку покупателя на одну машину
type CustomerOffer struct {
	CustomerID     uuid.UUID          `json:"customer_id"`
	CarID          *uuid.UUID         `json:"car_id,omitempty"`
	Characteristic *CarCharacteristic `json:"characteristic,omitempty"`
	MaxPrice       int64              `json:"max_price"`
}

// Validate проверяет форму заявки покупателя
func (o *CustomerOffer) Validate() error {
	if o.CustomerID == uuid.Nil {
		return fmt.Errorf("customer_id is required")
	}
	if err := validateTarget(o.CarID, o.Characteristic); err != nil {
		return err
	}
	if o.MaxPrice <= 0 {
		return fmt.Errorf("max_price must be positive")
	}
	return nil
}

// Amount возвращает количество машин в заявке, покупатель берет одну
func (o *CustomerOffer) Amount() int64 { return 1 }

// DealerOffer представляет заявку дилера на партию машин
type DealerOffer struct {
	DealerID       uuid.UUID          `json:"dealer_id"`
	CarID          *uuid.UUID         `json:"car_id,omitempty"`
	Characteristic *CarCharacteristic `json:"characteristic,omitempty"`
	CarAmount      int64              `json:"car_amount"`
	MaxPrice       int64              `json:"max_price"`
}

// Validate проверяет форму заявки дилера
func (o *DealerOffer) Validate() error {
	if o.DealerID == uuid.Nil {
		return fmt.Errorf("dealer_id is required")
	}
	if err := validateTarget(o.CarID, o.Characteristic); err != nil {
		return err
	}
	if o.CarAmount <= 0 {
		return fmt.Errorf("car_amount must be positive")
	}
	if o.MaxPrice <= 0 {
		return fmt.Errorf("max_price must be positive")
	}
	return nil
}

// Заявка указывает либо конкретную машину, либо характеристику.
// Характеристика обязана задавать марку, модель и поколение.
func validateTarget(carID *uuid.UUID, ch *CarCharacteristic) error {
	if carID == nil && ch == nil {
		return fmt.Errorf("either car_id or characteristic is required")
	}
	if carID != nil && ch != nil {
		return fmt.Errorf("car_id and characteristic are mutually exclusive")
	}
	if carID != nil && *carID == uuid.Nil {
		return fmt.Errorf("car_id must not be empty")
	}
	if ch != nil && (ch.Brand == "" || ch.Model == "" || ch.Generation == "") {
		return fmt.Errorf("characteristic requires brand, model and generation")
	}
	return nil
}

// OfferDecision представляет победителя подбора: у кого, что и почем покупать
type OfferDecision struct {
	Seller      Seller
	StockItem   *StockItem
	Amount      int64
	PricePerOne int64
	// Discount и Campaign указывают источник итоговой цены, оба nil для цены без скидок
	Discount *Discount
	Campaign *MarketingCampaign
}

// TotalPrice возвращает полную стоимость сделки
func (d *OfferDecision) TotalPrice() int64 {
	return d.PricePerOne * d.Amount
}
