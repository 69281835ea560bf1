package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Car представляет модель автомобиля
type Car struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	Brand               string    `json:"brand" db:"brand"`
	Model               string    `json:"model" db:"model"`
	Generation          string    `json:"generation" db:"generation"`
	YearRelease         int       `json:"year_release" db:"year_release"`
	YearEndOfProduction *int      `json:"year_end_of_production,omitempty" db:"year_end_of_production"`
}

// Validate проверяет корректность годов выпуска
func (c *Car) Validate() error {
	if c.Brand == "" || c.Model == "" || c.Generation == "" {
		return fmt.Errorf("brand, model and generation are required")
	}
	if c.YearRelease <= 0 {
		return fmt.Errorf("year_release must be positive")
	}
	if c.YearEndOfProduction != nil && *c.YearEndOfProduction < c.YearRelease {
		return fmt.Errorf("year_end_of_production %d is before year_release %d",
			*c.YearEndOfProduction, c.YearRelease)
	}
	return nil
}

// CarCharacteristic описывает требования к автомобилю.
// Пустые строковые поля и nil-годы не участвуют в сравнении.
type CarCharacteristic struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	Brand               string    `json:"brand,omitempty" db:"brand"`
	Model               string    `json:"model,omitempty" db:"model"`
	Generation          string    `json:"generation,omitempty" db:"generation"`
	YearRelease         *int      `json:"year_release,omitempty" db:"year_release"`
	YearEndOfProduction *int      `json:"year_end_of_production,omitempty" db:"year_end_of_production"`
}

// Suits проверяет, подходит ли автомобиль под характеристику.
// Сравнение несимметрично: характеристика сужает множество машин.
func (c *CarCharacteristic) Suits(car *Car) bool {
	if car == nil {
		return false
	}
	if c.Brand != "" && c.Brand != car.Brand {
		return false
	}
	if c.Model != "" && c.Model != car.Model {
		return false
	}
	if c.Generation != "" && c.Generation != car.Generation {
		return false
	}
	if c.YearRelease != nil && *c.YearRelease != car.YearRelease {
		return false
	}
	if c.YearEndOfProduction != nil {
		if car.YearEndOfProduction == nil || *c.YearEndOfProduction != *car.YearEndOfProduction {
			return false
		}
	}
	return true
}

// IsSuitable проверяет характеристику против другой характеристики.
// Ограничивают только поля, заданные в other: если other задает поле,
// оно обязано совпадать с полем получателя.
func (c *CarCharacteristic) IsSuitable(other *CarCharacteristic) bool {
	if other == nil {
		return true
	}
	if other.Brand != "" && other.Brand != c.Brand {
		return false
	}
	if other.Model != "" && other.Model != c.Model {
		return false
	}
	if other.Generation != "" && other.Generation != c.Generation {
		return false
	}
	if other.YearRelease != nil {
		if c.YearRelease == nil || *other.YearRelease != *c.YearRelease {
			return false
		}
	}
	if other.YearEndOfProduction != nil {
		if c.YearEndOfProduction == nil || *other.YearEndOfProduction != *c.YearEndOfProduction {
			return false
		}
	}
	return true
}

// FitsCharacteristic проверяет машину против характеристики
func (c *Car) FitsCharacteristic(ch *CarCharacteristic) bool {
	if ch == nil {
		return true
	}
	return ch.Suits(c)
}
