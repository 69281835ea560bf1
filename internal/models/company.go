package models

import "github.com/google/uuid"

// Company содержит общие поля участника рынка
type Company struct {
	ID      uuid.UUID `json:"id" db:"id"`
	Name    string    `json:"name" db:"name"`
	Balance int64     `json:"balance" db:"balance"`
}

// Seller представляет продавца: дилера для покупателей
// или поставщика для дилеров.
type Seller interface {
	SellerID() uuid.UUID
	SellerName() string
	SellerStock() []*StockItem
	SellerDiscounts() []*Discount
	SellerCampaigns() []*MarketingCampaign
}

// Buyer представляет покупателя в сделке
type Buyer interface {
	BuyerID() uuid.UUID
	BuyerBalance() int64
	// TotalPurchasedFrom возвращает накопленный объем покупок у продавца
	TotalPurchasedFrom(sellerID uuid.UUID) int64
}

// Dealer представляет дилера: продает покупателям, закупается у поставщиков
type Dealer struct {
	Company
	Stock           []*StockItem         `json:"stock"`
	Discounts       []*Discount          `json:"discounts"`
	Campaigns       []*MarketingCampaign `json:"campaigns"`
	Characteristics []*CarCharacteristic `json:"characteristics"`
	// SupplierTotals хранит накопленные объемы закупок по поставщикам
	SupplierTotals map[uuid.UUID]int64 `json:"supplier_totals"`
	Suppliers      []uuid.UUID         `json:"suppliers"`
	SellOutDays    int                 `json:"sell_out_days" db:"sell_out_days"`
}

func (d *Dealer) SellerID() uuid.UUID                   { return d.ID }
func (d *Dealer) SellerName() string                    { return d.Name }
func (d *Dealer) SellerStock() []*StockItem             { return d.Stock }
func (d *Dealer) SellerDiscounts() []*Discount          { return d.Discounts }
func (d *Dealer) SellerCampaigns() []*MarketingCampaign { return d.Campaigns }

func (d *Dealer) BuyerID() uuid.UUID  { return d.ID }
func (d *Dealer) BuyerBalance() int64 { return d.Balance }

func (d *Dealer) TotalPurchasedFrom(sellerID uuid.UUID) int64 {
	return d.SupplierTotals[sellerID]
}

// Supplier представляет поставщика автомобилей
type Supplier struct {
	Company
	Stock     []*StockItem         `json:"stock"`
	Discounts []*Discount          `json:"discounts"`
	Campaigns []*MarketingCampaign `json:"campaigns"`
}

func (s *Supplier) SellerID() uuid.UUID                   { return s.ID }
func (s *Supplier) SellerName() string                    { return s.Name }
func (s *Supplier) SellerStock() []*StockItem             { return s.Stock }
func (s *Supplier) SellerDiscounts() []*Discount          { return s.Discounts }
func (s *Supplier) SellerCampaigns() []*MarketingCampaign { return s.Campaigns }

// CumulativeDiscounts возвращает накопительные скидки поставщика
func (s *Supplier) CumulativeDiscounts() []*Discount {
	var result []*Discount
	for _, d := range s.Discounts {
		if d.Type == DiscountTypeCumulative {
			result = append(result, d)
		}
	}
	return result
}

// Customer представляет частного покупателя
type Customer struct {
	Company
	// TotalPurchases хранит накопленные объемы покупок по дилерам
	TotalPurchases map[uuid.UUID]int64 `json:"total_purchases"`
	Cars           []uuid.UUID         `json:"cars"`
}

func (c *Customer) BuyerID() uuid.UUID  { return c.ID }
func (c *Customer) BuyerBalance() int64 { return c.Balance }

func (c *Customer) TotalPurchasedFrom(sellerID uuid.UUID) int64 {
	return c.TotalPurchases[sellerID]
}

// TotalPurchase представляет накопленный объем покупок у продавца
type TotalPurchase struct {
	BuyerID  uuid.UUID `json:"buyer_id" db:"buyer_id"`
	SellerID uuid.UUID `json:"seller_id" db:"seller_id"`
	Amount   int64     `json:"amount" db:"amount"`
}

// PurchaseTotals сворачивает записи в карту по продавцам
func PurchaseTotals(totals []TotalPurchase) map[uuid.UUID]int64 {
	result := make(map[uuid.UUID]int64, len(totals))
	for _, t := range totals {
		result[t.SellerID] += t.Amount
	}
	return result
}
