package services

import (
	"sort"

	"car-market/internal/logger"
	"car-market/internal/models"

	"github.com/google/uuid"
)

// OfferEngine подбирает лучшего продавца под заявку покупателя.
// Движок чистый: работает с уже загруженными пулами продавцов.
type OfferEngine struct {
	log *logger.Logger
}

// NewOfferEngine создает новый экземпляр движка подбора
func NewOfferEngine(log *logger.Logger) *OfferEngine {
	return &OfferEngine{log: log}
}

// sellerCandidate накапливает промежуточный результат подбора по продавцу
type sellerCandidate struct {
	seller      models.Seller
	bestStock   *models.StockItem
	discount    *models.Discount
	discountPct float64
	campaign    *models.MarketingCampaign
}

// MatchCustomerOffer подбирает дилера под заявку покупателя.
// Возвращает nil, если ни один дилер не подошел или цена выше бюджета.
func (e *OfferEngine) MatchCustomerOffer(offer *models.CustomerOffer, customer *models.Customer, dealers []*models.Dealer) *models.OfferDecision {
	candidates := make([]*sellerCandidate, 0, len(dealers))
	for _, dealer := range dealers {
		if offer.Characteristic != nil && !dealerPublishesSuitable(dealer, offer.Characteristic) {
			continue
		}
		cand := e.buildCandidate(dealer, customer, offer.CarID, offer.Characteristic, offer.Amount(), false)
		if cand != nil {
			candidates = append(candidates, cand)
		}
	}

	winner := e.foldBest(candidates, offer.Amount())
	winner = applyBudgetGate(winner, offer.MaxPrice)

	if winner != nil {
		e.log.WithFields(map[string]interface{}{
			"customer_id":   offer.CustomerID,
			"seller":        winner.Seller.SellerName(),
			"price_per_one": winner.PricePerOne,
		}).Debug("Customer offer matched")
	}
	return winner
}

// MatchDealerOffer подбирает поставщика под заявку дилера и дополнительно
// возвращает поставщика, сотрудничество с которым выгодно в перспективе.
func (e *OfferEngine) MatchDealerOffer(offer *models.DealerOffer, dealer *models.Dealer, suppliers []*models.Supplier) (*models.OfferDecision, *models.Supplier) {
	candidates := make([]*sellerCandidate, 0, len(suppliers))
	bySupplier := make(map[*models.Supplier]*sellerCandidate, len(suppliers))
	for _, supplier := range suppliers {
		cand := e.buildCandidate(supplier, dealer, offer.CarID, offer.Characteristic, offer.CarAmount, true)
		if cand != nil {
			candidates = append(candidates, cand)
			bySupplier[supplier] = cand
		}
	}

	winner := e.foldBest(candidates, offer.CarAmount)
	winner = applyBudgetGate(winner, offer.MaxPrice)
	if winner == nil {
		return nil, nil
	}

	forecast := e.forecastCooperation(dealer, suppliers, bySupplier, winner.PricePerOne)

	e.log.WithFields(map[string]interface{}{
		"dealer_id":     offer.DealerID,
		"seller":        winner.Seller.SellerName(),
		"price_per_one": winner.PricePerOne,
		"amount":        winner.Amount,
	}).Debug("Dealer offer matched")

	return winner, forecast
}

// buildCandidate отбирает подходящий склад продавца и выбирает
// лучшую скидку и лучшую акцию для него.
func (e *OfferEngine) buildCandidate(seller models.Seller, buyer models.Buyer, carID *uuid.UUID, ch *models.CarCharacteristic, amount int64, allowBulk bool) *sellerCandidate {
	best := bestStockItem(seller.SellerStock(), carID, ch)
	if best == nil {
		return nil
	}

	cand := &sellerCandidate{seller: seller, bestStock: best}
	cand.campaign = bestCampaign(seller.SellerCampaigns(), carID, ch)

	total := buyer.TotalPurchasedFrom(seller.SellerID())
	cand.discount, cand.discountPct = bestDiscount(seller.SellerDiscounts(), total, amount, allowBulk)

	return cand
}

// dealerPublishesSuitable проверяет, заявляет ли дилер хотя бы одну
// характеристику, покрывающую запрос покупателя.
func dealerPublishesSuitable(dealer *models.Dealer, ch *models.CarCharacteristic) bool {
	for _, published := range dealer.Characteristics {
		if published.IsSuitable(ch) {
			return true
		}
	}
	return false
}

// bestStockItem возвращает самую дешевую подходящую позицию склада.
// При равных ценах остается первая найденная.
func bestStockItem(stock []*models.StockItem, carID *uuid.UUID, ch *models.CarCharacteristic) *models.StockItem {
	var best *models.StockItem
	for _, item := range stock {
		if item.Amount <= 0 || item.Car == nil {
			continue
		}
		if carID != nil && item.Car.ID != *carID {
			continue
		}
		if carID == nil && !ch.Suits(item.Car) {
			continue
		}
		if best == nil || item.PricePerOne < best.PricePerOne {
			best = item
		}
	}
	return best
}

// bestCampaign возвращает акцию с наибольшим процентом среди покрывающих
// запрос. Акции с нулевым процентом неактивны и пропускаются.
func bestCampaign(campaigns []*models.MarketingCampaign, carID *uuid.UUID, ch *models.CarCharacteristic) *models.MarketingCampaign {
	var best *models.MarketingCampaign
	for _, campaign := range campaigns {
		if campaign.Percentage == 0 {
			continue
		}
		if carID != nil {
			if !campaign.AppliesTo(*carID) {
				continue
			}
		} else if !campaign.AppliesToCharacteristic(ch) {
			continue
		}
		if best == nil || campaign.Percentage > best.Percentage {
			best = campaign
		}
	}
	return best
}

// bestDiscount возвращает скидку с наибольшим применимым процентом.
// Нулевой процент не считается скидкой.
func bestDiscount(discounts []*models.Discount, totalPurchases, amount int64, allowBulk bool) (*models.Discount, float64) {
	var best *models.Discount
	var bestPct float64
	for _, discount := range discounts {
		if discount.Type == models.DiscountTypeBulk && !allowBulk {
			continue
		}
		pct := discount.DiscountPercentage(totalPurchases, amount)
		if pct > bestPct {
			best = discount
			bestPct = pct
		}
	}
	return best, bestPct
}

// foldBest сворачивает кандидатов в единственного победителя.
// Цена акции и цена скидки сравниваются с текущим лучшим независимо,
// выгоды не складываются. Побеждает только строгое улучшение цены,
// поэтому при равенстве остается более ранний продавец.
func (e *OfferEngine) foldBest(candidates []*sellerCandidate, amount int64) *models.OfferDecision {
	var winner *models.OfferDecision

	adopt := func(cand *sellerCandidate, price int64, discount *models.Discount, campaign *models.MarketingCampaign) {
		winner = &models.OfferDecision{
			Seller:      cand.seller,
			StockItem:   cand.bestStock,
			Amount:      amount,
			PricePerOne: price,
			Discount:    discount,
			Campaign:    campaign,
		}
	}

	for _, cand := range candidates {
		raw := cand.bestStock.PricePerOne

		if cand.campaign != nil {
			price := models.PriceWithDiscount(raw, cand.campaign.Percentage)
			if (winner == nil && price < raw) || (winner != nil && price < winner.PricePerOne) {
				adopt(cand, price, nil, cand.campaign)
			}
		}

		if cand.discount != nil && cand.discountPct > 0 {
			price := models.PriceWithDiscount(raw, cand.discountPct)
			if (winner == nil && price < raw) || (winner != nil && price < winner.PricePerOne) {
				adopt(cand, price, cand.discount, nil)
			}
		}

		if winner == nil || raw < winner.PricePerOne {
			adopt(cand, raw, nil, nil)
		}
	}

	return winner
}

// applyBudgetGate отбрасывает победителя с ценой выше бюджета заявки
func applyBudgetGate(winner *models.OfferDecision, maxPrice int64) *models.OfferDecision {
	if winner != nil && winner.PricePerOne > maxPrice {
		return nil
	}
	return winner
}

// forecastCooperation оценивает, с каким поставщиком дилеру выгодно
// наращивать сотрудничество. Рассматриваются только поставщики,
// у которых дилер уже закупался. Совет не влияет на текущую сделку.
func (e *OfferEngine) forecastCooperation(dealer *models.Dealer, suppliers []*models.Supplier, bySupplier map[*models.Supplier]*sellerCandidate, winnerPrice int64) *models.Supplier {
	var forecast *models.Supplier
	var bestWeight float64

	for _, supplier := range suppliers {
		total := dealer.TotalPurchasedFrom(supplier.ID)
		if total == 0 {
			continue
		}
		cand, ok := bySupplier[supplier]
		if !ok {
			continue
		}

		discounts := supplier.CumulativeDiscounts()
		sort.SliceStable(discounts, func(i, j int) bool {
			return discounts[i].Percentage > discounts[j].Percentage
		})

		for _, discount := range discounts {
			price := models.PriceWithDiscount(cand.bestStock.PricePerOne, discount.Percentage)
			if price >= winnerPrice {
				continue
			}

			gap := 100 * (1 - float64(price)/float64(winnerPrice))
			completion := 100.0
			if discount.MinAmount > 0 {
				completion = float64(total) / float64(discount.MinAmount) * 100
			}

			weight := models.CooperationWeight(gap, discount.MinAmount, completion)
			if weight >= models.PassingWeight && weight > bestWeight {
				// Первая скидка, улучшившая прогноз, завершает
				// просмотр остальных скидок этого поставщика.
				forecast = supplier
				bestWeight = weight
				break
			}
		}
	}

	if forecast != nil {
		e.log.WithFields(map[string]interface{}{
			"dealer_id": dealer.ID,
			"supplier":  forecast.Name,
			"weight":    bestWeight,
		}).Debug("Cooperation forecast selected")
	}
	return forecast
}
