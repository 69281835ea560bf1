package services

import (
	"context"
	"math"
	"sort"
	"time"

	"car-market/internal/apperror"
	"car-market/internal/config"
	"car-market/internal/logger"
	"car-market/internal/models"

	"github.com/google/uuid"
)

// RestockService выполняет регулярные задачи рынка: пополнение складов
// дилеров, плановые покупки клиентов и пересмотр списка поставщиков.
type RestockService struct {
	engine   *OfferEngine
	market   *MarketService
	deals    *DealService
	offers   *OfferService
	producer EventPublisher
	log      *logger.Logger
	cfg      *config.MarketConfig
}

// NewRestockService создает новый экземпляр сервиса регулярных задач
func NewRestockService(engine *OfferEngine, market *MarketService, deals *DealService, offers *OfferService, producer EventPublisher, log *logger.Logger, cfg *config.MarketConfig) *RestockService {
	return &RestockService{
		engine:   engine,
		market:   market,
		deals:    deals,
		offers:   offers,
		producer: producer,
		log:      log,
		cfg:      cfg,
	}
}

// stockOrder представляет одну потребность дилера в закупке
type stockOrder struct {
	carID     uuid.UUID
	amount    int64
	totalSold int64
}

// RunDealerRestock пополняет склад дилера по скорости продаж.
// Быстро продающиеся машины закупаются первыми, при нехватке денег
// допускается одна частичная закупка по выигравшей неоптовой скидке,
// после чего цикл останавливается.
func (s *RestockService) RunDealerRestock(ctx context.Context, dealerID uuid.UUID) error {
	dealer, err := s.market.DealerByID(ctx, dealerID)
	if err != nil {
		return err
	}

	stats, err := s.deals.DealerSalesHistory(ctx, dealerID, s.cfg.HistoryWindowDays)
	if err != nil {
		return err
	}

	sellOutDays := dealer.SellOutDays
	if sellOutDays <= 0 {
		sellOutDays = s.cfg.SellOutDays
	}

	orders := prepareStockOrders(dealer.Stock, stats, time.Now().UTC(), sellOutDays, s.cfg.AverageDeliveryDays)
	if len(orders) == 0 {
		s.log.WithField("dealer_id", dealerID).Debug("No restock needed")
		return nil
	}

	suppliers, err := s.supplierPool(ctx, dealer)
	if err != nil {
		return err
	}

	completed := 0
	for _, order := range orders {
		carID := order.carID
		offer := &models.DealerOffer{
			DealerID:  dealer.ID,
			CarID:     &carID,
			CarAmount: order.amount,
			MaxPrice:  dealer.Balance,
		}

		decision, _ := s.engine.MatchDealerOffer(offer, dealer, suppliers)
		if decision == nil {
			continue
		}

		if decision.TotalPrice() <= dealer.Balance {
			if err := s.executeRestock(ctx, dealer, decision); err != nil {
				return err
			}
			completed++
			continue
		}

		// Денег на полный объем нет. Частичная закупка допустима
		// только когда победила скидка и она не оптовая, без скидки
		// покупки не будет. В любом случае цикл завершается.
		if decision.Discount != nil && decision.Discount.Type != models.DiscountTypeBulk {
			partial := dealer.Balance / decision.PricePerOne
			if partial > 0 {
				decision.Amount = partial
				if err := s.executeRestock(ctx, dealer, decision); err != nil {
					return err
				}
				completed++
			}
		}
		break
	}

	if completed > 0 {
		s.market.InvalidatePools(ctx)
	}
	s.log.WithFields(map[string]interface{}{
		"dealer_id": dealerID,
		"orders":    len(orders),
		"completed": completed,
	}).Info("Dealer restock finished")
	return nil
}

// executeRestock проводит закупку и отражает ее в памяти дилера,
// чтобы следующие заказы цикла видели остаток денег и склада.
func (s *RestockService) executeRestock(ctx context.Context, dealer *models.Dealer, decision *models.OfferDecision) error {
	deal, err := s.deals.CompleteDealerDeal(ctx, dealer.ID, decision)
	if err != nil {
		return err
	}

	dealer.Balance -= decision.TotalPrice()
	decision.StockItem.Amount -= decision.Amount

	if s.producer != nil {
		err := s.producer.PublishRestockOrdered(models.RestockOrderedPayload{
			DealerID:    dealer.ID,
			SupplierID:  deal.SellerID,
			CarID:       deal.CarID,
			Amount:      deal.Amount,
			PricePerOne: deal.PricePerOne,
		})
		if err != nil {
			s.log.WithError(err).WithField("deal_id", deal.ID).Warn("Failed to publish restock event")
		}
	}
	return nil
}

// RunCustomerPurchase проводит плановую покупку от имени клиента.
// Отсутствие подходящего предложения не считается ошибкой.
func (s *RestockService) RunCustomerPurchase(ctx context.Context, offer *models.CustomerOffer) error {
	result, err := s.offers.HandleCustomerOffer(ctx, offer)
	if apperror.Is(err, apperror.KindInsufficientFunds) {
		s.log.WithField("customer_id", offer.CustomerID).Info("Scheduled purchase skipped, not enough funds")
		return nil
	}
	if err != nil {
		return err
	}
	if result.Decision == nil {
		s.log.WithField("customer_id", offer.CustomerID).Debug("Scheduled purchase found no match")
	}
	return nil
}

// RunCooperationCheck пересматривает поставщиков дилера.
// По каждой машине склада заявка прогоняется против всего рынка,
// победители и прогнозные поставщики образуют новый список.
func (s *RestockService) RunCooperationCheck(ctx context.Context, dealerID uuid.UUID) error {
	dealer, err := s.market.DealerByID(ctx, dealerID)
	if err != nil {
		return err
	}
	if len(dealer.Stock) == 0 {
		return nil
	}

	suppliers, err := s.market.Suppliers(ctx)
	if err != nil {
		return err
	}

	chosen := make(map[uuid.UUID]bool)
	for _, item := range dealer.Stock {
		carID := item.Car.ID
		offer := &models.DealerOffer{
			DealerID:  dealer.ID,
			CarID:     &carID,
			CarAmount: 1,
			MaxPrice:  math.MaxInt64,
		}
		decision, forecast := s.engine.MatchDealerOffer(offer, dealer, suppliers)
		if decision != nil {
			chosen[decision.Seller.SellerID()] = true
		}
		if forecast != nil {
			chosen[forecast.ID] = true
		}
	}
	if len(chosen) == 0 {
		return nil
	}

	next := make([]uuid.UUID, 0, len(chosen))
	for id := range chosen {
		next = append(next, id)
	}
	sort.Slice(next, func(i, j int) bool { return next[i].String() < next[j].String() })

	if sameSupplierSet(dealer.Suppliers, chosen) {
		return nil
	}

	if err := s.market.ReplaceDealerSuppliers(ctx, dealerID, next); err != nil {
		return err
	}
	if s.producer != nil {
		if err := s.producer.PublishCooperationUpdated(dealerID, next); err != nil {
			s.log.WithError(err).WithField("dealer_id", dealerID).Warn("Failed to publish cooperation event")
		}
	}
	return nil
}

func sameSupplierSet(current []uuid.UUID, next map[uuid.UUID]bool) bool {
	if len(current) != len(next) {
		return false
	}
	for _, id := range current {
		if !next[id] {
			return false
		}
	}
	return true
}

// supplierPool возвращает поставщиков, с которыми дилер сотрудничает,
// а при пустом списке весь рынок.
func (s *RestockService) supplierPool(ctx context.Context, dealer *models.Dealer) ([]*models.Supplier, error) {
	suppliers, err := s.market.Suppliers(ctx)
	if err != nil {
		return nil, err
	}
	if len(dealer.Suppliers) == 0 {
		return suppliers, nil
	}
	allowed := make(map[uuid.UUID]bool, len(dealer.Suppliers))
	for _, id := range dealer.Suppliers {
		allowed[id] = true
	}
	var filtered []*models.Supplier
	for _, sup := range suppliers {
		if allowed[sup.ID] {
			filtered = append(filtered, sup)
		}
	}
	return filtered, nil
}

// prepareStockOrders рассчитывает потребности в закупке по скорости
// продаж и сортирует их по убыванию проданного объема.
func prepareStockOrders(stock []*models.StockItem, stats []CarSalesStats, now time.Time, sellOutDays, deliveryDays int) []stockOrder {
	statsByCar := make(map[uuid.UUID]CarSalesStats, len(stats))
	for _, st := range stats {
		statsByCar[st.CarID] = st
	}

	var orders []stockOrder
	for _, item := range stock {
		if item.Car == nil {
			continue
		}
		st, ok := statsByCar[item.Car.ID]
		if !ok {
			continue
		}

		avg := averageDailySales(st.DealCount, st.FirstDeal, now)
		if avg == 0 {
			continue
		}
		forecastDays := forecastSellDays(item.Amount, avg)
		if forecastDays >= int64(sellOutDays) {
			continue
		}

		amount := (int64(sellOutDays) + int64(deliveryDays) - forecastDays) * avg
		if amount <= 0 {
			continue
		}
		orders = append(orders, stockOrder{carID: item.Car.ID, amount: amount, totalSold: st.DealCount})
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].totalSold > orders[j].totalSold
	})
	return orders
}

// averageDailySales возвращает целую среднюю скорость продаж в день
func averageDailySales(dealCount int64, firstDeal, now time.Time) int64 {
	days := int64(now.Sub(firstDeal).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return dealCount / days
}

// forecastSellDays возвращает прогноз дней до распродажи остатка
func forecastSellDays(amount, avgPerDay int64) int64 {
	if avgPerDay == 0 {
		return 0
	}
	return amount / avgPerDay
}
