package services

import (
	"context"

	"car-market/internal/apperror"
	"car-market/internal/logger"
	"car-market/internal/models"

	"github.com/google/uuid"
)

// EventPublisher публикует события рынка в Kafka
type EventPublisher interface {
	PublishDealCompleted(payload models.DealCompletedPayload) error
	PublishRestockOrdered(payload models.RestockOrderedPayload) error
	PublishCooperationUpdated(dealerID uuid.UUID, suppliers []uuid.UUID) error
}

// OfferService проводит заявку через весь путь:
// проверка формы, подбор продавца, исполнение сделки, события.
type OfferService struct {
	engine   *OfferEngine
	market   *MarketService
	deals    *DealService
	producer EventPublisher
	log      *logger.Logger
}

// NewOfferService создает новый экземпляр сервиса заявок
func NewOfferService(engine *OfferEngine, market *MarketService, deals *DealService, producer EventPublisher, log *logger.Logger) *OfferService {
	return &OfferService{
		engine:   engine,
		market:   market,
		deals:    deals,
		producer: producer,
		log:      log,
	}
}

// CustomerOfferResult содержит итог заявки покупателя.
// Decision равен nil, если подходящего предложения нет.
type CustomerOfferResult struct {
	Decision *models.OfferDecision
	Deal     *models.DealRecord
}

// DealerOfferResult содержит итог заявки дилера и совет по сотрудничеству
type DealerOfferResult struct {
	Decision         *models.OfferDecision
	Deal             *models.DealRecord
	ForecastSupplier *models.Supplier
}

// HandleCustomerOffer подбирает дилера под заявку покупателя и проводит
// сделку целиком. Частичное исполнение для покупателя не предусмотрено.
func (s *OfferService) HandleCustomerOffer(ctx context.Context, offer *models.CustomerOffer) (*CustomerOfferResult, error) {
	if err := offer.Validate(); err != nil {
		return nil, apperror.Validation(err.Error(), err)
	}

	customer, err := s.market.CustomerByID(ctx, offer.CustomerID)
	if err != nil {
		return nil, err
	}

	dealers, err := s.market.Dealers(ctx)
	if err != nil {
		return nil, err
	}

	decision := s.engine.MatchCustomerOffer(offer, customer, dealers)
	if decision == nil {
		s.log.WithField("customer_id", offer.CustomerID).Info("Customer offer found no match")
		return &CustomerOfferResult{}, nil
	}

	if decision.TotalPrice() > customer.Balance {
		return nil, apperror.InsufficientFunds("customer cannot afford the matched offer", nil)
	}

	deal, err := s.deals.CompleteCustomerDeal(ctx, customer.ID, decision)
	if err != nil {
		return nil, err
	}

	s.publishDeal(deal, "customer")
	s.market.InvalidatePools(ctx)

	return &CustomerOfferResult{Decision: decision, Deal: deal}, nil
}

// HandleDealerOffer подбирает поставщика под заявку дилера и проводит
// закупку. Ручная заявка исполняется только в полном объеме.
func (s *OfferService) HandleDealerOffer(ctx context.Context, offer *models.DealerOffer) (*DealerOfferResult, error) {
	if err := offer.Validate(); err != nil {
		return nil, apperror.Validation(err.Error(), err)
	}

	dealer, err := s.market.DealerByID(ctx, offer.DealerID)
	if err != nil {
		return nil, err
	}

	suppliers, err := s.supplierPool(ctx, dealer)
	if err != nil {
		return nil, err
	}

	decision, forecast := s.engine.MatchDealerOffer(offer, dealer, suppliers)
	if decision == nil {
		s.log.WithField("dealer_id", offer.DealerID).Info("Dealer offer found no match")
		return &DealerOfferResult{}, nil
	}

	if decision.TotalPrice() > dealer.Balance {
		return nil, apperror.InsufficientFunds("dealer cannot afford the matched offer", nil)
	}

	deal, err := s.deals.CompleteDealerDeal(ctx, dealer.ID, decision)
	if err != nil {
		return nil, err
	}

	s.publishDeal(deal, "dealer")
	s.market.InvalidatePools(ctx)

	return &DealerOfferResult{Decision: decision, Deal: deal, ForecastSupplier: forecast}, nil
}

// supplierPool возвращает поставщиков дилера, а при пустом списке
// сотрудничества весь пул.
func (s *OfferService) supplierPool(ctx context.Context, dealer *models.Dealer) ([]*models.Supplier, error) {
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

// Сделка уже проведена, поэтому отказ брокера только логируется
func (s *OfferService) publishDeal(deal *models.DealRecord, buyerKind string) {
	if s.producer == nil {
		return
	}
	err := s.producer.PublishDealCompleted(models.DealCompletedPayload{
		DealID:      deal.ID,
		BuyerID:     deal.BuyerID,
		SellerID:    deal.SellerID,
		CarID:       deal.CarID,
		Amount:      deal.Amount,
		PricePerOne: deal.PricePerOne,
		BuyerKind:   buyerKind,
	})
	if err != nil {
		s.log.WithError(err).WithField("deal_id", deal.ID).Warn("Failed to publish deal event")
	}
}
