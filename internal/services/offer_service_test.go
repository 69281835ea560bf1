package services

import (
	"context"
	"testing"

	"car-market/internal/apperror"
	"car-market/internal/database"
	"car-market/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

type fakePublisher struct {
	deals    []models.DealCompletedPayload
	restocks []models.RestockOrderedPayload
	coops    [][]uuid.UUID
}

func (f *fakePublisher) PublishDealCompleted(p models.DealCompletedPayload) error {
	f.deals = append(f.deals, p)
	return nil
}

func (f *fakePublisher) PublishRestockOrdered(p models.RestockOrderedPayload) error {
	f.restocks = append(f.restocks, p)
	return nil
}

func (f *fakePublisher) PublishCooperationUpdated(dealerID uuid.UUID, suppliers []uuid.UUID) error {
	f.coops = append(f.coops, suppliers)
	return nil
}

func newOfferService(db *database.DB, producer EventPublisher) *OfferService {
	log := newTestLogger()
	market := NewMarketService(db, nil, log, newTestMarketConfig())
	deals := NewDealService(db, log)
	engine := NewOfferEngine(log)
	return NewOfferService(engine, market, deals, producer, log)
}

func TestHandleCustomerOffer_Success(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	producer := &fakePublisher{}
	service := newOfferService(db, producer)

	customerID := uuid.New()
	dealerID := uuid.New()

	// Покупатель
	mock.ExpectQuery("SELECT id, name, balance FROM customers").
		WithArgs(customerID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "balance"}).
			AddRow(customerID, "ivan", int64(10000)))
	mock.ExpectQuery("FROM customer_total_purchases").
		WithArgs(customerID).
		WillReturnRows(sqlmock.NewRows([]string{"dealer_id", "amount"}).AddRow(dealerID, int64(10)))
	mock.ExpectQuery("FROM customer_cars").
		WithArgs(customerID).
		WillReturnRows(sqlmock.NewRows([]string{"car_id"}))

	// Пул дилеров
	expectDealerPoolQueries(mock, dealerID)

	// Транзакция сделки: акция 5% от 500 дает 475
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE customers SET balance").
		WithArgs(int64(475), customerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE dealers SET balance").
		WithArgs(int64(475), dealerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE dealer_stock_items SET amount").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO customer_total_purchases").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO customer_cars").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO customer_deals_history").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	offer := &models.CustomerOffer{
		CustomerID:     customerID,
		Characteristic: &models.CarCharacteristic{Brand: "Lada", Model: "Vesta", Generation: "I"},
		MaxPrice:       1000,
	}

	result, err := service.HandleCustomerOffer(context.Background(), offer)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result.Decision == nil || result.Deal == nil {
		t.Fatalf("expected a completed deal, got %+v", result)
	}
	if result.Decision.PricePerOne != 475 {
		t.Fatalf("expected price 475, got %d", result.Decision.PricePerOne)
	}
	if len(producer.deals) != 1 || producer.deals[0].BuyerKind != "customer" {
		t.Fatalf("deal event not published: %+v", producer.deals)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHandleCustomerOffer_InvalidShape(t *testing.T) {
	db, _ := newMockDB(t)
	defer db.Close()

	service := newOfferService(db, nil)

	offer := &models.CustomerOffer{CustomerID: uuid.New(), MaxPrice: 100}
	_, err := service.HandleCustomerOffer(context.Background(), offer)
	if !apperror.Is(err, apperror.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandleCustomerOffer_NoMatch(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newOfferService(db, nil)

	customerID := uuid.New()
	mock.ExpectQuery("SELECT id, name, balance FROM customers").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "balance"}).
			AddRow(customerID, "ivan", int64(10000)))
	mock.ExpectQuery("FROM customer_total_purchases").
		WillReturnRows(sqlmock.NewRows([]string{"dealer_id", "amount"}))
	mock.ExpectQuery("FROM customer_cars").
		WillReturnRows(sqlmock.NewRows([]string{"car_id"}))

	// Пустой рынок
	mock.ExpectQuery("FROM dealers ORDER BY name").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "balance", "sell_out_days"}))
	mock.ExpectQuery("FROM dealer_stock_items").
		WillReturnRows(sqlmock.NewRows([]string{"id", "dealer_id", "amount", "price_per_one",
			"car_id", "brand", "model", "generation", "year_release", "year_end_of_production"}))
	mock.ExpectQuery("FROM dealer_discounts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "dealer_id", "name", "type", "min_amount", "percentage"}))
	mock.ExpectQuery("FROM dealer_campaigns").
		WillReturnRows(sqlmock.NewRows([]string{"id", "dealer_id", "name", "percentage", "start_date", "end_date"}))
	mock.ExpectQuery("FROM dealer_campaign_cars").
		WillReturnRows(sqlmock.NewRows([]string{"campaign_id", "car_id", "brand", "model", "generation", "year_release", "year_end_of_production"}))
	mock.ExpectQuery("FROM dealer_characteristics").
		WillReturnRows(sqlmock.NewRows([]string{"dealer_id", "id", "brand", "model", "generation", "year_release", "year_end_of_production"}))

	carID := uuid.New()
	offer := &models.CustomerOffer{CustomerID: customerID, CarID: &carID, MaxPrice: 1000}

	result, err := service.HandleCustomerOffer(context.Background(), offer)
	if err != nil {
		t.Fatalf("no match must not be an error, got %v", err)
	}
	if result.Decision != nil || result.Deal != nil {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestHandleCustomerOffer_InsufficientBalance(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newOfferService(db, nil)

	customerID := uuid.New()
	dealerID := uuid.New()

	// Баланс ниже итоговой цены 475
	mock.ExpectQuery("SELECT id, name, balance FROM customers").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "balance"}).
			AddRow(customerID, "ivan", int64(100)))
	mock.ExpectQuery("FROM customer_total_purchases").
		WillReturnRows(sqlmock.NewRows([]string{"dealer_id", "amount"}).AddRow(dealerID, int64(10)))
	mock.ExpectQuery("FROM customer_cars").
		WillReturnRows(sqlmock.NewRows([]string{"car_id"}))

	expectDealerPoolQueries(mock, dealerID)

	offer := &models.CustomerOffer{
		CustomerID:     customerID,
		Characteristic: &models.CarCharacteristic{Brand: "Lada", Model: "Vesta", Generation: "I"},
		MaxPrice:       1000,
	}

	_, err := service.HandleCustomerOffer(context.Background(), offer)
	if !apperror.Is(err, apperror.KindInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}
