package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"car-market/internal/apperror"
	"car-market/internal/config"
	"car-market/internal/database"
	"car-market/internal/logger"
	"car-market/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func newTestLogger() *logger.Logger {
	return logger.New(&config.LoggerConfig{Level: "debug", Format: "json"})
}

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	return &database.DB{DB: db}, mock
}

func customerDecision(dealerID uuid.UUID) *models.OfferDecision {
	car := &models.Car{ID: uuid.New(), Brand: "Lada", Model: "Vesta", Generation: "I", YearRelease: 2015}
	dealer := &models.Dealer{Company: models.Company{ID: dealerID, Name: "dealer"}}
	return &models.OfferDecision{
		Seller:      dealer,
		StockItem:   &models.StockItem{ID: uuid.New(), OwnerID: dealerID, Car: car, Amount: 5, PricePerOne: 500},
		Amount:      1,
		PricePerOne: 475,
	}
}

func dealerDecision(supplierID uuid.UUID, amount int64) *models.OfferDecision {
	car := &models.Car{ID: uuid.New(), Brand: "Lada", Model: "Vesta", Generation: "I", YearRelease: 2015}
	supplier := &models.Supplier{Company: models.Company{ID: supplierID, Name: "supplier"}}
	return &models.OfferDecision{
		Seller:      supplier,
		StockItem:   &models.StockItem{ID: uuid.New(), OwnerID: supplierID, Car: car, Amount: 100, PricePerOne: 1000},
		Amount:      amount,
		PricePerOne: 998,
	}
}

func TestCompleteCustomerDeal_Success(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewDealService(db, newTestLogger())
	customerID := uuid.New()
	dealerID := uuid.New()
	decision := customerDecision(dealerID)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE customers SET balance").
		WithArgs(int64(475), customerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE dealers SET balance").
		WithArgs(int64(475), dealerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE dealer_stock_items SET amount").
		WithArgs(int64(1), decision.StockItem.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO customer_total_purchases").
		WithArgs(customerID, dealerID, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO customer_cars").
		WithArgs(customerID, decision.StockItem.Car.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO customer_deals_history").
		WithArgs(sqlmock.AnyArg(), customerID, dealerID, decision.StockItem.Car.ID, int64(1), int64(475), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deal, err := service.CompleteCustomerDeal(context.Background(), customerID, decision)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if deal.PricePerOne != 475 || deal.Amount != 1 {
		t.Fatalf("unexpected deal: %+v", deal)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompleteCustomerDeal_InsufficientFunds(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewDealService(db, newTestLogger())
	customerID := uuid.New()
	decision := customerDecision(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE customers SET balance").
		WithArgs(int64(475), customerID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := service.CompleteCustomerDeal(context.Background(), customerID, decision)
	if !apperror.Is(err, apperror.KindInsufficientFunds) {
		t.Fatalf("expected insufficient funds error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompleteCustomerDeal_StockUnderflow(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewDealService(db, newTestLogger())
	customerID := uuid.New()
	dealerID := uuid.New()
	decision := customerDecision(dealerID)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE customers SET balance").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE dealers SET balance").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE dealer_stock_items SET amount").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := service.CompleteCustomerDeal(context.Background(), customerID, decision)
	if !apperror.Is(err, apperror.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

// Отказ на любом шаге обязан откатывать всю транзакцию
func TestCompleteCustomerDeal_RollbackAtEachStep(t *testing.T) {
	steps := []string{
		"UPDATE customers SET balance",
		"UPDATE dealers SET balance",
		"UPDATE dealer_stock_items SET amount",
		"INSERT INTO customer_total_purchases",
		"INSERT INTO customer_cars",
		"INSERT INTO customer_deals_history",
	}

	for failAt := range steps {
		t.Run(fmt.Sprintf("fail_at_step_%d", failAt+1), func(t *testing.T) {
			db, mock := newMockDB(t)
			defer db.Close()

			service := NewDealService(db, newTestLogger())
			customerID := uuid.New()
			decision := customerDecision(uuid.New())

			mock.ExpectBegin()
			for i := 0; i < failAt; i++ {
				mock.ExpectExec(steps[i]).WillReturnResult(sqlmock.NewResult(0, 1))
			}
			mock.ExpectExec(steps[failAt]).WillReturnError(fmt.Errorf("injected failure"))
			mock.ExpectRollback()

			if _, err := service.CompleteCustomerDeal(context.Background(), customerID, decision); err == nil {
				t.Fatalf("expected error at step %d", failAt+1)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestCompleteDealerDeal_Success(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewDealService(db, newTestLogger())
	dealerID := uuid.New()
	supplierID := uuid.New()
	decision := dealerDecision(supplierID, 18)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE dealers SET balance").
		WithArgs(int64(998*18), dealerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE suppliers SET balance").
		WithArgs(int64(998*18), supplierID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE supplier_stock_items SET amount").
		WithArgs(int64(18), decision.StockItem.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO supplier_total_purchases").
		WithArgs(dealerID, supplierID, int64(18)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO dealer_stock_items").
		WithArgs(sqlmock.AnyArg(), dealerID, decision.StockItem.Car.ID, int64(18), int64(998)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO dealer_deals_history").
		WithArgs(sqlmock.AnyArg(), dealerID, supplierID, decision.StockItem.Car.ID, int64(18), int64(998), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deal, err := service.CompleteDealerDeal(context.Background(), dealerID, decision)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if deal.Amount != 18 || deal.SellerID != supplierID {
		t.Fatalf("unexpected deal: %+v", deal)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompleteDealerDeal_InsufficientFunds(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewDealService(db, newTestLogger())
	dealerID := uuid.New()
	decision := dealerDecision(uuid.New(), 10)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE dealers SET balance").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := service.CompleteDealerDeal(context.Background(), dealerID, decision)
	if !apperror.Is(err, apperror.KindInsufficientFunds) {
		t.Fatalf("expected insufficient funds error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDealerSalesHistory(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewDealService(db, newTestLogger())
	dealerID := uuid.New()
	carID := uuid.New()
	first := time.Now().UTC().AddDate(0, 0, -45)

	mock.ExpectQuery("SELECT car_id, COUNT").
		WithArgs(dealerID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"car_id", "count", "min"}).
			AddRow(carID, int64(90), first))

	stats, err := service.DealerSalesHistory(context.Background(), dealerID, 90)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if len(stats) != 1 || stats[0].CarID != carID || stats[0].DealCount != 90 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
