package services

import (
	"context"
	"fmt"
	"time"

	"car-market/internal/apperror"
	"car-market/internal/database"
	"car-market/internal/logger"
	"car-market/internal/models"

	"github.com/google/uuid"
)

// DealService атомарно исполняет принятое решение о покупке:
// перевод денег, списание склада, обновление накоплений и истории.
type DealService struct {
	db  *database.DB
	log *logger.Logger
}

// NewDealService создает новый экземпляр сервиса сделок
func NewDealService(db *database.DB, log *logger.Logger) *DealService {
	return &DealService{db: db, log: log}
}

// CarSalesStats содержит агрегат продаж дилера по одной машине
type CarSalesStats struct {
	CarID     uuid.UUID
	DealCount int64
	FirstDeal time.Time
}

// CompleteCustomerDeal проводит сделку покупателя с дилером.
// Все изменения выполняются в одной транзакции, частичных списаний нет.
func (s *DealService) CompleteCustomerDeal(ctx context.Context, customerID uuid.UUID, decision *models.OfferDecision) (*models.DealRecord, error) {
	total := decision.TotalPrice()
	sellerID := decision.Seller.SellerID()
	carID := decision.StockItem.Car.ID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE customers SET balance = balance - $1 WHERE id = $2 AND balance >= $1`,
		total, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to debit customer: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check customer debit: %w", err)
	} else if affected == 0 {
		return nil, apperror.InsufficientFunds("customer balance is below the deal price", nil)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE dealers SET balance = balance + $1 WHERE id = $2`,
		total, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to credit dealer: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check dealer credit: %w", err)
	} else if affected == 0 {
		return nil, apperror.NotFound("dealer not found", nil)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE dealer_stock_items SET amount = amount - $1 WHERE id = $2 AND amount >= $1`,
		decision.Amount, decision.StockItem.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement dealer stock: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check stock decrement: %w", err)
	} else if affected == 0 {
		return nil, apperror.Conflict("dealer stock is below the requested amount", nil)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO customer_total_purchases (customer_id, dealer_id, amount)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (customer_id, dealer_id)
		 DO UPDATE SET amount = customer_total_purchases.amount + EXCLUDED.amount`,
		customerID, sellerID, decision.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert total purchase: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO customer_cars (customer_id, car_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		customerID, carID)
	if err != nil {
		return nil, fmt.Errorf("failed to add owned car: %w", err)
	}

	deal := &models.DealRecord{
		ID:          uuid.New(),
		BuyerID:     customerID,
		SellerID:    sellerID,
		CarID:       carID,
		Amount:      decision.Amount,
		PricePerOne: decision.PricePerOne,
		Date:        time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO customer_deals_history (id, customer_id, dealer_id, car_id, amount, price_per_one, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		deal.ID, deal.BuyerID, deal.SellerID, deal.CarID, deal.Amount, deal.PricePerOne, deal.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to append deal history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"deal_id":       deal.ID,
		"customer_id":   customerID,
		"dealer_id":     sellerID,
		"car_id":        carID,
		"price_per_one": deal.PricePerOne,
	}).Info("Customer deal completed")

	return deal, nil
}

// CompleteDealerDeal проводит закупку дилера у поставщика.
// Машина встает на склад дилера: новая позиция получает цену закупки,
// существующая только увеличивает количество.
func (s *DealService) CompleteDealerDeal(ctx context.Context, dealerID uuid.UUID, decision *models.OfferDecision) (*models.DealRecord, error) {
	total := decision.TotalPrice()
	sellerID := decision.Seller.SellerID()
	carID := decision.StockItem.Car.ID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE dealers SET balance = balance - $1 WHERE id = $2 AND balance >= $1`,
		total, dealerID)
	if err != nil {
		return nil, fmt.Errorf("failed to debit dealer: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check dealer debit: %w", err)
	} else if affected == 0 {
		return nil, apperror.InsufficientFunds("dealer balance is below the deal price", nil)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE suppliers SET balance = balance + $1 WHERE id = $2`,
		total, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to credit supplier: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check supplier credit: %w", err)
	} else if affected == 0 {
		return nil, apperror.NotFound("supplier not found", nil)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE supplier_stock_items SET amount = amount - $1 WHERE id = $2 AND amount >= $1`,
		decision.Amount, decision.StockItem.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement supplier stock: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check stock decrement: %w", err)
	} else if affected == 0 {
		return nil, apperror.Conflict("supplier stock is below the requested amount", nil)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO supplier_total_purchases (dealer_id, supplier_id, amount)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (dealer_id, supplier_id)
		 DO UPDATE SET amount = supplier_total_purchases.amount + EXCLUDED.amount`,
		dealerID, sellerID, decision.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert total purchase: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO dealer_stock_items (id, dealer_id, car_id, amount, price_per_one)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (dealer_id, car_id)
		 DO UPDATE SET amount = dealer_stock_items.amount + EXCLUDED.amount`,
		uuid.New(), dealerID, carID, decision.Amount, decision.PricePerOne)
	if err != nil {
		return nil, fmt.Errorf("failed to restock dealer: %w", err)
	}

	deal := &models.DealRecord{
		ID:          uuid.New(),
		BuyerID:     dealerID,
		SellerID:    sellerID,
		CarID:       carID,
		Amount:      decision.Amount,
		PricePerOne: decision.PricePerOne,
		Date:        time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO dealer_deals_history (id, dealer_id, supplier_id, car_id, amount, price_per_one, date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		deal.ID, deal.BuyerID, deal.SellerID, deal.CarID, deal.Amount, deal.PricePerOne, deal.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to append deal history: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"deal_id":       deal.ID,
		"dealer_id":     dealerID,
		"supplier_id":   sellerID,
		"car_id":        carID,
		"amount":        deal.Amount,
		"price_per_one": deal.PricePerOne,
	}).Info("Dealer deal completed")

	return deal, nil
}

// DealerSalesHistory возвращает агрегаты продаж дилера по машинам
// за последние days дней: число сделок и дату первой сделки.
func (s *DealService) DealerSalesHistory(ctx context.Context, dealerID uuid.UUID, days int) ([]CarSalesStats, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx,
		`SELECT car_id, COUNT(*), MIN(date)
		 FROM customer_deals_history
		 WHERE dealer_id = $1 AND date >= $2
		 GROUP BY car_id`,
		dealerID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales history: %w", err)
	}
	defer rows.Close()

	var stats []CarSalesStats
	for rows.Next() {
		var st CarSalesStats
		if err := rows.Scan(&st.CarID, &st.DealCount, &st.FirstDeal); err != nil {
			return nil, fmt.Errorf("failed to scan sales stats: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sales stats: %w", err)
	}

	return stats, nil
}
