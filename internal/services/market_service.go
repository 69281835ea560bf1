package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"car-market/internal/apperror"
	"car-market/internal/config"
	"car-market/internal/database"
	"car-market/internal/logger"
	"car-market/internal/models"
	"car-market/internal/redis"

	"github.com/google/uuid"
)

// MarketService загружает участников рынка из базы и кеширует
// пулы продавцов в Redis. Кеш сбрасывается после каждой сделки.
type MarketService struct {
	db    *database.DB
	cache *redis.Client
	log   *logger.Logger
	ttl   time.Duration
}

// NewMarketService создает новый экземпляр сервиса рынка
func NewMarketService(db *database.DB, cache *redis.Client, log *logger.Logger, cfg *config.MarketConfig) *MarketService {
	return &MarketService{
		db:    db,
		cache: cache,
		log:   log,
		ttl:   time.Duration(cfg.PoolCacheTTLSeconds) * time.Second,
	}
}

var (
	dealerPoolKey   = redis.GenerateKey(redis.KeyPrefixDealerPool, "all")
	supplierPoolKey = redis.GenerateKey(redis.KeyPrefixSupplierPool, "all")
)

// Dealers возвращает пул дилеров со складом, скидками и акциями
func (s *MarketService) Dealers(ctx context.Context) ([]*models.Dealer, error) {
	if s.cache != nil {
		var cached []*models.Dealer
		if err := s.cache.Get(ctx, dealerPoolKey, &cached); err == nil {
			return cached, nil
		}
	}

	dealers, err := s.loadDealers(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dealerPoolKey, dealers, s.ttl); err != nil {
			s.log.WithError(err).Warn("Failed to cache dealer pool")
		}
	}
	return dealers, nil
}

// Suppliers возвращает пул поставщиков со складом и скидками
func (s *MarketService) Suppliers(ctx context.Context) ([]*models.Supplier, error) {
	if s.cache != nil {
		var cached []*models.Supplier
		if err := s.cache.Get(ctx, supplierPoolKey, &cached); err == nil {
			return cached, nil
		}
	}

	suppliers, err := s.loadSuppliers(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, supplierPoolKey, suppliers, s.ttl); err != nil {
			s.log.WithError(err).Warn("Failed to cache supplier pool")
		}
	}
	return suppliers, nil
}

// InvalidatePools сбрасывает кеш пулов после изменения складов и балансов
func (s *MarketService) InvalidatePools(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, redis.KeyPrefixPool+":"); err != nil {
		s.log.WithError(err).Warn("Failed to invalidate pool cache")
	}
}

// CustomerByID загружает покупателя с накоплениями и машинами.
// Баланс всегда читается из базы, минуя кеш.
func (s *MarketService) CustomerByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer := &models.Customer{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, balance FROM customers WHERE id = $1`, id).
		Scan(&customer.ID, &customer.Name, &customer.Balance)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("customer not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT dealer_id, amount FROM customer_total_purchases WHERE customer_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer totals: %w", err)
	}
	defer rows.Close()
	var totals []models.TotalPurchase
	for rows.Next() {
		t := models.TotalPurchase{BuyerID: id}
		if err := rows.Scan(&t.SellerID, &t.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan customer total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customer totals: %w", err)
	}
	customer.TotalPurchases = models.PurchaseTotals(totals)

	carRows, err := s.db.QueryContext(ctx,
		`SELECT car_id FROM customer_cars WHERE customer_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer cars: %w", err)
	}
	defer carRows.Close()
	for carRows.Next() {
		var carID uuid.UUID
		if err := carRows.Scan(&carID); err != nil {
			return nil, fmt.Errorf("failed to scan customer car: %w", err)
		}
		customer.Cars = append(customer.Cars, carID)
	}
	if err := carRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customer cars: %w", err)
	}

	return customer, nil
}

// DealerByID загружает дилера как покупателя: баланс, склад,
// накопления по поставщикам и текущий список поставщиков.
func (s *MarketService) DealerByID(ctx context.Context, id uuid.UUID) (*models.Dealer, error) {
	dealer := &models.Dealer{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, balance, sell_out_days FROM dealers WHERE id = $1`, id).
		Scan(&dealer.ID, &dealer.Name, &dealer.Balance, &dealer.SellOutDays)
	if err == sql.ErrNoRows {
		return nil, apperror.NotFound("dealer not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load dealer: %w", err)
	}

	stock, err := s.loadStock(ctx,
		`SELECT s.id, s.dealer_id, s.amount, s.price_per_one,
		        c.id, c.brand, c.model, c.generation, c.year_release, c.year_end_of_production
		 FROM dealer_stock_items s
		 JOIN cars c ON c.id = s.car_id
		 WHERE s.dealer_id = $1`, id)
	if err != nil {
		return nil, err
	}
	dealer.Stock = stock[id]

	rows, err := s.db.QueryContext(ctx,
		`SELECT supplier_id, amount FROM supplier_total_purchases WHERE dealer_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealer totals: %w", err)
	}
	defer rows.Close()
	var totals []models.TotalPurchase
	for rows.Next() {
		t := models.TotalPurchase{BuyerID: id}
		if err := rows.Scan(&t.SellerID, &t.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan dealer total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dealer totals: %w", err)
	}
	dealer.SupplierTotals = models.PurchaseTotals(totals)

	supRows, err := s.db.QueryContext(ctx,
		`SELECT supplier_id FROM dealer_suppliers WHERE dealer_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealer suppliers: %w", err)
	}
	defer supRows.Close()
	for supRows.Next() {
		var supplierID uuid.UUID
		if err := supRows.Scan(&supplierID); err != nil {
			return nil, fmt.Errorf("failed to scan dealer supplier: %w", err)
		}
		dealer.Suppliers = append(dealer.Suppliers, supplierID)
	}
	if err := supRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dealer suppliers: %w", err)
	}

	return dealer, nil
}

// ReplaceDealerSuppliers заменяет список поставщиков дилера целиком
func (s *MarketService) ReplaceDealerSuppliers(ctx context.Context, dealerID uuid.UUID, suppliers []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM dealer_suppliers WHERE dealer_id = $1`, dealerID); err != nil {
		return fmt.Errorf("failed to clear dealer suppliers: %w", err)
	}

	for _, supplierID := range suppliers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dealer_suppliers (dealer_id, supplier_id) VALUES ($1, $2)`,
			dealerID, supplierID); err != nil {
			return fmt.Errorf("failed to add dealer supplier: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"dealer_id": dealerID,
		"suppliers": len(suppliers),
	}).Info("Dealer supplier list replaced")
	return nil
}

// loadDealers собирает пул дилеров одним запросом на таблицу
func (s *MarketService) loadDealers(ctx context.Context) ([]*models.Dealer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, balance, sell_out_days FROM dealers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealers: %w", err)
	}
	defer rows.Close()

	var dealers []*models.Dealer
	byID := make(map[uuid.UUID]*models.Dealer)
	for rows.Next() {
		d := &models.Dealer{SupplierTotals: make(map[uuid.UUID]int64)}
		if err := rows.Scan(&d.ID, &d.Name, &d.Balance, &d.SellOutDays); err != nil {
			return nil, fmt.Errorf("failed to scan dealer: %w", err)
		}
		dealers = append(dealers, d)
		byID[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dealers: %w", err)
	}

	stock, err := s.loadStock(ctx,
		`SELECT s.id, s.dealer_id, s.amount, s.price_per_one,
		        c.id, c.brand, c.model, c.generation, c.year_release, c.year_end_of_production
		 FROM dealer_stock_items s
		 JOIN cars c ON c.id = s.car_id`)
	if err != nil {
		return nil, err
	}
	for ownerID, items := range stock {
		if d, ok := byID[ownerID]; ok {
			d.Stock = items
		}
	}

	discounts, err := s.loadDiscounts(ctx,
		`SELECT id, dealer_id, name, type, min_amount, percentage FROM dealer_discounts`)
	if err != nil {
		return nil, err
	}
	for ownerID, items := range discounts {
		if d, ok := byID[ownerID]; ok {
			d.Discounts = items
		}
	}

	campaigns, err := s.loadCampaigns(ctx,
		`SELECT id, dealer_id, name, percentage, start_date, end_date FROM dealer_campaigns`,
		`SELECT cc.campaign_id, c.id, c.brand, c.model, c.generation, c.year_release, c.year_end_of_production
		 FROM dealer_campaign_cars cc
		 JOIN cars c ON c.id = cc.car_id`)
	if err != nil {
		return nil, err
	}
	for ownerID, items := range campaigns {
		if d, ok := byID[ownerID]; ok {
			d.Campaigns = items
		}
	}

	chRows, err := s.db.QueryContext(ctx,
		`SELECT dealer_id, id, brand, model, generation, year_release, year_end_of_production
		 FROM dealer_characteristics`)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealer characteristics: %w", err)
	}
	defer chRows.Close()
	for chRows.Next() {
		var ownerID uuid.UUID
		ch := &models.CarCharacteristic{}
		var brand, model, generation sql.NullString
		var yearRelease, yearEnd sql.NullInt64
		if err := chRows.Scan(&ownerID, &ch.ID, &brand, &model, &generation, &yearRelease, &yearEnd); err != nil {
			return nil, fmt.Errorf("failed to scan characteristic: %w", err)
		}
		ch.Brand = brand.String
		ch.Model = model.String
		ch.Generation = generation.String
		ch.YearRelease = nullableYear(yearRelease)
		ch.YearEndOfProduction = nullableYear(yearEnd)
		if d, ok := byID[ownerID]; ok {
			d.Characteristics = append(d.Characteristics, ch)
		}
	}
	if err := chRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate characteristics: %w", err)
	}

	return dealers, nil
}

// loadSuppliers собирает пул поставщиков одним запросом на таблицу
func (s *MarketService) loadSuppliers(ctx context.Context) ([]*models.Supplier, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, balance FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to load suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []*models.Supplier
	byID := make(map[uuid.UUID]*models.Supplier)
	for rows.Next() {
		sup := &models.Supplier{}
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, sup)
		byID[sup.ID] = sup
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate suppliers: %w", err)
	}

	stock, err := s.loadStock(ctx,
		`SELECT s.id, s.supplier_id, s.amount, s.price_per_one,
		        c.id, c.brand, c.model, c.generation, c.year_release, c.year_end_of_production
		 FROM supplier_stock_items s
		 JOIN cars c ON c.id = s.car_id`)
	if err != nil {
		return nil, err
	}
	for ownerID, items := range stock {
		if sup, ok := byID[ownerID]; ok {
			sup.Stock = items
		}
	}

	discounts, err := s.loadDiscounts(ctx,
		`SELECT id, supplier_id, name, type, min_amount, percentage FROM supplier_discounts`)
	if err != nil {
		return nil, err
	}
	for ownerID, items := range discounts {
		if sup, ok := byID[ownerID]; ok {
			sup.Discounts = items
		}
	}

	campaigns, err := s.loadCampaigns(ctx,
		`SELECT id, supplier_id, name, percentage, start_date, end_date FROM supplier_campaigns`,
		`SELECT cc.campaign_id, c.id, c.brand, c.model, c.generation, c.year_release, c.year_end_of_production
		 FROM supplier_campaign_cars cc
		 JOIN cars c ON c.id = cc.car_id`)
	if err != nil {
		return nil, err
	}
	for ownerID, items := range campaigns {
		if sup, ok := byID[ownerID]; ok {
			sup.Campaigns = items
		}
	}

	return suppliers, nil
}

// loadStock группирует позиции склада по владельцу
func (s *MarketService) loadStock(ctx context.Context, query string, args ...interface{}) (map[uuid.UUID][]*models.StockItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]*models.StockItem)
	for rows.Next() {
		item := &models.StockItem{Car: &models.Car{}}
		var yearEnd sql.NullInt64
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Amount, &item.PricePerOne,
			&item.Car.ID, &item.Car.Brand, &item.Car.Model, &item.Car.Generation,
			&item.Car.YearRelease, &yearEnd); err != nil {
			return nil, fmt.Errorf("failed to scan stock item: %w", err)
		}
		item.Car.YearEndOfProduction = nullableYear(yearEnd)
		result[item.OwnerID] = append(result[item.OwnerID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stock: %w", err)
	}
	return result, nil
}

// loadDiscounts группирует скидки по продавцу
func (s *MarketService) loadDiscounts(ctx context.Context, query string) (map[uuid.UUID][]*models.Discount, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load discounts: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]*models.Discount)
	for rows.Next() {
		d := &models.Discount{}
		if err := rows.Scan(&d.ID, &d.SellerID, &d.Name, &d.Type, &d.MinAmount, &d.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan discount: %w", err)
		}
		result[d.SellerID] = append(result[d.SellerID], d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate discounts: %w", err)
	}
	return result, nil
}

// loadCampaigns группирует акции по продавцу и подтягивает их машины
func (s *MarketService) loadCampaigns(ctx context.Context, campaignQuery, carsQuery string) (map[uuid.UUID][]*models.MarketingCampaign, error) {
	rows, err := s.db.QueryContext(ctx, campaignQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]*models.MarketingCampaign)
	byID := make(map[uuid.UUID]*models.MarketingCampaign)
	for rows.Next() {
		c := &models.MarketingCampaign{}
		if err := rows.Scan(&c.ID, &c.SellerID, &c.Name, &c.Percentage, &c.StartDate, &c.EndDate); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		result[c.SellerID] = append(result[c.SellerID], c)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", err)
	}

	carRows, err := s.db.QueryContext(ctx, carsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign cars: %w", err)
	}
	defer carRows.Close()
	for carRows.Next() {
		var campaignID uuid.UUID
		car := &models.Car{}
		var yearEnd sql.NullInt64
		if err := carRows.Scan(&campaignID, &car.ID, &car.Brand, &car.Model, &car.Generation,
			&car.YearRelease, &yearEnd); err != nil {
			return nil, fmt.Errorf("failed to scan campaign car: %w", err)
		}
		car.YearEndOfProduction = nullableYear(yearEnd)
		if c, ok := byID[campaignID]; ok {
			c.Cars = append(c.Cars, car)
		}
	}
	if err := carRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaign cars: %w", err)
	}

	return result, nil
}

func nullableYear(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	year := int(v.Int64)
	return &year
}
