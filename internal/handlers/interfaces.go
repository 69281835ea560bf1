package handlers

import (
	"context"

	"car-market/internal/models"
	"car-market/internal/services"

	"github.com/google/uuid"
)

// ----- Offers -----

type OfferProcessor interface {
	HandleCustomerOffer(ctx context.Context, offer *models.CustomerOffer) (*services.CustomerOfferResult, error)
	HandleDealerOffer(ctx context.Context, offer *models.DealerOffer) (*services.DealerOfferResult, error)
}

// ----- Scheduled tasks -----

type MarketTasks interface {
	RunDealerRestock(ctx context.Context, dealerID uuid.UUID) error
	RunCooperationCheck(ctx context.Context, dealerID uuid.UUID) error
}

// ----- Health -----

type DBHealth interface {
	Health() error
}

type RedisHealth interface {
	Health(ctx context.Context) error
}
