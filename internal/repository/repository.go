package repository

import (
	"context"

	"github.com/novarobotics/stormdrain/internal/models"
)

type Filter struct {
	Limit  int
	Offset int
	Status *models.DrainStatus
	MinCRI *int
	// Query is a case-insensitive substring match on name, address and manage number.
	Query string
}

type DrainRepository interface {
	Upsert(ctx context.Context, d *models.StormDrain) error
	GetByID(ctx context.Context, id string) (*models.StormDrain, error)
	ListDrains(ctx context.Context, opts Filter) ([]models.StormDrain, error)
	Count(ctx context.Context) (int, error)
}
