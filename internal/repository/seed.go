package repository

import (
    "context"
    "fmt"

    "github.com/google/uuid"

    "github.com/iliyamo/salon-booking/internal/model"
)

// ServiceSeeder is implemented by every service store.
type ServiceSeeder interface {
    Count(ctx context.Context) (int64, error)
    InsertMany(ctx context.Context, services []model.Service) error
}

// DefaultServices returns the starter catalogue with fresh ids.
func DefaultServices() []model.Service {
    return []model.Service{
        {ID: uuid.NewString(), Name: "Classic Manicure", DurationMinutes: 30, PriceCents: 2000, Description: "Basic manicure"},
        {ID: uuid.NewString(), Name: "Gel Polish", DurationMinutes: 45, PriceCents: 3500, Description: "Gel polish service"},
        {ID: uuid.NewString(), Name: "Spa Pedicure", DurationMinutes: 50, PriceCents: 4000, Description: "Relax pedicure"},
    }
}

// SeedServices inserts DefaultServices when the catalogue is empty.  It
// returns the number of services inserted, which is zero when the store
// already had data.
func SeedServices(ctx context.Context, s ServiceSeeder) (int, error) {
    n, err := s.Count(ctx)
    if err != nil {
        return 0, fmt.Errorf("count services: %w", err)
    }
    if n > 0 {
        return 0, nil
    }
    defaults := DefaultServices()
    if err := s.InsertMany(ctx, defaults); err != nil {
        return 0, fmt.Errorf("seed services: %w", err)
    }
    return len(defaults), nil
}
